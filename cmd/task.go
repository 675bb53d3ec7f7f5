package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yaverhq/yaver/config"
	"github.com/yaverhq/yaver/errors"
	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/observability"
)

var taskRunRequest string

// TaskCmd groups task-scoped operations that bypass the scheduler's own
// priority ordering, for callers that already know which task they want
// run next (e.g. a human retrying a FAILED task from a PR comment).
var TaskCmd = &cobra.Command{
	Use:   "task",
	Short: "Operate on individual tasks within a plan",
}

// taskRunCmd is the supplemented entry point Driver.RunTask documents:
// plan --request as usual, but execute exactly one named task instead of
// letting the scheduler pick, then bundle and push the result.
var taskRunCmd = &cobra.Command{
	Use:   "run <task-id>",
	Short: "Plan a request, then execute one specific task by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskRunRequest == "" {
			return fmt.Errorf("task run: --request is required")
		}
		requireLogger()
		taskID := args[0]

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		sess, err := buildSession(cfg, taskRunRequest)
		if err != nil {
			return err
		}

		log := logging.GetLogger().WithName("cmd")
		log.Info(context.Background(), "executing single task", logging.F("task_id", taskID))

		sm := errors.NewShutdownManager(cfg.Orchestrator.ShellTimeout)
		sm.RegisterFunc("tracer", observability.ShutdownTracer)

		runErr := errors.RunWithShutdown(func(ctx context.Context) error {
			return sess.driver.RunTask(ctx, sess.state, taskID)
		}, cfg.Orchestrator.ShellTimeout)

		if err := sm.Shutdown(context.Background()); err != nil {
			log.Warn(context.Background(), "teardown incomplete", logging.F("error", err.Error()))
		}

		return runErr
	},
}

func init() {
	taskRunCmd.Flags().StringVar(&taskRunRequest, "request", "", "natural-language description used to (re)build the plan")
	TaskCmd.AddCommand(taskRunCmd)
}
