package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yaverhq/yaver/config"
	"github.com/yaverhq/yaver/errors"
	"github.com/yaverhq/yaver/logging"
)

var runRequest string

// RunCmd starts a full engine session for a natural-language work
// request: plan, then iterate monitor -> scheduler -> executor -> side
// effects until the graph is exhausted or the iteration budget runs out.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Plan and execute a work request against the configured repository",
	Long: `run decomposes --request into a task graph and drives it to completion,
committing and pushing a single bundled change when the session ends.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runRequest == "" {
			return fmt.Errorf("run: --request is required")
		}
		requireLogger()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		sess, err := buildSession(cfg, runRequest)
		if err != nil {
			return err
		}

		log := logging.GetLogger().WithName("cmd")
		log.Info(context.Background(), "starting session", logging.F("request", runRequest))

		sm := errors.NewShutdownManager(cfg.Orchestrator.ShellTimeout)
		sm.SetLogger(func(msg string) {
			log.Debug(context.Background(), msg)
		})
		startOps(cfg, sess, sm)

		runErr := errors.RunWithShutdown(func(ctx context.Context) error {
			return sess.driver.Run(ctx, sess.state)
		}, cfg.Orchestrator.ShellTimeout)

		reportHealth(sess)
		if err := sm.Shutdown(context.Background()); err != nil {
			log.Warn(context.Background(), "teardown incomplete", logging.F("error", err.Error()))
		}

		return runErr
	},
}

func init() {
	RunCmd.Flags().StringVar(&runRequest, "request", "", "natural-language description of the work to perform")
}
