// Package cmd implements the yaver command-line interface: the Cobra
// commands that load configuration, wire up the engine's collaborators
// (Generator, ForgeClient, VersionControl, CodeScanner, ContextRetriever),
// and drive a session to completion.
package cmd

import (
	"github.com/spf13/cobra"
)

// RootCmd is the yaver CLI's top-level command.
var RootCmd = &cobra.Command{
	Use:   "yaver",
	Short: "An autonomous software-engineering agent",
	Long: `yaver observes Git forges and local repositories, decomposes natural-language
work requests into an ordered plan of subtasks, drives a language model to
produce code edits for each subtask, validates and commits those edits, and
reacts to pull-request review comments as they arrive.`,
}

func init() {
	RootCmd.AddCommand(RunCmd)
	RootCmd.AddCommand(TaskCmd)
}
