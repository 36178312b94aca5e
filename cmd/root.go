package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func NewRootCmd() *cobra.Command {
	opts := &runOptions{}
	root := &cobra.Command{
		Use:   "slotwatch",
		Short: "Watch a signup page during a weekly window and register as soon as a slot opens",
		Long: `slotwatch polls a web page during a configured weekly time window and
submits a registration as soon as a signup slot becomes available.

Without an action flag it runs the scheduler until stopped. Stop a running
instance with "slotwatch --stop", Ctrl+C, or the control endpoint.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.stop:
				return doStop(cmd)
			case opts.showConfig:
				return doShowConfig(cmd)
			case opts.configure:
				return doConfigure(cmd, opts)
			}
			return runService(cmd, opts)
		},
	}
	addRunFlags(root, opts)
	root.Flags().BoolVar(&opts.configure, "configure", false, "update the configuration file from the given flags and exit")
	root.Flags().BoolVar(&opts.showConfig, "show-config", false, "print the configuration file and exit")
	root.Flags().BoolVar(&opts.stop, "stop", false, "ask a running instance to stop")

	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newMigrateCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.msg != "" {
				fmt.Fprintln(os.Stderr, ee.msg)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
