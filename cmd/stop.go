package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/interfaces/web"
	"github.com/example/slotwatch/internal/runlock"
	"github.com/example/slotwatch/internal/stopsignal"
)

// doStop writes the stop file and, when a control address is configured,
// also asks the instance directly.
func doStop(cmd *cobra.Command) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if err := stopsignal.WriteSentinel(cfg.StopFile); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Stop requested (%s)\n", cfg.StopFile)

	if h, err := runlock.Read(cfg.LockFile); err == nil {
		fmt.Fprintf(out, "running instance: pid=%d since %s\n", h.PID, h.StartedAt.Format(time.RFC3339))
	}

	if cfg.ControlAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tokens := web.NewTokenCodec(cfg.ControlHashKey, cfg.ControlBlockKey)
		if err := web.SendStop(ctx, cfg.ControlAddr, tokens); err != nil {
			fmt.Fprintf(os.Stderr, "control endpoint: %v (the stop file still applies)\n", err)
		}
	}
	return nil
}
