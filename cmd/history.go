package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/db"
	"github.com/example/slotwatch/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "history",
		Short: "List recent attempts recorded in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			entries, err := history.NewRepo(d, zerolog.Nop()).Recent(ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s run=%s cycle=%d outcome=%s took=%s url=%s",
					e.AttemptedAt.Local().Format(time.RFC3339), e.RunID, e.Cycle, e.Outcome, e.Elapsed.Round(time.Millisecond), e.URL)
				if e.Reason != "" {
					fmt.Fprintf(out, " reason=%q", e.Reason)
				}
				if e.Link != "" {
					fmt.Fprintf(out, " link=%s", e.Link)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "number of attempts to show")
	return c
}
