package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/infrastructure/configstore"
)

func doConfigure(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	p, err := opts.patch(cmd)
	if err != nil {
		return err
	}
	if p.Empty() {
		return errors.New("--configure needs at least one setting flag")
	}

	store := configstore.New(cfg.ConfigPath)
	doc, err := store.Update(p)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration updated: %s\n", store.Path())
	for _, e := range doc.Validate() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", e.Error())
	}
	return printDocument(cmd, doc)
}

func doShowConfig(cmd *cobra.Command) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	doc, err := configstore.New(cfg.ConfigPath).Load()
	if err != nil {
		return err
	}
	return printDocument(cmd, doc)
}

func printDocument(cmd *cobra.Command, doc configstore.Document) error {
	b, err := configstore.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(b)
	return err
}
