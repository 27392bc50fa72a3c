package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func configCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings, after flags and environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.loadSettings()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "# %s\n", a.store.Path)
			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(settings); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with defaults and any flag values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.store.Path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", a.store.Path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			settings, err := a.loadSettings()
			if err != nil {
				return err
			}
			if err := a.store.Save(settings); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s\n", a.store.Path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	cmd.AddCommand(show, initCmd)
	return cmd
}
