package main

import (
	"fmt"
	"strings"

	"github.com/h0rv/kanbanbar/internal/board"
	"github.com/h0rv/kanbanbar/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings, environment overrides included",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(configFlag)
				if err != nil {
					return err
				}
				out, err := cfg.Redacted()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Save a setting to the config file",
			Long:  "Save a setting to the config file.\n\nKeys: " + strings.Join(config.Keys(), ", "),
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, value := strings.ToLower(args[0]), args[1]
				if key == "board.filter" {
					if _, err := board.ParseFilter(value); err != nil {
						return err
					}
				}
				if _, err := config.Set(configFlag, key, value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", key)
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				path := configFlag
				if path == "" {
					path = config.DefaultPath()
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			},
		},
	)
	return cmd
}
