// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ojamed/internal/options"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage option profiles",
}

var profileInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a profile holding the default options",
	Long: `Init writes the default card options to a YAML profile (default
ojamed-profile.yaml). Edit it and pass it to convert with --profile.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "ojamed-profile.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := options.SaveProfile(path, options.DefaultToggles()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote: %s\n", path)
		return nil
	},
}

func init() {
	profileInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	profileCmd.AddCommand(profileInitCmd)
	rootCmd.AddCommand(profileCmd)
}
