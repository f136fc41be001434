// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the conversion service's cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(clientConfig())
		if err != nil {
			return err
		}
		info, err := c.CacheInfo(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(clientConfig())
		if err != nil {
			return err
		}
		out, err := c.ClearCache(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
