// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/ojamed/internal/stubserver"
	"github.com/pdiddy/ojamed/pkg/types"
)

var serveStubCmd = &cobra.Command{
	Use:   "serve-stub",
	Short: "Run a local stand-in for the conversion service",
	Long: `Serve-stub answers the service's endpoints with placeholder archives and
JSON, for working without the real service. Use --max-upload-bytes and
--fail-status to reproduce the 413 and 500 failures.`,
	Args: cobra.NoArgs,
	RunE: runServeStub,
}

func init() {
	f := serveStubCmd.Flags()
	f.String("addr", stubserver.DefaultAddr, "listen address")
	f.Int64("max-upload-bytes", stubserver.DefaultMaxUploadBytes, "request body limit; larger uploads get HTTP 413")
	f.Int("fail-status", 0, "answer every conversion with this HTTP status")
	f.Duration("latency", 0, "artificial delay before each conversion")
	f.StringSlice("allow-origin", stubserver.DefaultAllowedOrigins, "CORS allowed origins")

	rootCmd.AddCommand(serveStubCmd)
}

func runServeStub(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	var cfg types.StubServerConfig
	cfg.Addr, _ = f.GetString("addr")
	cfg.MaxUploadBytes, _ = f.GetInt64("max-upload-bytes")
	cfg.FailStatus, _ = f.GetInt("fail-status")
	cfg.Latency, _ = f.GetDuration("latency")
	cfg.AllowedOrigins, _ = f.GetStringSlice("allow-origin")

	if verbose, _ := f.GetBool("verbose"); !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return stubserver.New(cfg, logger.Named("stub")).Run(ctx)
}
