// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the ojamed CLI.
//
// ojamed uploads lecture decks (.pptx, .ppt, .pdf) to the OjaMed conversion
// service and saves the returned flashcard archives. Settings come from
// flags, OJAMED_* environment variables (a .env file is loaded first), and
// ojamed.yaml, in that order of precedence.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/ojamed/internal/client"
	"github.com/pdiddy/ojamed/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultTimeout   = 10 * time.Minute
	defaultUserAgent = "ojamed/0.1"
)

// logger is built in PersistentPreRunE from the --verbose flag.
var logger = zap.NewNop()

// rootCmd is the base command for the ojamed CLI.
var rootCmd = &cobra.Command{
	Use:   "ojamed",
	Short: "Turn lecture slides into flashcard decks",
	Long: `ojamed sends lecture presentations (.pptx, .ppt) and PDFs to the OjaMed
conversion service and saves the generated flashcard package.

Point it at a service with --api-url, OJAMED_API_URL, or api_url in
ojamed.yaml. For offline work, run "ojamed serve-stub" and use
http://localhost:8000.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./ojamed.yaml or ~/.config/ojamed/ojamed.yaml)")
	pf.String("api-url", "", "conversion service origin, e.g. http://localhost:8000")
	pf.Duration("timeout", 0, "HTTP request timeout (default 10m)")
	pf.BoolP("verbose", "v", false, "debug logging on stderr")

	_ = viper.BindPFlag("api_url", pf.Lookup("api-url"))
	_ = viper.BindPFlag("timeout", pf.Lookup("timeout"))

	viper.SetDefault("timeout", defaultTimeout)
	viper.SetDefault("user_agent", defaultUserAgent)
	viper.SetDefault("output_dir", ".")
	viper.SetDefault("reset_delay", 3*time.Second)
	if home, err := os.UserHomeDir(); err == nil {
		viper.SetDefault("history_db", filepath.Join(home, ".config", "ojamed", "history.db"))
	}
}

func initConfig() {
	// A missing .env file is normal.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ojamed")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ojamed"))
		}
	}

	viper.SetEnvPrefix("OJAMED")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zap.NewDevelopmentEncoderConfig().EncodeTime
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return l, nil
}

// clientConfig assembles the client settings from viper.
func clientConfig() types.ClientConfig {
	timeout := viper.GetDuration("timeout")
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return types.ClientConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: viper.GetString("user_agent"),
		},
		BaseURL:    viper.GetString("api_url"),
		OutputDir:  viper.GetString("output_dir"),
		HistoryDB:  viper.GetString("history_db"),
		ResetDelay: viper.GetDuration("reset_delay"),
	}
}

func newClient(cfg types.ClientConfig) (*client.Client, error) {
	return client.New(cfg, &http.Client{Timeout: cfg.Timeout}, logger.Named("client"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
