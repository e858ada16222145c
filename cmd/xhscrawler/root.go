package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"xhscrawler/pkg/config"
	"xhscrawler/pkg/logger"
	"xhscrawler/pkg/ui"
)

var (
	// Version information, set with -ldflags
	version   = "0.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool

	out = ui.NewPrinter(os.Stdout)
)

var rootCmd = &cobra.Command{
	Use:   "xhscrawler",
	Short: "Fetch Xiaohongshu notes, users and comments",
	Long: `xhscrawler fetches Xiaohongshu notes, user profiles, search results and
comments through the signed web API, saves note media and exports results to
xlsx or csv.

Cookies come from --cookies, --prompt-cookie, XHS_DEFAULT_COOKIES or the config
file, in that order. They are never written to disk.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			out.SetColor(false)
		}
		out.SetQuiet(quiet)
		if cmd.Name() != "version" && cmd.Name() != "help" {
			out.Banner()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		out.Error("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./.xhscrawler.yaml or ~/.config/xhscrawler/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "print errors only")

	rootCmd.SetVersionTemplate(`xhscrawler {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration and initializes the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, logger.Logger, error) {
	if flags == nil {
		flags = map[string]interface{}{}
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.GetLogger(), nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
