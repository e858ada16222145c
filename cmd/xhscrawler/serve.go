package main

import (
	"github.com/spf13/cobra"
	"xhscrawler/internal/api"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the crawl and detail endpoints over HTTP",
	Example: `  xhscrawler serve --address :8000
  XHS_DOWNLOADER_ENABLED=true xhscrawler serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(map[string]interface{}{"address": serveAddress})
		if err != nil {
			return err
		}
		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		if err := a.details.Startup(ctx); err != nil {
			return err
		}
		defer func() {
			if err := a.details.Shutdown(ctx); err != nil {
				log.WithError(err).Warn("xhs downloader shutdown failed")
			}
		}()

		var sp api.Spider
		if a.spider != nil {
			sp = a.spider
		}
		out.Info("Listening", cfg.Server.Address)
		return api.New(cfg.Server, sp, a.details, log).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address (default from config, :8000)")
}
