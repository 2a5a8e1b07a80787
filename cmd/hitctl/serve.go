package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/georgfedermann/hit2assext"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin HTTP server and the session sweeper",
		Long: `Starts the admin API (sessions, sweep, metrics) of a render-session pool and reaps
sessions older than stale_after every sweep_interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Admin.Addr = addr
			}

			rt, err := hit2assext.New(cfg)
			if err != nil {
				return fmt.Errorf("error initializing runtime: %w", err)
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt.Logger.Info("Starting hitctl",
				"version", hit2assext.Version,
				"stale_after", cfg.StaleAfter,
				"sink", cfg.Sink.Backend,
			)
			return rt.Serve(ctx)
		},
	}
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides admin.addr)")
	return serveCmd
}
