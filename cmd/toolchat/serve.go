package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"toolchat/internal/confirm"
	"toolchat/internal/server"
)

func newServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Runs the chat loop behind an HTTP API. Gated tool calls suspend and
are answered via POST /api/confirmations/:id instead of a terminal prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(confirm.ModeSuspend)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(app.engine, app.store, app.registry, app.executor, app.gate,
				app.logger, server.Options{Host: host, Port: port, Debug: flagDebug})
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen host")
	cmd.Flags().IntVar(&port, "port", 8080, "listen port")
	return cmd
}
