package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/canvas-agent/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent graph over HTTP (invoke, SSE stream, metrics)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, s, err := loadGraph()
			if err != nil {
				return err
			}
			srv, err := server.New(
				server.WithAddr(s.ListenAddr),
				server.WithGraph(g),
				server.WithRequestTimeout(s.RequestTimeout),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
}
