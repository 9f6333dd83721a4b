package cli

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/malbeclabs/finagent/pkg/config"
	"github.com/malbeclabs/finagent/pkg/server"
	"github.com/spf13/cobra"
)

type ServeCmd struct{}

func NewServeCmd() *ServeCmd {
	return &ServeCmd{}
}

func (c *ServeCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			httpAddr, err := cmd.Flags().GetString("http-addr")
			if err != nil {
				return fmt.Errorf("failed to get http-addr flag: %w", err)
			}
			sessionTTL, err := cmd.Flags().GetDuration("session-ttl")
			if err != nil {
				return fmt.Errorf("failed to get session-ttl flag: %w", err)
			}

			flags, err := rootFlags(cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			flags.HTTPAddr = httpAddr
			flags.SessionTTL = sessionTTL
			cfg, err := config.Load(flags, true)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Verbose)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			st, err := openStore(ctx, log, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			router, err := newRouter(log, cfg, st)
			if err != nil {
				return err
			}

			srv, err := server.New(log, server.Config{
				Replier:    router,
				SessionTTL: cfg.SessionTTL,
			})
			if err != nil {
				return err
			}

			listener, err := net.Listen("tcp", cfg.HTTPAddr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.HTTPAddr, err)
			}
			return srv.Serve(ctx, listener)
		},
	}

	cmd.Flags().String("http-addr", config.DefaultHTTPAddr, "address to listen on")
	cmd.Flags().Duration("session-ttl", config.DefaultSessionTTL, "idle time after which a chat session is dropped")

	return cmd
}
