package app

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/hugr-lab/recordfilter"
)

const defaultGracefulTimeout = 30 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Arrow Flight filter server",
		Long: `Start an Arrow Flight server that filters record batches streamed through
DoExchange. The filter command is carried in the flight descriptor.

With --token the server requires a bearer token. Tokens are given as
TOKEN=IDENTITY pairs; a bare TOKEN authenticates as "client".`,
		RunE: c.runServe,
	}
	cmd.Flags().String("address", ":50051", "Address to listen on")
	cmd.Flags().StringSlice("token", nil, "Accepted bearer tokens (TOKEN or TOKEN=IDENTITY, repeatable)")
	cmd.Flags().Int("max-message-size", 16<<20, "Maximum gRPC message size in bytes")
	addEngineFlags(cmd)
	return cmd
}

// parseTokens turns TOKEN or TOKEN=IDENTITY entries into a token map.
func parseTokens(entries []string) (map[string]string, error) {
	tokens := make(map[string]string, len(entries))
	for _, e := range entries {
		token, identity, found := strings.Cut(strings.TrimSpace(e), "=")
		if token == "" {
			return nil, fmt.Errorf("invalid token entry %q", e)
		}
		if !found || identity == "" {
			identity = "client"
		}
		tokens[token] = identity
	}
	return tokens, nil
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	engineConfig, err := c.engineConfig()
	if err != nil {
		return err
	}
	engine, err := recordfilter.New(engineConfig)
	if err != nil {
		return err
	}
	defer engine.Close()

	config := recordfilter.ServerConfig{
		Engine:         engine,
		Logger:         c.logger,
		MaxMessageSize: c.v.GetInt("max-message-size"),
	}
	if entries := c.v.GetStringSlice("token"); len(entries) > 0 {
		tokens, err := parseTokens(entries)
		if err != nil {
			return err
		}
		config.Auth = recordfilter.StaticTokens(tokens)
	}

	grpcServer := grpc.NewServer(recordfilter.ServerOptions(config)...)
	if err := recordfilter.NewServer(grpcServer, config); err != nil {
		return err
	}

	address := c.v.GetString("address")
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(lis)
	}()
	c.logger.Info("Record filter server listening", "address", lis.Addr().String(), "auth", config.Auth != nil)

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	c.logger.Info("Shutting down record filter server")
	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(defaultGracefulTimeout):
		grpcServer.Stop()
	}
	return nil
}
