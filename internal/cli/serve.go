package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/admin"
	"github.com/veloserve/veloctl/internal/output"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local admin API",
	Long: `Run the admin HTTP API until interrupted.

The API mirrors the CLI surface: status, registry access, SSL binding,
switchover and reload. It binds to localhost; set the token option (or
VELOCTL_TOKEN) to require a bearer token on every request.

Examples:
  veloctl serve
  veloctl serve --addr 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default 127.0.0.1:<port> from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, agent, err := loadAgent()
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}

	routes := admin.NewRoutes(agent.Status, agent.Repo, agent.SSL, agent.Controller, agent.VeloServe, agent.Apache, cfg.Version, agent.Log)
	server := admin.NewServer(admin.Options{
		Addr:  addr,
		Token: cfg.Token,
	}, routes, agent.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	output.Info("Admin API listening on %s", addr)
	return server.Run(ctx)
}
