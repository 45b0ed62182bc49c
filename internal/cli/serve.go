package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harun/mnemo/pkg/events"
	"github.com/harun/mnemo/pkg/gateway"
	"github.com/harun/mnemo/pkg/toolexec"
)

var (
	servePort   int
	serveSecret string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the memory surface over HTTP",
	Long: `Run the HTTP gateway: message events, compaction hooks, the tool
surface, and Prometheus metrics. The --store flag selects the store opened
at startup; the store_use tool can switch stores at runtime.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 7690, "listen port")
	serveCmd.Flags().StringVar(&serveSecret, "secret", "", "shared secret; empty disables auth")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.activate(cmd.Context()); err != nil {
		return err
	}

	executor := toolexec.New()
	if err := app.orch.RegisterTools(executor); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	hub := events.NewHub()
	cancel := app.orch.Attach(hub)
	defer cancel()

	srv, err := gateway.NewServer(gateway.Config{
		Port:         servePort,
		SharedSecret: serveSecret,
		Hub:          hub,
		Orchestrator: app.orch,
		Executor:     executor,
		Logger:       app.log.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to build gateway: %w", err)
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Gateway listening on port %d\n", servePort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	return srv.Stop()
}
