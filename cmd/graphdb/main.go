// Command graphdb runs the batch-protocol server over an embeddable
// graph datastore.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orneryd/graphdb/pkg/audit"
	"github.com/orneryd/graphdb/pkg/auth"
	"github.com/orneryd/graphdb/pkg/config"
	"github.com/orneryd/graphdb/pkg/datastore"
	"github.com/orneryd/graphdb/pkg/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "graphdb",
		Short: "Embeddable graph datastore server",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the batch-protocol server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("bind", "", "bind address, e.g. 127.0.0.1:8901")
	serveCmd.Flags().String("connection-string", "", "datastore connection string, e.g. memory://")
	serveCmd.Flags().Int("workers", 0, "maximum concurrent requests")
	serveCmd.Flags().String("config", "", "optional YAML config file")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.LoadFromEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := cfg.MergeYAMLFile(path); err != nil {
			return fmt.Errorf("loading config file: %w", err)
		}
	}

	if bind, _ := cmd.Flags().GetString("bind"); bind != "" {
		cfg.BindAddr = bind
	}
	if conn, _ := cmd.Flags().GetString("connection-string"); conn != "" {
		cfg.ConnectionString = conn
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers != 0 {
		cfg.Workers = workers
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := datastore.Open(cfg.ConnectionString)
	if err != nil {
		return fmt.Errorf("opening datastore at %q: %w", cfg.ConnectionString, err)
	}
	defer store.Close()

	srv := server.New(server.Config{
		BindAddr: cfg.BindAddr,
		Store:    store,
		Creds:    auth.NewMemoryStore(),
		Audit:    audit.NewLogger(os.Stdout),
		Workers:  cfg.Workers,
	})

	fmt.Printf("listening on %s (%s, %d workers)\n", cfg.BindAddr, cfg.ConnectionString, cfg.Workers)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
