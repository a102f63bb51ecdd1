package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teamboard/teamboard/src/internal/logging"
	"github.com/teamboard/teamboard/src/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	environment, err := setupEnv()
	if err != nil {
		return err
	}

	logger := logging.New(environment.cfg)
	srv, err := server.New(environment.cfg, environment.db, environment.tool, logger)
	if err != nil {
		return err
	}

	// Serve until interrupted, then drain
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		fmt.Println(dimStyle.Render(fmt.Sprintf("received %s, shutting down", sig)))
		return srv.Shutdown(context.Background())
	}
}
