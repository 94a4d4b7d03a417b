package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AxlHim26/gview-server/internal/config"
	"github.com/AxlHim26/gview-server/internal/server"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "gview-server",
		Short: "Rendezvous and relay signaling service for gview peers",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the signaling server",
		RunE:  runStart,
	}

	startCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: configs/config.yaml)")
	rootCmd.AddCommand(startCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	// Set up logger
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync()

	// Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	srv := server.New(cfg, logger)
	return srv.Run(context.Background())
}
