package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	Execute(ctx)
}

// Execute runs the dmis command tree until ctx is cancelled.
func Execute(ctx context.Context) {
	rootCmd := &cobra.Command{
		Use:     "dmis",
		Short:   "Supply replenishment service for disaster relief warehouses",
		Version: version,
	}
	rootCmd.PersistentFlags().String("config", os.Getenv("DMIS_CONFIG"), "Path to the TOML configuration file")

	rootCmd.AddCommand(ServeCmd, PlanCmd, FreshnessCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func appFromCommand(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	return newApp(cmd.Context(), configPath)
}
