// Command routingd is the routing daemon: it connects to a running
// mipd as the routing identity and runs the distance-vector HELLO/UPD
// exchange that keeps mipd's next-hop lookups answered.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/multiib/mipd/internal/config"
	"github.com/multiib/mipd/internal/routing"
)

var (
	globalVerbose    bool
	globalTuningPath string
	globalLogger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "routingd <socket>",
	Short: "MIP distance-vector routing daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runDaemon,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if globalVerbose {
			level = slog.LevelDebug
		}
		globalLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&globalTuningPath, "tuning", "", "path to tuning TOML file (default: compiled-in constants)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	socketPath := args[0]

	cfg, err := config.Load(globalTuningPath)
	if err != nil {
		return err
	}

	d, err := routing.Connect(socketPath, cfg, globalLogger)
	if err != nil {
		return fmt.Errorf("connecting to router: %w", err)
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	globalLogger.Info("routingd starting", "socket", socketPath)

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("routing daemon stopped: %w", err)
	}
	globalLogger.Info("routingd stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
