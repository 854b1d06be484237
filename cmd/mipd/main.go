// Command mipd is the MIP router: it binds a raw link socket on the
// given interfaces, opens a local listening socket for a ping endpoint
// and a routing daemon, and forwards PDUs between them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/multiib/mipd/internal/config"
	"github.com/multiib/mipd/internal/hostfw"
	"github.com/multiib/mipd/internal/link"
	"github.com/multiib/mipd/internal/router"
	"github.com/multiib/mipd/internal/status"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	globalVerbose    bool
	globalTuningPath string
	globalLogger     *slog.Logger

	harden           bool
	statusSocketPath string
)

var rootCmd = &cobra.Command{
	Use:   "mipd <socket> <mip_address>",
	Short: "MIP router daemon",
	Long: `mipd binds a raw Ethernet socket to the host's interfaces and routes
MIP PDUs between them, a ping endpoint, and a routing daemon connected
over a local socket.`,
	Args: cobra.ExactArgs(2),
	RunE: runDaemon,
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
	rootCmd.PersistentFlags().StringVar(&statusSocketPath, "status-socket", "", "local socket path for the status server (required by 'mipd status'/'mipd invite')")

	rootCmd.Flags().BoolVar(&harden, "harden", false, "install an nftables rule restricting MIP's Ethertype to the bound interfaces")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(inviteCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mipd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func runDaemon(cmd *cobra.Command, args []string) error {
	socketPath := args[0]
	mipAddr, err := parseMIPAddress(args[1])
	if err != nil {
		return err
	}

	cfg, err := config.Load(globalTuningPath)
	if err != nil {
		return err
	}

	r, err := router.New(cfg, mipAddr, globalLogger)
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}

	if statusSocketPath != "" {
		r = r.WithStatusServer(status.NewServer(statusSocketPath, globalLogger))
	}

	if err := r.Open(socketPath); err != nil {
		return fmt.Errorf("opening router: %w", err)
	}
	defer r.Close()

	var guard *hostfw.Guard
	if harden {
		guard = hostfw.NewGuard(globalLogger)
		if err := guard.Install(link.EtherType, r.InterfaceNames()); err != nil {
			return fmt.Errorf("hardening interfaces: %w", err)
		}
		defer guard.Remove()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	globalLogger.Info("mipd starting", "socket", socketPath, "mip", mipAddr)

	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("router stopped: %w", err)
	}
	globalLogger.Info("mipd stopped")
	return nil
}

func parseMIPAddress(s string) (byte, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid MIP address %q: %w", s, err)
	}
	if n < 0 || n > 254 {
		return 0, fmt.Errorf("MIP address %d out of range 0..254", n)
	}
	return byte(n), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
