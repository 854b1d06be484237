package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/multiib/mipd/internal/status"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show router status",
	Long:  `Query the running mipd process over --status-socket and display its MIP address, bound interfaces, and queue occupancy.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "stream status updates as they happen")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusSocketPath == "" {
		return fmt.Errorf("--status-socket must be set on both 'mipd' and 'mipd status'")
	}

	if statusWatch {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return status.WatchStatus(ctx, statusSocketPath, printSnapshot)
	}

	snap, err := status.FetchStatus(statusSocketPath)
	if err != nil {
		return fmt.Errorf("is mipd running with --status-socket? %w", err)
	}
	printSnapshot(*snap)
	return nil
}

func printSnapshot(s status.Snapshot) {
	fmt.Fprintf(os.Stdout, "MIP address:   %d\n", s.MIP)
	fmt.Fprintf(os.Stdout, "Ping peer:     %t\n", s.PingConnected)
	fmt.Fprintf(os.Stdout, "Routing peer:  %t\n", s.RoutingConnected)
	fmt.Fprintf(os.Stdout, "ARP cache:     %d entries\n", s.ARPCacheSize)
	fmt.Fprintf(os.Stdout, "Pending ARP:   %d\n", s.PendingARPCount)
	fmt.Fprintf(os.Stdout, "Forward FIFO:  %d\n", s.ForwardFIFOLen)
	fmt.Fprintln(os.Stdout)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTERFACE")
	for _, name := range s.Interfaces {
		fmt.Fprintf(w, "%s\n", name)
	}
	w.Flush()

	if statusWatch {
		fmt.Fprintln(os.Stdout, "---")
	}
}
