package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/multiib/mipd/internal/status"
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Print a descriptor for this node to share with a peer",
	Long: `Query the running mipd process and print its MIP address, bound
interfaces, and status socket path as a single descriptor string to
share with another operator. The descriptor is also copied to the
clipboard and shown as a QR code.`,
	RunE: runInvite,
}

func runInvite(cmd *cobra.Command, args []string) error {
	if statusSocketPath == "" {
		return fmt.Errorf("--status-socket must be set on both 'mipd' and 'mipd invite'")
	}

	snap, err := status.FetchStatus(statusSocketPath)
	if err != nil {
		return fmt.Errorf("is mipd running with --status-socket? %w", err)
	}

	descriptor := fmt.Sprintf("mip=%d;ifaces=%s;socket=%s",
		snap.MIP, strings.Join(snap.Interfaces, ","), statusSocketPath)

	fmt.Fprintf(os.Stderr, "\nInvite descriptor:\n\n  %s\n\n", descriptor)

	if err := clipboard.WriteAll(descriptor); err != nil {
		fmt.Fprintf(os.Stderr, "(could not copy to clipboard: %v)\n\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "Copied to clipboard.\n\n")
	}

	qr, err := qrcode.New(descriptor, qrcode.Medium)
	if err == nil {
		fmt.Fprintf(os.Stderr, "Scan to share:\n\n")
		fmt.Fprint(os.Stderr, qr.ToSmallString(false))
	}

	fmt.Fprintf(os.Stderr, "\nMIP address %d is this node's identity on the network.\n", snap.MIP)
	return nil
}
