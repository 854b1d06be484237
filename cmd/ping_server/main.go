// Command ping_server connects to a running mipd as the ping endpoint
// and echoes every delivered PING payload back as a PONG.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/multiib/mipd/internal/ipc"
)

var rootCmd = &cobra.Command{
	Use:   "ping_server <socket>",
	Short: "Echo every PING delivered by mipd back as a PONG",
	Args:  cobra.ExactArgs(1),
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	socketPath := args[0]

	conn, err := ipc.Dial(socketPath, ipc.IdentifierPing)
	if err != nil {
		return fmt.Errorf("connecting to mipd: %w", err)
	}
	defer conn.Close()

	fmt.Fprintf(os.Stderr, "ping_server listening, echoing PINGs as PONGs\n")

	buf := make([]byte, 65536)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading from mipd: %w", err)
		}

		payload := append([]byte(nil), buf[:n]...)
		pong := ipc.EncodePingFrame(ipc.PingFrame{Kind: ipc.Pong, Payload: payload})
		if _, err := conn.Write(pong); err != nil {
			return fmt.Errorf("sending pong: %w", err)
		}
		fmt.Fprintf(os.Stderr, "echoed %q\n", payload)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
