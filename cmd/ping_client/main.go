// Command ping_client sends one PING through a running mipd and prints
// the PONG payload, or reports a timeout if none arrives.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/multiib/mipd/internal/config"
	"github.com/multiib/mipd/internal/ipc"
)

var rootCmd = &cobra.Command{
	Use:   "ping_client <socket> <dst_mip> <message> <ttl>",
	Short: "Send one PING through mipd and wait for the PONG",
	Args:  cobra.ExactArgs(4),
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	socketPath := args[0]

	dst, err := strconv.Atoi(args[1])
	if err != nil || dst < 0 || dst > 255 {
		return fmt.Errorf("invalid dst_mip %q", args[1])
	}
	message := args[2]
	ttl, err := strconv.Atoi(args[3])
	if err != nil || ttl < 0 || ttl > 255 {
		return fmt.Errorf("invalid ttl %q", args[3])
	}

	conn, err := ipc.Dial(socketPath, ipc.IdentifierPing)
	if err != nil {
		return fmt.Errorf("connecting to mipd: %w", err)
	}
	defer conn.Close()

	frame := ipc.EncodePingFrame(ipc.PingFrame{
		Dst:     byte(dst),
		TTL:     byte(ttl),
		Kind:    ipc.Ping,
		Payload: []byte(message),
	})
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("sending ping: %w", err)
	}

	cfg := config.Default()
	if err := conn.SetReadDeadline(time.Now().Add(cfg.PingReadTimeout)); err != nil {
		return fmt.Errorf("setting read deadline: %w", err)
	}

	buf := make([]byte, 65536)
	n, err := conn.Read(buf)
	if err != nil {
		return fmt.Errorf("no reply within %s: %w", cfg.PingReadTimeout, err)
	}

	fmt.Println(string(buf[:n]))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
