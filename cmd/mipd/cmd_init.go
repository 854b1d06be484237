package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/multiib/mipd/internal/config"
)

var initOutputPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively write a tuning file",
	Long:  `Walks through the tunable protocol constants (cache sizes, timer periods) and writes them to a TOML tuning file for --tuning.`,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initOutputPath, "output", "tuning.toml", "path to write the tuning file")
}

func runInit(cmd *cobra.Command, args []string) error {
	d := config.Default()

	arpCacheSize := strconv.Itoa(d.ARPCacheSize)
	maxQueueSize := strconv.Itoa(d.MaxQueueSize)
	maxIf := strconv.Itoa(d.MaxIf)
	maxNodes := strconv.Itoa(d.MaxNodes)
	helloInterval := d.HelloInterval.String()
	timeoutInterval := d.TimeoutInterval.String()
	pendingARPTimeout := d.PendingARPTimeout.String()
	pingReadTimeout := d.PingReadTimeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("ARP cache size").Description("MIP->MAC bindings retained before LRU eviction").Value(&arpCacheSize).Validate(validatePositiveInt),
			huh.NewInput().Title("Pending-ARP queue size").Value(&maxQueueSize).Validate(validatePositiveInt),
			huh.NewInput().Title("Max bound interfaces").Value(&maxIf).Validate(validatePositiveInt),
			huh.NewInput().Title("Max routing table nodes").Description("1..255").Value(&maxNodes).Validate(validatePositiveInt),
		),
		huh.NewGroup(
			huh.NewInput().Title("HELLO interval").Description("e.g. 10s").Value(&helloInterval).Validate(validateDuration),
			huh.NewInput().Title("Neighbour timeout").Description("must exceed the HELLO interval").Value(&timeoutInterval).Validate(validateDuration),
			huh.NewInput().Title("Pending-ARP timeout").Value(&pendingARPTimeout).Validate(validateDuration),
			huh.NewInput().Title("Ping read timeout").Value(&pingReadTimeout).Validate(validateDuration),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("form cancelled: %w", err)
	}

	cfg := config.Default()
	cfg.ARPCacheSize, _ = strconv.Atoi(arpCacheSize)
	cfg.MaxQueueSize, _ = strconv.Atoi(maxQueueSize)
	cfg.MaxIf, _ = strconv.Atoi(maxIf)
	cfg.MaxNodes, _ = strconv.Atoi(maxNodes)
	cfg.HelloInterval, _ = time.ParseDuration(helloInterval)
	cfg.TimeoutInterval, _ = time.ParseDuration(timeoutInterval)
	cfg.PendingARPTimeout, _ = time.ParseDuration(pendingARPTimeout)
	cfg.PingReadTimeout, _ = time.ParseDuration(pingReadTimeout)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid tuning values: %w", err)
	}

	if err := config.Save(initOutputPath, cfg); err != nil {
		return fmt.Errorf("writing tuning file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s. Start mipd with --tuning %s.\n", initOutputPath, initOutputPath)
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration like 10s or 500ms")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
