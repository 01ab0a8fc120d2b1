package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <url> [company name]",
	Short: "Scan one company website and print the report as JSON",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		return scan(cmd.Context(), args[0], name)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire pending applications whose decision window has passed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return sweep(cmd.Context())
	},
}

func scan(ctx context.Context, url, name string) error {
	a, err := newApp(ctx, loadConfig())
	if err != nil {
		return err
	}
	defer a.close()

	report := a.service.RequestScan(ctx, url, name)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err = encoder.Encode(report); err != nil {
		return err
	}
	if !report.Success {
		return fmt.Errorf("scan failed: %s", report.Error)
	}
	return nil
}

func sweep(ctx context.Context) error {
	a, err := newApp(ctx, loadConfig())
	if err != nil {
		return err
	}
	defer a.close()

	expired, err := a.lifecycle.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("expired %d pending applications\n", expired)
	return nil
}
