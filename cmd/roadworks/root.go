package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for roadworks.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roadworks",
		Short: "Download and sort the planned roadworks XML dataset",
		Long: `roadworks collects the Highways Agency planned roadworks dataset.

fetch downloads every .xml file linked from a saved copy of the dataset
listing page. sort moves the downloaded files into new, old and unknown
format directories according to their root element. run does both.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .roadworks in current or home directory)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON")

	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewSortCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. Interrupts cancel the running command,
// which stops after the file it is working on.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
