package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/cellcast/internal/config"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRoot()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "cellcast",
		Short:         "Build and play rectangle-encoded frames with synced captions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", getenvDefault("CELLCAST_CONFIG", config.DefaultPath), "Project file")
	root.PersistentFlags().String("out", "", "Output directory (overrides config)")
	root.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress logs")

	root.AddCommand(
		newBuildCmd(),
		newFramesCmd(),
		newCaptionsCmd(),
		newServeCmd(),
		newPlayCmd(),
		newTranscribeCmd(),
		newExportCmd(),
	)
	return root
}
