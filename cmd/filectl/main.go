package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "filectl",
		Short: "Offline tooling for the filegate ingestion rules",
		Long: `filectl runs the filegate validation pipeline against local files.

Examples:
  filectl inspect ./report.pdf
  filectl inspect ./cover.jpg --category IMAGE --name cover.jpg
  filectl inspect ./track.mp3 --taxonomy ./categories.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newInspectCmd())
	return rootCmd
}
