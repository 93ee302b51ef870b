// Package commands implements the subcommands of the tsne CLI.
package commands

import (
	"github.com/spf13/cobra"
)

// version is overridden at build time via
// -ldflags "-X github.com/hupe1980/tsnego/cmd/tsne/commands.version=...".
var version = "dev"

// verbose enables debug logging on all subcommands.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tsne",
	Short: "Barnes-Hut t-SNE for high-dimensional datasets",
	Long: `tsne embeds high-dimensional point sets into two or three dimensions
for visualization, using the Barnes-Hut approximation of t-SNE.

Datasets are read and written either as CSV (one point per row) or as the
native binary format, which is checksummed, optionally compressed and
memory-mapped on load. Files ending in .csv are treated as CSV, everything
else as the native format.

Examples:
  # Embed a CSV dataset into 2-D
  tsne embed -i digits.csv -o digits-2d.csv

  # Convert CSV to the native format with zstd compression
  tsne convert -i digits.csv -o digits.tsne --codec zstd

  # Inspect a native dataset
  tsne info digits.tsne`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
