package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/tsnego/dataset"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show metadata of a native dataset file",
	Long: `Show the header metadata of a native dataset file.

The whole file is verified against its checksum, so info also serves as an
integrity check.

Example:
  tsne info digits.tsne`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := dataset.Inspect(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "points:    %d\n", info.N)
		fmt.Fprintf(out, "dimension: %d\n", info.Dim)
		fmt.Fprintf(out, "version:   %d\n", info.Version)
		fmt.Fprintf(out, "codec:     %s\n", info.Codec)

		if info.Compressed {
			ratio := float64(info.StoredBytes) / float64(info.RawBytes) * 100
			fmt.Fprintf(out, "payload:   %s compressed to %s (%.1f%%)\n",
				formatBytes(int64(info.RawBytes)), formatBytes(int64(info.StoredBytes)), ratio)
		} else {
			fmt.Fprintf(out, "payload:   %s raw\n", formatBytes(int64(info.StoredBytes)))
		}

		fmt.Fprintf(out, "file size: %s\n", formatBytes(info.FileSize))
		fmt.Fprintf(out, "checksum:  0x%08x\n", info.Checksum)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
