package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagConvertInput  string
	flagConvertOutput string
	flagConvertCodec  string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert datasets between CSV and the native binary format",
	Long: `Convert a dataset between CSV and the native binary format.

The direction follows the file extensions: .csv is CSV, everything else is
the native format. Native-to-native conversion re-encodes the payload, which
is useful for recompressing a dataset with a different codec.

Examples:
  tsne convert -i digits.csv -o digits.tsne --codec zstd
  tsne convert -i digits.tsne -o digits.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, n, dim, err := readPoints(flagConvertInput)
		if err != nil {
			return err
		}

		if err := writePoints(flagConvertOutput, data, n, dim, flagConvertCodec); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d points of dimension %d to %s\n", n, dim, flagConvertOutput)
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&flagConvertInput, "input", "i", "", "input dataset (.csv or native)")
	convertCmd.Flags().StringVarP(&flagConvertOutput, "output", "o", "", "output file (.csv or native)")
	convertCmd.Flags().StringVar(&flagConvertCodec, "codec", "none", "compression for native output (none, lz4, zstd)")

	_ = convertCmd.MarkFlagRequired("input")
	_ = convertCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(convertCmd)
}
