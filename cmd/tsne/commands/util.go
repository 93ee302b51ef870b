package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/tsnego/dataset"
)

// readPoints loads a flat row-major matrix from path, parsing CSV or the
// native binary format depending on the extension.
func readPoints(path string) ([]float32, int, int, error) {
	if isCSV(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, 0, err
		}
		defer f.Close()

		return dataset.ReadCSV(f)
	}

	p, err := dataset.Load(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer p.Close()

	// Uncompressed payloads alias the mapping, which Close unmaps.
	data := make([]float32, len(p.Data))
	copy(data, p.Data)

	return data, p.N, p.Dim, nil
}

// writePoints stores a flat row-major matrix at path, as CSV or native
// depending on the extension. codecName applies to native output only.
func writePoints(path string, data []float32, n, dim int, codecName string) error {
	if isCSV(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}

		if err := dataset.WriteCSV(f, data, n, dim); err != nil {
			f.Close()
			return err
		}

		return f.Close()
	}

	codec, err := dataset.ParseCodec(codecName)
	if err != nil {
		return err
	}

	return dataset.Save(path, data, n, dim, func(o *dataset.SaveOptions) {
		o.Codec = codec
	})
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// formatBytes formats a byte count in human readable form.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}

	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
