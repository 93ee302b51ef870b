package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV parses rows of float32 coordinates into a flat row-major matrix.
// Every row must have the same number of columns; the first row fixes the
// dimensionality.
func ReadCSV(r io.Reader) (data []float32, n, dim int, err error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("dataset: csv read failed: %w", err)
		}

		if dim == 0 {
			dim = len(record)
			data = make([]float32, 0, dim*64)
		}

		for col, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return nil, 0, 0, fmt.Errorf("dataset: row %d column %d: %w", n+1, col+1, err)
			}
			data = append(data, float32(v))
		}
		n++
	}

	if n == 0 {
		return nil, 0, 0, fmt.Errorf("%w: empty csv input", ErrInvalidShape)
	}

	return data, n, dim, nil
}

// WriteCSV writes a flat row-major n x dim matrix as CSV rows.
func WriteCSV(w io.Writer, data []float32, n, dim int) error {
	if n < 1 || dim < 1 || len(data) != n*dim {
		return fmt.Errorf("%w: %d values do not form a %d x %d matrix", ErrInvalidShape, len(data), n, dim)
	}

	cw := csv.NewWriter(w)
	record := make([]string, dim)

	for i := 0; i < n; i++ {
		row := data[i*dim : (i+1)*dim]
		for j, v := range row {
			record[j] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("dataset: csv write failed: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}
