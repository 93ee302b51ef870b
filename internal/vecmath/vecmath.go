// Package vecmath provides float32 vector kernels for flat row-major
// matrices. This is an internal package - external users should go through
// the tsne package.
package vecmath

// SquaredL2 calculates the squared L2 distance between a and b.
//
// SAFETY: This function assumes len(a) == len(b).
// It does NOT perform bounds checks for performance reasons.
// Callers MUST ensure lengths match to avoid buffer over-reads.
func SquaredL2(a, b []float32) float32 {
	var distance float32
	for i := range a {
		distance += (a[i] - b[i]) * (a[i] - b[i])
	}

	return distance
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// Max returns the largest element of a, or 0 for an empty slice.
func Max(a []float32) float32 {
	if len(a) == 0 {
		return 0
	}

	maxVal := a[0]
	for _, v := range a[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	return maxVal
}

// ZeroMean subtracts the per-dimension mean from x, a flat row-major
// n x dim matrix. Means are accumulated in float64 to keep the column
// sums stable for large n.
func ZeroMean(x []float32, n, dim int) {
	if n == 0 || dim == 0 {
		return
	}

	means := make([]float64, dim)
	for i := 0; i < n; i++ {
		row := x[i*dim : (i+1)*dim]
		for d, v := range row {
			means[d] += float64(v)
		}
	}

	for d := range means {
		means[d] /= float64(n)
	}

	for i := 0; i < n; i++ {
		row := x[i*dim : (i+1)*dim]
		for d := range row {
			row[d] -= float32(means[d])
		}
	}
}
