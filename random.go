package tsne

import (
	"math"
	"math/rand"
)

// gaussianSource draws standard normal variates with the polar
// (Marsaglia) method. One variate is produced per accepted pair; the
// second is discarded so the draw sequence is a pure function of the
// underlying generator.
type gaussianSource struct {
	rng *rand.Rand
}

func (g gaussianSource) Norm() float32 {
	for {
		x := 2*g.rng.Float64() - 1
		y := 2*g.rng.Float64() - 1
		r := x*x + y*y
		if r >= 1 || r == 0 {
			continue
		}
		return float32(x * math.Sqrt(-2*math.Log(r)/r))
	}
}
