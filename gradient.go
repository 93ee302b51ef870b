package tsne

import (
	"context"
	"math"

	"github.com/hupe1980/tsnego/internal/parallel"
	"github.com/hupe1980/tsnego/sparse"
	"github.com/hupe1980/tsnego/sptree"
)

// fltMin is the smallest normalized float32 (C's FLT_MIN). It floors the
// Kullback-Leibler terms so a vanishing similarity never produces log(0).
const fltMin = 0x1p-126

// workspace holds the buffers of one gradient descent run so the hot loop
// allocates nothing per iteration.
type workspace struct {
	dY    []float32 // gradient
	uY    []float32 // update (velocity)
	gains []float32 // per-coordinate adaptive gains
	posF  []float32 // attractive forces
	negF  []float32 // repulsive forces, unnormalized
	q     []float64 // per-point partial sums of the normalization term
	kl    []float64 // per-point partial sums of the KL divergence
}

func newWorkspace(n, dims int) *workspace {
	ws := &workspace{
		dY:    make([]float32, n*dims),
		uY:    make([]float32, n*dims),
		gains: make([]float32, n*dims),
		posF:  make([]float32, n*dims),
		negF:  make([]float32, n*dims),
		q:     make([]float64, n),
		kl:    make([]float64, n),
	}

	for i := range ws.gains {
		ws.gains[i] = 1
	}

	return ws
}

// computeGradient fills ws.dY with the Barnes-Hut approximated gradient of
// the KL divergence at y. When evalCost is set it also returns the cost,
// folding the normalization of the Student-t terms into a single
// correction so the per-edge pass stays independent per point.
//
// Per-point results land in fixed workspace slots and are reduced in index
// order afterwards, so the outcome is identical for any worker count.
func computeGradient(ctx context.Context, p *sparse.Matrix, y []float32, n, dims int, theta float64, workers int, ws *workspace, evalCost bool) (float64, error) {
	tree := sptree.New(y, n, dims)

	err := parallel.ForEach(ctx, n, workers, func(i int) error {
		pos := ws.posF[i*dims : (i+1)*dims]
		neg := ws.negF[i*dims : (i+1)*dims]
		for d := range pos {
			pos[d] = 0
			neg[d] = 0
		}

		yi := y[i*dims : (i+1)*dims]
		cols, vals := p.Row(i)

		var kl float64
		for e, j := range cols {
			yj := y[int(j)*dims : (int(j)+1)*dims]

			var d2 float64
			for d := range yi {
				t := float64(yi[d]) - float64(yj[d])
				d2 += t * t
			}

			v := float64(vals[e])
			if evalCost {
				kl += v * math.Log((v+fltMin)/(1/(1+d2)+fltMin))
			}

			w := v / (1 + d2)
			for d := range yi {
				pos[d] += float32(w * (float64(yi[d]) - float64(yj[d])))
			}
		}
		ws.kl[i] = kl

		ws.q[i] = tree.ComputeNonEdgeForces(i, theta, neg)

		return nil
	})
	if err != nil {
		return 0, err
	}

	var sumQ float64
	for i := 0; i < n; i++ {
		sumQ += ws.q[i]
	}

	for i := range ws.dY {
		ws.dY[i] = ws.posF[i] - float32(float64(ws.negF[i])/sumQ)
	}

	if !evalCost {
		return 0, nil
	}

	cost := p.Sum() * math.Log(sumQ)
	for i := 0; i < n; i++ {
		cost += ws.kl[i]
	}

	return cost, nil
}

// evaluateError computes the KL divergence of the embedding y from scratch:
// a fresh tree estimates the normalization term, then every edge contributes
// its exactly normalized Student-t similarity. Unlike the inline evaluation
// in computeGradient this does not disturb the gradient buffers' role, so it
// is safe to call after optimization has finished.
func evaluateError(ctx context.Context, p *sparse.Matrix, y []float32, n, dims int, theta float64, workers int, ws *workspace) (float64, error) {
	tree := sptree.New(y, n, dims)

	err := parallel.ForEach(ctx, n, workers, func(i int) error {
		neg := ws.negF[i*dims : (i+1)*dims]
		for d := range neg {
			neg[d] = 0
		}

		ws.q[i] = tree.ComputeNonEdgeForces(i, theta, neg)

		return nil
	})
	if err != nil {
		return 0, err
	}

	var sumQ float64
	for i := 0; i < n; i++ {
		sumQ += ws.q[i]
	}

	err = parallel.ForEach(ctx, n, workers, func(i int) error {
		yi := y[i*dims : (i+1)*dims]
		cols, vals := p.Row(i)

		var kl float64
		for e, j := range cols {
			yj := y[int(j)*dims : (int(j)+1)*dims]

			var d2 float64
			for d := range yi {
				t := float64(yi[d]) - float64(yj[d])
				d2 += t * t
			}

			q := (1 / (1 + d2)) / sumQ
			v := float64(vals[e])
			kl += v * math.Log((v+fltMin)/(q+fltMin))
		}
		ws.kl[i] = kl

		return nil
	})
	if err != nil {
		return 0, err
	}

	var cost float64
	for i := 0; i < n; i++ {
		cost += ws.kl[i]
	}

	return cost, nil
}
