package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	tsne "github.com/hupe1980/tsnego"
)

var (
	flagEmbedInput      string
	flagEmbedOutput     string
	flagEmbedDims       int
	flagEmbedPerplexity float64
	flagEmbedTheta      float64
	flagEmbedIters      int
	flagEmbedEta        float64
	flagEmbedSeed       int64
	flagEmbedWorkers    int
	flagEmbedCodec      string
	flagEmbedFinalError bool
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed a high-dimensional dataset into two or three dimensions",
	Long: `Embed a high-dimensional dataset into a low-dimensional map.

The input is a flat point matrix, one point per CSV row or a native dataset
file. The output holds one embedded point per input point, in input order.

Theta trades accuracy for speed: 0 computes exact gradients, larger values
approximate more aggressively. Perplexity is clamped when the dataset is too
small for the requested value.

Examples:
  tsne embed -i digits.csv -o digits-2d.csv
  tsne embed -i digits.tsne -o digits-3d.tsne --dims 3 --theta 0.3
  tsne embed -i digits.csv -o out.csv --seed 42 --final-error`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVarP(&flagEmbedInput, "input", "i", "", "input dataset (.csv or native)")
	embedCmd.Flags().StringVarP(&flagEmbedOutput, "output", "o", "", "output file (.csv or native)")
	embedCmd.Flags().IntVar(&flagEmbedDims, "dims", tsne.DefaultOutputDims, "output dimensionality")
	embedCmd.Flags().Float64Var(&flagEmbedPerplexity, "perplexity", tsne.DefaultPerplexity, "target perplexity")
	embedCmd.Flags().Float64Var(&flagEmbedTheta, "theta", tsne.DefaultTheta, "Barnes-Hut accuracy trade-off, 0 for exact")
	embedCmd.Flags().IntVar(&flagEmbedIters, "iterations", tsne.DefaultMaxIterations, "gradient descent iterations")
	embedCmd.Flags().Float64Var(&flagEmbedEta, "learning-rate", tsne.DefaultLearningRate, "gradient descent learning rate")
	embedCmd.Flags().Int64Var(&flagEmbedSeed, "seed", -1, "random seed, negative for time-based")
	embedCmd.Flags().IntVar(&flagEmbedWorkers, "workers", 0, "worker goroutines, 0 for all CPUs")
	embedCmd.Flags().StringVar(&flagEmbedCodec, "codec", "none", "compression for native output (none, lz4, zstd)")
	embedCmd.Flags().BoolVar(&flagEmbedFinalError, "final-error", false, "compute the exact KL divergence after the run")

	_ = embedCmd.MarkFlagRequired("input")
	_ = embedCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	data, n, dim, err := readPoints(flagEmbedInput)
	if err != nil {
		return err
	}

	// Progress goes to stderr, throttled so large runs don't flood the
	// terminal.
	progress := &rate.Sometimes{Interval: 500 * time.Millisecond}

	opts := []tsne.Option{
		tsne.WithOutputDims(flagEmbedDims),
		tsne.WithPerplexity(flagEmbedPerplexity),
		tsne.WithTheta(flagEmbedTheta),
		tsne.WithMaxIterations(flagEmbedIters),
		tsne.WithLearningRate(flagEmbedEta),
		tsne.WithWorkers(flagEmbedWorkers),
		tsne.WithFinalError(flagEmbedFinalError),
		tsne.WithProgressFunc(func(ev tsne.ProgressEvent) {
			progress.Do(func() {
				if ev.HasCost {
					fmt.Fprintf(os.Stderr, "iteration %d/%d (%s) error %.4f\n", ev.Iteration+1, ev.MaxIter, ev.Phase, ev.Cost)
				} else {
					fmt.Fprintf(os.Stderr, "iteration %d/%d (%s)\n", ev.Iteration+1, ev.MaxIter, ev.Phase)
				}
			})
		}),
	}

	if flagEmbedSeed >= 0 {
		opts = append(opts, tsne.WithRandomSeed(flagEmbedSeed))
	}

	if verbose {
		opts = append(opts, tsne.WithLogLevel(slog.LevelDebug))
	}

	t, err := tsne.New(opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()

	res, err := t.Embed(ctx, data, n, dim)
	if err != nil {
		return err
	}

	if err := writePoints(flagEmbedOutput, res.Embedding, res.N, res.Dims, flagEmbedCodec); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "embedded %d points (%d-D -> %d-D) in %s\n", res.N, dim, res.Dims, time.Since(start).Round(time.Millisecond))

	if res.PerplexityUsed != flagEmbedPerplexity {
		fmt.Fprintf(out, "perplexity clamped to %.2f\n", res.PerplexityUsed)
	}

	if u := res.Stats.GraphBuild.Unconverged; u > 0 {
		fmt.Fprintf(out, "warning: bandwidth calibration did not converge for %d of %d points\n", u, res.N)
	}

	if res.HasFinalError {
		fmt.Fprintf(out, "final KL divergence: %.6f\n", res.FinalError)
	}

	return nil
}
