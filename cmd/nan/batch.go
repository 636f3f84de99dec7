package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nanlog/internal/config"
	"nanlog/internal/logging"
)

var (
	batchOut     string
	batchWorkers int
)

var batchCmd = &cobra.Command{
	Use:   "batch <replay.json|game.log>...",
	Short: "Convert many replays or logs to .nan files",
	Long: `Converts every input to NAN in parallel and writes <name>.nan next to
the input, or into --out when given. A failed input does not stop the
others; the command fails if any input failed.

Example:
  nan batch --out nan/ replays/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchOut, "out", "", "Output directory (default: batch.output_dir, else next to each input)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Parallel conversions (default: batch.workers)")
}

// batchResult is the outcome for one input.
type batchResult struct {
	Input  string
	Output string
	Lines  int
	Err    error
}

func runBatch(cmd *cobra.Command, args []string) error {
	c := currentConfig()
	outDir := batchOut
	if outDir == "" {
		outDir = c.Batch.OutputDir
	}
	workers := batchWorkers
	if workers <= 0 {
		workers = c.Batch.Workers
	}

	results, err := convertBatch(commandContext(cmd), args, outDir, workers, c)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var failed []error
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", r.Input, r.Err)
			failed = append(failed, fmt.Errorf("%s: %w", r.Input, r.Err))
			continue
		}
		fmt.Fprintf(out, "ok   %s -> %s (%d turns)\n", r.Input, r.Output, r.Lines)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d inputs failed: %w", len(failed), len(results), errors.Join(failed...))
	}
	return nil
}

// convertBatch converts inputs with at most workers running at once.
// Results come back in input order.
func convertBatch(ctx context.Context, inputs []string, outDir string, workers int, c *config.Config) ([]batchResult, error) {
	if workers < 1 {
		workers = 1
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	timer := logging.StartTimer(logging.CategoryBatch, "batch conversion")
	defer timer.Stop()
	log := logging.Get(logging.CategoryBatch)

	results := make([]batchResult, len(inputs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, input := range inputs {
		results[i].Input = input
		eg.Go(func() error {
			// Each goroutine owns results[i]; no lock needed.
			if err := egCtx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i] = convertOne(input, outDir, c)
			if results[i].Err != nil {
				log.Warn("failed to convert %s: %v", input, results[i].Err)
			} else {
				log.Debug("converted %s -> %s", input, results[i].Output)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func convertOne(input, outDir string, c *config.Config) batchResult {
	res := batchResult{Input: input}
	if strings.EqualFold(filepath.Ext(input), ".nan") {
		res.Err = fmt.Errorf("input is already nan")
		return res
	}

	text, err := sourceToNAN(input, c)
	if err != nil {
		res.Err = err
		return res
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".nan"
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	res.Output = filepath.Join(dir, base)

	if text != "" {
		res.Lines = strings.Count(text, "\n") + 1
		text += "\n"
	}
	if err := os.WriteFile(res.Output, []byte(text), 0o644); err != nil {
		res.Err = fmt.Errorf("failed to write output: %w", err)
	}
	return res
}
