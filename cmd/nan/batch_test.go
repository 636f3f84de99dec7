package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertBatch(t *testing.T) {
	dir := setup(t)
	inputs := []string{
		writeFile(t, dir, "a.json", sampleReplay),
		writeFile(t, dir, "b.log", sampleLog),
		writeFile(t, dir, "broken.json", `{"history": []}`),
		writeFile(t, dir, "c.nan", sampleNAN),
	}
	outDir := filepath.Join(dir, "out")

	results, err := convertBatch(context.Background(), inputs, outDir, 2, cfg)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, inputs[i], r.Input, "results keep input order")
	}

	assert.NoError(t, results[0].Err)
	assert.Equal(t, filepath.Join(outDir, "a.nan"), results[0].Output)
	assert.Equal(t, 2, results[0].Lines)
	data, err := os.ReadFile(results[0].Output)
	require.NoError(t, err)
	assert.Equal(t, sampleReplayNAN+"\n", string(data))

	assert.NoError(t, results[1].Err)
	data, err = os.ReadFile(filepath.Join(outDir, "b.nan"))
	require.NoError(t, err)
	assert.Equal(t, sampleLogNAN+"\n", string(data))

	assert.Error(t, results[2].Err)
	assert.Error(t, results[3].Err)
}

func TestConvertBatchDeterministic(t *testing.T) {
	dir := setup(t)
	var inputs []string
	for _, name := range []string{"g1.json", "g2.json", "g3.json", "g4.json", "g5.json"} {
		inputs = append(inputs, writeFile(t, dir, name, sampleReplay))
	}

	first, err := convertBatch(context.Background(), inputs, filepath.Join(dir, "one"), 1, cfg)
	require.NoError(t, err)
	second, err := convertBatch(context.Background(), inputs, filepath.Join(dir, "many"), 5, cfg)
	require.NoError(t, err)

	for i := range inputs {
		a, err := os.ReadFile(first[i].Output)
		require.NoError(t, err)
		b, err := os.ReadFile(second[i].Output)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}

func TestConvertBatchCancelled(t *testing.T) {
	dir := setup(t)
	input := writeFile(t, dir, "a.json", sampleReplay)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := convertBatch(ctx, []string{input}, "", 1, cfg)
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestRunBatch(t *testing.T) {
	dir := setup(t)
	good := writeFile(t, dir, "good.json", sampleReplay)
	bad := writeFile(t, dir, "bad.json", `not json`)

	output := captureOutput(t, func() {
		require.NoError(t, runBatch(&cobra.Command{}, []string{good}))
	})
	assert.Contains(t, output, "ok   "+good)
	_, err := os.Stat(filepath.Join(dir, "good.nan"))
	assert.NoError(t, err, "output lands next to the input by default")

	var runErr error
	output = captureOutput(t, func() {
		runErr = runBatch(&cobra.Command{}, []string{good, bad})
	})
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "1 of 2 inputs failed")
	assert.True(t, strings.Contains(output, "FAIL "+bad))
}
