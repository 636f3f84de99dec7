package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveCommands(t *testing.T) {
	dir := setup(t)

	output := captureOutput(t, func() {
		require.NoError(t, runArchiveList(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "No archived games.")

	path := writeFile(t, dir, "final.nan", sampleNAN)
	archiveName = "Finals"
	output = captureOutput(t, func() {
		require.NoError(t, runArchiveAdd(&cobra.Command{}, []string{path}))
	})
	fields := strings.Split(strings.TrimSpace(output), "\t")
	require.Len(t, fields, 3)
	id := fields[0]
	assert.Equal(t, "Finals", fields[1])
	assert.Equal(t, "3 turns", fields[2])

	output = captureOutput(t, func() {
		require.NoError(t, runArchiveList(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "NAME")
	assert.Contains(t, output, id[:8])
	assert.Contains(t, output, "Finals")

	output = captureOutput(t, func() {
		require.NoError(t, runArchiveShow(&cobra.Command{}, []string{id[:8]}))
	})
	assert.Equal(t, strings.TrimRight(sampleNAN, "\n")+"\n", output)

	archiveRender = true
	output = captureOutput(t, func() {
		require.NoError(t, runArchiveShow(&cobra.Command{}, []string{id}))
	})
	assert.Contains(t, output, "[Unknown](2 adv)")
}

func TestArchiveAddFromLog(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "club-night.log", sampleLog)

	output := captureOutput(t, func() {
		require.NoError(t, runArchiveAdd(&cobra.Command{}, []string{path}))
	})
	assert.Contains(t, output, "\tclub-night\t2 turns")
}

func TestArchiveShowMissing(t *testing.T) {
	setup(t)
	err := runArchiveShow(&cobra.Command{}, []string{"deadbeef"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
