package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"nanlog/internal/archive"
	"nanlog/internal/config"
	"nanlog/internal/nan"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const sampleLog = `Game Log
corpUser
[10:00:01]
started their turn 1 with 5 [Credits] and 5 cards in HQ.
corpUser
[10:00:02]
spends [Click] to install ice protecting HQ.
runnerUser
runnerUser
[10:00:05]
glhf
runnerUser
[10:00:10]
started their turn 1 with 5 [Credits] and 5 cards in the grip.
runnerUser
[10:00:11]
spends [Click] to make a run on HQ.
`

const sampleLogNAN = "Corp T1 [0-0]: ice HQ\nRunner T1 [0-0]: run HQ"

const sampleReplay = `{
  "metadata": {"format": "1.0"},
  "history": [
    {"log": [{"user": "corpUser", "text": "started their turn 1 with 5 [Credits] and 5 cards in HQ."}]},
    [{"log": {"1": {"user": "corpUser", "text": "spends [Click] to install ice protecting Server 1 (new remote)."}}}, {}],
    [{"log": {"2": {"user": "runnerUser", "text": "started their turn 1 with 5 [Credits] and 5 cards in the grip."},
              "3": {"user": "runnerUser", "text": "spends [Click] and pays 4 [Credits] to install Cleaver."}}}, {}]
  ]
}`

const sampleReplayNAN = "Corp T1 [0-0]: ice S1\nRunner T1 [0-0]: install Cleaver"

const sampleNAN = `Corp T1 [0-0]: ice HQ; ice S1; credit
Runner T1 [0-0]: credit; credit; install Cleaver
Corp T2 [0-0]: install S1; advance S1; advance S1
`

// setup resets global command state and returns a scratch directory.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	logger = zap.NewNop()
	cfg = config.DefaultConfig()
	cfg.Archive.Path = filepath.Join(dir, "archive.db")
	configPath = filepath.Join(dir, "nan.yaml")

	logWatch, replayWatch, replayArchive = false, false, false
	parseFormat, renderFormat, renderUpto = "yaml", "text", 0
	batchOut, batchWorkers = "", 0
	checkContext, checkBattery = 3, ""
	archiveName, archiveRender = "", false

	t.Cleanup(func() { cfg = nil })
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunLog(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "game.log", sampleLog)

	output := captureOutput(t, func() {
		require.NoError(t, runLog(&cobra.Command{}, []string{path}))
	})
	assert.Equal(t, sampleLogNAN+"\n", output)
}

func TestRunLogMissingFile(t *testing.T) {
	dir := setup(t)
	err := runLog(&cobra.Command{}, []string{filepath.Join(dir, "nope.log")})
	assert.Error(t, err)
}

func TestRunReplay(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "game.json", sampleReplay)

	output := captureOutput(t, func() {
		require.NoError(t, runReplay(&cobra.Command{}, []string{path}))
	})
	assert.Equal(t, sampleReplayNAN+"\n", output)
}

func TestRunReplayNoHistory(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "empty.json", `{"history": []}`)

	err := runReplay(&cobra.Command{}, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history")
}

func TestRunReplayArchive(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "game.json", sampleReplay)
	replayArchive = true

	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	require.NoError(t, runReplay(cmd, []string{path}))
	assert.Equal(t, sampleReplayNAN+"\n", stdout.String())
	assert.Contains(t, stderr.String(), "archived as ")

	store, err := archive.Open(cfg.Archive.Path)
	require.NoError(t, err)
	defer store.Close()
	games, err := store.List(t.Context())
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "game", games[0].Name)
	assert.Equal(t, sampleReplayNAN, games[0].NAN)
}

func TestRunParse(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "game.nan", sampleNAN)

	t.Run("yaml", func(t *testing.T) {
		parseFormat = "yaml"
		output := captureOutput(t, func() {
			require.NoError(t, runParse(&cobra.Command{}, []string{path}))
		})
		var records []nan.TurnRecord
		require.NoError(t, yaml.Unmarshal([]byte(output), &records))
		require.Len(t, records, 3)
		assert.Equal(t, "Cleaver", records[1].Actions[2].Target)
	})

	t.Run("json", func(t *testing.T) {
		parseFormat = "json"
		output := captureOutput(t, func() {
			require.NoError(t, runParse(&cobra.Command{}, []string{path}))
		})
		var records []nan.TurnRecord
		require.NoError(t, json.Unmarshal([]byte(output), &records))
		require.Len(t, records, 3)
		assert.Equal(t, &nan.Score{}, records[2].Score)
	})

	t.Run("bad format", func(t *testing.T) {
		parseFormat = "xml"
		assert.Error(t, runParse(&cobra.Command{}, []string{path}))
	})

	t.Run("warnings go to the command's stderr", func(t *testing.T) {
		parseFormat = "yaml"
		bad := writeFile(t, dir, "bad.nan", sampleNAN+"\nnot a turn line\n")
		cmd := &cobra.Command{}
		var stdout, stderr bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)

		require.NoError(t, runParse(cmd, []string{bad}))
		assert.Contains(t, stderr.String(), "warning: ")
		assert.Contains(t, stderr.String(), "not a turn line")
		assert.NotContains(t, stdout.String(), "warning")
	})
}

func TestRunRender(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "game.nan", sampleNAN)

	output := captureOutput(t, func() {
		require.NoError(t, runRender(&cobra.Command{}, []string{path}))
	})
	assert.Contains(t, output, "--- Game State at Turn 2 ---")
	assert.Contains(t, output, "S1         : [UNK ice] [Unknown](2 adv)")
	assert.True(t, strings.HasSuffix(output, "[ Runner Rig ]\nCleaver\n"))
}

func TestRunRenderUpto(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "game.nan", sampleNAN)
	renderUpto = 1

	output := captureOutput(t, func() {
		require.NoError(t, runRender(&cobra.Command{}, []string{path}))
	})
	assert.Contains(t, output, "--- Game State at Turn 1 ---")
	assert.NotContains(t, output, "Cleaver")
	assert.NotContains(t, output, "adv")

	renderUpto = -1
	assert.Error(t, runRender(&cobra.Command{}, []string{path}))
}

func TestRunRenderYAML(t *testing.T) {
	dir := setup(t)
	path := writeFile(t, dir, "game.nan", sampleNAN)
	renderFormat = "yaml"

	output := captureOutput(t, func() {
		require.NoError(t, runRender(&cobra.Command{}, []string{path}))
	})
	assert.Contains(t, output, "runner_rig:\n    - Cleaver")
}

func TestRunCheck(t *testing.T) {
	dir := setup(t)
	logPath := writeFile(t, dir, "game.log", sampleLog)

	t.Run("match", func(t *testing.T) {
		expected := writeFile(t, dir, "good.nan", sampleLogNAN+"\n")
		output := captureOutput(t, func() {
			require.NoError(t, runCheck(&cobra.Command{}, []string{expected, logPath}))
		})
		assert.Contains(t, output, "ok: ")
	})

	t.Run("mismatch", func(t *testing.T) {
		expected := writeFile(t, dir, "bad.nan", "Corp T1 [0-0]: ice R&D\nRunner T1 [0-0]: run HQ\n")
		var err error
		output := captureOutput(t, func() {
			err = runCheck(&cobra.Command{}, []string{expected, logPath})
		})
		assert.True(t, errors.Is(err, errMismatch))
		assert.Contains(t, output, "-Corp T1 [0-0]: ice R&D")
		assert.Contains(t, output, "+Corp T1 [0-0]: ice HQ")
		assert.Contains(t, output, "1 hunk(s), -1 +1 lines")
	})

	t.Run("nan source", func(t *testing.T) {
		nanPath := writeFile(t, dir, "same.nan", sampleNAN)
		output := captureOutput(t, func() {
			require.NoError(t, runCheck(&cobra.Command{}, []string{nanPath, nanPath}))
		})
		assert.Contains(t, output, "ok: ")
	})
}

func TestRunCheckBattery(t *testing.T) {
	dir := setup(t)
	writeFile(t, dir, "game.log", sampleLog)
	writeFile(t, dir, "game.nan", sampleLogNAN+"\n")
	writeFile(t, dir, "replay.json", sampleReplay)
	writeFile(t, dir, "replay.nan", sampleReplayNAN+"\n")

	checkBattery = writeFile(t, dir, "battery.yaml", `version: 1
cases:
  - {id: log, source: game.log, expected: game.nan}
  - {id: replay, source: replay.json, expected: replay.nan}
`)
	output := captureOutput(t, func() {
		require.NoError(t, runCheck(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "PASS log")
	assert.Contains(t, output, "2/2 cases passed")

	checkBattery = writeFile(t, dir, "failing.yaml", `cases:
  - {id: swapped, source: game.log, expected: replay.nan}
`)
	var err error
	output = captureOutput(t, func() {
		err = runCheck(&cobra.Command{}, nil)
	})
	assert.True(t, errors.Is(err, errMismatch))
	assert.Contains(t, output, "FAIL swapped")
	assert.Contains(t, output, "0/1 cases passed")
}

func TestRunConfigShowAndInit(t *testing.T) {
	setup(t)
	cfg.Batch.Workers = 7

	output := captureOutput(t, func() {
		require.NoError(t, runConfigShow(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "workers: 7")

	captureOutput(t, func() {
		require.NoError(t, runConfigInit(&cobra.Command{}, nil))
	})
	loaded, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Batch.Workers)
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	// Buffered so the reader exits even if fn stops the test early.
	done := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		_, _ = io.Copy(&buf, rErr)
		done <- buf.String()
	}()

	func() {
		defer func() {
			_ = wOut.Close()
			_ = wErr.Close()
			os.Stdout = origOut
			os.Stderr = origErr
		}()
		fn()
	}()
	return <-done
}
