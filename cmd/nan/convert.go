package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nanlog/internal/archive"
	"nanlog/internal/board"
	"nanlog/internal/config"
	"nanlog/internal/gamelog"
	"nanlog/internal/logging"
	"nanlog/internal/nan"
	"nanlog/internal/replay"
	"nanlog/internal/watch"
)

var (
	logWatch      bool
	replayWatch   bool
	replayArchive bool
	parseFormat   string
	renderFormat  string
	renderUpto    int
)

var logCmd = &cobra.Command{
	Use:   "log <game.log>",
	Short: "Convert a text game log to NAN",
	Long: `Reads a game log copied from the game client (actor, timestamp and
text on separate lines) and prints one NAN line per turn.`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

var replayCmd = &cobra.Command{
	Use:   "replay <replay.json>",
	Short: "Convert a JSON replay to NAN",
	Long: `Folds the replay's diff history into the final game state, pulls out
its log and prints one NAN line per turn.

Example:
  nan replay game.json --archive`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var parseCmd = &cobra.Command{
	Use:   "parse <game.nan>",
	Short: "Parse NAN into structured turn records",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

var renderCmd = &cobra.Command{
	Use:   "render <game.nan>",
	Short: "Reconstruct an approximate board from NAN",
	Long: `Replays NAN actions against a board model and prints the result.
Face-down cards show as unknown until a rez names them.

Example:
  nan render game.nan --upto 10`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	logCmd.Flags().BoolVar(&logWatch, "watch", false, "Re-run whenever the log file changes")
	replayCmd.Flags().BoolVar(&replayWatch, "watch", false, "Re-run whenever the replay file changes")
	replayCmd.Flags().BoolVar(&replayArchive, "archive", false, "Store the converted game in the archive")
	parseCmd.Flags().StringVar(&parseFormat, "format", "yaml", "Output format: yaml or json")
	renderCmd.Flags().StringVar(&renderFormat, "format", "text", "Output format: text or yaml")
	renderCmd.Flags().IntVar(&renderUpto, "upto", 0, "Replay only the first N turns (0 = all)")
}

// =============================================================================
// CONVERSION
// =============================================================================

// logToNAN converts a text game log.
func logToNAN(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	lines, err := gamelog.ReadLines(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return nan.Assemble(gamelog.Tokenize(lines)), nil
}

// replayToNAN converts a JSON replay.
func replayToNAN(path string, c *config.Config) (string, error) {
	rep, err := replay.LoadFile(path)
	if err != nil {
		return "", err
	}
	return rep.ToNAN(c.Replay), nil
}

// sourceToNAN picks a converter by extension: .json is a replay, .nan is
// read as is, anything else is a text log.
func sourceToNAN(path string, c *config.Config) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return replayToNAN(path, c)
	case ".nan":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read nan: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	default:
		return logToNAN(path)
	}
}

func printNAN(w io.Writer, text string) {
	if text == "" {
		return
	}
	fmt.Fprintln(w, text)
}

// watchContext is cancelled on SIGINT/SIGTERM.
func watchContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runLog(cmd *cobra.Command, args []string) error {
	path := args[0]
	convert := func(ctx context.Context, p string) error {
		text, err := logToNAN(p)
		if err != nil {
			return err
		}
		printNAN(cmd.OutOrStdout(), text)
		return nil
	}

	if !logWatch {
		return convert(context.Background(), path)
	}
	ctx, cancel := watchContext()
	defer cancel()
	return watch.Run(ctx, path, currentConfig().GetWatchDebounce(), convert)
}

func runReplay(cmd *cobra.Command, args []string) error {
	c := currentConfig()
	path := args[0]
	convert := func(ctx context.Context, p string) error {
		text, err := replayToNAN(p, c)
		if err != nil {
			return err
		}
		printNAN(cmd.OutOrStdout(), text)
		if replayArchive {
			return archiveText(ctx, cmd.ErrOrStderr(), c, p, text)
		}
		return nil
	}

	if !replayWatch {
		return convert(context.Background(), path)
	}
	ctx, cancel := watchContext()
	defer cancel()
	return watch.Run(ctx, path, c.GetWatchDebounce(), convert)
}

func archiveText(ctx context.Context, errOut io.Writer, c *config.Config, source, text string) error {
	store, err := archive.Open(c.Archive.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	g, _, err := store.Save(ctx, name, source, text)
	if err != nil {
		return err
	}
	logging.Replay("archived %s as %s", source, g.ID)
	fmt.Fprintf(errOut, "archived as %s\n", g.ID)
	return nil
}

// =============================================================================
// INSPECTION
// =============================================================================

func readRecords(path string) ([]nan.TurnRecord, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open nan: %w", err)
	}
	defer f.Close()
	return nan.ParseReader(f)
}

func runParse(cmd *cobra.Command, args []string) error {
	records, lineErrs, err := readRecords(args[0])
	if err != nil {
		return err
	}
	for _, e := range lineErrs {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", e)
	}
	if records == nil {
		records = []nan.TurnRecord{}
	}

	out := cmd.OutOrStdout()
	switch parseFormat {
	case "yaml", "":
		data, err := yaml.Marshal(records)
		if err != nil {
			return fmt.Errorf("failed to marshal records: %w", err)
		}
		_, err = out.Write(data)
		return err
	case "json":
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal records: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", parseFormat)
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	if renderFormat != "text" && renderFormat != "yaml" {
		return fmt.Errorf("unknown format %q (want text or yaml)", renderFormat)
	}
	if renderUpto < 0 {
		return fmt.Errorf("--upto must not be negative")
	}

	records, lineErrs, err := readRecords(args[0])
	if err != nil {
		return err
	}
	for _, e := range lineErrs {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", e)
	}
	if renderUpto > 0 && renderUpto < len(records) {
		records = records[:renderUpto]
	}

	b := board.New()
	b.ApplyAll(records)
	return writeBoard(cmd.OutOrStdout(), b, renderFormat)
}

func writeBoard(w io.Writer, b *board.Board, format string) error {
	if format == "yaml" {
		out, err := b.YAML()
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	_, err := io.WriteString(w, b.Render())
	return err
}
