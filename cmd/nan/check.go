package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nanlog/internal/diff"
	"nanlog/internal/logging"
	"nanlog/internal/regression"
)

// errMismatch is returned by `nan check` when the documents differ.
var errMismatch = errors.New("nan output differs from expected")

var (
	checkContext int
	checkBattery string
)

var checkCmd = &cobra.Command{
	Use:   "check <expected.nan> <source> | --battery <suite.yaml>",
	Short: "Compare generated NAN against a known-good file",
	Long: `Regenerates NAN from source (a .json replay, a text log or a .nan file)
and diffs it against expected. Prints the differing hunks and exits with
status 1 when they do not match.

With --battery, runs every case of a YAML suite instead.

Example:
  nan check testdata/game3.nan testdata/game3_log.txt
  nan check --battery testdata/battery.yaml`,
	Args: func(cmd *cobra.Command, args []string) error {
		if checkBattery != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkContext, "context", diff.DefaultContext, "Unchanged lines shown around each change")
	checkCmd.Flags().StringVar(&checkBattery, "battery", "", "Run a YAML regression suite")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkBattery != "" {
		return runBattery(cmd, checkBattery)
	}
	expectedPath, sourcePath := args[0], args[1]
	log := logging.Get(logging.CategoryCheck)

	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		return fmt.Errorf("failed to read expected: %w", err)
	}
	actual, err := sourceToNAN(sourcePath, currentConfig())
	if err != nil {
		return err
	}

	report := diff.NewComparer(checkContext).Compare(expectedPath, sourcePath, string(expected), actual)
	out := cmd.OutOrStdout()
	if report.Equal() {
		log.Info("%s matches %s", sourcePath, expectedPath)
		fmt.Fprintf(out, "ok: %s matches %s\n", sourcePath, expectedPath)
		return nil
	}

	deleted, inserted := report.Changed()
	log.Warn("%s differs from %s: -%d +%d lines", sourcePath, expectedPath, deleted, inserted)
	fmt.Fprint(out, report.Format())
	fmt.Fprintf(out, "%d hunk(s), -%d +%d lines\n", len(report.Hunks), deleted, inserted)
	return errMismatch
}

func runBattery(cmd *cobra.Command, path string) error {
	b, err := regression.LoadBattery(path)
	if err != nil {
		return err
	}
	c := currentConfig()
	convert := func(p string) (string, error) { return sourceToNAN(p, c) }

	results, err := regression.Run(commandContext(cmd), b, convert, checkContext)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	passed := 0
	for _, r := range results {
		switch {
		case r.Passed:
			passed++
			fmt.Fprintf(out, "PASS %s (%dms)\n", r.CaseID, r.DurationMs)
		case r.Report != nil:
			fmt.Fprintf(out, "FAIL %s\n%s", r.CaseID, r.Report.Format())
		default:
			fmt.Fprintf(out, "FAIL %s: %s\n", r.CaseID, r.Error)
		}
	}
	fmt.Fprintf(out, "%d/%d cases passed\n", passed, len(b.Cases))
	if !regression.Passed(results) || len(results) < len(b.Cases) {
		return errMismatch
	}
	return nil
}
