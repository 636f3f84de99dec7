// Package regression runs suites of NAN regression cases. A battery is a
// YAML file listing inputs and the NAN each one is known to produce:
//
//	version: 1
//	cases:
//	  - id: game3
//	    source: game3_log.txt
//	    expected: game3.nan
//
// Relative paths resolve against the battery file's directory.
package regression

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"nanlog/internal/diff"
	"nanlog/internal/logging"
)

// Battery is a collection of regression cases.
type Battery struct {
	Version  int    `yaml:"version"`
	FailFast bool   `yaml:"fail_fast,omitempty"`
	Cases    []Case `yaml:"cases"`

	dir string
}

// Case pairs an input with its expected NAN.
type Case struct {
	ID       string `yaml:"id"`
	Source   string `yaml:"source"`
	Expected string `yaml:"expected"`
}

// Result is the outcome of one case.
type Result struct {
	CaseID     string
	Passed     bool
	Report     *diff.Report // nil when the case errored before comparing
	Error      string
	DurationMs int64
}

// Converter turns a source file into NAN text.
type Converter func(path string) (string, error)

// LoadBattery reads a YAML battery file from disk.
func LoadBattery(path string) (*Battery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read battery: %w", err)
	}
	var b Battery
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse battery YAML: %w", err)
	}
	for i, c := range b.Cases {
		if c.Source == "" || c.Expected == "" {
			return nil, fmt.Errorf("case %d (%s): source and expected are required", i, c.ID)
		}
		if c.ID == "" {
			b.Cases[i].ID = strings.TrimSuffix(filepath.Base(c.Source), filepath.Ext(c.Source))
		}
	}
	b.dir = filepath.Dir(path)
	return &b, nil
}

func (b *Battery) resolve(p string) string {
	if filepath.IsAbs(p) || b.dir == "" {
		return p
	}
	return filepath.Join(b.dir, p)
}

// Run executes every case in order. With FailFast the run stops after the
// first failing case.
func Run(ctx context.Context, b *Battery, convert Converter, contextLines int) ([]Result, error) {
	if b == nil || len(b.Cases) == 0 {
		return nil, nil
	}
	comparer := diff.NewComparer(contextLines)
	log := logging.Get(logging.CategoryCheck)

	results := make([]Result, 0, len(b.Cases))
	for _, c := range b.Cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := time.Now()
		res := Result{CaseID: c.ID}

		expected, err := os.ReadFile(b.resolve(c.Expected))
		if err != nil {
			res.Error = fmt.Sprintf("failed to read expected: %v", err)
		} else if actual, err := convert(b.resolve(c.Source)); err != nil {
			res.Error = err.Error()
		} else {
			res.Report = comparer.Compare(c.Expected, c.Source, string(expected), actual)
			res.Passed = res.Report.Equal()
		}

		res.DurationMs = time.Since(start).Milliseconds()
		results = append(results, res)
		if res.Passed {
			log.Debug("case %s passed", c.ID)
		} else {
			log.Warn("case %s failed", c.ID)
			if b.FailFast {
				break
			}
		}
	}
	return results, nil
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
