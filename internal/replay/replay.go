// Package replay loads recorded game replays and turns them back into the
// line form the text game log uses.
//
// A replay is a JSON document {"metadata": {...}, "history": [state0,
// diff1, diff2, ...]}. The first history element is a full state; every
// later element is a patch applied on top of the previous result.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"

	"nanlog/internal/config"
	"nanlog/internal/gamelog"
	"nanlog/internal/logging"
	"nanlog/internal/nan"
	"nanlog/internal/patch"
	"nanlog/internal/value"
)

// ErrNoHistory is returned for replays with a missing or empty history.
var ErrNoHistory = errors.New("no history found in replay")

// Replay is a decoded replay file.
type Replay struct {
	// Metadata is carried along untouched; it may be Null.
	Metadata value.Value
	History  []value.Value
}

// Load decodes a replay from r.
func Load(r io.Reader) (*Replay, error) {
	doc, err := value.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode replay: %w", err)
	}

	hist, _ := doc.Get("history")
	if !hist.IsArray() || hist.Len() == 0 {
		return nil, ErrNoHistory
	}
	meta, _ := doc.Get("metadata")

	logging.ReplayDebug("loaded replay with %d history entries", hist.Len())
	return &Replay{Metadata: meta, History: hist.Items()}, nil
}

// LoadFile opens and decodes a replay file.
func LoadFile(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	defer f.Close()

	rep, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rep, nil
}

// Final folds every patch into the initial state and returns the result.
func (r *Replay) Final() value.Value {
	return r.StateAt(len(r.History) - 1)
}

// StateAt returns the state after applying the first n patches. n is
// clamped to the available history.
func (r *Replay) StateAt(n int) value.Value {
	if len(r.History) == 0 {
		return value.Null()
	}
	switch {
	case n < 0:
		n = 0
	case n > len(r.History)-1:
		n = len(r.History) - 1
	}
	state := r.History[0]
	for _, step := range r.History[1 : n+1] {
		state = patch.Apply(state, step)
	}
	return state
}

// ExtractLog pulls the game log out of a patched state and renders each
// entry as the lines a text log would hold: actor, timestamp, text. System
// entries and entries with an empty user produce the text line alone.
//
// The log is read from the top-level "log" key, falling back to
// "game-state"."log". Entries that are not objects are skipped.
func ExtractLog(state value.Value, cfg config.ReplayConfig) []string {
	entries, ok := state.Get("log")
	if !ok || !entries.Truthy() {
		gs, _ := state.Get("game-state")
		entries, _ = gs.Get("log")
	}
	if !entries.IsArray() {
		return nil
	}

	var lines []string
	for _, entry := range entries.Items() {
		if !entry.IsObject() {
			continue
		}
		user := cfg.DefaultUser
		if u, ok := entry.Get("user"); ok {
			user = stringOf(u)
		}
		text := ""
		if t, ok := entry.Get("text"); ok {
			text = stringOf(t)
		}

		if user == "" || user == cfg.SystemUser {
			lines = append(lines, text)
			continue
		}
		lines = append(lines, user, cfg.PlaceholderTimestamp, text)
	}
	return lines
}

// stringOf renders scalars the way a log line would show them.
func stringOf(v value.Value) string {
	if s, ok := v.AsString(); ok {
		return gamelog.Normalize(s)
	}
	if v.IsNull() {
		return ""
	}
	return v.String()
}

// Lines folds the replay and extracts its log lines.
func (r *Replay) Lines(cfg config.ReplayConfig) []string {
	return ExtractLog(r.Final(), cfg)
}

// ToNAN runs the whole conversion: fold, extract, tokenize and assemble.
func (r *Replay) ToNAN(cfg config.ReplayConfig) string {
	timer := logging.StartTimer(logging.CategoryReplay, "replay to nan")
	defer timer.Stop()

	lines := r.Lines(cfg)
	events := gamelog.Tokenize(lines)
	logging.ReplayDebug("extracted %d log lines, %d events", len(lines), len(events))
	return nan.Assemble(events)
}
