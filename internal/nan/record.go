// Package nan assembles and parses NAN, a compact per-turn notation for
// two-player card game logs:
//
//	Corp T1 [0-0]: ice HQ; ice S1; credit
//	Runner T1 [0-0]: credit; run HQ; access ?
//
// Each line is one turn. The bracketed pair is the cumulative score
// (corp-runner) at the moment the turn began and is optional on input.
package nan

import (
	"fmt"
	"strings"

	"nanlog/internal/action"
)

// Score is a corp/runner agenda point pair.
type Score struct {
	Corp   int `json:"corp" yaml:"corp"`
	Runner int `json:"runner" yaml:"runner"`
}

// ParsedAction is one action of a turn split on its first space.
type ParsedAction struct {
	Raw    string `json:"raw" yaml:"raw"`
	Verb   string `json:"verb" yaml:"verb"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// ParseAction splits "ice HQ" into verb "ice" and target "HQ".
func ParseAction(raw string) ParsedAction {
	verb, target, _ := strings.Cut(raw, " ")
	return ParsedAction{Raw: raw, Verb: verb, Target: target}
}

// HasTarget reports whether the action named anything after its verb.
func (a ParsedAction) HasTarget() bool { return a.Target != "" }

// TurnRecord is one NAN line.
type TurnRecord struct {
	Player  action.Side    `json:"player" yaml:"player"`
	Turn    int            `json:"turn" yaml:"turn"`
	Score   *Score         `json:"score,omitempty" yaml:"score,omitempty"`
	Actions []ParsedAction `json:"actions" yaml:"actions"`
}

// Tokens returns the raw action strings of the record.
func (r TurnRecord) Tokens() []string {
	out := make([]string, len(r.Actions))
	for i, a := range r.Actions {
		out[i] = a.Raw
	}
	return out
}

// String renders the record back into a NAN line.
func (r TurnRecord) String() string {
	return FormatLine(string(r.Player), fmt.Sprint(r.Turn), r.Score, r.Tokens())
}

// FormatLine renders a NAN line. A nil score omits the checkpoint.
func FormatLine(player, turn string, score *Score, actions []string) string {
	var b strings.Builder
	b.WriteString(player)
	b.WriteString(" T")
	b.WriteString(turn)
	if score != nil {
		fmt.Fprintf(&b, " [%d-%d]", score.Corp, score.Runner)
	}
	b.WriteString(": ")
	b.WriteString(strings.Join(actions, "; "))
	return b.String()
}
