package action

import (
	"regexp"
	"strings"
)

// Side is a player seat.
type Side string

const (
	SideUnknown Side = ""
	Corp        Side = "Corp"
	Runner      Side = "Runner"
)

func (s Side) String() string {
	if s == SideUnknown {
		return "unknown"
	}
	return string(s)
}

// Other returns the opposing seat. Unknown maps to Corp, which is how turn
// alternation bootstraps when nothing has been learned yet.
func (s Side) Other() Side {
	if s == Corp {
		return Runner
	}
	return Corp
}

// ParseSide accepts the seat names used in NAN headers.
func ParseSide(name string) (Side, bool) {
	switch name {
	case string(Corp):
		return Corp, true
	case string(Runner):
		return Runner, true
	}
	return SideUnknown, false
}

// Action sentences in a log arrive without the actor name, so verbs are
// matched on word boundaries rather than on surrounding spaces.
var (
	mandatoryDrawRe = regexp.MustCompile(`makes (?:his|her|their) mandatory start of turn draw`)
	runnerActionRe  = regexp.MustCompile(`\b(?:makes? a run on|breaches|encounters|jacks out)\b`)
	scoresRe        = regexp.MustCompile(`\bscores\b.*\bagenda point`)
	stealsRe        = regexp.MustCompile(`\bsteals\b`)
	rezRe           = regexp.MustCompile(`(?i)\brez\b`)
)

// DetectSide guesses which seat performed an action from its wording.
// Rules are checked in order and the first hit wins.
func DetectSide(text string) Side {
	switch {
	case strings.Contains(text, "Corp Basic Action Card"):
		return Corp
	case strings.Contains(text, "Runner Basic Action Card"):
		return Runner
	case mandatoryDrawRe.MatchString(text):
		// Only the Corp has a mandatory draw.
		return Corp
	case runnerActionRe.MatchString(text):
		return Runner
	case scoresRe.MatchString(text):
		return Corp
	case stealsRe.MatchString(text):
		return Runner
	case rezRe.MatchString(text) && strings.Contains(text, "protecting"):
		return Corp
	}
	return SideUnknown
}

// SideMemo remembers the first side detected for each username. Once a
// username is bound it is never rebound.
type SideMemo struct {
	sides map[string]Side
}

// NewSideMemo creates an empty memo.
func NewSideMemo() *SideMemo {
	return &SideMemo{sides: make(map[string]Side)}
}

// Observe runs detection on text and binds user if it is not yet bound.
// It returns the freshly detected side, which may be unknown.
func (m *SideMemo) Observe(user, text string) Side {
	detected := DetectSide(text)
	if detected != SideUnknown && user != "" {
		m.Bind(user, detected)
	}
	return detected
}

// Bind records user's side unless one is already recorded.
func (m *SideMemo) Bind(user string, side Side) {
	if side == SideUnknown {
		return
	}
	if _, ok := m.sides[user]; !ok {
		m.sides[user] = side
	}
}

// Lookup returns the recorded side for user.
func (m *SideMemo) Lookup(user string) (Side, bool) {
	s, ok := m.sides[user]
	return s, ok
}

// Len reports how many usernames are bound.
func (m *SideMemo) Len() int { return len(m.sides) }
