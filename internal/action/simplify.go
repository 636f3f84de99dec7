// Package action reduces game log sentences to NAN action tokens and guesses
// which seat performed them.
package action

import (
	"regexp"
	"strings"
)

// Token is a compact NAN action such as "ice S1" or "run HQ". The zero
// Token is None and means the sentence should be elided.
type Token string

// None marks an elided action.
const None Token = ""

// IsNone reports whether the token elides its action.
func (t Token) IsNone() bool { return t == None }

func (t Token) String() string {
	if t == None {
		return "none"
	}
	return string(t)
}

// Rule is one entry of the simplification table. Build receives the regexp
// submatches; returning false lets the cascade continue to the next rule.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Build   func(m []string) (Token, bool)
}

// Apply runs the rule against text.
func (r Rule) Apply(text string) (Token, bool) {
	m := r.Pattern.FindStringSubmatch(text)
	if m == nil {
		return None, false
	}
	return r.Build(m)
}

// CompressServer shortens a server name: "Server 1 (new remote)" becomes
// "S1"; central servers keep their names.
func CompressServer(name string) string {
	if i := strings.Index(name, " ("); i >= 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, "Server ", "S")
}

func literal(tok Token) func([]string) (Token, bool) {
	return func([]string) (Token, bool) { return tok, true }
}

func elide([]string) (Token, bool) { return None, true }

func untilPeriod(s string) string {
	if i := strings.Index(s, "."); i >= 0 {
		return s[:i]
	}
	return s
}

// Rules is the ordered simplification table. Order matters: the first rule
// that produces a result wins.
var Rules = []Rule{
	{
		Name:    "turn-start",
		Pattern: regexp.MustCompile(`started (?:his|her|their) turn (\d+)`),
		Build:   func(m []string) (Token, bool) { return Token("Turn " + m[1]), true },
	},
	{
		Name:    "mandatory-draw",
		Pattern: regexp.MustCompile(`makes (?:his|her|their) mandatory start of turn draw`),
		Build:   elide,
	},
	{
		Name:    "basic-draw",
		Pattern: regexp.MustCompile(`to use (?:Corp|Runner) Basic Action Card to draw`),
		Build:   literal("draw"),
	},
	{
		Name:    "basic-credit",
		Pattern: regexp.MustCompile(`to use (?:Corp|Runner) Basic Action Card to gain`),
		Build:   literal("credit"),
	},
	{
		Name:    "use-card",
		Pattern: regexp.MustCompile(`to use (.+) to (?:gain|place|draw)`),
		Build: func(m []string) (Token, bool) {
			if strings.Contains(m[1], "Basic Action Card") {
				return None, false
			}
			return Token("use " + m[1]), true
		},
	},
	{
		Name:    "play",
		Pattern: regexp.MustCompile(`to play (.+)\.$`),
		Build:   func(m []string) (Token, bool) { return Token(m[1]), true },
	},
	{
		Name:    "install-ice",
		Pattern: regexp.MustCompile(`to install ice protecting (.+)\.$`),
		Build:   func(m []string) (Token, bool) { return Token("ice " + CompressServer(m[1])), true },
	},
	{
		Name:    "install-root",
		Pattern: regexp.MustCompile(`to install a card in the root of (.+)\.$`),
		Build:   func(m []string) (Token, bool) { return Token("install " + CompressServer(m[1])), true },
	},
	{
		Name:    "install-card",
		Pattern: regexp.MustCompile(`to install (.+)\.$`),
		Build: func(m []string) (Token, bool) {
			if strings.Contains(m[0], "ice protecting") {
				return None, false
			}
			return Token("install " + m[1]), true
		},
	},
	{
		Name:    "advance",
		Pattern: regexp.MustCompile(`to advance a card in (.+)\.$`),
		Build:   func(m []string) (Token, bool) { return Token("advance " + CompressServer(m[1])), true },
	},
	{
		Name:    "score",
		Pattern: regexp.MustCompile(`scores (.+) and gains`),
		Build:   func(m []string) (Token, bool) { return Token("score " + m[1]), true },
	},
	{
		Name:    "run",
		Pattern: regexp.MustCompile(`to make a run on (.+)\.$`),
		Build:   func(m []string) (Token, bool) { return Token("run " + CompressServer(m[1])), true },
	},
	{
		Name:    "breach",
		Pattern: regexp.MustCompile(`breaches (.*)`),
		Build: func(m []string) (Token, bool) {
			return Token("breach " + CompressServer(untilPeriod(m[1]))), true
		},
	},
	{
		Name:    "access",
		Pattern: regexp.MustCompile(`accesses (.+) from (.+)\.$`),
		Build: func(m []string) (Token, bool) {
			card := m[1]
			if strings.Contains(card, "unseen card") {
				card = "?"
			}
			return Token("access " + card), true
		},
	},
	{
		Name:    "trash",
		Pattern: regexp.MustCompile(`(?:trashes|to trash) (.+?)(?: from .+)?\.$`),
		Build:   func(m []string) (Token, bool) { return Token("trash " + m[1]), true },
	},
	{
		Name:    "steal",
		Pattern: regexp.MustCompile(`steals (.+) and gains`),
		Build:   func(m []string) (Token, bool) { return Token("steal " + m[1]), true },
	},
	{
		Name:    "rez-ice",
		Pattern: regexp.MustCompile(`rez (.+) protecting (.+) at position (\d+)`),
		Build: func(m []string) (Token, bool) {
			return Token("rez " + m[1] + "@" + m[3] + " " + CompressServer(m[2])), true
		},
	},
	{
		Name:    "rez-root",
		Pattern: regexp.MustCompile(`rez (.+) in (.+?)(?: at no cost)?(?:\.|$)`),
		Build: func(m []string) (Token, bool) {
			return Token("rez " + m[1] + " " + CompressServer(m[2])), true
		},
	},
	{
		Name:    "encounter",
		Pattern: regexp.MustCompile(`encounters (.*)`),
		Build: func(m []string) (Token, bool) {
			if pm := encounterAtRe.FindStringSubmatch(m[0]); pm != nil {
				return Token("encounter " + pm[1] + "@" + pm[2]), true
			}
			ice := untilPeriod(m[1])
			if i := strings.Index(ice, " protecting "); i >= 0 {
				ice = ice[:i]
			}
			return Token("encounter " + ice), true
		},
	},
	{
		Name:    "break-all",
		Pattern: regexp.MustCompile(`break all subroutines`),
		Build:   literal("break-all"),
	},
	{
		Name:    "damage",
		Pattern: regexp.MustCompile(`suffers? (\d+) (net|meat|core) damage`),
		Build:   func(m []string) (Token, bool) { return Token("damage " + m[1] + " " + m[2]), true },
	},
	{
		Name:    "flatline",
		Pattern: regexp.MustCompile(`is flatlined`),
		Build:   literal("flatline"),
	},
	{
		Name:    "discard",
		Pattern: regexp.MustCompile(`discards (.+) from (?:HQ|the grip)`),
		Build:   func(m []string) (Token, bool) { return Token("discard " + m[1]), true },
	},
}

var encounterAtRe = regexp.MustCompile(`encounters (.+) protecting .+ at position (\d+)`)

// Simplify maps an action sentence to its token using Rules.
func Simplify(text string) Token {
	tok, _ := SimplifyWith(Rules, text)
	return tok
}

// SimplifyWith runs an arbitrary rule table and also returns the name of the
// rule that decided the result ("" when nothing matched).
func SimplifyWith(rules []Rule, text string) (Token, string) {
	for _, r := range rules {
		if tok, ok := r.Apply(text); ok {
			return tok, r.Name
		}
	}
	return None, ""
}
