// Package board replays NAN actions against an approximate model of the
// visible game state.
//
// The model is lossy by construction. Face-down cards are "?" until a rez
// names them, advancement is credited to the last card installed in a
// server, and scored agendas count one point each. The same tokens always
// produce the same board.
package board

import (
	"regexp"
	"strconv"
	"strings"

	"nanlog/internal/action"
	"nanlog/internal/logging"
	"nanlog/internal/nan"
)

// Unknown is the name of a card whose identity has not been revealed.
const Unknown = "?"

// maxIceGap bounds how far past the known ice a positional rez may land.
const maxIceGap = 8

// IceSlot is one piece of ice protecting a server.
type IceSlot struct {
	Name   string `json:"name" yaml:"name"`
	Rezzed bool   `json:"rezzed" yaml:"rezzed"`
}

// RootCard is a card installed in a server's root.
type RootCard struct {
	Name        string `json:"name" yaml:"name"`
	Rezzed      bool   `json:"rezzed" yaml:"rezzed"`
	Advancement int    `json:"advancement" yaml:"advancement"`
}

// Board is the reconstructed state of one game.
type Board struct {
	// Servers maps a server name to its ice, index 0 innermost.
	Servers map[string][]IceSlot
	// Roots maps a server name to the cards in its root, in install order.
	Roots       map[string][]RootCard
	RunnerRig   []string
	CorpScore   int
	RunnerScore int
	CurrentTurn int
}

// New creates an empty board.
func New() *Board {
	return &Board{
		Servers: make(map[string][]IceSlot),
		Roots:   make(map[string][]RootCard),
	}
}

var rezAtRe = regexp.MustCompile(`^rez (.+)@(\d+) (.+)$`)

// ApplyTurn replays one turn record. A score checkpoint on the record
// overrides the running totals before its actions are applied.
func (b *Board) ApplyTurn(rec nan.TurnRecord) {
	b.CurrentTurn = rec.Turn
	if rec.Score != nil {
		b.CorpScore = rec.Score.Corp
		b.RunnerScore = rec.Score.Runner
	}
	for _, a := range rec.Actions {
		b.ApplyAction(rec.Player, a.Raw)
	}
}

// ApplyAll replays records in order.
func (b *Board) ApplyAll(records []nan.TurnRecord) {
	for _, rec := range records {
		b.ApplyTurn(rec)
	}
}

// ApplyAction applies one action token. Tokens that do not change visible
// state are ignored.
func (b *Board) ApplyAction(player action.Side, token string) {
	verb, rest, _ := strings.Cut(token, " ")
	switch {
	case verb == "ice":
		server := firstWord(rest)
		b.Servers[server] = append(b.Servers[server], IceSlot{Name: Unknown})

	case verb == "install" && player == action.Corp:
		server := firstWord(rest)
		b.Roots[server] = append(b.Roots[server], RootCard{Name: Unknown})

	case verb == "install" && player == action.Runner:
		b.RunnerRig = append(b.RunnerRig, rest)

	case verb == "rez":
		b.rez(token, rest)

	case verb == "score":
		// Point values are not in the token.
		b.CorpScore++

	case verb == "advance":
		server := firstWord(rest)
		if roots := b.Roots[server]; len(roots) > 0 {
			roots[len(roots)-1].Advancement++
		}

	default:
		logging.RenderDebug("ignoring token %q for %s", token, player)
	}
}

func (b *Board) rez(token, rest string) {
	if m := rezAtRe.FindStringSubmatch(token); m != nil {
		name, server := m[1], m[3]
		ice := b.Servers[server]
		pos, err := strconv.Atoi(m[2])
		if err != nil || pos > len(ice)+maxIceGap {
			logging.RenderDebug("ignoring rez at unusable position: %q", token)
			return
		}
		for len(ice) <= pos {
			ice = append(ice, IceSlot{Name: Unknown})
		}
		ice[pos] = IceSlot{Name: name, Rezzed: true}
		b.Servers[server] = ice
		return
	}

	i := strings.LastIndex(rest, " ")
	if i < 0 {
		logging.RenderDebug("rez without server: %q", token)
		return
	}
	name, server := rest[:i], rest[i+1:]

	// First face-down or same-named card takes the identity. With several
	// face-down cards in one server this may pick the wrong one.
	roots := b.Roots[server]
	for j := range roots {
		if roots[j].Name == Unknown || roots[j].Name == name {
			roots[j].Name = name
			roots[j].Rezzed = true
			return
		}
	}
	b.Roots[server] = append(roots, RootCard{Name: name, Rezzed: true})
}

func firstWord(s string) string {
	word, _, _ := strings.Cut(s, " ")
	return word
}
