package nan

import (
	"regexp"
	"strconv"
	"strings"

	"nanlog/internal/action"
	"nanlog/internal/gamelog"
	"nanlog/internal/logging"
)

var agendaPointsRe = regexp.MustCompile(`gains (\d+) agenda point`)

// Assembler folds a stream of log events into NAN lines, one per turn.
//
// It carries the state a single game needs: the turn in progress, who is
// playing it, the running score and which username plays which side. An
// Assembler is meant for one game and is not safe for concurrent use.
type Assembler struct {
	memo *action.SideMemo

	currentTurn  string
	activePlayer action.Side
	buffer       []string

	corpScore   int
	runnerScore int
	turnStart   Score

	lines []string
}

// NewAssembler creates an assembler for one game.
func NewAssembler() *Assembler {
	return &Assembler{memo: action.NewSideMemo()}
}

// Assemble converts events into NAN text with a fresh Assembler.
func Assemble(events []gamelog.Event) string {
	a := NewAssembler()
	for _, ev := range events {
		a.Add(ev)
	}
	return a.Finish()
}

// Add consumes one event.
func (a *Assembler) Add(ev gamelog.Event) {
	if ev.Kind != gamelog.KindAction {
		return
	}

	detected := a.memo.Observe(ev.Actor, ev.Text)
	tok := action.Simplify(ev.Text)
	if tok.IsNone() {
		return
	}
	token := string(tok)

	if strings.HasPrefix(token, "Turn") {
		a.startTurn(ev.Actor, token, detected)
		return
	}

	// Point values only live in the original sentence.
	switch {
	case strings.HasPrefix(token, "score "):
		a.corpScore += agendaPoints(ev.Text)
	case strings.HasPrefix(token, "steal "):
		a.runnerScore += agendaPoints(ev.Text)
	}
	a.buffer = append(a.buffer, token)
}

func (a *Assembler) startTurn(actor, token string, detected action.Side) {
	a.flush()
	_, turn, _ := strings.Cut(token, " ")
	a.currentTurn = turn

	if side, ok := a.memo.Lookup(actor); ok {
		a.activePlayer = side
	} else if detected != action.SideUnknown {
		a.activePlayer = detected
		a.memo.Bind(actor, detected)
	} else if turn == "1" && a.memo.Len() == 0 {
		a.activePlayer = action.Corp
		a.memo.Bind(actor, action.Corp)
	} else {
		a.activePlayer = a.activePlayer.Other()
	}

	a.turnStart = Score{Corp: a.corpScore, Runner: a.runnerScore}
	logging.AssembleDebug("turn %s starts for %s (%s) at %d-%d",
		turn, a.activePlayer, actor, a.corpScore, a.runnerScore)
}

func (a *Assembler) flush() {
	if len(a.buffer) == 0 {
		return
	}
	score := a.turnStart
	a.lines = append(a.lines, FormatLine(string(a.activePlayer), a.turnLabel(), &score, a.buffer))
	a.buffer = nil
}

func (a *Assembler) turnLabel() string {
	if a.currentTurn == "" {
		return "0"
	}
	return a.currentTurn
}

// Finish flushes the last turn and returns the NAN text.
func (a *Assembler) Finish() string {
	a.flush()
	return strings.Join(a.lines, "\n")
}

// Lines returns the lines flushed so far.
func (a *Assembler) Lines() []string {
	return append([]string(nil), a.lines...)
}

// Score returns the running corp and runner totals.
func (a *Assembler) Score() Score {
	return Score{Corp: a.corpScore, Runner: a.runnerScore}
}

func agendaPoints(text string) int {
	m := agendaPointsRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
