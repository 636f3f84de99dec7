// Package gamelog turns the line-oriented game log into typed events.
//
// A copied game log interleaves three line shapes:
//
//	<user>              <user>
//	[9:36:39]           <user>          (chat: the name line is repeated)
//	<action sentence>   [9:36:41]
//	                    <message>
//
// The scanner is a single forward pass that never fails: lines that fit
// neither shape are skipped one at a time until it resynchronizes.
package gamelog

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"nanlog/internal/logging"
)

// Header is the first line of a log copied from the game client.
const Header = "Game Log"

// Kind distinguishes chat from game actions.
type Kind int

const (
	KindChat Kind = iota
	KindAction
)

func (k Kind) String() string {
	if k == KindChat {
		return "chat"
	}
	return "action"
}

// Event is one tokenized log entry. Timestamp is empty for chat.
type Event struct {
	Kind      Kind
	Actor     string
	Timestamp string
	Text      string // chat message or action sentence
}

// Chat builds a chat event.
func Chat(actor, message string) Event {
	return Event{Kind: KindChat, Actor: actor, Text: message}
}

// Action builds a game action event.
func Action(actor, timestamp, text string) Event {
	return Event{Kind: KindAction, Actor: actor, Timestamp: timestamp, Text: text}
}

// Tokenize scans lines into events in source order.
func Tokenize(lines []string) []Event {
	if len(lines) > 0 && strings.HasPrefix(lines[0], Header) {
		lines = lines[1:]
	}

	var events []Event
	skipped := 0
	i := 0
	for i < len(lines) {
		line := lines[i]
		if line == "" {
			i++
			continue
		}

		// Chat: the actor line is repeated, then timestamp, then message.
		if i+3 < len(lines) && lines[i+1] == line {
			events = append(events, Chat(line, lines[i+3]))
			i += 4
			continue
		}

		if i+2 < len(lines) && strings.HasPrefix(lines[i+1], "[") {
			events = append(events, Action(line, lines[i+1], lines[i+2]))
			i += 3
			continue
		}

		skipped++
		i++
	}

	logging.TokenizeDebug("tokenized %d lines into %d events (%d skipped)", len(lines), len(events), skipped)
	return events
}

// Normalize puts a log line in NFC form with surrounding whitespace
// trimmed. Card names copied from some clients arrive decomposed
// ("Pa\u0304lana\u0304"), which would otherwise miss the rule table.
func Normalize(line string) string {
	return strings.TrimSpace(norm.NFC.String(line))
}

// ReadLines reads a text log, normalizing each line. A leading byte order
// mark is dropped.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if len(lines) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		lines = append(lines, Normalize(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	return lines, nil
}
