package gamelog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeStandardAndChat(t *testing.T) {
	lines := []string{
		"Game Log",
		"Clamatius",
		"[9:36:39]",
		"started their turn 1 with 5 [Credits] and 5 cards in HQ.",
		"",
		"ai-runner",
		"ai-runner",
		"[9:36:40]",
		"good luck",
		"Clamatius",
		"[9:36:41]",
		"spends [Click] to use Corp Basic Action Card to gain 1 [Credits].",
	}

	events := Tokenize(lines)
	require.Len(t, events, 3)

	assert.Equal(t, Action("Clamatius", "[9:36:39]", "started their turn 1 with 5 [Credits] and 5 cards in HQ."), events[0])
	assert.Equal(t, Chat("ai-runner", "good luck"), events[1])
	assert.Equal(t, KindAction, events[2].Kind)
	assert.Equal(t, "[9:36:41]", events[2].Timestamp)
}

func TestTokenizeResyncsOverGarbage(t *testing.T) {
	lines := []string{
		"orphan line",
		"another orphan",
		"Corp",
		"[1:00:00]",
		"scores Send a Message and gains 1 agenda point.",
		"trailing",
	}

	events := Tokenize(lines)
	require.Len(t, events, 1)
	assert.Equal(t, "Corp", events[0].Actor)
	assert.Equal(t, "scores Send a Message and gains 1 agenda point.", events[0].Text)
}

func TestTokenizeHeaderOnlyDroppedWhenFirst(t *testing.T) {
	events := Tokenize([]string{"Game Log", "Game Log", "[0]", "x"})
	// The second "Game Log" is an actor line once the header is gone.
	require.Len(t, events, 1)
	assert.Equal(t, "Game Log", events[0].Actor)
}

func TestTokenizeTruncatedChatFallsThrough(t *testing.T) {
	events := Tokenize([]string{"bob", "bob", "[1:00]"})
	assert.Empty(t, events)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(nil))
	assert.Empty(t, Tokenize([]string{"Game Log"}))
}

func TestReadLinesTrims(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("  Game Log \r\nCorp\n\t[1:00:00]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Game Log", "Corp", "[1:00:00]"}, lines)
}

func TestReadLinesNormalizes(t *testing.T) {
	decomposed := "Corp\n[1:00:00]\nCorp installs Pa\u0304lana\u0304 Agrisec.\n"
	lines, err := ReadLines(strings.NewReader("\ufeffGame Log\n" + decomposed))
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, "Game Log", lines[0])
	assert.Equal(t, "Corp installs P\u0101l\u0101na Agrisec.", lines[3])
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "caf\u00e9", Normalize("  cafe\u0301\t"))
	assert.Equal(t, "", Normalize("   "))
}
