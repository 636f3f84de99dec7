package nan

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanlog/internal/action"
)

func TestParseLineWithCheckpoint(t *testing.T) {
	rec, err := ParseLine("Runner T5 [2-3]: run HQ; steal Agenda")
	require.NoError(t, err)

	want := TurnRecord{
		Player: action.Runner,
		Turn:   5,
		Score:  &Score{Corp: 2, Runner: 3},
		Actions: []ParsedAction{
			{Raw: "run HQ", Verb: "run", Target: "HQ"},
			{Raw: "steal Agenda", Verb: "steal", Target: "Agenda"},
		},
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("ParseLine mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLineWithoutCheckpoint(t *testing.T) {
	rec, err := ParseLine("Corp T1: credit; credit; ice HQ")
	require.NoError(t, err)
	assert.Equal(t, action.Corp, rec.Player)
	assert.Equal(t, 1, rec.Turn)
	assert.Nil(t, rec.Score)
	require.Len(t, rec.Actions, 3)
	assert.False(t, rec.Actions[0].HasTarget())
	assert.Equal(t, "credit", rec.Actions[0].Verb)
}

func TestParseLineMalformed(t *testing.T) {
	for _, line := range []string{
		"",
		"Corp T1",
		"corp T1: credit",
		"Corp Tx: credit",
		" T0 [0-0]: run HQ",
		"Corp T1 [a-b]: credit",
	} {
		_, err := ParseLine(line)
		var lerr *LineError
		assert.True(t, errors.As(err, &lerr), "expected LineError for %q", line)
	}
}

func TestParseActionKeepsMultiWordTarget(t *testing.T) {
	a := ParseAction("rez Manegarm Skunkworks S1")
	assert.Equal(t, "rez", a.Verb)
	assert.Equal(t, "Manegarm Skunkworks S1", a.Target)
	assert.Equal(t, "break-all", ParseAction("break-all").Verb)
}

func TestParseLinesContinuesPastErrors(t *testing.T) {
	text := strings.Join([]string{
		"Corp T1 [0-0]: ice HQ",
		"this is not nan",
		"",
		"Runner T1 [0-0]: run HQ",
		"Runner T1 garbage",
	}, "\n")

	records, errs := ParseText(text)
	require.Len(t, records, 2)
	require.Len(t, errs, 2)

	var lerr *LineError
	require.True(t, errors.As(errs[0], &lerr))
	assert.Equal(t, 2, lerr.Line)
	assert.Contains(t, errs[1].Error(), "line 5")
}

func TestParseReader(t *testing.T) {
	records, errs, err := ParseReader(strings.NewReader("Corp T2 [1-0]: advance S1\r\n\nRunner T2: credit\n"))
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, records, 2)
	assert.Equal(t, &Score{Corp: 1}, records[0].Score)
}

func TestTurnRecordStringRoundTrip(t *testing.T) {
	for _, line := range []string{
		"Corp T1 [0-0]: ice HQ; ice S1; credit",
		"Runner T7: run S2; access ?; trash PAD Campaign",
	} {
		rec, err := ParseLine(line)
		require.NoError(t, err)
		assert.Equal(t, line, rec.String())
	}
}
