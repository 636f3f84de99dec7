package nan

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"nanlog/internal/action"
	"nanlog/internal/logging"
)

var lineRe = regexp.MustCompile(`^(Corp|Runner) T(\d+)(?: \[(\d+)-(\d+)\])?: (.+)`)

// LineError reports a line that is not valid NAN.
type LineError struct {
	Line int // 1-based; 0 when parsing a lone line
	Text string
}

func (e *LineError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: could not parse %q", e.Line, e.Text)
	}
	return fmt.Sprintf("could not parse %q", e.Text)
}

// ParseLine parses a single NAN line.
func ParseLine(line string) (TurnRecord, error) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return TurnRecord{}, &LineError{Text: line}
	}

	player, _ := action.ParseSide(m[1])
	turn, err := strconv.Atoi(m[2])
	if err != nil {
		return TurnRecord{}, &LineError{Text: line}
	}

	rec := TurnRecord{Player: player, Turn: turn}
	if m[3] != "" {
		corp, errC := strconv.Atoi(m[3])
		runner, errR := strconv.Atoi(m[4])
		if errC != nil || errR != nil {
			return TurnRecord{}, &LineError{Text: line}
		}
		rec.Score = &Score{Corp: corp, Runner: runner}
	}

	for _, piece := range strings.Split(m[5], ";") {
		rec.Actions = append(rec.Actions, ParseAction(strings.TrimSpace(piece)))
	}
	return rec, nil
}

// ParseLines parses every non-blank line. Lines that fail to parse are
// returned as errors and skipped; the rest of the input is still parsed.
func ParseLines(lines []string) ([]TurnRecord, []error) {
	var (
		records []TurnRecord
		errs    []error
	)
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			lerr := &LineError{Line: i + 1, Text: line}
			logging.ParseWarn("%v", lerr)
			errs = append(errs, lerr)
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

// ParseText parses a whole NAN document held in memory.
func ParseText(text string) ([]TurnRecord, []error) {
	return ParseLines(strings.Split(text, "\n"))
}

// ParseReader parses a NAN document from r. Only I/O failures are returned
// as the final error; malformed lines come back in the error slice.
func ParseReader(r io.Reader) ([]TurnRecord, []error, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read nan: %w", err)
	}
	records, errs := ParseLines(lines)
	return records, errs, nil
}
