package subtitle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedTrack is returned when an SRT track cannot be parsed.
var ErrMalformedTrack = errors.New("malformed SRT track")

// Cue is a single subtitle cue.
type Cue struct {
	// Index is the sequential cue number from the source track.
	Index int
	// Start and End bound the cue's display window.
	Start time.Duration
	End   time.Duration
	// Lines holds the cue text, one entry per source line.
	Lines []string
}

// ParseSRT parses an SRT document into cues. Blank-line separated blocks
// with an index line, a timing line and at least one text line are
// accepted; carriage returns and a UTF-8 BOM are tolerated.
func ParseSRT(data string) ([]Cue, error) {
	data = strings.TrimPrefix(data, "\ufeff")
	data = strings.ReplaceAll(data, "\r\n", "\n")

	var cues []Cue
	for _, block := range strings.Split(data, "\n\n") {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}
		if len(lines) < 2 {
			return nil, fmt.Errorf("%w: incomplete cue block %q", ErrMalformedTrack, block)
		}

		idx, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: bad cue index %q", ErrMalformedTrack, lines[0])
		}

		start, end, err := parseTiming(lines[1])
		if err != nil {
			return nil, err
		}

		text := lines[2:]
		if len(text) == 0 {
			return nil, fmt.Errorf("%w: cue %d has no text", ErrMalformedTrack, idx)
		}

		cues = append(cues, Cue{Index: idx, Start: start, End: end, Lines: text})
	}

	if len(cues) == 0 {
		return nil, fmt.Errorf("%w: no cues found", ErrMalformedTrack)
	}
	return cues, nil
}

func nonEmptyLines(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseTiming parses "HH:MM:SS,mmm --> HH:MM:SS,mmm".
func parseTiming(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: bad timing line %q", ErrMalformedTrack, line)
	}
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("%w: cue ends before it starts in %q", ErrMalformedTrack, line)
	}
	return start, end, nil
}

// parseTimestamp parses "HH:MM:SS,mmm" (a period is also accepted).
func parseTimestamp(s string) (time.Duration, error) {
	s = strings.ReplaceAll(s, ",", ".")
	fields := strings.Split(s, ":")
	if len(fields) != 3 {
		return 0, fmt.Errorf("%w: bad timestamp %q", ErrMalformedTrack, s)
	}
	h, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("%w: bad timestamp %q", ErrMalformedTrack, s)
	}
	m, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: bad timestamp %q", ErrMalformedTrack, s)
	}
	sec, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad timestamp %q", ErrMalformedTrack, s)
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second)), nil
}
