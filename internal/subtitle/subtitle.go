// Package subtitle renders transcript segments into SRT subtitle
// documents and the timestamp formats that go with them.
package subtitle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/scribed/scribed/internal/whisper"
)

// FormatTimestamp encodes a second offset as an SRT timestamp,
// HH:MM:SS,mmm with zero-padded fields. The offset is rounded to the
// nearest millisecond; a round-up at a second boundary carries into the
// whole-second component rather than emitting ",1000". Negative offsets
// are rejected.
func FormatTimestamp(seconds float64) (string, error) {
	if seconds < 0 || math.IsNaN(seconds) {
		return "", fmt.Errorf("invalid timestamp %v", seconds)
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3600000
	m := ms / 60000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000), nil
}

// FormatClock encodes a second offset as a coarse H:MM:SS label for
// human-readable segment listings. Fractional seconds are truncated.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
}

// RenderSRT serializes segments into a complete SRT document: for each
// segment a 1-based index line, a "start --> end" line, the trimmed
// text, and a blank separator. Text is emitted verbatim apart from the
// trim. An empty segment list renders an empty document.
func RenderSRT(segments []whisper.Segment) (string, error) {
	if len(segments) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(segments)*4)
	for i, seg := range segments {
		start, err := FormatTimestamp(seg.Start)
		if err != nil {
			return "", fmt.Errorf("segment %d: %w", i+1, err)
		}
		end, err := FormatTimestamp(seg.End)
		if err != nil {
			return "", fmt.Errorf("segment %d: %w", i+1, err)
		}
		lines = append(lines,
			strconv.Itoa(i+1),
			start+" --> "+end,
			strings.TrimSpace(seg.Text),
			"",
		)
	}
	return strings.Join(lines, "\n"), nil
}
