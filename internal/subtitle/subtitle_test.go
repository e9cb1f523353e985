package subtitle_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/scribed/scribed/internal/subtitle"
	"github.com/scribed/scribed/internal/whisper"
)

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0.0, "00:00:00,000"},
		{3661.5, "01:01:01,500"},
		{12.25, "00:00:12,250"},
		{0.0014, "00:00:00,001"},
		{59.9995, "00:01:00,000"},
		{3599.9996, "01:00:00,000"},
		{360000.0, "100:00:00,000"},
	}
	for _, tc := range cases {
		got, err := subtitle.FormatTimestamp(tc.in)
		if err != nil {
			t.Fatalf("FormatTimestamp(%v) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatTimestampRejectsNegative(t *testing.T) {
	if _, err := subtitle.FormatTimestamp(-0.5); err == nil {
		t.Fatal("expected error for negative offset")
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00"},
		{5.9, "0:00:05"},
		{75, "0:01:15"},
		{3661.9, "1:01:01"},
		{36000, "10:00:00"},
	}
	for _, tc := range cases {
		if got := subtitle.FormatClock(tc.in); got != tc.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderSRT(t *testing.T) {
	segs := []whisper.Segment{
		{Start: 0, End: 2.5, Text: "  Hello there.  "},
		{Start: 2.5, End: 5.0014, Text: "General Kenobi."},
	}
	got, err := subtitle.RenderSRT(segs)
	if err != nil {
		t.Fatalf("RenderSRT returned error: %v", err)
	}
	want := strings.Join([]string{
		"1",
		"00:00:00,000 --> 00:00:02,500",
		"Hello there.",
		"",
		"2",
		"00:00:02,500 --> 00:00:05,001",
		"General Kenobi.",
		"",
	}, "\n")
	if got != want {
		t.Errorf("unexpected document:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderSRTEmpty(t *testing.T) {
	got, err := subtitle.RenderSRT(nil)
	if err != nil {
		t.Fatalf("RenderSRT(nil) returned error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty document, got %q", got)
	}
}

func TestRenderSRTShape(t *testing.T) {
	segs := []whisper.Segment{
		{Start: 0, End: 1, Text: "one"},
		{Start: 1, End: 2, Text: "two"},
		{Start: 2, End: 3, Text: "three"},
	}
	doc, err := subtitle.RenderSRT(segs)
	if err != nil {
		t.Fatalf("RenderSRT returned error: %v", err)
	}
	blocks := strings.Split(strings.TrimRight(doc, "\n"), "\n\n")
	if len(blocks) != len(segs) {
		t.Fatalf("expected %d blocks, got %d", len(segs), len(blocks))
	}
	for i, block := range blocks {
		lines := strings.Split(block, "\n")
		if len(lines) != 3 {
			t.Fatalf("block %d: expected 3 lines, got %d (%q)", i+1, len(lines), block)
		}
		if lines[0] != strconv.Itoa(i+1) {
			t.Errorf("block %d: index line %q", i+1, lines[0])
		}
		if !strings.Contains(lines[1], " --> ") {
			t.Errorf("block %d: malformed range line %q", i+1, lines[1])
		}
		if lines[2] != segs[i].Text {
			t.Errorf("block %d: text %q, want %q", i+1, lines[2], segs[i].Text)
		}
	}
}

func TestRenderSRTRejectsNegativeStart(t *testing.T) {
	_, err := subtitle.RenderSRT([]whisper.Segment{{Start: -1, End: 2, Text: "x"}})
	if err == nil {
		t.Fatal("expected error for negative segment start")
	}
}
