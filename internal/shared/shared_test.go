package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Song Title",
			artist: "Artist Name",
			want:   "song title|artist name",
		},
		{
			name:   "extra whitespace",
			title:  "  Song   Title  ",
			artist: "  Artist   Name  ",
			want:   "song title|artist name",
		},
		{
			name:   "mixed case",
			title:  "SoNg TiTlE",
			artist: "ArTiSt NaMe",
			want:   "song title|artist name",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrackKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("NormalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tc := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 60, "short"},
		{"abcdef", 3, "abc"},
		{"héllo wörld", 5, "héllo"},
		{"anything", 0, ""},
	}

	for _, tt := range tc {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	SetLogLevel(logger, log.DebugLevel)

	child := WithLogger(logger, "component", "matcher")
	child.Debug("lookup", "title", "Teardrop")

	out := buf.String()
	if !strings.Contains(out, "component=matcher") {
		t.Errorf("expected child key in output, got %q", out)
	}
	if !strings.Contains(out, "title=Teardrop") {
		t.Errorf("expected title key in output, got %q", out)
	}

	if id := GenerateID(); len(id) != 36 {
		t.Errorf("expected uuid string, got %q", id)
	}
}
