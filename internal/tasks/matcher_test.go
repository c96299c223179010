package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/shared"
	tu "github.com/snesjhon/playlist-gen/internal/testing"
)

// countingPause records how often it was asked to wait.
type countingPause struct{ calls int }

func (p *countingPause) Wait(context.Context) error {
	p.calls++
	return nil
}

func candidates(n int, prefix string) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		out[i] = models.Candidate{
			Title:  fmt.Sprintf("%s Song %d", prefix, i),
			Artist: fmt.Sprintf("%s Artist %d", prefix, i),
			Reason: "fits",
		}
	}
	return out
}

func TestMatcher(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("MatchOne", func(t *testing.T) {
		t.Run("Hit", func(t *testing.T) {
			m := NewMatcher(&tu.MockCatalog{MatchAll: true}, NoDelay, logger)
			if got := m.MatchOne(context.Background(), "A", "B"); got == nil {
				t.Error("expected a match")
			}
		})

		t.Run("Lookup Error Degrades To Nil", func(t *testing.T) {
			catalog := &tu.MockCatalog{
				MatchAll: true,
				Errs:     map[string]error{shared.NormalizeTrackKey("A", "B"): errors.New("network down")},
			}
			m := NewMatcher(catalog, NoDelay, logger)
			if got := m.MatchOne(context.Background(), "A", "B"); got != nil {
				t.Errorf("expected nil match, got %+v", got)
			}
		})

		t.Run("Empty ID Is No Match", func(t *testing.T) {
			catalog := &tu.MockCatalog{Matches: map[string]*models.CatalogMatch{
				shared.NormalizeTrackKey("A", "B"): {Title: "A"},
			}}
			m := NewMatcher(catalog, NoDelay, logger)
			if got := m.MatchOne(context.Background(), "A", "B"); got != nil {
				t.Errorf("expected nil match, got %+v", got)
			}
		})
	})

	t.Run("MatchMany", func(t *testing.T) {
		t.Run("Preserves Order And Length", func(t *testing.T) {
			input := candidates(5, "x")
			catalog := &tu.MockCatalog{
				MatchAll: true,
				Errs:     map[string]error{shared.NormalizeTrackKey(input[1].Title, input[1].Artist): errors.New("boom")},
			}
			catalog.Miss(input[3].Title, input[3].Artist)

			songs := NewMatcher(catalog, NoDelay, logger).MatchMany(context.Background(), input, nil)
			if len(songs) != len(input) {
				t.Fatalf("expected %d songs, got %d", len(input), len(songs))
			}
			for i, s := range songs {
				if s.Candidate != input[i] {
					t.Errorf("song %d out of order: %+v", i, s.Candidate)
				}
				if s.Status != models.StatusPending || s.KeepReasons != nil || s.RemoveReasons != nil {
					t.Errorf("song %d should be pending without reasons: %+v", i, s)
				}
				wantMatch := i != 1 && i != 3
				if s.Matched() != wantMatch {
					t.Errorf("song %d matched=%v, want %v", i, s.Matched(), wantMatch)
				}
			}
		})

		t.Run("Pauses Only Between Lookups", func(t *testing.T) {
			for _, n := range []int{0, 1, 2, 7} {
				t.Run(fmt.Sprintf("%d items", n), func(t *testing.T) {
					pause := &countingPause{}
					NewMatcher(&tu.MockCatalog{}, pause, logger).MatchMany(context.Background(), candidates(n, "p"), nil)

					want := max(n-1, 0)
					if pause.calls != want {
						t.Errorf("expected %d pauses, got %d", want, pause.calls)
					}
				})
			}
		})

		t.Run("Reports Progress", func(t *testing.T) {
			progress := make(chan ProgressUpdate, 10)
			NewMatcher(&tu.MockCatalog{MatchAll: true}, NoDelay, logger).MatchMany(context.Background(), candidates(3, "p"), progress)
			close(progress)

			count := 0
			for u := range progress {
				if u.Phase != Match {
					t.Errorf("expected match phase, got %s", u.Phase)
				}
				count++
			}
			if count != 3 {
				t.Errorf("expected 3 updates, got %d", count)
			}
		})

		t.Run("Full Progress Channel Does Not Block", func(t *testing.T) {
			progress := make(chan ProgressUpdate)
			songs := NewMatcher(&tu.MockCatalog{MatchAll: true}, NoDelay, logger).MatchMany(context.Background(), candidates(3, "p"), progress)
			if len(songs) != 3 {
				t.Errorf("expected 3 songs, got %d", len(songs))
			}
		})
	})
}

func TestFixedDelay(t *testing.T) {
	t.Run("Non-Positive Is NoDelay", func(t *testing.T) {
		if err := FixedDelay(0).Wait(context.Background()); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := FixedDelay(time.Hour).Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
