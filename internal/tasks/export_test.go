package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/shared"
	tu "github.com/snesjhon/playlist-gen/internal/testing"
)

func staticToken(token string, err error) Authorizer {
	return AuthorizerFunc(func(context.Context) (string, error) { return token, err })
}

func TestExporter(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("Export", func(t *testing.T) {
		creator := &tu.MockPlaylistCreator{}
		e := NewExporter(creator, staticToken("user-token", nil), logger)

		pl, err := e.Export(ctx, "lofi", "Generated from: lofi", []string{"1", "2"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pl.Name != "lofi" {
			t.Errorf("expected playlist name lofi, got %s", pl.Name)
		}
		if len(creator.Tokens) != 1 || creator.Tokens[0] != "user-token" {
			t.Errorf("expected user token to be passed, got %v", creator.Tokens)
		}
	})

	t.Run("Empty Name", func(t *testing.T) {
		creator := &tu.MockPlaylistCreator{}
		_, err := NewExporter(creator, staticToken("t", nil), logger).Export(ctx, "  ", "", []string{"1"}, nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(creator.Requests) != 0 {
			t.Error("expected no vendor call")
		}
	})

	t.Run("No Songs", func(t *testing.T) {
		_, err := NewExporter(&tu.MockPlaylistCreator{}, staticToken("t", nil), logger).Export(ctx, "x", "", nil, nil)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Authorization Failure", func(t *testing.T) {
		creator := &tu.MockPlaylistCreator{}
		_, err := NewExporter(creator, staticToken("", shared.ErrTimeout), logger).Export(ctx, "x", "", []string{"1"}, nil)
		if !errors.Is(err, shared.ErrNotAuthorized) || !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrNotAuthorized wrapping ErrTimeout, got %v", err)
		}
		if len(creator.Requests) != 0 {
			t.Error("expected no vendor call")
		}
	})

	t.Run("Vendor Failure Is Not Retried", func(t *testing.T) {
		creator := &tu.MockPlaylistCreator{Err: errors.Join(shared.ErrExportFailed, errors.New(`{"errors":[]}`))}
		_, err := NewExporter(creator, staticToken("t", nil), logger).Export(ctx, "x", "", []string{"1"}, nil)
		if !errors.Is(err, shared.ErrExportFailed) {
			t.Errorf("expected ErrExportFailed, got %v", err)
		}
		if len(creator.Requests) != 1 {
			t.Errorf("expected exactly one attempt, got %d", len(creator.Requests))
		}
	})

	t.Run("Catalog Unavailable Is An Export Failure", func(t *testing.T) {
		creator := &tu.MockPlaylistCreator{Err: fmt.Errorf("%w: bad token", shared.ErrCatalogUnavailable)}
		_, err := NewExporter(creator, staticToken("t", nil), logger).Export(ctx, "x", "", []string{"1"}, nil)
		if !errors.Is(err, shared.ErrExportFailed) || !errors.Is(err, shared.ErrCatalogUnavailable) {
			t.Errorf("expected ErrExportFailed wrapping ErrCatalogUnavailable, got %v", err)
		}
		if strings.Count(err.Error(), shared.ErrExportFailed.Error()) != 1 {
			t.Errorf("expected a single export failure prefix, got %v", err)
		}
	})
}

func TestExportableIDs(t *testing.T) {
	songs := []models.Song{
		{Match: &models.CatalogMatch{ID: "a"}, Status: models.StatusKept},
		{Match: nil, Status: models.StatusKept},
		{Match: &models.CatalogMatch{ID: "b"}, Status: models.StatusPending},
		{Match: &models.CatalogMatch{ID: ""}, Status: models.StatusKept},
		{Match: &models.CatalogMatch{ID: "c"}, Status: models.StatusKept},
	}

	got := ExportableIDs(songs)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if again := ExportableIDs(songs); !reflect.DeepEqual(again, got) {
		t.Error("expected a repeatable result")
	}
	if len(ExportableIDs(nil)) != 0 {
		t.Error("expected no ids for no songs")
	}
}

func TestDefaultNames(t *testing.T) {
	long := strings.Repeat("é", 80)
	if got := DefaultPlaylistName(long); len([]rune(got)) != 60 {
		t.Errorf("expected 60 runes, got %d", len([]rune(got)))
	}
	if got := DefaultPlaylistName(" rainy day "); got != "rainy day" {
		t.Errorf("expected trimmed name, got %q", got)
	}
	if got := DefaultDescription("rainy day"); got != "Generated from: rainy day" {
		t.Errorf("unexpected description %q", got)
	}
}
