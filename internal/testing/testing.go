// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/services"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

// MockGenerator is a test double for [services.Generator].
//
// Batches are returned one per call in order; calls past the end return an
// empty batch. Err is returned on every call, or only on call ErrOnCall
// (1-based) when that is set.
type MockGenerator struct {
	Batches   [][]models.Candidate
	Err       error
	ErrOnCall int
	Requests  []services.GenerateRequest
}

func (m *MockGenerator) Generate(ctx context.Context, req services.GenerateRequest) ([]models.Candidate, error) {
	m.Requests = append(m.Requests, req)
	call := len(m.Requests)

	if m.Err != nil && (m.ErrOnCall == 0 || m.ErrOnCall == call) {
		return nil, m.Err
	}
	if call <= len(m.Batches) {
		return append([]models.Candidate{}, m.Batches[call-1]...), nil
	}
	return []models.Candidate{}, nil
}

// Calls is the number of Generate calls so far.
func (m *MockGenerator) Calls() int { return len(m.Requests) }

// MockCatalog is a test double for [services.Catalog] keyed by normalized title and artist.
//
// Unknown songs miss unless MatchAll is set, in which case a match is
// synthesized. ArtworkSize changes the synthesized artwork URL so tests can
// tell two lookups of the same song apart.
type MockCatalog struct {
	Matches     map[string]*models.CatalogMatch
	Errs        map[string]error
	MatchAll    bool
	ArtworkSize int
	Searches    []models.SongRef
}

// Miss marks title and artist as absent from the catalog.
func (m *MockCatalog) Miss(title, artist string) {
	if m.Matches == nil {
		m.Matches = make(map[string]*models.CatalogMatch)
	}
	m.Matches[shared.NormalizeTrackKey(title, artist)] = nil
}

func (m *MockCatalog) SearchSong(ctx context.Context, title, artist string) (*models.CatalogMatch, error) {
	m.Searches = append(m.Searches, models.SongRef{Title: title, Artist: artist})
	key := shared.NormalizeTrackKey(title, artist)

	if err, ok := m.Errs[key]; ok {
		return nil, err
	}
	if match, ok := m.Matches[key]; ok {
		return match, nil
	}
	if m.MatchAll {
		return FakeMatch(title, artist, m.ArtworkSize), nil
	}
	return nil, nil
}

// FakeMatch builds a deterministic catalog match for title and artist.
func FakeMatch(title, artist string, artworkSize int) *models.CatalogMatch {
	return &models.CatalogMatch{
		ID:         "id:" + shared.NormalizeTrackKey(title, artist),
		Title:      title,
		Artist:     artist,
		Album:      title + " - Single",
		ArtworkURL: models.ArtworkURL("https://art.example/{w}x{h}.jpg", artworkSize),
		Confidence: 1,
	}
}

// MockPlaylistCreator is a test double for [services.PlaylistCreator].
type MockPlaylistCreator struct {
	Result   *services.LibraryPlaylist
	Err      error
	Tokens   []string
	Requests []services.PlaylistRequest
}

func (m *MockPlaylistCreator) CreateLibraryPlaylist(ctx context.Context, userToken string, req services.PlaylistRequest) (*services.LibraryPlaylist, error) {
	m.Tokens = append(m.Tokens, userToken)
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &services.LibraryPlaylist{ID: "p.test", Name: req.Name}, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
