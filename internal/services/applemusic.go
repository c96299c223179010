package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

const (
	DefaultAppleMusicURL     = "https://api.music.apple.com"
	DefaultStorefront        = "us"
	DefaultRequestsPerSecond = 20.0
	DefaultArtworkSize       = 80

	musicUserTokenHeader = "Music-User-Token"
)

// AppleMusicOptions configures an [AppleMusicService].
type AppleMusicOptions struct {
	DeveloperToken    string
	Storefront        string
	BaseURL           string
	RequestsPerSecond float64
	ArtworkSize       int
	HTTPClient        *http.Client // base transport; the developer token is layered on top
	Logger            *log.Logger
}

// AppleMusicService implements [Catalog] and [PlaylistCreator] on the Apple Music API.
type AppleMusicService struct {
	baseURL     string
	storefront  string
	artworkSize int
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *log.Logger
}

// NewAppleMusicService creates a service authenticated with a developer token.
func NewAppleMusicService(opts AppleMusicOptions) (*AppleMusicService, error) {
	if opts.DeveloperToken == "" {
		return nil, fmt.Errorf("%w: apple music developer token", shared.ErrMissingCredentials)
	}
	if opts.Storefront == "" {
		opts.Storefront = DefaultStorefront
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAppleMusicURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.ArtworkSize <= 0 {
		opts.ArtworkSize = DefaultArtworkSize
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	var base http.RoundTripper = http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		base = opts.HTTPClient.Transport
	}

	client := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.DeveloperToken, TokenType: "Bearer"}),
			Base:   base,
		},
	}
	if opts.HTTPClient != nil {
		client.Timeout = opts.HTTPClient.Timeout
	}

	return &AppleMusicService{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		storefront:  opts.Storefront,
		artworkSize: opts.ArtworkSize,
		httpClient:  client,
		limiter:     rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:      opts.Logger,
	}, nil
}

type searchResponse struct {
	Results struct {
		Songs struct {
			Data []songResource `json:"data"`
		} `json:"songs"`
	} `json:"results"`
}

type songResource struct {
	ID         string `json:"id"`
	Attributes struct {
		Name       string `json:"name"`
		ArtistName string `json:"artistName"`
		AlbumName  string `json:"albumName"`
		Artwork    struct {
			URL string `json:"url"`
		} `json:"artwork"`
		Previews []struct {
			URL string `json:"url"`
		} `json:"previews"`
	} `json:"attributes"`
}

// SearchSong looks up "title artist" in the storefront and returns the top song.
func (s *AppleMusicService) SearchSong(ctx context.Context, title, artist string) (*models.CatalogMatch, error) {
	query := url.Values{}
	query.Set("term", strings.TrimSpace(title+" "+artist))
	query.Set("types", "songs")
	query.Set("limit", "1")

	endpoint := fmt.Sprintf("%s/v1/catalog/%s/search?%s", s.baseURL, url.PathEscape(s.storefront), query.Encode())

	body, status, err := s.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, fmt.Errorf("%w: apple music rejected the developer token (status %d)", shared.ErrInvalidCredentials, status)
	case status < 200 || status >= 300:
		return nil, fmt.Errorf("%w: catalog search returned status %d", shared.ErrAPIRequest, status)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", shared.ErrAPIRequest, err)
	}
	if len(resp.Results.Songs.Data) == 0 {
		return nil, nil
	}

	song := resp.Results.Songs.Data[0]
	match := &models.CatalogMatch{
		ID:         song.ID,
		Title:      song.Attributes.Name,
		Artist:     song.Attributes.ArtistName,
		Album:      song.Attributes.AlbumName,
		ArtworkURL: models.ArtworkURL(song.Attributes.Artwork.URL, s.artworkSize),
		Confidence: MatchConfidence(title, artist, song.Attributes.Name, song.Attributes.ArtistName),
	}
	if len(song.Attributes.Previews) > 0 {
		match.PreviewURL = song.Attributes.Previews[0].URL
	}
	return match, nil
}

type playlistRequestBody struct {
	Attributes struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"attributes"`
	Relationships struct {
		Tracks struct {
			Data []trackRef `json:"data"`
		} `json:"tracks"`
	} `json:"relationships"`
}

type trackRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type playlistResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateLibraryPlaylist creates a playlist in the library of the user owning userToken.
//
// Any non-2xx response is reported as [shared.ErrExportFailed] carrying the raw body.
func (s *AppleMusicService) CreateLibraryPlaylist(ctx context.Context, userToken string, req PlaylistRequest) (*LibraryPlaylist, error) {
	if userToken == "" {
		return nil, fmt.Errorf("%w: music user token", shared.ErrNotAuthorized)
	}

	var payload playlistRequestBody
	payload.Attributes.Name = req.Name
	payload.Attributes.Description = req.Description
	payload.Relationships.Tracks.Data = make([]trackRef, 0, len(req.SongIDs))
	for _, id := range req.SongIDs {
		payload.Relationships.Tracks.Data = append(payload.Relationships.Tracks.Data, trackRef{ID: id, Type: "songs"})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode playlist: %w", err)
	}

	headers := http.Header{}
	headers.Set(musicUserTokenHeader, userToken)
	headers.Set("Content-Type", "application/json")

	body, status, err := s.do(ctx, http.MethodPost, s.baseURL+"/v1/me/library/playlists", data, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrExportFailed, err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: %s", shared.ErrExportFailed, strings.TrimSpace(string(body)))
	}

	playlist := &LibraryPlaylist{Name: req.Name}
	var resp playlistResponse
	if err := json.Unmarshal(body, &resp); err == nil && len(resp.Data) > 0 {
		playlist.ID = resp.Data[0].ID
		if resp.Data[0].Attributes.Name != "" {
			playlist.Name = resp.Data[0].Attributes.Name
		}
	}

	s.logger.Info("created library playlist", "id", playlist.ID, "name", playlist.Name, "songs", len(req.SongIDs))
	return playlist, nil
}

// Validate checks the developer token with a throwaway search.
func (s *AppleMusicService) Validate(ctx context.Context) error {
	_, err := s.SearchSong(ctx, "Yesterday", "The Beatles")
	return err
}

func (s *AppleMusicService) do(ctx context.Context, method, endpoint string, data []byte, headers http.Header) ([]byte, int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	s.logger.Debug("apple music request", "method", method, "status", resp.StatusCode)
	return body, resp.StatusCode, nil
}

// MatchConfidence scores how closely a catalog result resembles the requested song.
// The score is in [0, 1] and is only used for display.
func MatchConfidence(wantTitle, wantArtist, gotTitle, gotArtist string) float64 {
	jw := metrics.NewJaroWinkler()
	jw.CaseSensitive = false

	title := strutil.Similarity(strings.TrimSpace(wantTitle), strings.TrimSpace(gotTitle), jw)
	artist := strutil.Similarity(strings.TrimSpace(wantArtist), strings.TrimSpace(gotArtist), jw)
	return (title + artist) / 2
}
