package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

// CatalogSession owns the process-wide Apple Music session.
//
// Construction is cheap. The service is built on first use and reused after
// that; a failed initialization is retried on the next call.
type CatalogSession struct {
	opts AppleMusicOptions

	mu      sync.Mutex
	service *AppleMusicService
}

// NewCatalogSession returns an uninitialized session for opts.
func NewCatalogSession(opts AppleMusicOptions) *CatalogSession {
	return &CatalogSession{opts: opts}
}

// Service returns the configured service, initializing it if needed.
func (c *CatalogSession) Service() (*AppleMusicService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.service != nil {
		return c.service, nil
	}

	svc, err := NewAppleMusicService(c.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrCatalogUnavailable, err)
	}
	c.service = svc
	return svc, nil
}

// DeveloperToken is the token handed to the browser authorization page.
func (c *CatalogSession) DeveloperToken() string {
	return c.opts.DeveloperToken
}

// Storefront is the configured catalog region.
func (c *CatalogSession) Storefront() string {
	if c.opts.Storefront == "" {
		return DefaultStorefront
	}
	return c.opts.Storefront
}

func (c *CatalogSession) SearchSong(ctx context.Context, title, artist string) (*models.CatalogMatch, error) {
	svc, err := c.Service()
	if err != nil {
		return nil, err
	}
	return svc.SearchSong(ctx, title, artist)
}

func (c *CatalogSession) CreateLibraryPlaylist(ctx context.Context, userToken string, req PlaylistRequest) (*LibraryPlaylist, error) {
	svc, err := c.Service()
	if err != nil {
		return nil, err
	}
	return svc.CreateLibraryPlaylist(ctx, userToken, req)
}

// Validate initializes the session and checks the developer token.
func (c *CatalogSession) Validate(ctx context.Context) error {
	svc, err := c.Service()
	if err != nil {
		return err
	}
	return svc.Validate(ctx)
}
