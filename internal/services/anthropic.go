package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/charmbracelet/log"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

const (
	DefaultModel     = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens = 1024
)

// AnthropicOptions configures an [AnthropicGenerator].
type AnthropicOptions struct {
	APIKey     string
	Model      string
	MaxTokens  int64
	BaseURL    string       // empty uses the SDK default
	HTTPClient *http.Client // nil uses the SDK default
	Logger     *log.Logger
}

// AnthropicGenerator implements [Generator] on the Anthropic Messages API.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *log.Logger
}

// NewAnthropicGenerator creates a generator. A missing API key is reported as
// [shared.ErrMissingCredentials].
func NewAnthropicGenerator(opts AnthropicOptions) (*AnthropicGenerator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic api key", shared.ErrMissingCredentials)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &AnthropicGenerator{
		client:    anthropic.NewClient(clientOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		logger:    opts.Logger,
	}, nil
}

// Generate sends one Messages request and parses the reply into candidates.
func (g *AnthropicGenerator) Generate(ctx context.Context, req GenerateRequest) ([]models.Candidate, error) {
	if req.Count <= 0 {
		return []models.Candidate{}, nil
	}

	text, err := g.complete(ctx, g.maxTokens, BuildMessage(req))
	if err != nil {
		return nil, mapAnthropicError(err)
	}

	candidates, err := ParseCandidates(text)
	if err != nil {
		g.logger.Debug("unparseable generator output", "text", shared.Truncate(text, 200))
		return nil, err
	}

	g.logger.Debug("generated candidates", "requested", req.Count, "received", len(candidates), "regenerate", req.Feedback != nil)
	return candidates, nil
}

// Validate checks the API key with a minimal request.
func (g *AnthropicGenerator) Validate(ctx context.Context) error {
	_, err := g.complete(ctx, 1, "hi")
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: api key is not authorized", shared.ErrGeneratorForbidden)
	}
	return mapAnthropicError(err)
}

func (g *AnthropicGenerator) complete(ctx context.Context, maxTokens int64, message string) (string, error) {
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(message)),
		},
	})
	if err != nil {
		return "", err
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	if maxTokens == 1 {
		return "", nil
	}
	return "", fmt.Errorf("%w: no text content in response", shared.ErrMalformedResponse)
}

func mapAnthropicError(err error) error {
	if errors.Is(err, shared.ErrMalformedResponse) {
		return err
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", shared.ErrGeneratorService, err)
	}

	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: anthropic rejected the api key", shared.ErrInvalidCredentials)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: anthropic", shared.ErrRateLimited)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrGeneratorService, apiErr.StatusCode, apiErr.Error())
	}
}
