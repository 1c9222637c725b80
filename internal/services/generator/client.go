package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultImageModel   = "gemini-2.5-flash-image"
	defaultVideoModel   = "veo-3.0-fast-generate-001"
	defaultPollInterval = 10 * time.Second
	maxVariations       = 4
)

var ErrNotConfigured = errors.New("gemini api key is not configured")

type Options struct {
	APIKey string
	// BaseURL overrides the Gemini API endpoint; empty keeps the SDK default.
	BaseURL      string
	ImageModel   string
	VideoModel   string
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Client wraps the Gemini SDK. It implements the generation capability used
// by the batch runner and the single-shot HTTP endpoints.
type Client struct {
	genai        *genai.Client
	imageModel   string
	videoModel   string
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewClient returns an unconfigured client when no API key is set; every
// generation call then fails with ErrNotConfigured.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	c := &Client{
		imageModel:   firstNonEmpty(opts.ImageModel, defaultImageModel),
		videoModel:   firstNonEmpty(opts.VideoModel, defaultVideoModel),
		pollInterval: pollInterval,
		logger:       logger,
	}

	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return c, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions.BaseURL = opts.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.genai = client
	return c, nil
}

func (c *Client) Configured() bool {
	return c.genai != nil
}

func (c *Client) ImageModel() string {
	return c.imageModel
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
