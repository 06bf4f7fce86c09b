package cover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"covercraft/internal/httpx"
	"covercraft/internal/models"
)

const (
	defaultImageBaseURL = "https://api.openai.com/v1"
	defaultImageModel   = "dall-e-3"
	defaultImageSize    = "1024x1792"
)

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generative asks an OpenAI-compatible image generation endpoint for a cover.
type Generative struct {
	baseURL    string
	apiKey     string
	model      string
	size       string
	httpClient *http.Client
}

type Option func(*Generative)

func WithBaseURL(baseURL string) Option {
	return func(g *Generative) {
		if s := strings.TrimSpace(baseURL); s != "" {
			g.baseURL = s
		}
	}
}

func WithModel(model string) Option {
	return func(g *Generative) {
		if s := strings.TrimSpace(model); s != "" {
			g.model = s
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(g *Generative) {
		g.httpClient = c
	}
}

// NewGenerative creates an image backend client. The API key is required.
func NewGenerative(apiKey string, opts ...Option) (*Generative, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("cover: image api key must not be empty")
	}
	g := &Generative{
		baseURL: defaultImageBaseURL,
		apiKey:  apiKey,
		model:   defaultImageModel,
		size:    defaultImageSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func imagesURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultImageBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/images/generations"
	}
	return base + "/v1/images/generations"
}

func (g *Generative) Produce(ctx context.Context, req models.CoverRequest) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	var payload imageResponse
	err := httpx.PostJSON(ctx, g.httpClient, imagesURL(g.baseURL),
		map[string]string{"Authorization": "Bearer " + g.apiKey},
		imageRequest{Model: g.model, Prompt: Prompt(req), N: 1, Size: g.size},
		&payload)
	if err != nil {
		return "", fmt.Errorf("cover: image generation: %w", err)
	}
	if len(payload.Data) == 0 || strings.TrimSpace(payload.Data[0].URL) == "" {
		return "", ErrMalformedResponse
	}
	return payload.Data[0].URL, nil
}
