// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package openai provides an embedding.Provider backed by the OpenAI
// embeddings API.
package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sigil-dev/journal/internal/embedding"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// Defaults for the OpenAI backend.
const (
	DefaultModel      = "text-embedding-3-small"
	DefaultDimensions = 1536
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string
	Dimensions int
}

// Provider implements embedding.Provider using the OpenAI Embeddings API.
type Provider struct {
	client openaisdk.Client
	config Config
}

// Compile-time interface check.
var _ embedding.Provider = (*Provider)(nil)

// New creates a new OpenAI provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, sigilerr.New(sigilerr.CodeEmbeddingConfigInvalid, "openai: missing api_key in config",
			sigilerr.FieldProvider("openai"))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{client: openaisdk.NewClient(opts...), config: cfg}, nil
}

// Backend registers the OpenAI provider with an embedding.Registry.
func Backend() embedding.Backend {
	return embedding.Backend{
		New: func(_ context.Context, cfg embedding.Config) (embedding.Provider, error) {
			return New(Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Dimensions: cfg.Dimensions})
		},
		DefaultModel:      DefaultModel,
		DefaultDimensions: DefaultDimensions,
		RequiresAPIKey:    true,
	}
}

func (p *Provider) Model() string   { return p.config.Model }
func (p *Provider) Dimensions() int { return p.config.Dimensions }

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, sigilerr.New(sigilerr.CodeEmbeddingRequestInvalid, "openai: empty input", sigilerr.FieldProvider("openai"))
	}

	resp, err := p.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input:      openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
		Model:      openaisdk.EmbeddingModel(p.config.Model),
		Dimensions: openaisdk.Int(int64(p.config.Dimensions)),
	})
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeEmbeddingUpstreamFailure, "openai: embedding request")
	}
	if len(resp.Data) == 0 {
		return nil, sigilerr.New(sigilerr.CodeEmbeddingResponseInvalid, "openai: response contained no embeddings",
			sigilerr.FieldProvider("openai"))
	}
	return embedding.Float64s(resp.Data[0].Embedding), nil
}
