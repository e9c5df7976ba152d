// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package google provides an embedding.Provider backed by the Gemini API.
package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/sigil-dev/journal/internal/embedding"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// Defaults for the Google backend.
const (
	DefaultModel      = "gemini-embedding-001"
	DefaultDimensions = 768
)

// Config holds Google provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// Provider implements embedding.Provider using Gemini EmbedContent.
type Provider struct {
	client *genai.Client
	config Config
}

// Compile-time interface check.
var _ embedding.Provider = (*Provider)(nil)

// New creates a new Google provider. Returns an error if the API key is missing.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, sigilerr.New(sigilerr.CodeEmbeddingConfigInvalid, "google: missing api_key in config",
			sigilerr.FieldProvider("google"))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeEmbeddingUpstreamFailure, "google: creating client")
	}

	return &Provider{client: client, config: cfg}, nil
}

// Backend registers the Google provider with an embedding.Registry.
func Backend() embedding.Backend {
	return embedding.Backend{
		New: func(ctx context.Context, cfg embedding.Config) (embedding.Provider, error) {
			return New(ctx, Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Dimensions: cfg.Dimensions})
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
		return nil, sigilerr.New(sigilerr.CodeEmbeddingRequestInvalid, "google: empty input", sigilerr.FieldProvider("google"))
	}

	dims := int32(p.config.Dimensions)
	resp, err := p.client.Models.EmbedContent(ctx, p.config.Model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, sigilerr.Wrapf(err, sigilerr.CodeEmbeddingUpstreamFailure, "google: embedding request")
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, sigilerr.New(sigilerr.CodeEmbeddingResponseInvalid, "google: response contained no embeddings",
			sigilerr.FieldProvider("google"))
	}
	return resp.Embeddings[0].Values, nil
}
