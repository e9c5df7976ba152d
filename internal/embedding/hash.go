// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// Hash provider defaults.
const (
	HashModel             = "hash-v1"
	HashDefaultDimensions = 256
)

// HashProvider embeds text offline by feature hashing lower-cased word
// unigrams and bigrams into a fixed number of signed buckets. Output is
// deterministic, so texts sharing vocabulary land close together.
type HashProvider struct {
	dims int
}

// NewHashProvider returns a HashProvider with dims buckets; dims <= 0 uses
// HashDefaultDimensions.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = HashDefaultDimensions
	}
	return &HashProvider{dims: dims}
}

// HashBackend registers the hash provider.
func HashBackend() Backend {
	return Backend{
		New: func(_ context.Context, cfg Config) (Provider, error) {
			return NewHashProvider(cfg.Dimensions), nil
		},
		DefaultModel:      HashModel,
		DefaultDimensions: HashDefaultDimensions,
	}
}

func (p *HashProvider) Model() string   { return HashModel }
func (p *HashProvider) Dimensions() int { return p.dims }

func (p *HashProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return nil, sigilerr.New(sigilerr.CodeEmbeddingRequestInvalid, "hash: text has no words to embed",
			sigilerr.FieldProvider("hash"))
	}

	vec := make([]float32, p.dims)
	for i, tok := range tokens {
		p.add(vec, tok, 1)
		if i > 0 {
			p.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return vec, nil
}

func (p *HashProvider) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
