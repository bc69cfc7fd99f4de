// Package embedding turns text into fixed-length vectors for the campus
// knowledge store. Results are memoized; when the real backend is missing or
// failing, a deterministic character-based vectorizer keeps the system alive.
package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smallnest/campusrag/log"
)

// ErrInvalidInput is returned for empty or whitespace-only text. It is a
// caller error, distinct from backend failure (which degrades to the
// fallback vectorizer and never surfaces here).
var ErrInvalidInput = errors.New("embedding: text must be a non-empty string")

const (
	// DefaultDimension matches the GLM embedding-2 output.
	DefaultDimension = 1024

	// defaultMaxInputChars bounds what is sent to the backend.
	defaultMaxInputChars = 2000

	// defaultCacheKeyChars bounds the memoization key. Two inputs sharing
	// their first 500 characters collide on the same cache slot. Accepted
	// approximation inherited from the knowledge-base scale this serves;
	// entries are far shorter than the key.
	defaultCacheKeyChars = 500

	// defaultBatchSize and defaultBatchDelay pace batch embedding to stay
	// under backend rate limits.
	defaultBatchSize  = 5
	defaultBatchDelay = 100 * time.Millisecond
)

// Backend computes embeddings for a batch of texts. Order of outputs must
// match order of inputs.
type Backend interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Service is the embedding provider: validation, truncation, memoization,
// batching and graceful degradation live here, not in the backends.
type Service struct {
	backend    Backend
	cache      Cache
	dimension  int
	maxInput   int
	keyChars   int
	batchSize  int
	batchDelay time.Duration
	logger     log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache replaces the default in-process cache.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithDimension sets the vector dimension used by the fallback vectorizer.
func WithDimension(dim int) Option {
	return func(s *Service) { s.dimension = dim }
}

// WithBatch tunes sub-batch size and inter-batch delay.
func WithBatch(size int, delay time.Duration) Option {
	return func(s *Service) {
		s.batchSize = size
		s.batchDelay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates an embedding service. backend may be nil, in which case
// every request is served by the fallback vectorizer.
func NewService(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend:    backend,
		cache:      NewMemoryCache(),
		dimension:  DefaultDimension,
		maxInput:   defaultMaxInputChars,
		keyChars:   defaultCacheKeyChars,
		batchSize:  defaultBatchSize,
		batchDelay: defaultBatchDelay,
		logger:     log.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dimension returns the configured vector dimension.
func (s *Service) Dimension() int {
	return s.dimension
}

// Embed returns the vector for text. For any valid non-empty input the call
// succeeds: backend failures degrade to the deterministic fallback.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}

	key := s.cacheKey(text)
	if vec, ok := s.cache.Get(ctx, key); ok {
		return vec, nil
	}

	vec, fromBackend := s.embedUncached(ctx, text)
	// Only backend vectors are memoized. A fallback vector is a transient
	// degradation; caching it would keep serving it after the backend
	// recovers.
	if fromBackend {
		s.cache.Set(ctx, key, vec)
	}
	return vec, nil
}

// EmbedBatch embeds texts in rate-limited sub-batches. Output order matches
// input order exactly. Invalid entries fail the whole batch up front so
// callers cannot silently index garbage.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrInvalidInput
		}
	}

	results := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))

		// Sub-requests within one bounded batch run concurrently; pacing
		// happens between batches.
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				vec, err := s.Embed(gctx, texts[i])
				if err != nil {
					return err
				}
				results[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if end < len(texts) && s.batchDelay > 0 {
			select {
			case <-time.After(s.batchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return results, nil
}

// ClearCache drops every memoized vector.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
}

// CacheStats reports cache occupancy for diagnostics.
func (s *Service) CacheStats(ctx context.Context) CacheStats {
	return s.cache.Stats(ctx)
}

// embedUncached produces a vector for text and reports whether it came from
// the backend, as opposed to the fallback vectorizer.
func (s *Service) embedUncached(ctx context.Context, text string) ([]float32, bool) {
	input := truncateRunes(strings.TrimSpace(text), s.maxInput)

	if s.backend != nil {
		vecs, err := s.backend.EmbedTexts(ctx, []string{input})
		if err == nil && len(vecs) == 1 && len(vecs[0]) > 0 {
			return vecs[0], true
		}
		if err != nil {
			s.logger.Warn("embedding backend failed, using fallback vectorizer: %v", err)
		} else {
			s.logger.Warn("embedding backend returned no vector, using fallback vectorizer")
		}
	}

	return FallbackVector(text, s.dimension), false
}

func (s *Service) cacheKey(text string) string {
	return truncateRunes(strings.TrimSpace(text), s.keyChars)
}

// FallbackVector is the deterministic degradation path: each rune at position
// i with code point c accumulates 1/(i+1) into dimension (c+i) mod dim, then
// the vector is L2-normalized. Not semantically meaningful; it exists so the
// system stays operable without an embedding backend.
func FallbackVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	for i, r := range []rune(text) {
		idx := (int(r) + i) % dim
		vec[idx] += float32(1.0 / float64(i+1))
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1.0 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
