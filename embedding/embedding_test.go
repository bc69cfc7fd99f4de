package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	dim   int
	calls atomic.Int64
	fail  bool
	failN atomic.Int64 // fail this many calls, then recover
}

func (m *mockBackend) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(int64(len(texts)))
	if m.fail || m.failN.Add(-1) >= 0 {
		return nil, errors.New("backend down")
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, m.dim)
		// Distinct per text so order can be asserted.
		vec[len(t)%m.dim] = 1
		vecs[i] = vec
	}
	return vecs, nil
}

func TestEmbedValidation(t *testing.T) {
	svc := NewService(&mockBackend{dim: 8}, WithDimension(8))

	_, err := svc.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Embed(context.Background(), "   \n\t")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEmbedCaching(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{dim: 8}
	svc := NewService(backend, WithDimension(8))

	v1, err := svc.Embed(ctx, "图书馆几点开门")
	require.NoError(t, err)
	v2, err := svc.Embed(ctx, "图书馆几点开门")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(1), backend.calls.Load(), "second call must hit the cache")
	assert.Equal(t, 1, svc.CacheStats(ctx).Size)

	svc.ClearCache(ctx)
	assert.Equal(t, 0, svc.CacheStats(ctx).Size)

	_, err = svc.Embed(ctx, "图书馆几点开门")
	require.NoError(t, err)
	assert.Equal(t, int64(2), backend.calls.Load())
}

func TestEmbedCacheKeyTruncation(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{dim: 8}
	svc := NewService(backend, WithDimension(8))

	// Same first 500 runes collide on one cache slot. Documented
	// approximation, exercised here so nobody "fixes" it silently.
	prefix := strings.Repeat("甲", 500)
	_, err := svc.Embed(ctx, prefix+"one")
	require.NoError(t, err)
	_, err = svc.Embed(ctx, prefix+"two")
	require.NoError(t, err)

	assert.Equal(t, int64(1), backend.calls.Load())
}

func TestEmbedFallbackOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockBackend{dim: 8, fail: true}, WithDimension(8))

	vec, err := svc.Embed(ctx, "图书馆")
	require.NoError(t, err, "backend failure must not surface for valid input")
	assert.Len(t, vec, 8)
	assert.Equal(t, FallbackVector("图书馆", 8), vec)
}

func TestEmbedFallbackNotCached(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{dim: 8}
	backend.failN.Store(1)
	svc := NewService(backend, WithDimension(8))

	v1, err := svc.Embed(ctx, "图书馆")
	require.NoError(t, err)
	assert.Equal(t, FallbackVector("图书馆", 8), v1)
	assert.Equal(t, 0, svc.CacheStats(ctx).Size, "degraded vector must not be memoized")

	// Backend has recovered; the same text must reach it again.
	v2, err := svc.Embed(ctx, "图书馆")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
	assert.Equal(t, int64(2), backend.calls.Load())

	// Recovered vectors are memoized as usual.
	v3, err := svc.Embed(ctx, "图书馆")
	require.NoError(t, err)
	assert.Equal(t, v2, v3)
	assert.Equal(t, int64(2), backend.calls.Load())
	assert.Equal(t, 1, svc.CacheStats(ctx).Size)
}

func TestEmbedWithoutBackend(t *testing.T) {
	svc := NewService(nil, WithDimension(16))

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 16)
}

func TestFallbackVectorDeterministic(t *testing.T) {
	a := FallbackVector("食堂几点开饭", 1024)
	b := FallbackVector("食堂几点开饭", 1024)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestFallbackVectorZeroInput(t *testing.T) {
	vec := FallbackVector("", 8)
	assert.Len(t, vec, 8)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedBatchOrder(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockBackend{dim: 32}, WithDimension(32), WithBatch(3, 0))

	texts := make([]string, 13)
	for i := range texts {
		texts[i] = strings.Repeat("字", i+1)
	}

	vecs, err := svc.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))

	for i, text := range texts {
		expect, err := svc.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, expect, vecs[i], fmt.Sprintf("result %d out of order", i))
	}
}

func TestEmbedBatchRejectsInvalidEntry(t *testing.T) {
	svc := NewService(&mockBackend{dim: 8})
	_, err := svc.EmbedBatch(context.Background(), []string{"ok", " ", "fine"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEmbedBatchEmpty(t *testing.T) {
	svc := NewService(&mockBackend{dim: 8})
	vecs, err := svc.EmbedBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vecs)
}
