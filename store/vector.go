// Package store holds the in-memory campus knowledge vector store. The corpus
// is small enough for exhaustive linear scan, so there is no index structure:
// entries are scored one by one for similarity, keyword overlap, or both.
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/smallnest/campusrag/knowledge"
	"github.com/smallnest/campusrag/log"
)

const (
	// DefaultTopK is the default result cap for all searches.
	DefaultTopK = 3

	// DefaultScoreThreshold filters weak similarity matches in plain Search.
	DefaultScoreThreshold = 0.5

	// Hybrid fusion weights. Semantic match is favored over literal keyword
	// match; tune via WithWeights if the corpus shifts.
	defaultVectorWeight  = 0.7
	defaultKeywordWeight = 0.3

	// hybridVectorThreshold is the looser similarity floor used inside
	// hybrid search, where keyword evidence can rescue borderline entries.
	hybridVectorThreshold = 0.4

	// questionPrefixRunes is how much of an entry's question must literally
	// appear in the query for the +0.5 keyword bonus.
	questionPrefixRunes = 10
)

// Embedder is the vector provider contract the store depends on.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Result is one ranked search hit.
type Result struct {
	Entry knowledge.Entry
	Score float64
}

// InitResult reports the outcome of store initialization.
type InitResult struct {
	Success bool
	Count   int
	Message string
}

// Stats describes the current store contents.
type Stats struct {
	Count       int
	Initialized bool
	Categories  []string
}

// Store is the process-wide vector store. Entries are immutable after
// initialization; the only mutations are the one-shot load and Reset.
type Store struct {
	embedder Embedder
	logger   log.Logger

	vectorWeight  float64
	keywordWeight float64

	mu          sync.RWMutex
	entries     []knowledge.Entry
	vectors     [][]float32
	initialized bool
	initResult  *InitResult

	initGroup singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithWeights overrides the hybrid fusion weights.
func WithWeights(vector, keyword float64) Option {
	return func(s *Store) {
		s.vectorWeight = vector
		s.keywordWeight = keyword
	}
}

// New creates an empty store backed by the given embedder.
func New(embedder Embedder, opts ...Option) *Store {
	s := &Store{
		embedder:      embedder,
		logger:        log.NopLogger{},
		vectorWeight:  defaultVectorWeight,
		keywordWeight: defaultKeywordWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads and indexes the knowledge source exactly once. Concurrent
// and repeated calls collapse onto a single load; after completion the
// memoized outcome is returned without touching the source again.
func (s *Store) Initialize(ctx context.Context, source knowledge.Source) InitResult {
	s.mu.RLock()
	if s.initResult != nil {
		res := *s.initResult
		s.mu.RUnlock()
		return res
	}
	s.mu.RUnlock()

	v, _, _ := s.initGroup.Do("init", func() (any, error) {
		res := s.load(ctx, source)
		s.mu.Lock()
		s.initResult = &res
		// Mark initialized even on failure so requests degrade to the
		// "no grounding" path instead of blocking forever.
		s.initialized = true
		s.mu.Unlock()
		return res, nil
	})
	return v.(InitResult)
}

func (s *Store) load(ctx context.Context, source knowledge.Source) InitResult {
	categories, err := source.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load knowledge source: %v", err)
		return InitResult{Success: false, Message: fmt.Sprintf("load failed: %v", err)}
	}

	entries := knowledge.Flatten(categories)
	if err := knowledge.Validate(entries); err != nil {
		s.logger.Error("invalid knowledge source: %v", err)
		return InitResult{Success: false, Message: err.Error()}
	}
	if len(entries) == 0 {
		s.logger.Warn("knowledge source is empty")
		return InitResult{Success: false, Message: "knowledge source is empty"}
	}

	s.logger.Info("indexing %d knowledge entries", len(entries))

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text()
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		s.logger.Error("failed to embed knowledge entries: %v", err)
		return InitResult{Success: false, Message: fmt.Sprintf("embedding failed: %v", err)}
	}

	s.mu.Lock()
	s.entries = entries
	s.vectors = vectors
	s.mu.Unlock()

	s.logger.Info("vector store initialized with %d entries", len(entries))
	return InitResult{Success: true, Count: len(entries)}
}

// Ready reports whether initialization has completed (successfully or not).
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Search ranks entries by cosine similarity to the query, drops scores below
// threshold, and returns at most topK results in non-increasing score order.
// Ties keep original insertion order.
func (s *Store) Search(ctx context.Context, query string, topK int, threshold float64) ([]Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	s.mu.RLock()
	entries, vectors := s.entries, s.vectors
	s.mu.RUnlock()

	if len(entries) == 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var results []Result
	for i, vec := range vectors {
		score := CosineSimilarity(queryVec, vec)
		if score >= threshold {
			results = append(results, Result{Entry: entries[i], Score: score})
		}
	}

	sortByScore(results)
	return capResults(results, topK), nil
}

// KeywordSearch scores entries by literal keyword overlap with the query:
// +1 per keyword contained in the query (case-insensitive), +0.5 when the
// question's leading characters appear in the query. Zero-scoring entries
// are excluded.
func (s *Store) KeywordSearch(query string, topK int) []Result {
	if topK <= 0 {
		topK = DefaultTopK
	}

	s.mu.RLock()
	entries := s.entries
	s.mu.RUnlock()

	queryLower := strings.ToLower(query)

	var results []Result
	for _, entry := range entries {
		var score float64
		for _, kw := range entry.Keywords {
			if kw != "" && strings.Contains(queryLower, strings.ToLower(kw)) {
				score++
			}
		}
		if prefix := questionPrefix(entry.Question); prefix != "" && strings.Contains(queryLower, prefix) {
			score += 0.5
		}
		if score > 0 {
			results = append(results, Result{Entry: entry, Score: score})
		}
	}

	sortByScore(results)
	return capResults(results, topK)
}

// HybridSearch runs vector and keyword search concurrently and fuses the two
// rankings by entry id: vector scores contribute at the vector weight,
// keyword scores at the keyword weight, and entries found by both accumulate
// both contributions.
func (s *Store) HybridSearch(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	var vectorResults, keywordResults []Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorResults, err = s.Search(gctx, query, topK, hybridVectorThreshold)
		return err
	})
	g.Go(func() error {
		keywordResults = s.KeywordSearch(query, topK)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := make(map[string]float64, len(vectorResults)+len(keywordResults))
	for _, r := range vectorResults {
		fused[r.Entry.ID] += r.Score * s.vectorWeight
	}
	for _, r := range keywordResults {
		fused[r.Entry.ID] += r.Score * s.keywordWeight
	}

	// Rebuild in insertion order so equal fused scores keep a stable rank.
	s.mu.RLock()
	entries := s.entries
	s.mu.RUnlock()

	var results []Result
	for _, entry := range entries {
		if score, ok := fused[entry.ID]; ok {
			results = append(results, Result{Entry: entry, Score: score})
		}
	}

	sortByScore(results)
	return capResults(results, topK), nil
}

// GetStats returns the current store statistics.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var categories []string
	for _, e := range s.entries {
		if _, ok := seen[e.Category]; !ok {
			seen[e.Category] = struct{}{}
			categories = append(categories, e.Category)
		}
	}

	return Stats{
		Count:       len(s.entries),
		Initialized: s.initialized,
		Categories:  categories,
	}
}

// Reset clears all entries and forgets the initialization outcome, allowing
// a fresh Initialize. Intended for tests and full reloads only.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.vectors = nil
	s.initialized = false
	s.initResult = nil
}

// CosineSimilarity computes the cosine of the angle between a and b. It is 0
// when dimensions mismatch or either vector is all-zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func sortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func capResults(results []Result, topK int) []Result {
	if len(results) > topK {
		return results[:topK]
	}
	return results
}

func questionPrefix(question string) string {
	runes := []rune(question)
	if len(runes) > questionPrefixRunes {
		runes = runes[:questionPrefixRunes]
	}
	return strings.ToLower(string(runes))
}
