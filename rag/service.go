// Package rag decides when a question needs knowledge-base grounding,
// retrieves matching entries, and formats them into the context block whose
// order defines the KB1/KB2/... citation labels used downstream.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/campusrag/log"
	"github.com/smallnest/campusrag/store"
)

// blockDelimiter separates formatted reference blocks in the context.
const blockDelimiter = "\n\n---\n\n"

// campusVocabulary is the coarse retrieval gate: facility names, academic
// process terms and interrogative markers. A cheap filter against clearly
// unrelated chit-chat, not a precision classifier.
var campusVocabulary = []string{
	"图书馆", "食堂", "宿舍", "教室", "体育馆", "校医院",
	"奖学金", "助学金", "贷款", "补助",
	"选课", "退课", "成绩", "绩点", "挂科", "补考", "重修",
	"报到", "入学", "毕业", "转专业", "休学", "退学",
	"校园卡", "充值", "挂失",
	"快递", "wifi", "网络", "打印",
	"医保", "报销", "就诊",
	"怎么", "如何", "在哪", "什么时候", "流程", "申请", "办理", "规定",
}

// Source identifies one retrieved entry in rank order. The slice index plus
// one is the entry's citation label (KB1, KB2, ...).
type Source struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Question string  `json:"question"`
	Score    float64 `json:"score"`
}

// RetrievalResult is the outcome of a context retrieval. Success with an
// empty Context means no grounding was available, which is distinct from a
// retrieval error (Success=false).
type RetrievalResult struct {
	Success bool
	Context string
	Sources []Source
	Message string
}

// Result is the outcome of the full retrieval flow.
type Result struct {
	UsedRAG bool
	Context string
	Sources []Source
}

// Options tune a single retrieval.
type Options struct {
	TopK         int
	MinScore     float64
	IncludeScore bool
}

// Service is the retrieval-augmented generation service.
type Service struct {
	store  *store.Store
	logger log.Logger
	topK   int
}

// NewService creates a retrieval service over the given store.
func NewService(st *store.Store, logger log.Logger, topK int) *Service {
	if logger == nil {
		logger = log.NopLogger{}
	}
	if topK <= 0 {
		topK = store.DefaultTopK
	}
	return &Service{store: st, logger: logger, topK: topK}
}

// NeedsRetrieval reports whether the query plausibly concerns campus facts.
func (s *Service) NeedsRetrieval(query string) bool {
	queryLower := strings.ToLower(query)
	for _, kw := range campusVocabulary {
		if strings.Contains(queryLower, kw) {
			return true
		}
	}
	return false
}

// RetrieveContext performs hybrid retrieval and formats the hits into a
// labeled context block. If the store has not finished initializing it
// short-circuits to a not-ready result instead of blocking.
func (s *Service) RetrieveContext(ctx context.Context, query string, opts Options) RetrievalResult {
	if opts.TopK <= 0 {
		opts.TopK = s.topK
	}

	if !s.store.Ready() {
		s.logger.Warn("vector store not ready, skipping retrieval")
		return RetrievalResult{
			Success: false,
			Message: "knowledge base not initialized",
		}
	}

	results, err := s.store.HybridSearch(ctx, query, opts.TopK)
	if err != nil {
		s.logger.Error("retrieval failed: %v", err)
		return RetrievalResult{Success: false, Message: err.Error()}
	}

	if len(results) == 0 {
		return RetrievalResult{
			Success: true,
			Message: "no relevant documents found",
		}
	}

	blocks := make([]string, len(results))
	sources := make([]Source, len(results))
	for i, r := range results {
		scoreInfo := ""
		if opts.IncludeScore {
			scoreInfo = fmt.Sprintf(" (相关度: %.1f%%)", r.Score*100)
		}
		blocks[i] = fmt.Sprintf("【参考资料 %d】%s%s\n问：%s\n答：%s",
			i+1, r.Entry.Category, scoreInfo, r.Entry.Question, r.Entry.Answer)
		sources[i] = Source{
			ID:       r.Entry.ID,
			Category: r.Entry.Category,
			Question: r.Entry.Question,
			Score:    r.Score,
		}
	}

	return RetrievalResult{
		Success: true,
		Context: strings.Join(blocks, blockDelimiter),
		Sources: sources,
		Message: fmt.Sprintf("found %d relevant documents", len(results)),
	}
}

// PerformRAG is the full flow: gate, retrieve, report. Queries that fail the
// retrieval gate return UsedRAG=false without touching the store.
func (s *Service) PerformRAG(ctx context.Context, query string) Result {
	if !s.NeedsRetrieval(query) {
		return Result{}
	}

	retrieval := s.RetrieveContext(ctx, query, Options{TopK: s.topK, IncludeScore: true})

	return Result{
		UsedRAG: retrieval.Success && len(retrieval.Sources) > 0,
		Context: retrieval.Context,
		Sources: retrieval.Sources,
	}
}
