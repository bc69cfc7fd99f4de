// Package pipeline runs the sequential multi-agent answer flow:
// route → retrieve → draft → verify → finalize. Each stage is one transition
// of an explicit state machine; stage-level backend failures degrade inside
// their stage and the pipeline keeps moving. The only hard failures are
// invalid input and caller cancellation.
package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/smallnest/campusrag/llm"
	"github.com/smallnest/campusrag/log"
	"github.com/smallnest/campusrag/rag"
	"github.com/smallnest/campusrag/router"
	"github.com/smallnest/campusrag/search"
)

// ErrEmptyMessage rejects blank input before any stage runs.
var ErrEmptyMessage = errors.New("pipeline: message is required")

// Stage names the states of the pipeline machine.
type Stage string

const (
	StageRoute    Stage = "route"
	StageRetrieve Stage = "retrieve"
	StageDraft    Stage = "draft"
	StageVerify   Stage = "verify"
	StageFinalize Stage = "finalize"
	StageDone     Stage = "done"
)

const (
	maxHistoryTurns   = 10
	maxHistoryContent = 4000
)

// Verification is the verifier's verdict on the draft. When the verifier
// itself fails, Verified is false and the verdict defaults to "revise" —
// a silently failed check is never reported as a pass.
type Verification struct {
	Verdict          string   `json:"verdict"`
	Issues           []string `json:"issues"`
	MissingCitations []string `json:"missing_citations"`
	RewriteGuidance  string   `json:"rewrite_guidance"`
	Verified         bool     `json:"-"`
}

// Revise reports whether the draft must be rewritten.
func (v Verification) Revise() bool {
	return v.Verdict != "pass"
}

// Result is the terminal pipeline outcome delivered to the transport layer.
type Result struct {
	Routing      router.Decision
	Sources      []rag.Source
	FinalText    string
	Verification Verification
	Offline      bool
}

// Options tune a single run.
type Options struct {
	// ExtraContext is an externally supplied supplementary snippet. When
	// empty and a web searcher is configured, knowledge-mode requests fetch
	// their own supplement.
	ExtraContext string
	// Trace receives one event per executed stage. Nil means no tracing;
	// tracing never alters pipeline outcomes.
	Trace TraceSink
}

// Orchestrator wires the routing, retrieval and generation services into the
// stage machine. Construct one per process; runs are independent and safe to
// execute concurrently.
type Orchestrator struct {
	client   llm.Client
	planner  *router.Planner
	ragSvc   *rag.Service
	searcher search.Searcher
	logger   log.Logger
}

// New creates an orchestrator. searcher may be nil when no web-search
// collaborator is configured; client may be nil, which forces every run onto
// the offline canned-response path.
func New(client llm.Client, ragSvc *rag.Service, searcher search.Searcher, logger log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.NopLogger{}
	}
	if searcher == nil {
		searcher = search.NopSearcher{}
	}
	if client == nil {
		client = offlineClient{}
	}
	return &Orchestrator{
		client:   client,
		planner:  router.NewPlanner(client, logger),
		ragSvc:   ragSvc,
		searcher: searcher,
		logger:   logger,
	}
}

// offlineClient stands in when no chat client is configured. It reports
// unavailable so routing falls back to the heuristic and every run takes the
// offline terminal path.
type offlineClient struct{}

func (offlineClient) Available() bool { return false }

func (offlineClient) ChatComplete(context.Context, []llm.Message, llm.Options) (string, error) {
	return "", llm.ErrNoCredential
}

// runState is the private per-request state threaded between stages.
type runState struct {
	runID   string
	message string
	history []llm.Message
	opts    Options

	routing      router.Decision
	usedPlanner  bool
	ragResult    rag.Result
	kbContext    string
	draft        string
	verification Verification

	result *Result
}

// Run executes the full pipeline for one message. history may be nil.
func (o *Orchestrator) Run(ctx context.Context, message string, history []llm.Message, opts Options) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	st := &runState{
		runID:   uuid.NewString(),
		message: message,
		history: normalizeHistory(history),
		opts:    opts,
	}

	stage := StageRoute
	for stage != StageDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		switch stage {
		case StageRoute:
			stage, err = o.route(ctx, st)
		case StageRetrieve:
			stage, err = o.retrieve(ctx, st)
		case StageDraft:
			stage, err = o.draft(ctx, st)
		case StageVerify:
			stage, err = o.verify(ctx, st)
		case StageFinalize:
			stage, err = o.finalize(ctx, st)
		default:
			return nil, errors.New("pipeline: unknown stage " + string(stage))
		}
		if err != nil {
			return nil, err
		}
	}

	return st.result, nil
}

// normalizeHistory keeps only well-formed user/assistant turns, the most
// recent ten, each clamped to a bounded length.
func normalizeHistory(history []llm.Message) []llm.Message {
	var out []llm.Message
	for _, h := range history {
		if h.Content == "" {
			continue
		}
		if h.Role != llm.RoleUser && h.Role != llm.RoleAssistant {
			continue
		}
		content := h.Content
		if runes := []rune(content); len(runes) > maxHistoryContent {
			content = string(runes[:maxHistoryContent])
		}
		out = append(out, llm.Message{Role: h.Role, Content: content})
	}
	if len(out) > maxHistoryTurns {
		out = out[len(out)-maxHistoryTurns:]
	}
	return out
}
