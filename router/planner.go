package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/campusrag/llm"
	"github.com/smallnest/campusrag/log"
)

const plannerSystemPrompt = `You are "PlannerAgent".
You route the user's request to the best specialist agent and decide whether retrieval is needed.

Return ONLY valid JSON:
{
  "agent": "knowledge" | "tutor" | "general",
  "needsRAG": boolean,
  "confidence": number,
  "plan": string[],
  "notes": string
}

Rules:
- agent="knowledge" for campus policy/process/location/schedule questions.
- agent="tutor" for practice, interview, evaluation, role-play training.
- agent="general" for chit-chat or non-campus topics.
- needsRAG should be true only when agent="knowledge" and the answer depends on campus-specific facts.
- confidence is 0..1.`

// plannerOutput is the strict JSON schema the planner must return.
type plannerOutput struct {
	Agent      string   `json:"agent"`
	NeedsRAG   bool     `json:"needsRAG"`
	Confidence *float64 `json:"confidence"`
	Plan       []string `json:"plan"`
	Notes      string   `json:"notes"`
}

// Planner is the LLM-backed routing strategy. A malformed planner response
// can never propagate: any parse or schema failure discards the planner
// decision in favor of the heuristic one.
type Planner struct {
	client    llm.Client
	heuristic HeuristicRouter
	logger    log.Logger
}

// NewPlanner creates a planner over the given chat client.
func NewPlanner(client llm.Client, logger log.Logger) *Planner {
	if logger == nil {
		logger = log.NopLogger{}
	}
	return &Planner{client: client, logger: logger}
}

// Route returns the planner decision when the backend produced a valid one,
// otherwise the heuristic decision. The bool reports whether the planner's
// answer was used.
func (p *Planner) Route(ctx context.Context, message string, history []llm.Message) (Decision, bool) {
	base := p.heuristic.Route(message, history)

	if p.client == nil || !p.client.Available() {
		return base, false
	}

	raw, err := p.client.ChatComplete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: plannerSystemPrompt},
		{Role: llm.RoleUser, Content: p.buildUserPrompt(message, history, base)},
	}, llm.Options{Temperature: 0.1, MaxTokens: 500, Timeout: llm.DefaultOptions().Timeout})
	if err != nil {
		p.logger.Warn("planner call failed, using heuristic routing: %v", err)
		return base, false
	}

	var out plannerOutput
	if !llm.DecodeFirstJSONObject(raw, &out) {
		p.logger.Warn("planner returned unparsable output, using heuristic routing")
		return base, false
	}
	agent := AgentType(out.Agent)
	if !ValidAgent(agent) {
		p.logger.Warn("planner declared unknown agent %q, using heuristic routing", out.Agent)
		return base, false
	}

	conf := base.Confidence
	if out.Confidence != nil && *out.Confidence >= 0 && *out.Confidence <= 1 {
		conf = *out.Confidence
	}
	reason := strings.TrimSpace(out.Notes)
	if reason == "" {
		reason = "PlannerAgent routing"
	} else if runes := []rune(reason); len(runes) > 500 {
		reason = string(runes[:500])
	}
	plan := out.Plan
	if len(plan) > 8 {
		plan = plan[:8]
	}

	return Decision{
		Agent:      agent,
		NeedsRAG:   out.NeedsRAG,
		Confidence: conf,
		Reason:     reason,
		Plan:       plan,
	}, true
}

func (p *Planner) buildUserPrompt(message string, history []llm.Message, base Decision) string {
	var hist strings.Builder
	for _, h := range history {
		fmt.Fprintf(&hist, "%s: %s\n", strings.ToUpper(h.Role), h.Content)
	}
	conversation := strings.TrimSpace(hist.String())
	if conversation == "" {
		conversation = "(none)"
	}

	return fmt.Sprintf(`User message:
%s

Recent conversation:
%s

Heuristic routing suggestion:
agent=%s needsRAG=%t confidence=%.2f reason=%s`,
		message, conversation, base.Agent, base.NeedsRAG, base.Confidence, base.Reason)
}
