package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/campusrag/llm"
	"github.com/smallnest/campusrag/router"
)

const (
	maxCitedSources  = 5
	maxWebContext    = 6000
	fallbackGuidance = "请减少不确定的校园细节，补齐引用标签 [KB1]/[KB2]，并明确不确定项需要官方确认。"
)

// route classifies the message. When no chat credential is configured the
// pipeline is headed for the offline terminal path, but retrieval still runs
// so the canned response can carry real sources.
func (o *Orchestrator) route(ctx context.Context, st *runState) (Stage, error) {
	st.routing, st.usedPlanner = o.planner.Route(ctx, st.message, st.history)

	o.logger.Info("routed to agent=%s needsRAG=%t planner=%t confidence=%.2f",
		st.routing.Agent, st.routing.NeedsRAG, st.usedPlanner, st.routing.Confidence)
	o.emit(st, StageRoute, fmt.Sprintf("agent=%s needsRAG=%t planner=%t reason=%s",
		st.routing.Agent, st.routing.NeedsRAG, st.usedPlanner, st.routing.Reason))

	return StageRetrieve, nil
}

// retrieve grounds the request when routing asked for it, folds in the web
// supplement, and short-circuits to the offline terminal path when the chat
// backend is unreachable.
func (o *Orchestrator) retrieve(ctx context.Context, st *runState) (Stage, error) {
	if st.routing.NeedsRAG {
		st.ragResult = o.ragSvc.PerformRAG(ctx, st.message)
		if st.ragResult.UsedRAG {
			o.emit(st, StageRetrieve, fmt.Sprintf("RAG used, sources=%d", len(st.ragResult.Sources)))
		} else {
			o.emit(st, StageRetrieve, "RAG skipped or no hits")
		}
	} else {
		o.emit(st, StageRetrieve, "retrieval not required")
	}

	extra := st.opts.ExtraContext
	if extra == "" && st.routing.Agent == router.AgentKnowledge {
		extra = o.searcher.Search(ctx, st.message)
	}

	st.kbContext = buildKBContext(st.ragResult.Context, st.ragResult.Sources, extra)

	if !o.client.Available() {
		// Offline terminal path: a canned per-mode demonstration answer,
		// with whatever sources retrieval produced. No chat backend calls.
		st.result = &Result{
			Routing:   st.routing,
			Sources:   st.ragResult.Sources,
			FinalText: router.OfflineResponse(st.routing.Agent),
			Verification: Verification{
				Verdict: "revise",
				Issues:  []string{"no model credential configured"},
			},
			Offline: true,
		}
		o.emit(st, StageDone, "offline canned response")
		return StageDone, nil
	}

	return StageDraft, nil
}

// draft asks the routed specialist persona for an answer grounded in the
// context block. A failed call propagates an empty draft, not an error.
func (o *Orchestrator) draft(ctx context.Context, st *runState) (Stage, error) {
	system := router.PersonaPrompt(st.routing.Agent) + `

你现在处于多 Agent 协作系统的 "SpecialistAgent" 阶段。

硬性要求：
1) 若使用了知识库上下文，请用 [KB1]/[KB2]/... 为关键事实做引用。
2) 不要编造校园具体规定、流程、地点、时间；没有依据就说不确定，并给出官方确认渠道建议。
3) 输出为中文，结构清晰，优先使用步骤/要点列表。`

	var userPrompt strings.Builder
	if st.kbContext != "" {
		userPrompt.WriteString(st.kbContext)
		userPrompt.WriteString("\n\n")
	}
	userPrompt.WriteString("## User Question\n")
	userPrompt.WriteString(st.message)

	messages := make([]llm.Message, 0, len(st.history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, st.history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userPrompt.String()})

	draft, err := o.client.ChatComplete(ctx, messages, llm.Options{
		Temperature: 0.2,
		MaxTokens:   1200,
		Timeout:     llm.DefaultOptions().Timeout,
	})
	if err != nil {
		o.logger.Warn("draft stage failed: %v", err)
		draft = ""
	}
	st.draft = draft

	o.emit(st, StageDraft, draft)
	return StageVerify, nil
}

const verifierSystemPrompt = `You are "VerifierAgent".
You check the draft answer for hallucination and unsupported campus-specific claims.

Return ONLY valid JSON:
{
  "verdict": "pass" | "revise",
  "issues": string[],
  "missing_citations": string[],
  "rewrite_guidance": string
}

Rules:
- If a statement depends on campus-specific facts but is not supported by KB context, verdict must be "revise".
- If KB context exists and the draft contains key claims without [KB*] citations, list them in missing_citations.
- Keep rewrite_guidance short and actionable.`

// verify checks the draft against the context block. Any failure — call
// error or malformed JSON — becomes an automatic "revise" verdict with
// generic guidance, biasing toward caution over blind trust.
func (o *Orchestrator) verify(ctx context.Context, st *runState) (Stage, error) {
	kb := st.kbContext
	if kb == "" {
		kb = "(none)"
	}
	userPrompt := fmt.Sprintf("## Knowledge Base Context\n%s\n\n## Draft Answer\n%s", kb, st.draft)

	raw, err := o.client.ChatComplete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: verifierSystemPrompt},
		{Role: llm.RoleUser, Content: userPrompt},
	}, llm.Options{Temperature: 0.0, MaxTokens: 600, Timeout: llm.DefaultOptions().Timeout})

	verification := Verification{Verdict: "revise", RewriteGuidance: fallbackGuidance}
	switch {
	case err != nil:
		o.logger.Warn("verify stage failed: %v", err)
		verification.Issues = []string{"verifier call failed"}
	default:
		var out Verification
		if llm.DecodeFirstJSONObject(raw, &out) && out.Verdict != "" {
			if out.Verdict != "pass" {
				out.Verdict = "revise"
			}
			out.Issues = capStrings(out.Issues, 10)
			out.MissingCitations = capStrings(out.MissingCitations, 10)
			if runes := []rune(out.RewriteGuidance); len(runes) > 800 {
				out.RewriteGuidance = string(runes[:800])
			}
			out.Verified = true
			verification = out
		} else {
			verification.Issues = []string{"verifier output is not valid JSON"}
		}
	}
	st.verification = verification

	o.emit(st, StageVerify, fmt.Sprintf("verdict=%s verified=%t issues=%d",
		verification.Verdict, verification.Verified, len(verification.Issues)))
	return StageFinalize, nil
}

// finalize merges draft and verdict into the answer shown to the user. When
// the call fails, the draft (possibly with a disclaimer) is served instead.
func (o *Orchestrator) finalize(ctx context.Context, st *runState) (Stage, error) {
	system := `你是 "FinalizerAgent"。
你把 Specialist 草稿 + Verifier 反馈整合为最终回答。

强制规则：
1) 不要输出任何 JSON；直接输出最终中文回答。
2) 对校园具体事实：有 KB 就引用 [KB1]/[KB2]；没有 KB 或不支持就明确不确定并给出官方确认渠道。
3) 若 Verifier 判定需要修改，必须遵循 rewrite_guidance 修正草稿。
4) 结尾追加一个简短的"参考资料"小节，仅列出你在正文引用过的 [KB*] 标签对应的标题。`

	verifierBlock := fmt.Sprintf(`## Verifier Verdict
%s

## Issues
%s

## Missing citations
%s

## Rewrite guidance
%s`,
		st.verification.Verdict,
		joinOrNone(st.verification.Issues),
		joinOrNone(st.verification.MissingCitations),
		orNone(st.verification.RewriteGuidance))

	var parts []string
	if st.kbContext != "" {
		parts = append(parts, st.kbContext)
	}
	parts = append(parts,
		"## User Question\n"+st.message,
		"## Draft Answer\n"+st.draft,
		verifierBlock)

	finalText, err := o.client.ChatComplete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: strings.Join(parts, "\n\n")},
	}, llm.Options{Temperature: 0.2, MaxTokens: 1400, Timeout: llm.DefaultOptions().Timeout})
	if err != nil {
		o.logger.Warn("finalize stage failed: %v", err)
		finalText = degradedAnswer(st.draft)
	}
	if strings.TrimSpace(finalText) == "" {
		finalText = degradedAnswer(st.draft)
	}

	st.result = &Result{
		Routing:      st.routing,
		Sources:      st.ragResult.Sources,
		FinalText:    finalText,
		Verification: st.verification,
	}

	o.emit(st, StageFinalize, finalText)
	return StageDone, nil
}

func capStrings(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func joinOrNone(in []string) string {
	if len(in) == 0 {
		return "(none)"
	}
	return strings.Join(in, "\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

func degradedAnswer(draft string) string {
	if strings.TrimSpace(draft) != "" {
		return draft + "\n\n（注：本回答未能完成最终校对，涉及校园具体规定请以学校官方渠道为准。）"
	}
	return "抱歉，这个问题我暂时没有可靠的依据来回答，建议向教务处或学生服务中心官方渠道确认。"
}
