// Package router classifies an incoming message into one of the assistant's
// conversation modes and decides whether knowledge-base grounding is needed.
// Two interchangeable strategies produce the same Decision shape: a keyword
// heuristic that is always available, and an LLM planner that takes
// precedence when a backend is reachable but falls back unconditionally on
// malformed output.
package router

import (
	"strings"

	"github.com/smallnest/campusrag/llm"
)

// AgentType is the closed set of conversation modes.
type AgentType string

const (
	// AgentKnowledge answers campus policy/process/location/schedule questions.
	AgentKnowledge AgentType = "knowledge"
	// AgentTutor runs practice, interview and role-play training sessions.
	AgentTutor AgentType = "tutor"
	// AgentGeneral handles chit-chat and non-campus topics.
	AgentGeneral AgentType = "general"
)

// ValidAgent reports whether a is one of the closed set.
func ValidAgent(a AgentType) bool {
	switch a {
	case AgentKnowledge, AgentTutor, AgentGeneral:
		return true
	}
	return false
}

// Decision is a routing outcome. Produced fresh per request, never persisted.
type Decision struct {
	Agent      AgentType `json:"agent"`
	NeedsRAG   bool      `json:"needsRAG"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Plan       []string  `json:"plan,omitempty"`
}

// tutorKeywords signal a practice/role-play request.
var tutorKeywords = []string{
	"面试", "陪练", "模拟", "练习", "考核", "角色扮演", "扮演",
	"出题", "考我", "提问我", "演练", "答辩",
}

// knowledgeKeywords signal campus-fact questions; shared vocabulary with the
// retrieval gate.
var knowledgeKeywords = []string{
	"图书馆", "食堂", "宿舍", "教室", "体育馆", "校医院",
	"奖学金", "助学金", "选课", "退课", "成绩", "挂科", "补考", "重修",
	"报到", "入学", "毕业", "转专业", "校园卡", "挂失",
	"快递", "wifi", "校园网", "打印", "医保", "报销",
	"流程", "规定", "申请", "办理",
}

// HeuristicRouter picks a mode by keyword matching over the message and
// recent history. Fast, no external call, always available. It is also fed
// to the planner as a hint.
type HeuristicRouter struct{}

// Route classifies the message. history may be nil.
func (HeuristicRouter) Route(message string, history []llm.Message) Decision {
	text := strings.ToLower(message)

	// Recent history keeps a tutoring session in tutor mode even when a
	// single follow-up message carries no tutor keyword.
	var recent string
	if n := len(history); n > 0 {
		start := max(n-4, 0)
		var sb strings.Builder
		for _, h := range history[start:] {
			sb.WriteString(strings.ToLower(h.Content))
			sb.WriteByte('\n')
		}
		recent = sb.String()
	}

	tutorHits := countHits(text, tutorKeywords)
	knowledgeHits := countHits(text, knowledgeKeywords)

	switch {
	case tutorHits > 0 || (tutorHits == 0 && knowledgeHits == 0 && countHits(recent, tutorKeywords) > 0):
		return Decision{
			Agent:      AgentTutor,
			NeedsRAG:   false,
			Confidence: confidence(tutorHits),
			Reason:     "tutor keywords matched",
		}
	case knowledgeHits > 0:
		return Decision{
			Agent:      AgentKnowledge,
			NeedsRAG:   true,
			Confidence: confidence(knowledgeHits),
			Reason:     "campus knowledge keywords matched",
		}
	default:
		return Decision{
			Agent:      AgentGeneral,
			NeedsRAG:   false,
			Confidence: 0.5,
			Reason:     "no specialist keywords matched",
		}
	}
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}

func confidence(hits int) float64 {
	// More keyword evidence, more confidence, capped below certainty.
	c := 0.6 + 0.1*float64(hits)
	if c > 0.9 {
		c = 0.9
	}
	return c
}
