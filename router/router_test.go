package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/campusrag/llm"
)

func TestHeuristicRoute(t *testing.T) {
	r := HeuristicRouter{}

	t.Run("knowledge", func(t *testing.T) {
		d := r.Route("图书馆几点开门", nil)
		assert.Equal(t, AgentKnowledge, d.Agent)
		assert.True(t, d.NeedsRAG)
		assert.Greater(t, d.Confidence, 0.5)
	})

	t.Run("tutor", func(t *testing.T) {
		d := r.Route("帮我模拟一场产品经理面试", nil)
		assert.Equal(t, AgentTutor, d.Agent)
		assert.False(t, d.NeedsRAG)
	})

	t.Run("tutor wins over knowledge keywords", func(t *testing.T) {
		d := r.Route("帮我模拟面试一下奖学金答辩", nil)
		assert.Equal(t, AgentTutor, d.Agent)
	})

	t.Run("general", func(t *testing.T) {
		d := r.Route("今天天气真好", nil)
		assert.Equal(t, AgentGeneral, d.Agent)
		assert.False(t, d.NeedsRAG)
	})

	t.Run("history keeps tutor session", func(t *testing.T) {
		history := []llm.Message{
			{Role: llm.RoleUser, Content: "我们来模拟面试吧"},
			{Role: llm.RoleAssistant, Content: "好的，请做个自我介绍。"},
		}
		d := r.Route("我叫小明，学的是计算机。", history)
		assert.Equal(t, AgentTutor, d.Agent)
	})

	t.Run("confidence bounded", func(t *testing.T) {
		d := r.Route("选课 退课 成绩 挂科 补考 重修 流程 规定", nil)
		assert.LessOrEqual(t, d.Confidence, 0.9)
	})
}

func TestValidAgent(t *testing.T) {
	assert.True(t, ValidAgent(AgentKnowledge))
	assert.True(t, ValidAgent(AgentTutor))
	assert.True(t, ValidAgent(AgentGeneral))
	assert.False(t, ValidAgent("oracle"))
	assert.False(t, ValidAgent(""))
}

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []string
	err       error
	available bool
	calls     int
}

func (c *scriptedClient) ChatComplete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", llm.ErrEmptyResponse
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func (c *scriptedClient) Available() bool { return c.available }

func TestPlannerRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("valid planner output wins", func(t *testing.T) {
		client := &scriptedClient{available: true, responses: []string{
			"```json\n{\"agent\":\"knowledge\",\"needsRAG\":true,\"confidence\":0.95,\"plan\":[\"retrieve\",\"answer\"],\"notes\":\"campus facility question\"}\n```",
		}}
		p := NewPlanner(client, nil)

		d, used := p.Route(ctx, "游泳馆什么时候开", nil)
		assert.True(t, used)
		assert.Equal(t, AgentKnowledge, d.Agent)
		assert.True(t, d.NeedsRAG)
		assert.InDelta(t, 0.95, d.Confidence, 1e-9)
		assert.Equal(t, "campus facility question", d.Reason)
		assert.Equal(t, []string{"retrieve", "answer"}, d.Plan)
	})

	t.Run("non-JSON output falls back to heuristic", func(t *testing.T) {
		client := &scriptedClient{available: true, responses: []string{"I think this is a knowledge question."}}
		p := NewPlanner(client, nil)

		d, used := p.Route(ctx, "图书馆几点开门", nil)
		assert.False(t, used)
		assert.Equal(t, AgentKnowledge, d.Agent, "heuristic decision must be used")
		assert.True(t, ValidAgent(d.Agent))
	})

	t.Run("unknown agent falls back", func(t *testing.T) {
		client := &scriptedClient{available: true, responses: []string{`{"agent":"oracle","needsRAG":false}`}}
		p := NewPlanner(client, nil)

		d, used := p.Route(ctx, "图书馆几点开门", nil)
		assert.False(t, used)
		assert.Equal(t, AgentKnowledge, d.Agent)
	})

	t.Run("call error falls back", func(t *testing.T) {
		client := &scriptedClient{available: true, err: errors.New("timeout")}
		p := NewPlanner(client, nil)

		d, used := p.Route(ctx, "今天好无聊", nil)
		assert.False(t, used)
		assert.Equal(t, AgentGeneral, d.Agent)
	})

	t.Run("unavailable client never calls backend", func(t *testing.T) {
		client := &scriptedClient{available: false}
		p := NewPlanner(client, nil)

		_, used := p.Route(ctx, "图书馆几点开门", nil)
		assert.False(t, used)
		assert.Zero(t, client.calls)
	})

	t.Run("out of range confidence falls back to heuristic confidence", func(t *testing.T) {
		client := &scriptedClient{available: true, responses: []string{`{"agent":"general","confidence":3.5}`}}
		p := NewPlanner(client, nil)

		d, used := p.Route(ctx, "随便聊聊", nil)
		require.True(t, used)
		assert.LessOrEqual(t, d.Confidence, 1.0)
	})
}

func TestPersonaPrompt(t *testing.T) {
	assert.Contains(t, PersonaPrompt(AgentKnowledge), "校园")
	assert.Contains(t, PersonaPrompt(AgentTutor), "面试")
	assert.Contains(t, PersonaPrompt(AgentGeneral), "小云")
}

func TestOfflineResponse(t *testing.T) {
	for _, agent := range []AgentType{AgentKnowledge, AgentTutor, AgentGeneral} {
		assert.Contains(t, OfflineResponse(agent), "GLM_API_KEY")
	}
}
