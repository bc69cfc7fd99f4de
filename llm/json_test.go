package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFirstJSONObject(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		res := ExtractFirstJSONObject(`{"agent":"knowledge","needsRAG":true}`)
		assert.True(t, res.Parsed)
		assert.JSONEq(t, `{"agent":"knowledge","needsRAG":true}`, string(res.Value))
	})

	t.Run("prose around object", func(t *testing.T) {
		res := ExtractFirstJSONObject("Here is my routing decision:\n{\"agent\":\"tutor\"}\nHope that helps!")
		assert.True(t, res.Parsed)
		assert.JSONEq(t, `{"agent":"tutor"}`, string(res.Value))
	})

	t.Run("code fences stripped", func(t *testing.T) {
		res := ExtractFirstJSONObject("```json\n{\"verdict\":\"pass\",\"issues\":[]}\n```")
		assert.True(t, res.Parsed)
		assert.JSONEq(t, `{"verdict":"pass","issues":[]}`, string(res.Value))
	})

	t.Run("nested objects", func(t *testing.T) {
		res := ExtractFirstJSONObject(`{"a":{"b":{"c":1}},"d":2} trailing {"x":1}`)
		assert.True(t, res.Parsed)
		assert.JSONEq(t, `{"a":{"b":{"c":1}},"d":2}`, string(res.Value))
	})

	t.Run("braces inside strings", func(t *testing.T) {
		res := ExtractFirstJSONObject(`{"notes":"use {KB1} as a label"}`)
		assert.True(t, res.Parsed)
	})

	t.Run("no object", func(t *testing.T) {
		res := ExtractFirstJSONObject("I cannot answer in JSON, sorry.")
		assert.False(t, res.Parsed)
		assert.NotEmpty(t, res.Fallback)
	})

	t.Run("unbalanced", func(t *testing.T) {
		res := ExtractFirstJSONObject(`{"agent":"knowledge"`)
		assert.False(t, res.Parsed)
		assert.Equal(t, "unbalanced braces", res.Fallback)
	})

	t.Run("empty input", func(t *testing.T) {
		res := ExtractFirstJSONObject("   ")
		assert.False(t, res.Parsed)
	})
}

func TestDecodeFirstJSONObject(t *testing.T) {
	var decision struct {
		Agent    string `json:"agent"`
		NeedsRAG bool   `json:"needsRAG"`
	}

	ok := DecodeFirstJSONObject("prefix {\"agent\":\"knowledge\",\"needsRAG\":true} suffix", &decision)
	assert.True(t, ok)
	assert.Equal(t, "knowledge", decision.Agent)
	assert.True(t, decision.NeedsRAG)

	assert.False(t, DecodeFirstJSONObject("not json at all", &decision))
}

func TestOpenAIClientAvailable(t *testing.T) {
	assert.False(t, NewOpenAIClient("", "", "glm-4").Available())
	assert.True(t, NewOpenAIClient("sk-test", "https://open.bigmodel.cn/api/paas/v4", "glm-4").Available())
}
