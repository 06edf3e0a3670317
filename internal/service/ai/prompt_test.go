package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinmatch/chatbot/backend/internal/model/chat"
)

func TestBuildOrdersMessages(t *testing.T) {
	actx := chat.AnalysisContext{
		Diagnosis:       "eczema",
		Summary:         chat.StringPtr("moisturize"),
		SimilarDiseases: []string{"psoriasis", "contact dermatitis"},
		RefinedSymptoms: chat.StringPtr("itchy {wrists}"),
	}
	history := []chat.Message{
		chat.UserMessage("is it contagious?"),
		chat.AssistantMessage("no"),
	}

	messages, err := NewAssembler().Build(context.Background(), actx, history, "what about {brackets}?")
	require.NoError(t, err)
	require.Len(t, messages, 5)

	assert.Equal(t, schema.System, messages[0].Role)
	assert.Equal(t, SystemPrompt(), messages[0].Content)

	assert.Equal(t, schema.System, messages[1].Role)
	assert.Equal(t, RenderContext(actx), messages[1].Content)

	assert.Equal(t, schema.User, messages[2].Role)
	assert.Equal(t, "is it contagious?", messages[2].Content)
	assert.Equal(t, schema.Assistant, messages[3].Role)
	assert.Equal(t, "no", messages[3].Content)

	assert.Equal(t, schema.User, messages[4].Role)
	assert.Equal(t, "what about {brackets}?", messages[4].Content)
}

func TestBuildWithoutHistory(t *testing.T) {
	messages, err := NewAssembler().Build(context.Background(), chat.AnalysisContext{Diagnosis: "acne"}, nil, "hi")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "hi", messages[2].Content)
}

func TestRenderContextKeepsBlankFields(t *testing.T) {
	rendered := RenderContext(chat.AnalysisContext{Diagnosis: "acne"})

	lines := strings.Split(rendered, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "- 질환명: acne", lines[1])
	assert.Equal(t, "- 소견: ", lines[2])
	assert.Equal(t, "- 유사질환: ", lines[3])
	assert.Equal(t, "- 증상정리: ", lines[4])
}

func TestRenderContextJoinsSimilarDiseases(t *testing.T) {
	rendered := RenderContext(chat.AnalysisContext{Diagnosis: "acne", SimilarDiseases: []string{"A", "B", "C"}})
	assert.Contains(t, rendered, "- 유사질환: A, B, C\n")
}

func TestSystemPromptScope(t *testing.T) {
	prompt := SystemPrompt()
	assert.Contains(t, prompt, "진단을 단정하거나 치료를 지시하지 말고")
	assert.Contains(t, prompt, "의료 면책 고지")
	assert.Contains(t, prompt, "재진단은 하지 마")
}
