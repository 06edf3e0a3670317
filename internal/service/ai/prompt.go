package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/skinmatch/chatbot/backend/internal/model/chat"
)

// systemPrompt frames the assistant: explain the stored result, suggest next
// steps, never diagnose or prescribe, always add a disclaimer, and compare
// newly reported symptoms without re-diagnosing.
const systemPrompt = "너는 환자의 이미징/문장 분석 결과를 바탕으로, 결과를 이해하기 쉽게 설명하고, " +
	"생활 관리와 다음 단계(의료진 상담 포함)를 안내하는 도우미야. " +
	"진단을 단정하거나 치료를 지시하지 말고, 의료 면책 고지를 덧붙여. " +
	"사용자가 새로운 증상을 제시하면 결과와 일치/불일치를 설명하되, 재진단은 하지 마."

const contextTemplate = `다음은 분석 백엔드에서 제공한 컨텍스트야:
- 질환명: %s
- 소견: %s
- 유사질환: %s
- 증상정리: %s
이 컨텍스트를 대화 전반에 참고해.`

// Template variable names.
const (
	varSystem  = "system"
	varContext = "context"
	varHistory = "history"
	varQuery   = "query"
)

// Assembler builds the ordered model input: instructions, analysis context,
// prior history, then the new user turn.
type Assembler struct {
	template prompt.ChatTemplate
}

// NewAssembler creates the assembler with its chat template.
func NewAssembler() *Assembler {
	return &Assembler{
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{"+varSystem+"}"),
			schema.SystemMessage("{"+varContext+"}"),
			schema.MessagesPlaceholder(varHistory, true),
			schema.UserMessage("{"+varQuery+"}"),
		),
	}
}

// Template exposes the chat template so it can be chained in front of a model.
func (a *Assembler) Template() prompt.ChatTemplate {
	return a.template
}

// Variables returns the template input for one turn.
func (a *Assembler) Variables(actx chat.AnalysisContext, history []chat.Message, userMessage string) map[string]any {
	return map[string]any{
		varSystem:  SystemPrompt(),
		varContext: RenderContext(actx),
		varHistory: HistoryMessages(history),
		varQuery:   userMessage,
	}
}

// Build formats the full message list for one turn.
func (a *Assembler) Build(ctx context.Context, actx chat.AnalysisContext, history []chat.Message, userMessage string) ([]*schema.Message, error) {
	messages, err := a.template.Format(ctx, a.Variables(actx, history, userMessage))
	if err != nil {
		return nil, fmt.Errorf("failed to format chat template: %w", err)
	}
	return messages, nil
}

// SystemPrompt returns the fixed instruction text.
func SystemPrompt() string {
	return systemPrompt
}

// RenderContext renders all four context fields; empty ones stay blank.
func RenderContext(actx chat.AnalysisContext) string {
	return fmt.Sprintf(contextTemplate,
		actx.Diagnosis,
		actx.SummaryText(),
		strings.Join(actx.SimilarDiseases, ", "),
		actx.RefinedSymptomsText(),
	)
}

// HistoryMessages converts stored turns, in order and unmodified.
func HistoryMessages(history []chat.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		case chat.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		default:
			out = append(out, schema.UserMessage(msg.Content))
		}
	}
	return out
}
