// Package openaichat adapts the OpenAI chat completions API to the eino
// model.ChatModel interface.
package openaichat

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config describes one OpenAI-compatible endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float32
	MaxTokens   *int
}

// ChatModel calls /chat/completions once per Generate. The client never
// retries; failures surface to the caller unchanged.
type ChatModel struct {
	client openai.Client
	cfg    Config
}

var _ model.ChatModel = (*ChatModel)(nil)

// NewChatModel creates a chat model for cfg.
func NewChatModel(cfg Config) (*ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &ChatModel{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

// Generate sends the messages and returns the first choice as an assistant message.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.cfg.Model,
		Temperature: m.cfg.Temperature,
		MaxTokens:   m.cfg.MaxTokens,
	}, opts...)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(m.cfg.Model),
		Messages: toParams(input),
	}
	if options.Model != nil && *options.Model != "" {
		params.Model = openai.ChatModel(*options.Model)
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(float64(*options.Temperature))
	}
	if options.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*options.MaxTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai chat completion returned no choices")
	}

	return schema.AssistantMessage(resp.Choices[0].Message.Content, nil), nil
}

// Stream is not backed by server-sent chunks: it yields the full reply as a
// single chunk.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is unsupported; the consult flow never calls tools.
func (m *ChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) == 0 {
		return nil
	}
	return errors.New("openaichat: tool calling is not supported")
}

func toParams(input []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openai.SystemMessage(msg.Content))
		case schema.Assistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
