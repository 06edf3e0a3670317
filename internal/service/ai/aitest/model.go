// Package aitest provides a scripted eino chat model for tests.
package aitest

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel returns Reply (or Err) and records every input it receives.
// When Block is set, Generate waits for ctx to be done.
type ChatModel struct {
	Reply string
	Err   error
	Block bool

	// Respond, when set, computes the reply from the input.
	Respond func(input []*schema.Message) (string, error)

	mu    sync.Mutex
	calls [][]*schema.Message
}

var _ model.ChatModel = (*ChatModel)(nil)

// Generate implements model.ChatModel.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]*schema.Message(nil), input...))
	m.mu.Unlock()

	if m.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.Respond != nil {
		reply, err := m.Respond(input)
		if err != nil {
			return nil, err
		}
		return schema.AssistantMessage(reply, nil), nil
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return schema.AssistantMessage(m.Reply, nil), nil
}

// Stream implements model.ChatModel with a single chunk.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools implements model.ChatModel.
func (m *ChatModel) BindTools([]*schema.ToolInfo) error {
	return nil
}

// Calls returns the recorded inputs.
func (m *ChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), m.calls...)
}

// LastInput returns the most recent input, or nil.
func (m *ChatModel) LastInput() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}
