package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/skinmatch/chatbot/backend/internal/model/chat"
)

var (
	// ErrModelFailure wraps any error returned by the chat model.
	ErrModelFailure = errors.New("chat model failed")
	// ErrModelTimeout is returned when the model does not answer within the configured timeout.
	ErrModelTimeout = errors.New("chat model timed out")
)

// Service runs the assembled conversation through the chat model.
type Service struct {
	chatModel model.ChatModel
	assembler *Assembler
	chain     compose.Runnable[map[string]any, *schema.Message]
	timeout   time.Duration
}

// NewService compiles the template -> model chain. A zero timeout leaves the
// call bounded only by the caller's context.
func NewService(ctx context.Context, chatModel model.ChatModel, timeout time.Duration) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	assembler := NewAssembler()

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(assembler.Template())
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		assembler: assembler,
		chain:     runnable,
		timeout:   timeout,
	}, nil
}

// Assembler returns the message assembler backing the chain.
func (s *Service) Assembler() *Assembler {
	return s.assembler
}

// GenerateReply asks the model for the next assistant turn. The history must
// not yet contain userMessage. A blank reply is returned as is.
func (s *Service) GenerateReply(ctx context.Context, sessionID string, actx chat.AnalysisContext, history []chat.Message, userMessage string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	response, err := s.chain.Invoke(ctx, s.assembler.Variables(actx, history, userMessage))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %v", ErrModelTimeout, s.timeout, err)
		}
		return "", fmt.Errorf("%w: %w", ErrModelFailure, err)
	}

	reply := ""
	if response != nil {
		reply = response.Content
	}

	log.Debug().
		Str("session_id", sessionID).
		Int("history", len(history)).
		Int("reply_len", len(reply)).
		Dur("elapsed", time.Since(started)).
		Msg("generated reply")
	return reply, nil
}
