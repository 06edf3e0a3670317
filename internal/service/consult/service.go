package consult

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/skinmatch/chatbot/backend/internal/analysis/mapper"
	"github.com/skinmatch/chatbot/backend/internal/metrics"
	"github.com/skinmatch/chatbot/backend/internal/model/chat"
)

var (
	// ErrInvalidInput marks caller mistakes: malformed payloads, missing fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelUnavailable is returned by chat turns when no model is configured.
	ErrModelUnavailable = errors.New("chat model unavailable")
)

// Reset modes.
const (
	ResetHistory = "history"
	ResetAll     = "all"
)

// Replier produces the next assistant turn for a conversation.
type Replier interface {
	GenerateReply(ctx context.Context, sessionID string, actx chat.AnalysisContext, history []chat.Message, userMessage string) (string, error)
}

// Service ties the store, the context mapper and the model together.
type Service struct {
	store   chat.Store
	replier Replier
	metrics *metrics.Metrics
}

// NewService creates the orchestrator. replier may be nil when no model is
// configured; chat turns then fail with ErrModelUnavailable. m may be nil.
func NewService(store chat.Store, replier Replier, m *metrics.Metrics) *Service {
	return &Service{store: store, replier: replier, metrics: m}
}

// InitSession stores a typed context as a new session.
func (s *Service) InitSession(actx chat.AnalysisContext) (chat.Session, error) {
	if strings.TrimSpace(actx.Diagnosis) == "" {
		return chat.Session{}, fmt.Errorf("%w: diagnosis is required", ErrInvalidInput)
	}
	session := s.store.Create(actx)
	s.sessionCreated("typed", session)
	return session, nil
}

// InitFromAnalysis maps a raw analysis payload and stores it as a new session.
func (s *Service) InitFromAnalysis(raw []byte) (chat.Session, error) {
	actx, err := mapper.Map(raw)
	if err != nil {
		return chat.Session{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	session := s.store.Create(actx)
	s.sessionCreated("analysis", session)
	return session, nil
}

// Snapshot returns a copy of the session.
func (s *Service) Snapshot(sessionID string) (chat.Session, error) {
	return s.store.Get(sessionID)
}

// Reset clears the history (mode "history") or deletes the session (mode
// "all"). Unknown sessions are not an error. It reports whether the session
// was deleted.
func (s *Service) Reset(sessionID, mode string) (bool, error) {
	switch mode {
	case ResetAll:
		s.store.Delete(sessionID)
		return true, nil
	case ResetHistory, "":
		s.store.ResetHistory(sessionID)
		return false, nil
	default:
		return false, fmt.Errorf("%w: unknown reset mode %q", ErrInvalidInput, mode)
	}
}

// PatchContext parses and applies a context patch. Nothing is changed when
// the patch is rejected.
func (s *Service) PatchContext(sessionID string, raw []byte) error {
	if _, err := s.store.Get(sessionID); err != nil {
		return err
	}
	patch, err := chat.ParsePatch(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.store.PatchContext(sessionID, patch)
}

// Converse runs one chat turn. The session's turn lock is held from the
// history read until both turns are stored, so concurrent turns on one
// session are serialized. Nothing is stored when the model call fails.
func (s *Service) Converse(ctx context.Context, sessionID, message string) (string, error) {
	if s.replier == nil {
		return "", ErrModelUnavailable
	}

	release, err := s.store.Acquire(ctx, sessionID)
	if err != nil {
		return "", err
	}
	defer release()

	session, err := s.store.Get(sessionID)
	if err != nil {
		return "", err
	}

	started := time.Now()
	reply, err := s.replier.GenerateReply(ctx, sessionID, session.Context, session.Messages, message)
	s.observeModel(started, err)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("chat turn failed")
		return "", err
	}

	if err := s.store.AppendTurns(sessionID, chat.UserMessage(message), chat.AssistantMessage(reply)); err != nil {
		return "", err
	}
	return reply, nil
}

// Start creates a session from an analysis payload and either greets the user
// or answers the first message.
func (s *Service) Start(ctx context.Context, analysis []byte, message string) (chat.Session, string, error) {
	if !truthy(gjson.ParseBytes(analysis)) {
		analysis = []byte(`{}`)
	}

	session, err := s.InitFromAnalysis(analysis)
	if err != nil {
		return chat.Session{}, "", err
	}

	if message == "" {
		greeting := Greeting(session.Context)
		if err := s.store.AddMessage(session.ID, chat.RoleAssistant, greeting); err != nil {
			return chat.Session{}, "", err
		}
		return session, greeting, nil
	}

	reply, err := s.Converse(ctx, session.ID, message)
	if err != nil {
		return chat.Session{}, "", err
	}
	return session, reply, nil
}

// Message runs one chat turn on an existing session.
func (s *Service) Message(ctx context.Context, sessionID, message string) (string, error) {
	if sessionID == "" || message == "" {
		return "", fmt.Errorf("%w: session_id and message are required", ErrInvalidInput)
	}
	return s.Converse(ctx, sessionID, message)
}

// Greeting is the deterministic opening line for a session started without a question.
func Greeting(actx chat.AnalysisContext) string {
	similar := "없음"
	if len(actx.SimilarDiseases) > 0 {
		similar = strings.Join(actx.SimilarDiseases, ", ")
	}
	return fmt.Sprintf("분석 결과는 '%s'로 보이며, 궁금한 점을 물어보세요. 유사질환: %s.", actx.Diagnosis, similar)
}

// truthy reports whether an analysis value is present. Missing, null and
// empty values fall back to an empty object; anything else goes to the
// mapper, which rejects non-objects.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.False, gjson.Null:
		return false
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	case gjson.JSON:
		if v.IsObject() {
			return len(v.Map()) > 0
		}
		return len(v.Array()) > 0
	}
	return true
}

func (s *Service) sessionCreated(source string, session chat.Session) {
	log.Info().
		Str("session_id", session.ID).
		Str("source", source).
		Str("diagnosis", session.Context.Diagnosis).
		Msg("session created")
	if s.metrics != nil {
		s.metrics.SessionsCreatedTotal.WithLabelValues(source).Inc()
	}
}

func (s *Service) observeModel(started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ModelLatency.Observe(time.Since(started).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ChatTurnsTotal.WithLabelValues(status).Inc()
}
