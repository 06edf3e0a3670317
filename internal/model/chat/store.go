package chat

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidPatch    = errors.New("invalid patch")
)

// Store owns every session. Callers address sessions by id and only ever
// receive copies.
type Store interface {
	Create(ctx AnalysisContext) Session
	Get(id string) (Session, error)
	AddMessage(id string, role Role, content string) error
	AppendTurns(id string, turns ...Message) error
	ResetHistory(id string)
	Delete(id string)
	PatchContext(id string, patch ContextPatch) error

	// Acquire takes the session's turn lock so a read-model-append sequence
	// cannot interleave with another one on the same session.
	Acquire(ctx context.Context, id string) (release func(), err error)

	Len() int
	Sweep(now time.Time) int
}
