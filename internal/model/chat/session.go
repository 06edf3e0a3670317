package chat

import "time"

// Session is a conversation bound to exactly one analysis context.
type Session struct {
	ID        string          `json:"session_id"`
	Context   AnalysisContext `json:"context"`
	Messages  []Message       `json:"messages"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Clone returns a deep copy safe to hand out across requests.
func (s Session) Clone() Session {
	out := s
	out.Context = s.Context.Clone()
	out.Messages = append(make([]Message, 0, len(s.Messages)), s.Messages...)
	return out
}
