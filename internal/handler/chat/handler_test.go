package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinmatch/chatbot/backend/internal/model/chat"
	"github.com/skinmatch/chatbot/backend/internal/service/ai"
	"github.com/skinmatch/chatbot/backend/internal/service/ai/aitest"
	chatservice "github.com/skinmatch/chatbot/backend/internal/service/chat"
	"github.com/skinmatch/chatbot/backend/internal/service/consult"
)

func setupRouter(t *testing.T, model *aitest.ChatModel, timeout time.Duration) (*chi.Mux, *consult.Service) {
	t.Helper()
	llm, err := ai.NewService(context.Background(), model, timeout)
	require.NoError(t, err)
	svc := consult.NewService(chatservice.NewMemoryStore(), llm, nil)

	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r, svc
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func initSession(t *testing.T, r http.Handler) string {
	t.Helper()
	resp := do(r, http.MethodPost, "/session/init", `{"diagnosis": "eczema", "similar_diseases": ["A"]}`)
	require.Equal(t, http.StatusOK, resp.Code)
	out := decode(t, resp)
	assert.Equal(t, true, out["stored"])
	return out["session_id"].(string)
}

func TestInitSession(t *testing.T) {
	r, svc := setupRouter(t, &aitest.ChatModel{}, time.Second)
	id := initSession(t, r)

	session, err := svc.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, "eczema", session.Context.Diagnosis)
	assert.Equal(t, []string{"A"}, session.Context.SimilarDiseases)
}

func TestInitSessionMissingDiagnosis(t *testing.T) {
	r, _ := setupRouter(t, &aitest.ChatModel{}, time.Second)

	resp := do(r, http.MethodPost, "/session/init", `{"summary": "x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "diagnosis is required", decode(t, resp)["error"])

	resp = do(r, http.MethodPost, "/session/init", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestInitFromAnalysis(t *testing.T) {
	r, svc := setupRouter(t, &aitest.ChatModel{}, time.Second)

	resp := do(r, http.MethodPost, "/session/init-from-analysis",
		`{"predicted_disease": "psoriasis", "metadata": {"similar_diseases_scored": [{"name": "eczema", "score": 0.4}]}}`)
	require.Equal(t, http.StatusOK, resp.Code)

	session, err := svc.Snapshot(decode(t, resp)["session_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, "psoriasis", session.Context.Diagnosis)
	assert.Equal(t, []string{"eczema"}, session.Context.SimilarDiseases)

	resp = do(r, http.MethodPost, "/session/init-from-analysis", `[1, 2]`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestChatAndGetSession(t *testing.T) {
	r, _ := setupRouter(t, &aitest.ChatModel{Reply: "R"}, time.Second)
	id := initSession(t, r)

	resp := do(r, http.MethodPost, "/chat", `{"session_id": "`+id+`", "message": "hello"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{"session_id": id, "reply": "R"}, decode(t, resp))

	resp = do(r, http.MethodGet, "/session/"+id, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var session chat.Session
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &session))
	assert.Equal(t, id, session.ID)
	assert.Equal(t, []chat.Message{chat.UserMessage("hello"), chat.AssistantMessage("R")}, session.Messages)
}

func TestChatErrors(t *testing.T) {
	r, _ := setupRouter(t, &aitest.ChatModel{Reply: "R"}, time.Second)

	resp := do(r, http.MethodPost, "/chat", `{"session_id": "missing", "message": "hello"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(r, http.MethodPost, "/chat", `{"session_id": "missing"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(r, http.MethodGet, "/session/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestChatModelFailure(t *testing.T) {
	r, svc := setupRouter(t, &aitest.ChatModel{Err: errors.New("quota exceeded")}, time.Second)
	id := initSession(t, r)

	resp := do(r, http.MethodPost, "/chat", `{"session_id": "`+id+`", "message": "hello"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, decode(t, resp)["error"], "quota exceeded")

	session, err := svc.Snapshot(id)
	require.NoError(t, err)
	assert.Empty(t, session.Messages)
}

func TestChatModelTimeout(t *testing.T) {
	r, _ := setupRouter(t, &aitest.ChatModel{Block: true}, 20*time.Millisecond)
	id := initSession(t, r)

	resp := do(r, http.MethodPost, "/chat", `{"session_id": "`+id+`", "message": "hello"}`)
	assert.Equal(t, http.StatusGatewayTimeout, resp.Code)
}

func TestReset(t *testing.T) {
	r, svc := setupRouter(t, &aitest.ChatModel{Reply: "R"}, time.Second)
	id := initSession(t, r)
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/chat", `{"session_id": "`+id+`", "message": "hi"}`).Code)

	resp := do(r, http.MethodPost, "/session/reset", `{"session_id": "`+id+`"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{"history_cleared": true}, decode(t, resp))

	session, err := svc.Snapshot(id)
	require.NoError(t, err)
	assert.Empty(t, session.Messages)
	assert.Equal(t, "eczema", session.Context.Diagnosis)

	resp = do(r, http.MethodPost, "/session/reset", `{"session_id": "`+id+`", "mode": "bogus"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(r, http.MethodPost, "/session/reset", `{"session_id": "`+id+`", "mode": "all"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{"deleted": true}, decode(t, resp))
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/session/"+id, "").Code)
}

func TestAppendContext(t *testing.T) {
	r, svc := setupRouter(t, &aitest.ChatModel{}, time.Second)
	id := initSession(t, r)

	resp := do(r, http.MethodPost, "/session/append-context?session_id="+id,
		`{"similarDiseases": ["a", "B"], "refined_symptoms": "itching at night"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{"updated": true}, decode(t, resp))

	session, err := svc.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, session.Context.SimilarDiseases)
	require.NotNil(t, session.Context.RefinedSymptoms)
	assert.Equal(t, "itching at night", *session.Context.RefinedSymptoms)

	resp = do(r, http.MethodPost, "/session/append-context", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(r, http.MethodPost, "/session/append-context?session_id=missing", `{"summary": "x"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(r, http.MethodPost, "/session/append-context?session_id="+id, `{"summary": ["not", {"a": 1}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
