package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/legal-assistant/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/legal-assistant/backend/internal/service/chat"
)

func setupRouter(opts ...chatservice.Option) (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService(opts...)
	handler := New(chatSvc, nil)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	resp := doJSON(t, r, http.MethodPost, "/session", nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var session model.Session
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &session))
	require.NotEmpty(t, session.ID)
	return session.ID
}

func TestCreateSession(t *testing.T) {
	r, svc := setupRouter()
	createSession(t, r)
	assert.Equal(t, 1, svc.Count())
}

func TestCreateSessionAtCapacity(t *testing.T) {
	r, _ := setupRouter(chatservice.WithMaxSessions(1))
	createSession(t, r)

	resp := doJSON(t, r, http.MethodPost, "/session", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := setupRouter()

	resp := doJSON(t, r, http.MethodGet, "/session/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"session not found"}`, resp.Body.String())
}

func TestSubmitWithoutContext(t *testing.T) {
	r, _ := setupRouter()
	id := createSession(t, r)

	resp := doJSON(t, r, http.MethodPut, "/session/"+id+"/question", map[string]string{"text": "What is consideration?"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, r, http.MethodPost, "/session/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var result struct {
		Appended []map[string]any `json:"appended"`
		Snapshot model.Snapshot   `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Len(t, result.Appended, 2)

	user := result.Appended[0]
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "What is consideration?", user["content"])
	assert.NotContains(t, user, "context")
	assert.NotContains(t, user, "legalReference")

	bot := result.Appended[1]
	assert.Equal(t, "bot", bot["role"])
	assert.Equal(t, map[string]any{
		"law":       "Indian Contract Act, 1872",
		"reference": "Section 10 - All agreements are contracts if they are made by the free consent of parties competent to contract, for a lawful consideration and with a lawful object.",
	}, bot["legalReference"])

	assert.Equal(t, model.Composer{}, result.Snapshot.Composer)
}

func TestSubmitBlankQuestionIsIgnored(t *testing.T) {
	r, _ := setupRouter()
	id := createSession(t, r)

	doJSON(t, r, http.MethodPut, "/session/"+id+"/question", map[string]string{"text": "  "})
	resp := doJSON(t, r, http.MethodPost, "/session/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var result chatservice.SubmitResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Empty(t, result.Appended)
	assert.Empty(t, result.Snapshot.Messages)

	resp = doJSON(t, r, http.MethodGet, "/session/"+id+"/messages", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
}

func TestContextFlow(t *testing.T) {
	r, _ := setupRouter()
	id := createSession(t, r)

	resp := doJSON(t, r, http.MethodPut, "/session/"+id+"/context", map[string]string{"text": "too early"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = doJSON(t, r, http.MethodPut, "/session/"+id+"/context-editor", map[string]bool{"visible": true})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, r, http.MethodPut, "/session/"+id+"/context", map[string]string{"text": "Loan agreement dispute"})
	require.Equal(t, http.StatusOK, resp.Code)

	doJSON(t, r, http.MethodPut, "/session/"+id+"/question", map[string]string{"text": "Is it enforceable?"})
	resp = doJSON(t, r, http.MethodPost, "/session/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, r, http.MethodGet, "/session/"+id+"/messages", nil)
	var messages []model.Message
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "Loan agreement dispute", messages[0].Context)
	assert.Empty(t, messages[1].Context)

	resp = doJSON(t, r, http.MethodGet, "/session/"+id, nil)
	var snapshot model.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snapshot))
	assert.False(t, snapshot.Composer.ContextVisible)
	assert.Empty(t, snapshot.Composer.Context)
}

func TestToggleContextEditorRequiresVisible(t *testing.T) {
	r, _ := setupRouter()
	id := createSession(t, r)

	resp := doJSON(t, r, http.MethodPut, "/session/"+id+"/context-editor", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestInvalidBody(t *testing.T) {
	r, _ := setupRouter()
	id := createSession(t, r)

	req := httptest.NewRequest(http.MethodPut, "/session/"+id+"/question", bytes.NewReader([]byte("{")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCloseSession(t *testing.T) {
	r, svc := setupRouter()
	id := createSession(t, r)

	resp := doJSON(t, r, http.MethodDelete, "/session/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Zero(t, svc.Count())

	resp = doJSON(t, r, http.MethodDelete, "/session/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestOversizedBodyRejected(t *testing.T) {
	r, svc := setupRouter()
	id := createSession(t, r)

	resp := doJSON(t, r, http.MethodPut, "/session/"+id+"/question", map[string]string{
		"text": strings.Repeat("a", maxBodyBytes+1),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)

	snapshot, err := svc.Snapshot(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Composer.Question)
}
