package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"study-assistant-be/internal/dto"
	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubChatService struct {
	askReq     *dto.ChatRequest
	askUser    string
	askRes     *dto.ChatResponse
	askErr     error
	historyArg [3]string
	historyRes *dto.ChatHistoryResponse
	historyErr error
	listRes    []*dto.MyConversationResponse
	deleteArg  [2]string
	deleteErr  error
}

func (s *stubChatService) Ask(_ context.Context, userId string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	s.askUser, s.askReq = userId, req
	return s.askRes, s.askErr
}

func (s *stubChatService) GetHistory(_ context.Context, userId, noteId, conversationId string) (*dto.ChatHistoryResponse, error) {
	s.historyArg = [3]string{userId, noteId, conversationId}
	return s.historyRes, s.historyErr
}

func (s *stubChatService) ListMyConversations(_ context.Context, userId string) ([]*dto.MyConversationResponse, error) {
	return s.listRes, nil
}

func (s *stubChatService) DeleteConversation(_ context.Context, userId, conversationId string) error {
	s.deleteArg = [2]string{userId, conversationId}
	return s.deleteErr
}

func newTestApp(svc *stubChatService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(logger.NewNopLogger()))
	api := app.Group("/api", serverutils.NewJwtMiddleware(testSecret))
	NewChatController(svc).RegisterRoutes(api)
	NewConversationController(svc).RegisterRoutes(api)
	return app
}

func bearer(t *testing.T, userId string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId,
		"email":   userId + "@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func do(t *testing.T, app *fiber.App, method, target, body, auth string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestAskEndpoint(t *testing.T) {
	svc := &stubChatService{askRes: &dto.ChatResponse{
		Answer:       "X is a thing.",
		Conversation: dto.ChatConversationRef{Id: "c1", ConversationTitle: "About X"},
	}}
	app := newTestApp(svc)

	status, body := do(t, app, http.MethodPost, "/api/chat", `{"question":"What is X?","noteId":"n1"}`, bearer(t, "u1"))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "X is a thing.", data["answer"])
	conv := data["conversation"].(map[string]interface{})
	assert.Equal(t, "c1", conv["_id"])
	assert.Equal(t, "About X", conv["conversationTitle"])
	assert.Equal(t, "u1", svc.askUser)
	assert.Equal(t, "n1", svc.askReq.NoteId)
}

func TestAskEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		auth       bool
		svcErr     error
		wantStatus int
		wantError  string
	}{
		{"no token", `{"question":"q","noteId":"n1"}`, false, nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"missing question", `{"noteId":"n1"}`, true, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"broken json", `{"question":`, true, nil, http.StatusBadRequest, "Bad Request"},
		{"generation failure", `{"question":"q","noteId":"n1"}`, true, apperror.Generation("failed to generate answer", errors.New("503")), http.StatusBadRequest, "GENERATION_ERROR"},
		{"store failure", `{"question":"q","noteId":"n1"}`, true, apperror.Store("failed to append message", errors.New("timeout")), http.StatusBadRequest, "STORE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&stubChatService{askErr: tt.svcErr, askRes: &dto.ChatResponse{}})
			auth := ""
			if tt.auth {
				auth = bearer(t, "u1")
			}

			status, body := do(t, app, http.MethodPost, "/api/chat", tt.body, auth)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestAskEndpointHidesInternalCause(t *testing.T) {
	app := newTestApp(&stubChatService{askErr: apperror.Store("failed to append message", errors.New("mongo: secret-host:27017 unreachable"))})

	_, body := do(t, app, http.MethodPost, "/api/chat", `{"question":"q","noteId":"n1"}`, bearer(t, "u1"))

	raw, _ := json.Marshal(body)
	assert.NotContains(t, string(raw), "secret-host")
}

func TestHistoryEndpoint(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &stubChatService{historyRes: &dto.ChatHistoryResponse{
		Conversation: dto.ChatConversationResponse{Id: "c1", ConversationTitle: "T"},
		Messages: []dto.ChatMessageResponse{
			{Id: "m1", Content: "q", Sender: "user", CreatedAt: at},
			{Id: "m2", Content: "a", Sender: "bot", CreatedAt: at},
		},
	}}
	app := newTestApp(svc)

	status, body := do(t, app, http.MethodGet, "/api/chat/n1?conversationId=c1", "", bearer(t, "u1"))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, [3]string{"u1", "n1", "c1"}, svc.historyArg)
	messages := body["data"].(map[string]interface{})["messages"].([]interface{})
	require.Len(t, messages, 2)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "m1", first["_id"])
	assert.Equal(t, "user", first["sender"])
	assert.Equal(t, "2024-01-02T03:04:05Z", first["createdAt"])
}

func TestHistoryEndpointNotFound(t *testing.T) {
	app := newTestApp(&stubChatService{historyErr: apperror.NotFound("conversation not found")})

	status, body := do(t, app, http.MethodGet, "/api/chat/n1", "", bearer(t, "u1"))

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "conversation not found", body["message"])
}

func TestConversationEndpoints(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &stubChatService{listRes: []*dto.MyConversationResponse{
		{Id: "c2", ConversationTitle: "Newer", CreatedBy: "u1", CreatedAt: at},
		{Id: "c1", ConversationTitle: "Older", CreatedBy: "u1", CreatedAt: at},
	}}
	app := newTestApp(svc)

	status, body := do(t, app, http.MethodGet, "/api/chat-conversations/me", "", bearer(t, "u1"))
	assert.Equal(t, http.StatusOK, status)
	list := body["data"].([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].(map[string]interface{})["id"])
	assert.Equal(t, "u1", list[0].(map[string]interface{})["createdBy"])

	status, _ = do(t, app, http.MethodDelete, "/api/chat-conversations/c1", "", bearer(t, "u1"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, [2]string{"u1", "c1"}, svc.deleteArg)

	svc.deleteErr = apperror.NotFound("conversation not found")
	status, _ = do(t, app, http.MethodDelete, "/api/chat-conversations/c1", "", bearer(t, "u2"))
	assert.Equal(t, http.StatusNotFound, status)
}
