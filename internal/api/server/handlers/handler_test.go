package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bz888/parley/internal/api/server/client"
	"github.com/bz888/parley/internal/api/server/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ConversationExists(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CreateConversation(title string) (store.Conversation, error) {
	args := m.Called(title)
	return args.Get(0).(store.Conversation), args.Error(1)
}

func (m *MockStore) GetConversation(id string) (store.Conversation, error) {
	args := m.Called(id)
	return args.Get(0).(store.Conversation), args.Error(1)
}

func (m *MockStore) DeleteConversation(id string) error {
	return m.Called(id).Error(0)
}

func (m *MockStore) AppendMessage(conversationID, role, content string, metadata *store.Metadata) (int64, error) {
	args := m.Called(conversationID, role, content, metadata)
	return int64(args.Int(0)), args.Error(1)
}

func (m *MockStore) ListConversations(limit, offset int) ([]store.Conversation, error) {
	args := m.Called(limit, offset)
	return args.Get(0).([]store.Conversation), args.Error(1)
}

func (m *MockStore) GetMessages(conversationID string, limit, offset int) ([]store.Message, error) {
	args := m.Called(conversationID, limit, offset)
	return args.Get(0).([]store.Message), args.Error(1)
}

func (m *MockStore) Close() error {
	return nil
}

// fakeUpstream replays canned NDJSON chunks through the handler's callback.
type fakeUpstream struct {
	chunks []string
	err    error
}

func (f *fakeUpstream) Available() bool { return true }

func (f *fakeUpstream) Chat(ctx context.Context, req *client.OllamaChatRequest, fn func([]byte) error) error {
	for _, chunk := range f.chunks {
		if err := fn([]byte(chunk)); err != nil {
			return err
		}
	}
	return f.err
}

// decodeEvents parses a recorded SSE body back into its event maps.
func decodeEvents(t *testing.T, body string) []map[string]any {
	t.Helper()

	var events []map[string]any
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		events = append(events, event)
	}
	return events
}

func eventTypes(events []map[string]any) []string {
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event["type"].(string))
	}
	return types
}

func TestChatHandlerStreamsTurn(t *testing.T) {
	mockStore := new(MockStore)
	mockStore.On("ConversationExists", "c-1").Return(true, nil)
	mockStore.On("AppendMessage", "c-1", "user", "hi", (*store.Metadata)(nil)).Return(1, nil)
	mockStore.On("GetMessages", "c-1", 200, 0).Return([]store.Message{
		{Role: "user", Content: "hi"},
	}, nil)
	mockStore.On("AppendMessage", "c-1", "assistant", "Hello there", (*store.Metadata)(nil)).Return(2, nil)

	upstream := &fakeUpstream{chunks: []string{
		`{"message":{"role":"assistant","content":"Hello "},"done":false}`,
		`{"message":{"role":"assistant","content":"there"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	}}

	handler := NewHandler(mockStore, upstream, "llama3:latest")

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(
		`{"conversation_id":"c-1","messages":[{"role":"user","content":"hi"}]}`,
	))
	rec := httptest.NewRecorder()

	handler.ChatHandler(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := decodeEvents(t, rec.Body.String())
	assert.Equal(t, []string{
		"conversation", "message_delta", "message_delta", "completed_message", "stream_end",
	}, eventTypes(events))

	assert.Equal(t, "c-1", events[0]["conversation_id"])
	assert.Equal(t, "Hello ", events[1]["content"])
	assert.Equal(t, "there", events[2]["content"])
	assert.Equal(t, "Hello there", events[3]["content"])

	mockStore.AssertExpectations(t)
}

func TestChatHandlerCreatesConversationWhenMissing(t *testing.T) {
	mockStore := new(MockStore)
	mockStore.On("CreateConversation", "").Return(store.Conversation{ID: "c-new"}, nil)
	mockStore.On("AppendMessage", "c-new", "user", "hi", (*store.Metadata)(nil)).Return(1, nil)
	mockStore.On("GetMessages", "c-new", 200, 0).Return([]store.Message{}, nil)

	upstream := &fakeUpstream{err: errors.New("model not loaded")}
	handler := NewHandler(mockStore, upstream, "llama3:latest")

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(
		`{"messages":[{"role":"user","content":"hi"}]}`,
	))
	rec := httptest.NewRecorder()

	handler.ChatHandler(rec, req)

	events := decodeEvents(t, rec.Body.String())
	assert.Equal(t, []string{"conversation", "error", "stream_end"}, eventTypes(events))
	assert.Equal(t, "c-new", events[0]["conversation_id"])

	detail := events[1]["error"].(map[string]any)
	assert.Contains(t, detail["message"], "model not loaded")

	mockStore.AssertExpectations(t)
}

func TestChatHandlerUnknownConversation(t *testing.T) {
	mockStore := new(MockStore)
	mockStore.On("ConversationExists", "ghost").Return(false, nil)

	handler := NewHandler(mockStore, &fakeUpstream{}, "llama3:latest")

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(
		`{"conversation_id":"ghost","messages":[]}`,
	))
	rec := httptest.NewRecorder()

	handler.ChatHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConversationsHandler(t *testing.T) {
	mockStore := new(MockStore)
	mockStore.On("ListConversations", 20, 0).Return([]store.Conversation{
		{ID: "c-1", Title: "First"},
	}, nil)

	handler := NewHandler(mockStore, &fakeUpstream{}, "llama3:latest")

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()

	handler.ListConversationsHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response conversationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Conversations, 1)
	assert.Equal(t, "First", response.Conversations[0].Title)
}

func TestDeleteConversationHandler(t *testing.T) {
	mockStore := new(MockStore)
	mockStore.On("ConversationExists", "c-1").Return(true, nil)
	mockStore.On("DeleteConversation", "c-1").Return(nil)

	handler := NewHandler(mockStore, &fakeUpstream{}, "llama3:latest")

	req := httptest.NewRequest(http.MethodDelete, "/conversations/c-1", nil)
	req.SetPathValue("id", "c-1")
	rec := httptest.NewRecorder()

	handler.DeleteConversationHandler(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	mockStore.AssertExpectations(t)
}

func TestListMessagesHandlerNotFound(t *testing.T) {
	mockStore := new(MockStore)
	mockStore.On("ConversationExists", "ghost").Return(false, nil)

	handler := NewHandler(mockStore, &fakeUpstream{}, "llama3:latest")

	req := httptest.NewRequest(http.MethodGet, "/conversations/ghost/messages", nil)
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()

	handler.ListMessagesHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
