package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bz888/parley/internal/api/server/client"
	"github.com/bz888/parley/internal/api/server/store"
)

type Handler struct {
	store    store.Store
	upstream client.OllamaClientInterface
	model    string
}

func NewHandler(chatStore store.Store, upstream client.OllamaClientInterface, model string) *Handler {
	return &Handler{
		store:    chatStore,
		upstream: upstream,
		model:    model,
	}
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []ChatMessage `json:"messages"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// sseEvent is the wire shape of one "data: " record. Pointers keep the fields
// that are absent for a frame type off the wire entirely.
type sseEvent struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Error          *sseError `json:"error,omitempty"`
	ID             string    `json:"id,omitempty"`
	Content        *string   `json:"content,omitempty"`
}

type sseError struct {
	Message string `json:"message"`
}

func strPtr(s string) *string { return &s }

// writeEvent serializes one frame as `data: <json>\n\n` and flushes it out.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event sseEvent) error {
	bts, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", bts); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
