package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bz888/parley/internal/api/server/client"
	"github.com/bz888/parley/internal/logger"
)

// ChatHandler streams one conversational turn as newline-delimited
// `data: <json>` records: a conversation frame first, then message_delta
// frames as the upstream model produces text, a completed_message with the
// full accumulated text, and stream_end last. An upstream failure becomes an
// error frame followed by stream_end; the connection itself stays 200.
func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	localLogger := logger.NewLogger("chat handler")

	var chatReq ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&chatReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	conversationID := chatReq.ConversationID
	if conversationID != "" {
		exists, err := h.store.ConversationExists(conversationID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !exists {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
	} else {
		conversation, err := h.store.CreateConversation("")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		conversationID = conversation.ID
	}

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Content-Type", "text/event-stream")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	writeEvent(w, flusher, sseEvent{Type: "conversation", ConversationID: conversationID})

	for _, msg := range chatReq.Messages {
		if _, err := h.store.AppendMessage(conversationID, msg.Role, msg.Content, nil); err != nil {
			localLogger.Error("Failed to persist user message: ", err)
		}
	}

	history, err := h.store.GetMessages(conversationID, 200, 0)
	if err != nil {
		localLogger.Error("Failed to load history: ", err)
		writeEvent(w, flusher, sseEvent{Type: "error", Error: &sseError{Message: err.Error()}})
		writeEvent(w, flusher, sseEvent{Type: "stream_end"})
		return
	}

	apiReq := client.OllamaChatRequest{
		Model:  h.model,
		Stream: true,
	}
	for _, msg := range history {
		apiReq.Messages = append(apiReq.Messages, client.OllamaMessage{Role: msg.Role, Content: msg.Content})
	}

	var accumulated strings.Builder
	err = h.upstream.Chat(r.Context(), &apiReq, func(bts []byte) error {
		var apiResp client.OllamaAPIResponse
		if err := json.Unmarshal(bts, &apiResp); err != nil {
			localLogger.Error("Failed to unmarshal upstream response: ", err)
			localLogger.Error("Raw response data: ", string(bts))
			return err
		}

		if apiResp.Message.Content != "" {
			accumulated.WriteString(apiResp.Message.Content)
			if err := writeEvent(w, flusher, sseEvent{
				Type:    "message_delta",
				Content: strPtr(apiResp.Message.Content),
			}); err != nil {
				return err
			}
		}
		if apiResp.Done {
			localLogger.Info("Completed upstream response")
		}
		return nil
	})

	if err != nil {
		localLogger.Error("Upstream chat failed: ", err)
		writeEvent(w, flusher, sseEvent{Type: "error", Error: &sseError{Message: err.Error()}})
		writeEvent(w, flusher, sseEvent{Type: "stream_end"})
		return
	}

	writeEvent(w, flusher, sseEvent{Type: "completed_message", Content: strPtr(accumulated.String())})

	if accumulated.Len() > 0 {
		if _, err := h.store.AppendMessage(conversationID, "assistant", accumulated.String(), nil); err != nil {
			localLogger.Error("Failed to persist assistant message: ", err)
		}
	}

	writeEvent(w, flusher, sseEvent{Type: "stream_end"})
}
