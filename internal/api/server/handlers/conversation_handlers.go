package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bz888/parley/internal/api/server/store"
	"github.com/bz888/parley/internal/logger"
)

type conversationsResponse struct {
	Conversations []store.Conversation `json:"conversations"`
}

type messagesResponse struct {
	Messages []store.Message `json:"messages"`
}

type conversationCreate struct {
	Title string `json:"title"`
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response: "+err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.store.ListConversations(queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, conversationsResponse{Conversations: conversations})
}

func (h *Handler) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	localLogger := logger.NewLogger("conversations handler")

	var req conversationCreate
	if r.Body != nil {
		// An empty or absent body means an untitled conversation.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			localLogger.Info("No create body supplied")
		}
		r.Body.Close()
	}

	conversation, err := h.store.CreateConversation(req.Title)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, conversation)
}

func (h *Handler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	exists, err := h.store.ConversationExists(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	if err := h.store.DeleteConversation(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	exists, err := h.store.ConversationExists(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	messages, err := h.store.GetMessages(id, queryInt(r, "limit", 200), queryInt(r, "offset", 0))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, messagesResponse{Messages: messages})
}
