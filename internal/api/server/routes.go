package server

import (
	"net/http"

	"github.com/bz888/parley/internal/api/server/handlers"
)

func registerRoutes(mux *http.ServeMux, handler *handlers.Handler) {
	mux.HandleFunc("POST /chat", handler.ChatHandler)
	mux.HandleFunc("GET /conversations", handler.ListConversationsHandler)
	mux.HandleFunc("POST /conversations", handler.CreateConversationHandler)
	mux.HandleFunc("DELETE /conversations/{id}", handler.DeleteConversationHandler)
	mux.HandleFunc("GET /conversations/{id}/messages", handler.ListMessagesHandler)
}
