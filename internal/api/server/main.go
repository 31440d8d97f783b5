package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/bz888/parley/internal/api/server/client"
	"github.com/bz888/parley/internal/api/server/handlers"
	"github.com/bz888/parley/internal/api/server/store"
	"github.com/bz888/parley/internal/config"
	"github.com/bz888/parley/internal/logger"
)

var LocalLogger *logger.Logger

func Init() {
	LocalLogger = logger.NewLogger("Server")
}

func Run() {
	handler, chatStore, err := initialize()
	if err != nil {
		log.Fatal(err)
	}
	defer chatStore.Close()

	mux := http.NewServeMux()
	registerRoutes(mux, handler)

	address := ":" + strconv.Itoa(config.Port)
	LocalLogger.Info("Server started on http://localhost" + address + "/")
	if err := http.ListenAndServe(address, mux); err != nil {
		log.Fatal("Error starting server: ", err)
	}
}

func initialize() (*handlers.Handler, store.Store, error) {
	chatStore, err := store.Open(config.DBPath)
	if err != nil {
		return nil, nil, err
	}
	LocalLogger.Info("Chat store opened at ", config.DBPath)

	upstream := client.NewOllamaClient(config.UpstreamHost)
	if !upstream.Available() {
		chatStore.Close()
		return nil, nil, errors.New("upstream model server not available at " + config.UpstreamHost)
	}
	LocalLogger.Info("Upstream client initialized for ", config.UpstreamHost)

	return handlers.NewHandler(chatStore, upstream, config.Model), chatStore, nil
}
