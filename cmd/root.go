package cmd

import (
	"log"

	"github.com/bz888/parley/internal/api/server"
	"github.com/bz888/parley/internal/config"
	"github.com/bz888/parley/internal/logger"
	"github.com/bz888/parley/internal/ui"
)

func init() {
	config.Init()
}

func Execute() {
	ui.Init()
	debugConsole, err := ui.GetDebugConsole()

	if err != nil {
		log.Fatal(err)
	}

	logger.InitLogger(config.Dev, config.LogPath, debugConsole)

	server.Init()

	go server.Run()
	ui.Run()
}
