package config

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
)

var (
	Dev          bool
	LogPath      string
	Port         int
	ServerHost   string
	DBPath       string
	UpstreamHost string
	Model        string
)

func Init() {
	godotenv.Load()

	flag.BoolVar(&Dev, "dev", false, "Development mode")
	flag.StringVar(&LogPath, "logPath", "", "Path to save the log file")
	flag.IntVar(&Port, "port", 8080, "Port for the local chat server")
	flag.StringVar(&ServerHost, "server", "localhost:8080", "Host of the chat server")
	flag.StringVar(&DBPath, "db", "data/parley.db", "Path to the conversation database")
	flag.StringVar(&UpstreamHost, "upstream", envOr("OLLAMA_HOST", "localhost:11434"), "Host of the upstream model server")
	flag.StringVar(&Model, "model", envOr("PARLEY_MODEL", "llama3:latest"), "Model requested from the upstream server")
	flag.Parse()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
