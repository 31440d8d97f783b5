package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bz888/parley/internal/logger"
)

// OllamaClient represents a client for the Ollama API
type OllamaClient struct {
	Client
}

type OllamaClientInterface interface {
	Available() bool
	Chat(ctx context.Context, req *OllamaChatRequest, fn func([]byte) error) error
}

// NewOllamaClient creates a new Ollama API client
func NewOllamaClient(host string) *OllamaClient {
	return &OllamaClient{
		Client: *NewClient(ClientConfig{
			Scheme:   "http",
			Host:     host,
			ChatPath: "/api/chat",
			TagsPath: "/api/tags",
		}),
	}
}

type OllamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []OllamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type OllamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OllamaAPIResponse struct {
	Message OllamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Available reports whether the upstream server answers at all.
func (c *OllamaClient) Available() bool {
	resp, err := c.http.Get(c.base.String())
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *OllamaClient) Chat(ctx context.Context, req *OllamaChatRequest, fn func([]byte) error) error {
	return c.stream(ctx, req, fn)
}

func (c *OllamaClient) stream(ctx context.Context, data *OllamaChatRequest, fn func([]byte) error) error {
	localLogger := logger.NewLogger("ollama stream chat")
	var buf *bytes.Buffer
	if data != nil {
		bts, err := json.Marshal(data)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(bts)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GetChatURL(), buf)
	if err != nil {
		localLogger.Error("Failed to request on ollama chat: ", err)
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/x-ndjson")
	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(response.Body)
		localLogger.Error("Received error response: ", string(body))
		return errors.New("upstream chat failed: " + response.Status)
	}

	scanner := bufio.NewScanner(response.Body)
	for scanner.Scan() {
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}
