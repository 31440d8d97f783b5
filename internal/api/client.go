package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bz888/parley/internal/config"
	"github.com/bz888/parley/internal/logger"
)

// Client talks to the chat server: one streaming /chat endpoint plus the
// conversation-management endpoints.
type Client struct {
	base *url.URL
	http *http.Client
}

// ClientConfig holds the configuration for the client
type ClientConfig struct {
	Scheme string
	Host   string
}

// NewClient creates a new API client with a configurable base URL
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		base: &url.URL{Scheme: cfg.Scheme, Host: cfg.Host},
		http: &http.Client{},
	}
}

// DefaultClient targets the host from the config flags.
func DefaultClient() *Client {
	return NewClient(ClientConfig{Scheme: "http", Host: config.ServerHost})
}

func (c *Client) resolve(path string) string {
	return c.base.ResolveReference(&url.URL{Path: path}).String()
}

// Chat posts a turn and returns the raw streamed response body. The caller
// owns the body and must close it on every exit path.
func (c *Client) Chat(ctx context.Context, chatReq ChatRequest) (io.ReadCloser, error) {
	requestData, err := json.Marshal(chatReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/chat"), bytes.NewBuffer(requestData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.New("chat request failed: " + resp.Status)
	}
	return resp.Body, nil
}

func (c *Client) ListConversations() ([]Conversation, error) {
	localLogger := logger.NewLogger("api client")

	req, err := http.NewRequest(http.MethodGet, c.resolve("/conversations"), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		localLogger.Error("Failed to perform conversations request: ", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		localLogger.Error("Failed to list conversations: ", resp.Status)
		return nil, errors.New("failed to list conversations: " + resp.Status)
	}

	var response ConversationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}
	return response.Conversations, nil
}

func (c *Client) CreateConversation(title string) (Conversation, error) {
	body, err := json.Marshal(ConversationCreate{Title: title})
	if err != nil {
		return Conversation{}, err
	}

	req, err := http.NewRequest(http.MethodPost, c.resolve("/conversations"), bytes.NewBuffer(body))
	if err != nil {
		return Conversation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Conversation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Conversation{}, errors.New("failed to create conversation: " + resp.Status)
	}

	var conversation Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conversation); err != nil {
		return Conversation{}, err
	}
	return conversation, nil
}

func (c *Client) DeleteConversation(id string) error {
	req, err := http.NewRequest(http.MethodDelete, c.resolve("/conversations/"+id), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to delete conversation %s: %s", id, resp.Status)
	}
	return nil
}

func (c *Client) GetMessages(conversationID string) ([]Message, error) {
	req, err := http.NewRequest(http.MethodGet, c.resolve("/conversations/"+conversationID+"/messages"), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("failed to fetch messages: " + resp.Status)
	}

	var response MessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}
	return response.Messages, nil
}
