package client

import (
	"net/http"
	"net/url"
)

// Client represents a client for an upstream model API
type Client struct {
	base    *url.URL
	http    *http.Client
	chatUrl *url.URL
	tagsUrl *url.URL
}

// ClientConfig holds the configuration for the client
type ClientConfig struct {
	Scheme   string
	Host     string
	ChatPath string
	TagsPath string
}

// NewClient creates a new upstream client with configurable base URL and endpoints
func NewClient(config ClientConfig) *Client {
	baseURL := &url.URL{Scheme: config.Scheme, Host: config.Host}
	return &Client{
		base:    baseURL,
		http:    &http.Client{},
		chatUrl: baseURL.ResolveReference(&url.URL{Path: config.ChatPath}),
		tagsUrl: baseURL.ResolveReference(&url.URL{Path: config.TagsPath}),
	}
}

func (c *Client) GetChatURL() string {
	return c.chatUrl.String()
}

func (c *Client) GetTagsURL() string {
	return c.tagsUrl.String()
}
