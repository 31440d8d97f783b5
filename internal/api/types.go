package api

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of the turn request body.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat. An empty ConversationID asks the
// server to create a conversation for this turn.
type ChatRequest struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []ChatMessage `json:"messages"`
}

type Conversation struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	LastMessage string `json:"last_message"`
}

type ConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type MessageMetadata struct {
	Thoughts []string `json:"thoughts,omitempty"`
}

type Message struct {
	ID        int64            `json:"id"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt string           `json:"created_at"`
}

type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

type ConversationCreate struct {
	Title string `json:"title,omitempty"`
}
