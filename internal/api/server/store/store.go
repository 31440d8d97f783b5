package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the persistence contract the handlers depend on.
type Store interface {
	ConversationExists(id string) (bool, error)
	CreateConversation(title string) (Conversation, error)
	GetConversation(id string) (Conversation, error)
	DeleteConversation(id string) error
	AppendMessage(conversationID, role, content string, metadata *Metadata) (int64, error)
	ListConversations(limit, offset int) ([]Conversation, error)
	GetMessages(conversationID string, limit, offset int) ([]Message, error)
	Close() error
}

type Conversation struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	LastMessage string `json:"last_message"`
}

type Metadata struct {
	Thoughts []string `json:"thoughts,omitempty"`
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"-"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Metadata       *Metadata `json:"metadata,omitempty"`
	CreatedAt      string    `json:"created_at"`
}

// SQLiteStore is the lightweight SQLite-backed chat persistence.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	title TEXT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	metadata TEXT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
ON messages(conversation_id, created_at, id);
`

// Open creates the database file (and its directory) if needed and ensures
// the schema exists.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ConversationExists(id string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM conversations WHERE id = ? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) CreateConversation(title string) (Conversation, error) {
	id := uuid.NewString()

	var t sql.NullString
	if title != "" {
		t = sql.NullString{String: title, Valid: true}
	}
	if _, err := s.db.Exec("INSERT INTO conversations (id, title) VALUES (?, ?)", id, t); err != nil {
		return Conversation{}, err
	}
	return s.GetConversation(id)
}

func (s *SQLiteStore) GetConversation(id string) (Conversation, error) {
	var c Conversation
	var title sql.NullString
	err := s.db.QueryRow(
		"SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?", id,
	).Scan(&c.ID, &title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Conversation{}, err
	}
	c.Title = title.String
	return c, nil
}

func (s *SQLiteStore) DeleteConversation(id string) error {
	_, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) AppendMessage(conversationID, role, content string, metadata *Metadata) (int64, error) {
	var metadataJSON sql.NullString
	if metadata != nil {
		bts, err := json.Marshal(metadata)
		if err != nil {
			return 0, err
		}
		metadataJSON = sql.NullString{String: string(bts), Valid: true}
	}

	res, err := s.db.Exec(
		"INSERT INTO messages (conversation_id, role, content, metadata) VALUES (?, ?, ?, ?)",
		conversationID, role, content, metadataJSON,
	)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.Exec(
		"UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", conversationID,
	); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) ListConversations(limit, offset int) ([]Conversation, error) {
	rows, err := s.db.Query(`
		SELECT
			c.id,
			c.title,
			c.created_at,
			c.updated_at,
			(
				SELECT content
				FROM messages m
				WHERE m.conversation_id = c.id
				ORDER BY m.created_at DESC, m.id DESC
				LIMIT 1
			) AS last_message
		FROM conversations c
		ORDER BY c.updated_at DESC, c.created_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]Conversation, 0)
	for rows.Next() {
		var c Conversation
		var title, lastMessage sql.NullString
		if err := rows.Scan(&c.ID, &title, &c.CreatedAt, &c.UpdatedAt, &lastMessage); err != nil {
			return nil, err
		}
		c.Title = title.String
		c.LastMessage = lastMessage.String
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (s *SQLiteStore) GetMessages(conversationID string, limit, offset int) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, role, content, metadata, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`,
		conversationID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		var metadataJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &metadataJSON, &m.CreatedAt); err != nil {
			return nil, err
		}
		if metadataJSON.Valid {
			var metadata Metadata
			if err := json.Unmarshal([]byte(metadataJSON.String), &metadata); err == nil {
				m.Metadata = &metadata
			}
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
