package stream

import (
	"encoding/json"
	"fmt"
)

type FrameType string

const (
	FrameConversation     FrameType = "conversation"
	FrameError            FrameType = "error"
	FrameStreamEnd        FrameType = "stream_end"
	FrameCompletedMessage FrameType = "completed_message"
	FrameMessageDelta     FrameType = "message_delta"
	FrameGeneric          FrameType = "generic"
)

// DefaultSubMessageID is used when a delta frame carries no id.
const DefaultSubMessageID = "default"

// Frame is one decoded record from the stream. Exactly one variant applies,
// selected by Type; the other fields are only meaningful for their variant.
type Frame struct {
	Type           FrameType
	ConversationID string
	ErrorMessage   string
	SubMessageID   string
	Content        string
}

// envelope mirrors the wire shape of a single "data: " payload.
type envelope struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Error          *struct {
		Message string `json:"message"`
	} `json:"error"`
	ID      string `json:"id"`
	Content string `json:"content"`
}

// ParseFrame decodes one payload into a Frame. Unrecognized type values fall
// back to the generic variant rather than failing; only malformed JSON is an
// error, and callers are expected to skip the payload and keep reading.
func ParseFrame(payload string) (Frame, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	switch FrameType(env.Type) {
	case FrameConversation:
		return Frame{Type: FrameConversation, ConversationID: env.ConversationID}, nil
	case FrameError:
		var msg string
		if env.Error != nil {
			msg = env.Error.Message
		}
		return Frame{Type: FrameError, ErrorMessage: msg}, nil
	case FrameStreamEnd:
		return Frame{Type: FrameStreamEnd}, nil
	case FrameCompletedMessage:
		return Frame{Type: FrameCompletedMessage, Content: env.Content}, nil
	case FrameMessageDelta:
		id := env.ID
		if id == "" {
			id = DefaultSubMessageID
		}
		return Frame{Type: FrameMessageDelta, SubMessageID: id, Content: env.Content}, nil
	default:
		return Frame{Type: FrameGeneric, Content: env.Content}, nil
	}
}
