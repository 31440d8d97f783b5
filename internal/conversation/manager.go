package conversation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bz888/parley/internal/api"
	"github.com/bz888/parley/internal/logger"
	"github.com/bz888/parley/internal/stream"
)

// errTurnDone stops the decode loop after a terminal frame. Not a failure.
var errTurnDone = errors.New("turn finished")

// errSuperseded stops a decode loop whose turn has been replaced by a newer
// send. Frames of a stale generation are dropped, never rendered.
var errSuperseded = errors.New("turn superseded")

// Manager runs at most one aggregation session at a time. Each send gets a
// generation token; starting a new turn cancels the previous context and
// bumps the generation, so a still-draining stream can no longer mutate
// visible state.
type Manager struct {
	client    *api.Client
	publisher *Publisher

	gen atomic.Int64

	mu             sync.Mutex
	cancel         context.CancelFunc
	conversationID string

	// OnTurnEnd runs after a turn stops consuming frames, on the turn's
	// goroutine, only if the turn is still current.
	OnTurnEnd func()
}

func NewManager(client *api.Client, publisher *Publisher) *Manager {
	return &Manager{
		client:    client,
		publisher: publisher,
	}
}

// SetConversation selects the conversation used by the next send. An empty id
// lets the server create a fresh conversation.
func (m *Manager) SetConversation(id string) {
	m.mu.Lock()
	m.conversationID = id
	m.mu.Unlock()
}

func (m *Manager) ConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversationID
}

func (m *Manager) current(gen int64) bool {
	return m.gen.Load() == gen
}

// Cancel aborts the in-flight turn, if any. Deliberate stop, not a failure:
// the rendered message keeps whatever was last applied.
func (m *Manager) Cancel() {
	m.gen.Add(1)
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()
}

// Send starts a new turn, superseding any turn still streaming.
func (m *Manager) Send(content string) {
	gen := m.gen.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	conversationID := m.conversationID
	m.mu.Unlock()

	turnID := uuid.NewString()
	go m.run(ctx, cancel, gen, turnID, conversationID, content)
}

func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, gen int64, turnID, conversationID, content string) {
	localLogger := logger.NewLogger("turn")
	defer cancel()
	defer func() {
		if m.current(gen) && m.OnTurnEnd != nil {
			m.OnTurnEnd()
		}
	}()

	chatReq := api.ChatRequest{
		ConversationID: conversationID,
		Messages:       []api.ChatMessage{{Role: api.RoleUser, Content: content}},
	}

	body, err := m.client.Chat(ctx, chatReq)
	if err != nil {
		localLogger.Error("Failed to start turn: ", err)
		return
	}
	defer func() {
		if err := body.Close(); err != nil {
			localLogger.Error("Failed to close response body: ", err)
		}
	}()

	agg := stream.NewAggregator(turnID)

	err = stream.Decode(ctx, body, func(payload string) error {
		if !m.current(gen) {
			return errSuperseded
		}

		frame, err := stream.ParseFrame(payload)
		if err != nil {
			// Corruption of one line must not end the turn.
			localLogger.Error("Skipping malformed payload: ", err)
			return nil
		}

		update := agg.Apply(frame)

		if frame.Type == stream.FrameConversation {
			m.mu.Lock()
			m.conversationID = agg.ConversationID()
			m.mu.Unlock()
		}

		if update.Changed && m.current(gen) {
			m.publisher.Apply(turnID, update.Message)
		}
		if update.RefreshList {
			m.publisher.RequestRefresh()
		}
		if update.Done {
			return errTurnDone
		}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errTurnDone):
	case errors.Is(err, errSuperseded), errors.Is(err, context.Canceled):
		agg.Abort()
		localLogger.Info("Turn aborted")
	default:
		// Transport failure: content stays as last rendered, nothing more is
		// surfaced to the message.
		agg.Abort()
		localLogger.Error("Failed to read stream: ", err)
	}
}
