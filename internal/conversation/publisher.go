package conversation

import (
	"sync"

	"github.com/bz888/parley/internal/logger"
	"github.com/bz888/parley/internal/stream"
)

// Entry is one externally visible turn.
type Entry struct {
	TurnID  string
	Message stream.RenderedMessage
}

// Publisher owns the ordered list of visible turn entries. Snapshots for a
// turn replace that turn's entry in place, so the list grows by exactly one
// entry per turn no matter how many deltas stream in.
type Publisher struct {
	mu       sync.Mutex
	entries  []Entry
	refresh  func() error
	onRender func(Entry)
}

// NewPublisher wires the publisher to its collaborators: refresh re-fetches
// the conversation summary list, onRender receives every applied snapshot.
func NewPublisher(refresh func() error, onRender func(Entry)) *Publisher {
	return &Publisher{
		refresh:  refresh,
		onRender: onRender,
	}
}

// Apply folds a snapshot into the visible list.
func (p *Publisher) Apply(turnID string, msg stream.RenderedMessage) {
	p.mu.Lock()
	entry := Entry{TurnID: turnID, Message: msg}
	if n := len(p.entries); n > 0 && p.entries[n-1].TurnID == turnID {
		p.entries[n-1] = entry
	} else {
		p.entries = append(p.entries, entry)
	}
	p.mu.Unlock()

	if p.onRender != nil {
		p.onRender(entry)
	}
}

// Entries returns a copy of the visible turn entries.
func (p *Publisher) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Entry(nil), p.entries...)
}

// RequestRefresh triggers the conversation-summary refresh without blocking
// the decode loop. A failed refresh is logged and nothing else.
func (p *Publisher) RequestRefresh() {
	if p.refresh == nil {
		return
	}
	go func() {
		if err := p.refresh(); err != nil {
			logger.NewLogger("publisher").Error("Failed to refresh conversations: ", err)
		}
	}()
}
