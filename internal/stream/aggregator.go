package stream

import "strings"

type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateCompleted
	StateErrored
)

// RenderedMessage is the externally visible snapshot of one turn. There is
// exactly one per turn; snapshots are values and never mutated after return.
type RenderedMessage struct {
	ID          string
	Content     string
	Thoughts    []string
	IsStreaming bool
}

// Update is the result of folding one frame into the session.
type Update struct {
	Message     RenderedMessage
	Changed     bool
	RefreshList bool
	Done        bool
}

// subMessages is the insertion-ordered set of independently accumulating
// sub-message streams. It owns both the key set and the first-seen order;
// append is the only mutation point, so the two cannot drift apart.
type subMessages struct {
	order []string
	text  map[string]*strings.Builder
}

func newSubMessages() *subMessages {
	return &subMessages{text: make(map[string]*strings.Builder)}
}

func (s *subMessages) append(id, content string) {
	b, ok := s.text[id]
	if !ok {
		b = &strings.Builder{}
		s.text[id] = b
		s.order = append(s.order, id)
	}
	b.WriteString(content)
}

// thoughts returns the text of every sub-message except the last, in
// first-seen order. Recomputed on every call, never cached: a new id arriving
// after the current answer reclassifies the previous answer as a thought.
func (s *subMessages) thoughts() []string {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.order)-1)
	for _, id := range s.order[:len(s.order)-1] {
		out = append(out, s.text[id].String())
	}
	return out
}

// answer returns the text of the last sub-message seen.
func (s *subMessages) answer() string {
	if len(s.order) == 0 {
		return ""
	}
	return s.text[s.order[len(s.order)-1]].String()
}

// Aggregator folds an ordered sequence of frames into a RenderedMessage.
// States run Idle -> Accumulating -> {Completed | Errored}; once a terminal
// state is reached every later frame is ignored.
type Aggregator struct {
	state          State
	conversationID string
	parts          *subMessages
	generic        strings.Builder
	rendered       RenderedMessage
	messageID      string
	started        bool
	responding     bool
}

func NewAggregator(messageID string) *Aggregator {
	return &Aggregator{
		state:      StateIdle,
		parts:      newSubMessages(),
		messageID:  messageID,
		responding: true,
	}
}

func (a *Aggregator) State() State { return a.state }

func (a *Aggregator) ConversationID() string { return a.conversationID }

// IsResponding reports whether the turn is still expecting frames.
func (a *Aggregator) IsResponding() bool { return a.responding }

// Abort marks the session as no longer expecting frames without touching the
// rendered content. Transport failures and deliberate stops land here; the
// message keeps whatever was last rendered.
func (a *Aggregator) Abort() {
	a.responding = false
}

// ensureMessage creates the turn's RenderedMessage on the first frame that
// needs one. It is created once and updated in place, never duplicated.
func (a *Aggregator) ensureMessage() {
	if a.started {
		return
	}
	a.started = true
	a.rendered = RenderedMessage{ID: a.messageID, IsStreaming: true}
}

func (a *Aggregator) snapshot() RenderedMessage {
	msg := a.rendered
	if msg.Thoughts != nil {
		msg.Thoughts = append([]string(nil), msg.Thoughts...)
	}
	return msg
}

// Apply folds one frame into the session and returns the resulting snapshot.
// Each frame is fully processed before the next; a terminal state makes all
// later calls no-ops.
func (a *Aggregator) Apply(f Frame) Update {
	if a.state == StateCompleted || a.state == StateErrored {
		return Update{Done: true}
	}

	switch f.Type {
	case FrameConversation:
		a.conversationID = f.ConversationID
		return Update{}

	case FrameError:
		a.ensureMessage()
		a.rendered.Content = f.ErrorMessage
		a.rendered.IsStreaming = false
		a.responding = false
		a.state = StateErrored
		return Update{Message: a.snapshot(), Changed: true, Done: true}

	case FrameStreamEnd:
		a.responding = false
		a.state = StateCompleted
		if a.started {
			a.rendered.IsStreaming = false
		}
		return Update{Message: a.snapshot(), Changed: a.started, RefreshList: true, Done: true}

	case FrameCompletedMessage:
		a.ensureMessage()
		// Full replacement of whatever the deltas accumulated; thoughts are
		// snapshotted so the authoritative message keeps prior sub-messages.
		a.rendered.Content = f.Content
		a.rendered.Thoughts = a.parts.thoughts()
		a.rendered.IsStreaming = false
		a.responding = false
		a.state = StateAccumulating
		return Update{Message: a.snapshot(), Changed: true, RefreshList: true}

	case FrameMessageDelta:
		a.ensureMessage()
		a.parts.append(f.SubMessageID, f.Content)
		a.rendered.Content = a.parts.answer()
		a.rendered.Thoughts = a.parts.thoughts()
		a.rendered.IsStreaming = true
		a.responding = true
		a.state = StateAccumulating
		return Update{Message: a.snapshot(), Changed: true}

	case FrameGeneric:
		a.ensureMessage()
		a.generic.WriteString(f.Content)
		a.rendered.Content = a.generic.String()
		a.state = StateAccumulating
		return Update{Message: a.snapshot(), Changed: true}
	}

	return Update{}
}
