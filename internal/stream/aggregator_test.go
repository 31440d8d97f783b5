package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func delta(id, content string) Frame {
	return Frame{Type: FrameMessageDelta, SubMessageID: id, Content: content}
}

func TestAggregatorThoughtsBeforeAnswer(t *testing.T) {
	agg := NewAggregator("m1")

	agg.Apply(delta("t1", "first "))
	agg.Apply(delta("t1", "thought"))
	agg.Apply(delta("t2", "second thought"))
	agg.Apply(delta("a1", "the "))
	update := agg.Apply(delta("a1", "answer"))

	assert.True(t, update.Changed)
	assert.Equal(t, []string{"first thought", "second thought"}, update.Message.Thoughts)
	assert.Equal(t, "the answer", update.Message.Content)
	assert.True(t, update.Message.IsStreaming)
	assert.Equal(t, StateAccumulating, agg.State())
}

func TestAggregatorReclassifiesPreviousAnswer(t *testing.T) {
	agg := NewAggregator("m1")

	update := agg.Apply(delta("a1", "was the answer"))
	assert.Empty(t, update.Message.Thoughts)
	assert.Equal(t, "was the answer", update.Message.Content)

	// A brand-new id after the current answer demotes it to a thought on the
	// very next render.
	update = agg.Apply(delta("a2", "new answer"))
	assert.Equal(t, []string{"was the answer"}, update.Message.Thoughts)
	assert.Equal(t, "new answer", update.Message.Content)
}

func TestAggregatorCompletedMessageReplacesContent(t *testing.T) {
	agg := NewAggregator("m1")

	agg.Apply(delta("t1", "thinking"))
	agg.Apply(delta("a1", "partial answ"))

	completed := Frame{Type: FrameCompletedMessage, Content: "final answer"}

	update := agg.Apply(completed)
	assert.Equal(t, "final answer", update.Message.Content)
	assert.Equal(t, []string{"thinking"}, update.Message.Thoughts)
	assert.False(t, update.Message.IsStreaming)
	assert.True(t, update.RefreshList)
	assert.False(t, update.Done)
	assert.False(t, agg.IsResponding())

	// Idempotent: applying the identical frame again yields the same content,
	// with no duplication and no accumulated-delta text bleeding through.
	update = agg.Apply(completed)
	assert.Equal(t, "final answer", update.Message.Content)
	assert.Equal(t, []string{"thinking"}, update.Message.Thoughts)
}

func TestAggregatorErrorIsTerminal(t *testing.T) {
	agg := NewAggregator("m1")

	agg.Apply(delta("a1", "partial"))
	update := agg.Apply(Frame{Type: FrameError, ErrorMessage: "server exploded"})

	assert.True(t, update.Done)
	assert.Equal(t, "server exploded", update.Message.Content)
	assert.False(t, update.Message.IsStreaming)
	assert.False(t, agg.IsResponding())
	assert.Equal(t, StateErrored, agg.State())

	// Frames after the error are ignored and do not change the message.
	update = agg.Apply(delta("a1", " more text"))
	assert.False(t, update.Changed)
	assert.True(t, update.Done)
}

func TestAggregatorErrorAsFirstFrameCreatesMessage(t *testing.T) {
	agg := NewAggregator("m1")

	update := agg.Apply(Frame{Type: FrameError, ErrorMessage: "denied"})

	assert.True(t, update.Changed)
	assert.Equal(t, "m1", update.Message.ID)
	assert.Equal(t, "denied", update.Message.Content)
}

func TestAggregatorStreamEndCompletes(t *testing.T) {
	agg := NewAggregator("m1")

	agg.Apply(delta("t1", "thinking..."))
	agg.Apply(delta("a1", "The answer is "))
	agg.Apply(delta("a1", "42."))
	update := agg.Apply(Frame{Type: FrameStreamEnd})

	assert.True(t, update.Done)
	assert.True(t, update.RefreshList)
	assert.Equal(t, []string{"thinking..."}, update.Message.Thoughts)
	assert.Equal(t, "The answer is 42.", update.Message.Content)
	assert.False(t, update.Message.IsStreaming)
	assert.False(t, agg.IsResponding())
	assert.Equal(t, StateCompleted, agg.State())
}

func TestAggregatorConversationFrame(t *testing.T) {
	agg := NewAggregator("m1")

	update := agg.Apply(Frame{Type: FrameConversation, ConversationID: "c-9"})

	assert.Equal(t, "c-9", agg.ConversationID())
	assert.False(t, update.Changed)
	assert.Equal(t, StateIdle, agg.State())
}

func TestAggregatorGenericAccumulates(t *testing.T) {
	agg := NewAggregator("m1")

	agg.Apply(delta("t1", "a thought"))
	agg.Apply(delta("a1", "answer"))
	agg.Apply(Frame{Type: FrameGeneric, Content: "legacy "})
	update := agg.Apply(Frame{Type: FrameGeneric, Content: "text"})

	assert.Equal(t, "legacy text", update.Message.Content)
	// Generic frames leave the prior thought computation untouched.
	assert.Equal(t, []string{"a thought"}, update.Message.Thoughts)
}

func TestAggregatorAbortStopsResponding(t *testing.T) {
	agg := NewAggregator("m1")

	agg.Apply(delta("a1", "partial"))
	agg.Abort()

	assert.False(t, agg.IsResponding())
}

func TestAggregatorSnapshotsAreIndependent(t *testing.T) {
	agg := NewAggregator("m1")

	agg.Apply(delta("t1", "one"))
	agg.Apply(delta("a1", "answer"))
	first := agg.Apply(delta("a1", "!")).Message
	second := agg.Apply(delta("t2", "later")).Message

	assert.Equal(t, []string{"one"}, first.Thoughts)
	assert.Equal(t, []string{"one", "answer!"}, second.Thoughts)
}
