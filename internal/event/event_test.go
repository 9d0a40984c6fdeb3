package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventKeepsInsertionOrder(t *testing.T) {
	e := New(nil, nil)
	e.Set(KeyNick, "alice")
	e.Set(KeyName, "echo")
	e.Set(KeyNick, "bob")
	e.Set(KeyChannelRef, struct{}{})

	assert.Equal(t, []string{KeyNick, KeyName, KeyChannelRef}, e.Keys())
	nick, ok := e.Get(KeyNick)
	require.True(t, ok)
	assert.Equal(t, "bob", nick)
	assert.Equal(t, `nick="bob" name="echo"`, e.String())
}

func TestEventCopyIsIndependent(t *testing.T) {
	q := NewQueue()
	base := New(q, "router")
	base.Set(KeyNick, "alice")

	c := base.Copy()
	c.Set(KeyName, "ping")

	_, ok := base.Get(KeyName)
	assert.False(t, ok)
	assert.Same(t, q, c.Queue())
	assert.Equal(t, "router", c.Source())
}

func TestEventFrozenRejectsSet(t *testing.T) {
	e := New(nil, nil)
	e.Freeze()
	assert.True(t, e.Frozen())
	assert.Panics(t, func() { e.Set(KeyArgs, "x") })
}

func TestQueueFlattensDepthFirst(t *testing.T) {
	outer := NewQueue()
	inner := NewQueue()

	mk := func(name string) *Event {
		e := New(nil, nil)
		e.Set(KeyName, name)
		return e
	}

	outer.Append(mk("a"))
	inner.Append(mk("b"))
	deeper := NewQueue()
	deeper.Append(mk("c"))
	inner.AppendQueue(deeper)
	outer.AppendQueue(inner)
	outer.Append(mk("d"))

	var names []string
	for _, e := range outer.Events() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
	assert.Equal(t, 4, outer.Len())
}

func TestNestedRepliesReachRoot(t *testing.T) {
	outer := NewQueue()
	inner := NewQueue()
	outer.AppendQueue(inner)

	e := New(nil, nil)
	inner.Append(e)
	e.Reply("from inner")

	assert.Equal(t, []string{"from inner"}, outer.Replies())
	assert.Empty(t, inner.Replies())
}

func TestMessagesUsesLastResult(t *testing.T) {
	q := NewQueue()
	first, second := New(nil, nil), New(nil, nil)
	q.Append(first)
	q.Append(second)

	first.Reply("first: Command not found.")
	first.Resolve(Missing())
	second.Write("done")

	assert.Equal(t, []string{"first: Command not found.", "done"}, q.Messages())
	assert.Equal(t, []Kind{NotFound, Succeeded}, []Kind{q.Outcomes()[0].Kind, q.Outcomes()[1].Kind})
}

func TestMessagesSkipsFailedLast(t *testing.T) {
	q := NewQueue()
	e := New(nil, nil)
	q.Append(e)
	e.Reply("x: Failed to execute")
	e.Resolve(Failure(errors.New("boom")))

	assert.Equal(t, []string{"x: Failed to execute"}, q.Messages())
}

func TestAbortDropsEvents(t *testing.T) {
	q := NewQueue()
	q.Append(New(nil, nil))
	q.Abort("Commands must start with a character.")

	assert.True(t, q.Aborted())
	assert.Zero(t, q.Len())
	assert.Equal(t, []string{"Commands must start with a character."}, q.Messages())
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{Pending, "pending"},
		{Succeeded, "ok"},
		{NotFound, "not_found"},
		{Failed, "failed"},
		{Kind(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}
