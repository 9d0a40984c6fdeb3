package event

import (
	"github.com/google/uuid"
)

// node is either an *Event or a nested *Queue.
type node struct {
	event *Event
	queue *Queue
}

// Queue is the batch produced from one raw input line. It is append-only while
// the line is split and walked exactly once during dispatch.
type Queue struct {
	ID string

	nodes   []node
	replies []string
	aborted bool
	parent  *Queue
}

// NewQueue returns an empty batch with a fresh id.
func NewQueue() *Queue {
	return &Queue{ID: uuid.NewString()}
}

// Append adds e at the end of the batch.
func (q *Queue) Append(e *Event) {
	e.queue = q
	q.nodes = append(q.nodes, node{event: e})
}

// AppendQueue embeds a nested batch. Its events are expanded in place when the
// outer batch is flattened, and its replies flow into the outer buffer.
func (q *Queue) AppendQueue(sub *Queue) {
	sub.parent = q
	q.nodes = append(q.nodes, node{queue: sub})
}

// Events flattens the batch depth-first, preserving split order.
func (q *Queue) Events() []*Event {
	var out []*Event
	q.walk(func(e *Event) { out = append(out, e) })
	return out
}

func (q *Queue) walk(fn func(*Event)) {
	for _, n := range q.nodes {
		if n.queue != nil {
			n.queue.walk(fn)
			continue
		}
		fn(n.event)
	}
}

// Len returns the number of events after flattening.
func (q *Queue) Len() int {
	n := 0
	q.walk(func(*Event) { n++ })
	return n
}

// Abort records text as the only user-facing reply and marks the batch as
// aborted. Events already appended are discarded.
func (q *Queue) Abort(text string) {
	q.nodes = nil
	q.aborted = true
	q.reply(text)
}

// Aborted reports whether parsing rejected the line.
func (q *Queue) Aborted() bool { return q.aborted }

func (q *Queue) reply(text string) {
	root := q
	for root.parent != nil {
		root = root.parent
	}
	root.replies = append(root.replies, text)
}

// Replies returns the accumulated reply text in call order.
func (q *Queue) Replies() []string {
	return append([]string(nil), q.replies...)
}

// Outcomes returns every event's outcome in flattened order.
func (q *Queue) Outcomes() []Outcome {
	events := q.Events()
	out := make([]Outcome, len(events))
	for i, e := range events {
		out[i] = e.Outcome()
	}
	return out
}

// Messages is what the user sees: accumulated replies followed by the
// declared result of the right-most sub-command. An aborted batch yields only
// its replies; an empty result is not emitted.
func (q *Queue) Messages() []string {
	out := q.Replies()
	if q.aborted {
		return out
	}
	events := q.Events()
	if len(events) == 0 {
		return out
	}
	last := events[len(events)-1].Outcome()
	if last.Kind == Succeeded && last.Text != "" {
		out = append(out, last.Text)
	}
	return out
}
