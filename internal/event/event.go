// Package event models one parsed chat line: an Event per sub-command and a
// Queue (batch) that groups them and accumulates reply text.
package event

import (
	"fmt"
	"strings"
)

// Standard keys set by the router.
const (
	KeyName       = "name"
	KeyArgs       = "args"
	KeyNick       = "nick"
	KeyChannel    = "channel"
	KeyChannelRef = "_channel"
	KeyNetwork    = "network"
	KeyLine       = "line"
)

// Event is an ordered key/value record for one sub-command invocation. It is
// owned by its Queue and frozen once dispatch begins.
type Event struct {
	keys   []string
	values map[string]any
	queue  *Queue
	source any
	frozen bool

	outcome Outcome
}

// New returns an empty event bound to q. source is the module that created it.
func New(q *Queue, source any) *Event {
	return &Event{values: make(map[string]any), queue: q, source: source}
}

// Set stores value under key, keeping first-insertion order of keys.
func (e *Event) Set(key string, value any) {
	if e.frozen {
		panic(fmt.Sprintf("event: set %q after dispatch started", key))
	}
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Value returns the raw value stored under key.
func (e *Event) Value(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Get returns the value under key formatted as a string.
func (e *Event) Get(key string) (string, bool) {
	v, ok := e.values[key]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// Keys returns keys in insertion order.
func (e *Event) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Name is shorthand for Get(KeyName).
func (e *Event) Name() string {
	s, _ := e.Get(KeyName)
	return s
}

// Args is shorthand for Get(KeyArgs).
func (e *Event) Args() string {
	s, _ := e.Get(KeyArgs)
	return s
}

// Queue returns the owning batch.
func (e *Event) Queue() *Queue { return e.queue }

// Source returns the module that created the event.
func (e *Event) Source() any { return e.source }

// Copy returns an unfrozen copy sharing the same queue and source.
func (e *Event) Copy() *Event {
	c := New(e.queue, e.source)
	for _, k := range e.keys {
		c.Set(k, e.values[k])
	}
	return c
}

// Freeze marks the event immutable.
func (e *Event) Freeze() { e.frozen = true }

// Frozen reports whether dispatch has started for the event.
func (e *Event) Frozen() bool { return e.frozen }

// Reply appends text to the batch reply buffer.
func (e *Event) Reply(text string) {
	if e.queue != nil {
		e.queue.reply(text)
	}
}

// Write sets the declared result of this sub-command.
func (e *Event) Write(text string) {
	e.outcome = OK(text)
}

// Resolve records the outcome of dispatching this event.
func (e *Event) Resolve(o Outcome) { e.outcome = o }

// Outcome returns the recorded outcome; Pending before dispatch.
func (e *Event) Outcome() Outcome { return e.outcome }

// String renders public keys as key=value pairs. Keys starting with an
// underscore hold host back-references and are skipped.
func (e *Event) String() string {
	var sb strings.Builder
	for _, k := range e.keys {
		if strings.HasPrefix(k, "_") {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		v, _ := e.Get(k)
		fmt.Fprintf(&sb, "%s=%q", k, v)
	}
	return sb.String()
}
