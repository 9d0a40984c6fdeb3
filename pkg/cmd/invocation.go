// Package cmd provides a transport-agnostic command core: a command is something
// with a name, help metadata, and Run(ctx, invocation). How commands are grouped
// into plugins and dispatched from chat lines is defined by the router that uses this.
package cmd

// Event is the view of a parsed sub-command that a handler gets. The router's
// event type implements it; tests can pass any small fake.
type Event interface {
	// Get returns the string value stored under key.
	Get(key string) (string, bool)
	// Reply appends text to the batch reply buffer, independent of the
	// handler's return value.
	Reply(text string)
}

// Invocation carries the minimal input any command runner can pass: the resolved
// command name, the raw argument string and the originating event.
type Invocation struct {
	Name  string
	Args  string
	Event Event
}

// Get is a nil-safe shortcut for inv.Event.Get.
func (inv *Invocation) Get(key string) string {
	if inv == nil || inv.Event == nil {
		return ""
	}
	v, _ := inv.Event.Get(key)
	return v
}

// Reply is a nil-safe shortcut for inv.Event.Reply.
func (inv *Invocation) Reply(text string) {
	if inv == nil || inv.Event == nil {
		return
	}
	inv.Event.Reply(text)
}
