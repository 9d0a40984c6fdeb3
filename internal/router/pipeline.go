package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"relaybot/internal/event"
	"relaybot/pkg/cmd"
)

// ErrRejected is returned by Parse when a segment does not start with a letter or digit.
var ErrRejected = errors.New("command rejected")

// Reply texts shown in chat.
const (
	ReplyRejected = "Commands must start with a character."
	replyNotFound = "%s: Command not found."
	replyFailed   = "%s: Failed to execute"
)

const pipeSentinel = "\x00p\x00"

// Message is one inbound chat line.
type Message struct {
	Sender string
	// Channel is empty for private messages.
	Channel string
	// Ref is an optional host channel object kept under the _channel key.
	Ref  any
	Text string
}

// HandleCommand parses line into sub-commands and dispatches them in order.
// The returned queue holds every outcome and the messages for the user.
func (r *Router) HandleCommand(ctx context.Context, msg Message) *event.Queue {
	q := event.NewQueue()
	base := r.baseEvent(q, msg)

	log := r.log.With(zap.String("batch", q.ID), zap.String("sender", msg.Sender))
	if _, err := r.Parse(base, msg.Text); err != nil {
		log.Debug("line rejected", zap.String("line", msg.Text))
		r.metrics.ObserveLine("rejected")
		return q
	}

	log.Debug("dispatching", zap.Int("events", q.Len()))
	r.metrics.ObserveLine("dispatched")
	r.Dispatch(ctx, q)
	return q
}

func (r *Router) baseEvent(q *event.Queue, msg Message) *event.Event {
	base := event.New(q, r)
	base.Set(event.KeyNick, msg.Sender)
	base.Set(event.KeyLine, msg.Text)
	if msg.Channel != "" {
		base.Set(event.KeyChannel, msg.Channel)
		if msg.Ref != nil {
			base.Set(event.KeyChannelRef, msg.Ref)
		} else {
			base.Set(event.KeyChannelRef, msg.Channel)
		}
	}
	base.Set(event.KeyNetwork, r.host.Network())
	return base
}

// Parse splits line on unescaped pipes and appends one copy of base per
// segment to base's queue. A segment that does not start with a letter or
// digit aborts the whole line with a single reply.
func (r *Router) Parse(base *event.Event, line string) (*event.Queue, error) {
	q := base.Queue()
	line = strings.ReplaceAll(line, `\|`, pipeSentinel)

	for _, segment := range strings.Split(line, "|") {
		segment = strings.TrimSpace(segment)
		segment = strings.ReplaceAll(segment, pipeSentinel, "|")
		if segment == "" {
			continue
		}

		if !startsAlnum(segment) {
			q.Abort(ReplyRejected)
			return q, fmt.Errorf("%q: %w", segment, ErrRejected)
		}

		name, args, _ := strings.Cut(segment, " ")
		ev := base.Copy()
		ev.Set(event.KeyName, name)
		ev.Set(event.KeyArgs, args)
		q.Append(ev)
	}
	return q, nil
}

func startsAlnum(s string) bool {
	c, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(c) || unicode.IsDigit(c)
}

// Dispatch runs every event of q in order. A missing command or a failing
// handler only affects its own sub-command; later ones still run. Each
// handler receives its own parsed args, not the previous stage's output.
func (r *Router) Dispatch(ctx context.Context, q *event.Queue) {
	for _, ev := range q.Events() {
		ev.Freeze()
		r.dispatch(ctx, q, ev)
	}
}

func (r *Router) dispatch(ctx context.Context, q *event.Queue, ev *event.Event) {
	name := ev.Name()
	log := r.log.With(zap.String("batch", q.ID), zap.String("command", name))

	res, ok := r.plugins.FindCommand(name)
	if !ok {
		ev.Reply(fmt.Sprintf(replyNotFound, name))
		ev.Resolve(event.Missing())
		r.metrics.ObserveCommand("unknown", event.NotFound.String(), 0)
		log.Debug("command not found")
		return
	}

	c := cmd.Apply(resolved{res}, r.middlewares...)
	out, err := c.Run(ctx, &cmd.Invocation{Name: name, Args: ev.Args(), Event: ev})
	if err != nil {
		ev.Reply(fmt.Sprintf(replyFailed, name))
		ev.Resolve(event.Failure(err))
		log.Debug("command failed", zap.String("plugin", res.Plugin.Name()), zap.Error(err))
		return
	}
	ev.Write(out)
}
