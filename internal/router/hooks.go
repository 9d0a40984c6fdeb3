package router

import (
	"context"
	"fmt"
	"strings"

	"relaybot/internal/event"
	"relaybot/internal/storage"
)

// DefaultControlCharacter is the command prefix used until one is configured.
const DefaultControlCharacter = "."

// OnLoad initializes settings the router relies on.
func (r *Router) OnLoad() error {
	if r.settings == nil {
		return nil
	}
	if _, ok := r.settings.Get(storage.KeyControlCharacter); ok {
		return nil
	}
	if err := r.settings.Set(storage.KeyControlCharacter, DefaultControlCharacter); err != nil {
		return fmt.Errorf("init control character: %w", err)
	}
	return nil
}

// ControlCharacter returns the configured command prefix.
func (r *Router) ControlCharacter() string {
	if r.settings != nil {
		if cc, ok := r.settings.Get(storage.KeyControlCharacter); ok && cc != "" {
			return cc
		}
	}
	return DefaultControlCharacter
}

// OnPrivMsg treats every private message as a command line.
func (r *Router) OnPrivMsg(ctx context.Context, sender, text string) *event.Queue {
	return r.HandleCommand(ctx, Message{Sender: sender, Text: text})
}

// OnChanMsg handles a channel message when it is addressed to the bot, and
// returns nil otherwise.
func (r *Router) OnChanMsg(ctx context.Context, sender, channel, text string) *event.Queue {
	q, _ := r.Route(ctx, Message{Sender: sender, Channel: channel, Text: text})
	return q
}

// Route applies the addressing rules to msg and dispatches it when it is a
// command line. Private messages are always commands. Channel messages must
// start with the control character followed by a letter or digit, or be
// addressed as "<nick>: text" or "<nick>, text".
func (r *Router) Route(ctx context.Context, msg Message) (*event.Queue, bool) {
	if msg.Channel == "" {
		return r.HandleCommand(ctx, msg), true
	}

	line, ok := r.commandLine(msg.Text)
	if !ok {
		return nil, false
	}
	msg.Text = line
	return r.HandleCommand(ctx, msg), true
}

func (r *Router) commandLine(text string) (string, bool) {
	cc := r.ControlCharacter()
	if strings.HasPrefix(text, cc) {
		line := text[len(cc):]
		if line != "" && startsAlnum(line) {
			return line, true
		}
		return "", false
	}
	return addressed(text, r.host.CurrentNick())
}

// addressed matches "<nick>: rest" and "<nick>, rest" with a non-empty rest.
func addressed(text, nick string) (string, bool) {
	if nick == "" || !strings.HasPrefix(text, nick) {
		return "", false
	}
	rest := text[len(nick):]
	if len(rest) < 3 || (rest[0] != ':' && rest[0] != ',') || rest[1] != ' ' {
		return "", false
	}
	rest = rest[2:]
	if strings.ContainsAny(rest, "\r\n") {
		return "", false
	}
	return rest, true
}
