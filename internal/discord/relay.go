// Package discord connects the command router to Discord. Guild channels
// behave like IRC channels and direct messages like private messages.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"relaybot/internal/event"
	"relaybot/internal/router"
	"relaybot/pkg/retrylimit"
)

// MaxMessageLength is the longest message Discord accepts.
const MaxMessageLength = 2000

// Router handles inbound lines. *router.Router implements it.
type Router interface {
	Route(ctx context.Context, msg router.Message) (*event.Queue, bool)
}

// sender is the part of *discordgo.Session used to reply.
type sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Relay is one Discord bot session. It implements router.Host.
type Relay struct {
	token   string
	network string
	log     *zap.Logger
	limiter *retrylimit.AdaptiveLimiter

	mu    sync.RWMutex
	nick  string
	botID string
}

// New returns a relay for the bot token.
func New(token, network string, log *zap.Logger, sendRate float64) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		token:   token,
		network: network,
		log:     log.Named("discord"),
		limiter: retrylimit.NewSendLimiter(sendRate),
	}
}

// Network implements router.Host.
func (r *Relay) Network() string { return r.network }

// CurrentNick implements router.Host: the bot's username once connected.
func (r *Relay) CurrentNick() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nick
}

func (r *Relay) identity() (id, nick string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.botID, r.nick
}

func (r *Relay) setIdentity(id, nick string) {
	r.mu.Lock()
	r.botID, r.nick = id, nick
	r.mu.Unlock()
}

// Run opens the session and serves until ctx is done.
func (r *Relay) Run(ctx context.Context, rt Router) error {
	dg, err := discordgo.New("Bot " + r.token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	dg.AddHandler(func(s *discordgo.Session, ready *discordgo.Ready) {
		r.setIdentity(ready.User.ID, ready.User.Username)
		r.log.Info("discord bot is running",
			zap.String("user", ready.User.Username),
			zap.Int("guilds", len(ready.Guilds)))
	})
	dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		r.handle(ctx, s, m, rt)
	})

	retry := retrylimit.DefaultRetryConfig()
	retry.MaxAttempts = 10
	retry.InitialDelay = 2 * time.Second
	retry.MaxDelay = time.Minute
	retry.Logger = r.log
	if err := retrylimit.WithRetryConfig(ctx, dg.Open, nil, retry); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	r.log.Info("shutdown signal received, closing session")
	return nil
}

func (r *Relay) handle(ctx context.Context, s sender, m *discordgo.MessageCreate, rt Router) {
	botID, nick := r.identity()
	msg, ok := inbound(m, botID, nick)
	if !ok {
		return
	}
	q, handled := rt.Route(ctx, msg)
	if !handled {
		return
	}

	for _, text := range q.Messages() {
		for _, chunk := range chunks(text, MaxMessageLength) {
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}
			if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
				if pushBack(err) {
					r.limiter.RateLimited()
				}
				r.log.Warn("send failed", zap.String("channel", m.ChannelID), zap.Error(err))
				return
			}
			r.limiter.Success()
		}
	}
}

// restError exposes the status of a failed REST call to retry classifiers.
type restError struct {
	*discordgo.RESTError
}

func (e restError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// pushBack reports whether Discord answered a send with 429 or 5xx.
func pushBack(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	return retrylimit.DefaultClassifier(restError{rest})
}

// inbound maps a Discord message to a router message. Guild messages carry
// the channel id; direct messages have none. A leading mention of the bot is
// rewritten to the "<nick>: text" form the router understands.
func inbound(m *discordgo.MessageCreate, botID, nick string) (router.Message, bool) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == botID {
		return router.Message{}, false
	}
	msg := router.Message{
		Sender: m.Author.Username,
		Text:   normalizeMention(m.Content, botID, nick),
	}
	if m.GuildID != "" {
		msg.Channel = m.ChannelID
		msg.Ref = m.ChannelID
	}
	return msg, true
}

func normalizeMention(content, botID, nick string) string {
	if botID == "" || nick == "" {
		return content
	}
	for _, tag := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
		if rest, ok := strings.CutPrefix(content, tag); ok {
			rest = strings.TrimLeft(rest, " :,")
			if rest == "" {
				return content
			}
			return nick + ": " + rest
		}
	}
	return content
}

// chunks splits text into pieces of at most limit bytes without breaking
// UTF-8 sequences, preferring line breaks.
func chunks(text string, limit int) []string {
	var out []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		out = append(out, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
