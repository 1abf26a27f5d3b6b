// Package gateway connects the bot to Discord. It turns prefixed guild and
// direct messages into router invocations and implements the chat side of
// the router: private messages, channel replies and member lookups.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"spadesbot/apps/bot/internal/command"
	"spadesbot/apps/bot/internal/logging"
	"spadesbot/apps/bot/internal/session"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsGuildMembers |
	discordgo.IntentMessageContent

// Session is the part of *discordgo.Session the gateway uses.
type Session interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// Handler receives parsed invocations.
type Handler interface {
	Handle(ctx context.Context, inv command.Invocation) error
}

type Gateway struct {
	session Session
	state   *discordgo.State
	prefix  string
	log     *logrus.Entry

	mu       sync.RWMutex
	handler  Handler
	channels map[string]string // user id -> private channel id
}

func New(s Session, state *discordgo.State, prefix string) *Gateway {
	return &Gateway{
		session:  s,
		state:    state,
		prefix:   prefix,
		log:      logging.For("Gateway"),
		channels: make(map[string]string),
	}
}

// SetHandler installs the router. Messages arriving before it is set are
// dropped.
func (g *Gateway) SetHandler(h Handler) {
	g.mu.Lock()
	g.handler = h
	g.mu.Unlock()
}

// OnMessageCreate is registered with discordgo's AddHandler.
func (g *Gateway) OnMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	inv, ok := g.invocation(m)
	if !ok {
		return
	}
	g.mu.RLock()
	h := g.handler
	g.mu.RUnlock()
	if h == nil {
		g.log.Warn("message before router was ready, dropped")
		return
	}
	if err := h.Handle(context.Background(), inv); err != nil {
		g.log.WithFields(logrus.Fields{"guild": inv.Scope, "command": inv.Name}).Errorf("command failed: %v", err)
	}
}

func (g *Gateway) invocation(m *discordgo.MessageCreate) (command.Invocation, bool) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return command.Invocation{}, false
	}
	name, args, ok := command.Parse(m.Content, g.prefix)
	if !ok {
		return command.Invocation{}, false
	}
	return command.Invocation{
		Scope:     m.GuildID,
		ChannelID: m.ChannelID,
		Author:    userOf(m.Author, m.Member),
		Name:      name,
		Args:      args,
	}, true
}

// SendDirect writes to the user's private channel, opening it on first use.
func (g *Gateway) SendDirect(ctx context.Context, userID, text string) error {
	channelID, err := g.directChannel(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := g.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to %s: %w", userID, err)
	}
	return nil
}

func (g *Gateway) directChannel(ctx context.Context, userID string) (string, error) {
	g.mu.RLock()
	id := g.channels[userID]
	g.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	ch, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("open private channel with %s: %w", userID, err)
	}
	g.mu.Lock()
	g.channels[userID] = ch.ID
	g.mu.Unlock()
	return ch.ID, nil
}

func (g *Gateway) Reply(ctx context.Context, channelID, text string) error {
	_, err := g.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

// Member looks the user up in the state cache first and asks the API on a
// miss. Unknown members are reported with OK false, not as an error.
func (g *Gateway) Member(ctx context.Context, scope, userID string) (command.MemberResult, error) {
	if scope == "" || scope == session.DirectScope {
		return command.MemberResult{}, nil
	}
	if g.state != nil {
		if m, err := g.state.Member(scope, userID); err == nil && m.User != nil {
			return command.MemberResult{User: userOf(m.User, m), OK: true}, nil
		}
	}
	m, err := g.session.GuildMember(scope, userID, discordgo.WithContext(ctx))
	if err != nil {
		var rest *discordgo.RESTError
		if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == 404 {
			return command.MemberResult{}, nil
		}
		return command.MemberResult{}, err
	}
	if m == nil || m.User == nil {
		return command.MemberResult{}, nil
	}
	return command.MemberResult{User: userOf(m.User, m), OK: true}, nil
}

// userOf prefers the guild nickname, then the global display name.
func userOf(u *discordgo.User, m *discordgo.Member) session.User {
	name := ""
	if m != nil {
		name = strings.TrimSpace(m.Nick)
	}
	if name == "" {
		name = strings.TrimSpace(u.GlobalName)
	}
	if name == "" {
		name = u.Username
	}
	return session.User{ID: u.ID, Name: name}
}
