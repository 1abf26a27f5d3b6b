// Package command turns chat commands into session jobs. Each invocation runs
// on the actor of its guild's session, talks to the engine at most once per
// seat and answers through private messages.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"spadesbot/apps/bot/internal/ledger"
	"spadesbot/apps/bot/internal/logging"
	"spadesbot/apps/bot/internal/notify"
	"spadesbot/apps/bot/internal/present"
	"spadesbot/apps/bot/internal/session"
	"spadesbot/spades"
)

const defaultCommandTimeout = 15 * time.Second

// Invocation is one parsed chat command.
type Invocation struct {
	Scope     string // guild id, empty for direct messages
	ChannelID string
	Author    session.User
	Name      string
	Args      []string
}

// MemberResult is the outcome of looking up a mentioned user.
type MemberResult struct {
	User session.User
	OK   bool
}

// Members resolves user ids within a scope.
type Members interface {
	Member(ctx context.Context, scope, userID string) (MemberResult, error)
}

// Replier answers in the channel a command came from.
type Replier interface {
	Reply(ctx context.Context, channelID, text string) error
}

// Options tunes how commands are read and run.
type Options struct {
	Prefix string
	// Simulation lets fewer than four people drive a game by sitting in
	// several seats.
	Simulation     bool
	CommandTimeout time.Duration
}

// Deps are the services a Router talks to.
type Deps struct {
	Registry   *session.Registry
	Engine     spades.Engine
	Dispatcher *notify.Dispatcher
	Replier    Replier
	Members    Members
	Formatter  *present.Formatter
	Ledger     ledger.Service
}

// Router dispatches parsed invocations to their commands.
type Router struct {
	opts Options
	Deps
	log *logrus.Entry

	commands map[string]*command
	order    []*command
}

// New builds a Router with defaults filled in for zero options.
func New(opts Options, deps Deps) *Router {
	if opts.Prefix == "" {
		opts.Prefix = ">"
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	r := &Router{
		opts:     opts,
		Deps:     deps,
		log:      logging.For("Router"),
		commands: make(map[string]*command),
	}
	r.register()
	return r
}

// Prefix is the text every command starts with.
func (r *Router) Prefix() string { return r.opts.Prefix }

// Parse splits a message into command name and arguments. The name must
// follow the prefix directly and start with a letter or digit, so quote
// markup such as "> text" or ">>> text" is not a command.
func Parse(content, prefix string) (name string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	rest := strings.TrimPrefix(content, prefix)
	first, _ := utf8.DecodeRuneInString(rest)
	if !unicode.IsLetter(first) && !unicode.IsDigit(first) {
		return "", nil, false
	}
	fields := strings.Fields(rest)
	return strings.ToLower(fields[0]), fields[1:], true
}

// userError is a failure the caller caused. Its text is sent back verbatim.
type userError struct {
	msg string
}

func (e *userError) Error() string { return e.msg }

func reject(format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...)}
}

// Handle runs one invocation to completion and records it in the ledger.
// Names that match no command are dropped without a reply.
// Errors the caller caused are answered and not returned.
func (r *Router) Handle(ctx context.Context, inv Invocation) error {
	log := r.log.WithFields(logrus.Fields{"scope": inv.Scope, "user": inv.Author.ID, "command": inv.Name})

	cmd, ok := r.commands[inv.Name]
	if !ok {
		log.Debug("not a command, ignored")
		return nil
	}
	if len(inv.Args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(inv.Args) > cmd.maxArgs) {
		r.reply(ctx, inv, "Usage: "+cmd.usageLine(r.opts.Prefix))
		r.record(ctx, inv, "usage")
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, r.opts.CommandTimeout)
	defer cancel()

	sess := r.Registry.Get(inv.Scope)
	err := sess.Submit(jobCtx, func(ctx context.Context, st *session.State) error {
		return cmd.run(ctx, &call{Router: r, inv: inv, st: st})
	})

	var ue *userError
	switch {
	case err == nil:
		log.Debug("handled")
		r.record(ctx, inv, "ok")
		return nil
	case errors.As(err, &ue):
		log.Infof("rejected: %s", ue.msg)
		r.reply(ctx, inv, ue.msg)
		r.record(ctx, inv, "rejected: "+ue.msg)
		return nil
	default:
		log.Errorf("failed: %v", err)
		r.reply(ctx, inv, "Something went wrong running that command, try again in a bit.")
		r.record(ctx, inv, "error: "+err.Error())
		return err
	}
}

func (r *Router) reply(ctx context.Context, inv Invocation, text string) {
	if r.Replier == nil || inv.ChannelID == "" {
		return
	}
	if err := r.Replier.Reply(ctx, inv.ChannelID, present.Wrap(text)); err != nil {
		r.log.WithField("channel", inv.ChannelID).Warnf("reply failed: %v", err)
	}
}

func (r *Router) record(ctx context.Context, inv Invocation, outcome string) {
	if r.Ledger == nil {
		return
	}
	r.Ledger.Record(ctx, ledger.Entry{
		At:      time.Now(),
		Scope:   inv.Scope,
		UserID:  inv.Author.ID,
		Command: inv.Name,
		Args:    redactMentions(inv.Args),
		Outcome: outcome,
	})
}

// redactMentions keeps raw user ids of mentioned users out of the ledger.
func redactMentions(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if _, ok := session.StripMention(a); ok {
			a = "<@user>"
		}
		out[i] = a
	}
	return out
}

func intArg(raw, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, reject("%s must be a whole number, got %q.", name, raw)
	}
	return n, nil
}
