package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spadesbot/apps/bot/internal/present"
	"spadesbot/apps/bot/internal/session"
	"spadesbot/spades"
)

type command struct {
	name    string
	args    string
	help    string
	minArgs int
	maxArgs int // -1 for no limit
	run     func(ctx context.Context, c *call) error
}

func (cmd *command) usageLine(prefix string) string {
	if cmd.args == "" {
		return prefix + cmd.name
	}
	return prefix + cmd.name + " " + cmd.args
}

func (r *Router) register() {
	for _, cmd := range []*command{
		{name: "team", args: "<teamName> <@user1> <@user2>", help: "Assemble a fantastic team.", minArgs: 3, maxArgs: 3, run: runTeam},
		{name: "game", args: "<maxScore>", help: "Start a new game. Two teams must be created before this command.", minArgs: 1, maxArgs: 1, run: runGame},
		{name: "deal", help: "Deal cards.", maxArgs: 0, run: runDeal},
		{name: "bet", args: "<betInput>", help: "Make a bet where <betInput> can be any number, 'n' for nil, or 'tth' for ten-two-hundred.", minArgs: 1, maxArgs: 1, run: runBet},
		{name: "play", args: "<cardIndex>", help: "Play a card where <cardIndex> is the order the card is in your hand.", minArgs: 1, maxArgs: 1, run: runPlay},
		{name: "hand", help: "Ask to see your hand.", maxArgs: 0, run: runHand},
		{name: "books", help: "Ask to see the betting info and current books.", maxArgs: 0, run: runBooks},
		{name: "show", help: "Ask to see the current game's info.", maxArgs: 0, run: runShow},
		{name: "rematch", args: "[teamName @user1 @user2]", help: "Play again with the same teams.", maxArgs: 3, run: runRematch},
		{name: "history", args: "[count]", help: "Show the latest commands run here.", maxArgs: 1, run: runHistory},
		{name: "help", args: "[command]", help: "Show this message.", maxArgs: 1, run: runHelp},
	} {
		r.commands[cmd.name] = cmd
		r.order = append(r.order, cmd)
	}
}

// call is the context of one command running on its session actor.
type call struct {
	*Router
	inv Invocation
	st  *session.State
}

func (c *call) notStarted() error {
	return reject("A game hasn't been created yet. Make one with '%sgame [score]'", c.opts.Prefix)
}

func (c *call) requireGame() error {
	if !c.st.HasGame() {
		return c.notStarted()
	}
	return nil
}

// caller resolves the author to a seat.
func (c *call) caller() (*spades.Player, error) {
	p, err := c.st.Resolve(c.inv.Author.ID)
	if errors.Is(err, session.ErrUnknownUser) {
		return nil, reject("You are not in this game.")
	}
	return p, err
}

func (c *call) sharedSeats() bool {
	return c.opts.Simulation && c.st.DistinctUsers() < 4
}

// broadcast tells every user of the session. Delivery failures are logged
// by the dispatcher and do not fail the command.
func (c *call) broadcast(ctx context.Context, text string) {
	_ = c.Dispatcher.NotifyAll(ctx, c.st.Users, text)
}

func (c *call) tellAuthor(ctx context.Context, text string) error {
	return c.Dispatcher.NotifyUser(ctx, c.inv.Author, text)
}

func (c *call) member(ctx context.Context, mention string) (session.User, error) {
	id, ok := session.StripMention(mention)
	if !ok {
		return session.User{}, reject("%s is not a user mention.", mention)
	}
	res, err := c.Members.Member(ctx, c.inv.Scope, id)
	if err != nil {
		return session.User{}, fmt.Errorf("look up member %s: %w", id, err)
	}
	if !res.OK {
		return session.User{}, reject("I can't find %s here.", mention)
	}
	return res.User, nil
}

func runTeam(ctx context.Context, c *call) error {
	name := c.inv.Args[0]
	u1, err := c.member(ctx, c.inv.Args[1])
	if err != nil {
		return err
	}
	u2, err := c.member(ctx, c.inv.Args[2])
	if err != nil {
		return err
	}

	if !c.opts.Simulation && len(c.st.Teams) < session.MaxTeams {
		for _, u := range []session.User{u1, u2} {
			if c.st.Seated(u.ID) {
				return reject("%s is already on a team.", u.Name)
			}
		}
	}

	p1, err := spades.NewPlayer(u1.ID, u1.Name)
	if err != nil {
		return reject("%v", err)
	}
	p2, err := spades.NewPlayer(u2.ID, u2.Name)
	if err != nil {
		return reject("%v", err)
	}
	team, err := spades.NewTeam(name, p1, p2)
	switch {
	case errors.Is(err, spades.ErrDuplicatePlayer) && c.opts.Simulation:
		team = &spades.Team{Name: strings.TrimSpace(name), Players: [2]*spades.Player{p1, p2}}
	case errors.Is(err, spades.ErrDuplicatePlayer):
		return reject("A team needs two different players.")
	case err != nil:
		return reject("%v", err)
	}

	count, reset := c.st.AddTeam(team, [2]session.User{u1, u2})
	if reset {
		c.log.WithField("scope", c.inv.Scope).Info("third team arrived, roster reset")
	}

	msg := fmt.Sprintf("Team %s joined the game!", team.Name)
	switch count {
	case 1:
		msg += " You need one more team to start a game."
	case session.MaxTeams:
		msg += fmt.Sprintf(" Both teams are here, start a game with %sgame <maxScore>.", c.opts.Prefix)
	}
	c.broadcast(ctx, msg)
	return nil
}

func runGame(ctx context.Context, c *call) error {
	maxScore, err := intArg(c.inv.Args[0], "maxScore")
	if err != nil {
		return err
	}
	if maxScore <= 0 {
		return reject("maxScore must be above zero.")
	}

	n := len(c.st.Teams)
	switch {
	case n < session.MaxTeams:
		c.broadcast(ctx, fmt.Sprintf("Need to make 2 teams, there's only %d.", n))
		return nil
	case n > session.MaxTeams:
		c.broadcast(ctx, fmt.Sprintf("There are too many teams. Get rid of them by making new teams with \"%steam <team name> <user1> <user2>\".", c.opts.Prefix))
		return nil
	}

	g, err := c.Engine.NewGame(ctx, spades.Setup{
		Teams:    [2]*spades.Team{c.st.Teams[0], c.st.Teams[1]},
		MaxScore: maxScore,
		Practice: c.opts.Simulation,
	})
	if err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	c.st.Game = g
	c.broadcast(ctx, g.Notification())
	return nil
}

// act submits a move for the caller. With shared seats every seat of the
// caller is tried in roster order until the engine accepts one.
func act(ctx context.Context, c *call, kind spades.ActionKind, payload int) error {
	if err := c.requireGame(); err != nil {
		return err
	}
	player, err := c.caller()
	if err != nil {
		return err
	}

	if c.sharedSeats() {
		for _, p := range c.st.Players {
			if p.ID != player.ID {
				continue
			}
			ok, err := c.st.Game.PlayerAction(ctx, p, kind, payload)
			if err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			if ok {
				break
			}
		}
	} else if _, err := c.st.Game.PlayerAction(ctx, player, kind, payload); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}

	c.broadcast(ctx, c.st.Game.Notification())
	return nil
}

func runDeal(ctx context.Context, c *call) error {
	return act(ctx, c, spades.ActionDeal, 0)
}

func runBet(ctx context.Context, c *call) error {
	bet, err := spades.ParseBet(c.inv.Args[0])
	if errors.Is(err, spades.ErrBetOutOfRange) {
		return reject("Bets go from 0 to %d, 'n' for nil or 'tth' for ten-two-hundred.", spades.MaxNumericBet)
	}
	return act(ctx, c, spades.ActionBet, int(bet))
}

func runPlay(ctx context.Context, c *call) error {
	index, err := intArg(c.inv.Args[0], "cardIndex")
	if err != nil {
		return err
	}
	return act(ctx, c, spades.ActionPlay, index)
}

func runHand(ctx context.Context, c *call) error {
	if err := c.requireGame(); err != nil {
		return err
	}
	player, err := c.caller()
	if err != nil {
		return err
	}

	if c.sharedSeats() {
		turn, err := c.st.Game.TurnInfo(ctx)
		if err != nil {
			return fmt.Errorf("turn: %w", err)
		}
		if turn.Turn != nil {
			player = turn.Turn
		}
	}

	cards, err := c.st.Game.Hand(ctx, player)
	if err != nil {
		return fmt.Errorf("hand: %w", err)
	}
	return c.tellAuthor(ctx, c.Formatter.Hand(cards))
}

func runBooks(ctx context.Context, c *call) error {
	if err := c.requireGame(); err != nil {
		return err
	}
	if _, err := c.caller(); err != nil {
		return err
	}
	info, err := c.st.Game.BettingInfo(ctx)
	if err != nil {
		return fmt.Errorf("betting: %w", err)
	}
	return c.tellAuthor(ctx, present.Betting(info))
}

func runShow(ctx context.Context, c *call) error {
	if err := c.requireGame(); err != nil {
		return err
	}
	if _, err := c.caller(); err != nil {
		return err
	}
	g := c.st.Game
	score, err := g.ScoreInfo(ctx)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	turn, err := g.TurnInfo(ctx)
	if err != nil {
		return fmt.Errorf("turn: %w", err)
	}
	pile, err := g.PileInfo(ctx)
	if err != nil {
		return fmt.Errorf("pile: %w", err)
	}
	return c.tellAuthor(ctx, c.Formatter.Board(score, turn, pile))
}

// runRematch starts a new game with the same teams and max score. Any
// arguments are accepted and ignored.
func runRematch(ctx context.Context, c *call) error {
	if err := c.requireGame(); err != nil {
		return err
	}
	if _, err := c.caller(); err != nil {
		return err
	}

	setup := spades.Setup{
		Teams:    [2]*spades.Team{c.st.Teams[0], c.st.Teams[1]},
		MaxScore: c.st.Game.MaxScore(),
		Practice: c.opts.Simulation,
	}
	// the running game stays live until the engine hands out its successor
	g, err := c.Engine.NewGame(ctx, setup)
	if err != nil {
		return fmt.Errorf("rematch: %w", err)
	}
	c.st.ResetForRematch(c.st.Users)
	c.st.Game = g
	c.broadcast(ctx, g.Notification())
	return nil
}

const defaultHistory = 10

func runHistory(ctx context.Context, c *call) error {
	if c.Ledger == nil {
		return reject("No command history is kept.")
	}
	n := defaultHistory
	if len(c.inv.Args) == 1 {
		var err error
		if n, err = intArg(c.inv.Args[0], "count"); err != nil {
			return err
		}
	}
	recs, err := c.Ledger.Recent(ctx, c.inv.Scope, n)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(recs) == 0 {
		return c.tellAuthor(ctx, "Nothing has happened here yet.")
	}

	var b strings.Builder
	b.WriteString("Latest commands:\n")
	for _, rec := range recs {
		fmt.Fprintf(&b, "`%s` player %.8s: %s%s", rec.At.Format("Jan 2 15:04:05"), rec.UserHash, c.opts.Prefix, rec.Command)
		if len(rec.Args) > 0 {
			b.WriteString(" " + strings.Join(rec.Args, " "))
		}
		fmt.Fprintf(&b, " (%s)\n", rec.Outcome)
	}
	return c.tellAuthor(ctx, b.String())
}

func runHelp(ctx context.Context, c *call) error {
	if len(c.inv.Args) == 1 {
		name := strings.ToLower(strings.TrimPrefix(c.inv.Args[0], c.opts.Prefix))
		cmd, ok := c.commands[name]
		if !ok {
			return reject("No command called %q.", name)
		}
		return c.tellAuthor(ctx, fmt.Sprintf("`%s`\n%s", cmd.usageLine(c.opts.Prefix), cmd.help))
	}

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, cmd := range c.order {
		fmt.Fprintf(&b, "`%s`  %s\n", cmd.usageLine(c.opts.Prefix), cmd.help)
	}
	return c.tellAuthor(ctx, b.String())
}
