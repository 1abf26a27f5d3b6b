package command

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"spadesbot/apps/bot/internal/ledger"
	"spadesbot/apps/bot/internal/notify"
	"spadesbot/apps/bot/internal/present"
	"spadesbot/apps/bot/internal/session"
	"spadesbot/card"
	"spadesbot/spades"
	"spadesbot/spades/spadestest"
)

type message struct {
	to   string
	text string
}

type fakeChat struct {
	mu      sync.Mutex
	dms     []message
	replies []message
	members map[string]session.User
}

func (f *fakeChat) SendDirect(_ context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, message{userID, text})
	return nil
}

func (f *fakeChat) Reply(_ context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, message{channelID, text})
	return nil
}

func (f *fakeChat) Member(_ context.Context, _, userID string) (MemberResult, error) {
	u, ok := f.members[userID]
	return MemberResult{User: u, OK: ok}, nil
}

func (f *fakeChat) takeDMs() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.dms
	f.dms = nil
	return out
}

func (f *fakeChat) takeReplies() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.replies
	f.replies = nil
	return out
}

type harness struct {
	t      *testing.T
	router *Router
	engine *spadestest.Engine
	chat   *fakeChat
	ledger *ledger.MemoryService
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	chat := &fakeChat{members: map[string]session.User{
		"1": {ID: "1", Name: "ann"},
		"2": {ID: "2", Name: "bob"},
		"3": {ID: "3", Name: "cat"},
		"4": {ID: "4", Name: "dan"},
	}}
	hasher, err := ledger.NewUserHasher("test")
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	reg := session.NewRegistry()
	t.Cleanup(reg.Close)

	h := &harness{
		t:      t,
		engine: spadestest.NewEngine(),
		chat:   chat,
		ledger: ledger.NewMemoryService(hasher, 100),
	}
	h.router = New(opts, Deps{
		Registry:   reg,
		Engine:     h.engine,
		Dispatcher: notify.NewDispatcher(chat),
		Replier:    chat,
		Members:    chat,
		Formatter:  present.New("<:c:1>", "<:d:2>", "<:h:3>", "<:s:4>"),
		Ledger:     h.ledger,
	})
	return h
}

func (h *harness) run(author, line string) {
	h.t.Helper()
	name, args, ok := Parse(line, h.router.Prefix())
	if !ok {
		h.t.Fatalf("not a command: %q", line)
	}
	u := h.chat.members[author]
	if u.ID == "" {
		u = session.User{ID: author, Name: "stranger"}
	}
	if err := h.router.Handle(context.Background(), Invocation{
		Scope: "guild", ChannelID: "chan", Author: u, Name: name, Args: args,
	}); err != nil {
		h.t.Fatalf("%s: %v", line, err)
	}
}

func (h *harness) seatTeams() {
	h.t.Helper()
	h.run("1", ">team Aces <@!1> <@!2>")
	h.run("3", ">team Kings <@3> <@!4>")
}

func (h *harness) startGame() *spadestest.Game {
	h.t.Helper()
	h.seatTeams()
	h.run("1", ">game 500")
	h.chat.takeDMs()
	h.chat.takeReplies()
	g := h.engine.Last()
	if g == nil {
		h.t.Fatalf("no game created")
	}
	return g
}

func recipients(msgs []message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.to)
	}
	return out
}

func onlyReply(t *testing.T, h *harness) string {
	t.Helper()
	replies := h.chat.takeReplies()
	if len(replies) != 1 {
		t.Fatalf("replies = %+v, want one", replies)
	}
	return replies[0].text
}

func TestParse(t *testing.T) {
	name, args, ok := Parse(">Team  Aces <@1>\t<@2>", ">")
	if !ok || name != "team" || len(args) != 3 || args[2] != "<@2>" {
		t.Fatalf("Parse = %q %q %v", name, args, ok)
	}
	for _, line := range []string{"team Aces", ">", ">   ", "", "> nice hand", ">>> quoting a whole block", ">> deal", ">\tdeal"} {
		if _, _, ok := Parse(line, ">"); ok {
			t.Fatalf("Parse(%q) should fail", line)
		}
	}
}

func TestTeamsThenGame(t *testing.T) {
	h := newHarness(t, Options{})

	h.run("1", ">team Aces <@!1> <@!2>")
	dms := h.chat.takeDMs()
	if strings.Join(recipients(dms), ",") != "1,2" {
		t.Fatalf("first team notified %v", recipients(dms))
	}
	if dms[0].text != ">>> Team Aces joined the game! You need one more team to start a game." {
		t.Fatalf("first team message = %q", dms[0].text)
	}

	h.run("3", ">team Kings <@3> <@!4>")
	dms = h.chat.takeDMs()
	if len(dms) != 4 || !strings.HasSuffix(dms[0].text, "Both teams are here, start a game with >game <maxScore>.") {
		t.Fatalf("second team dms = %+v", dms)
	}

	h.run("2", ">game 500")
	g := h.engine.Last()
	if g == nil || g.MaxScore() != 500 {
		t.Fatalf("game = %+v", g)
	}
	if g.Teams()[0].Name != "Aces" || g.Teams()[1].Name != "Kings" {
		t.Fatalf("teams = %v", g.Teams())
	}
	dms = h.chat.takeDMs()
	if strings.Join(recipients(dms), ",") != "1,2,3,4" {
		t.Fatalf("game broadcast reached %v", recipients(dms))
	}
	if dms[0].text != ">>> New game to 500: Aces vs Kings" {
		t.Fatalf("broadcast = %q", dms[0].text)
	}
}

func TestGameNeedsTwoTeams(t *testing.T) {
	h := newHarness(t, Options{})
	h.run("1", ">team Aces <@1> <@2>")
	h.chat.takeDMs()

	h.run("1", ">game 300")
	if h.engine.Last() != nil {
		t.Fatalf("game created with one team")
	}
	dms := h.chat.takeDMs()
	if len(dms) != 2 || dms[0].text != ">>> Need to make 2 teams, there's only 1." {
		t.Fatalf("dms = %+v", dms)
	}
}

func TestThirdTeamResetsRoster(t *testing.T) {
	h := newHarness(t, Options{})
	h.startGame()

	h.run("1", ">team Jokers <@1> <@3>")
	dms := h.chat.takeDMs()
	if strings.Join(recipients(dms), ",") != "1,3" {
		t.Fatalf("reset team notified %v", recipients(dms))
	}
	if !strings.HasSuffix(dms[0].text, "You need one more team to start a game.") {
		t.Fatalf("message = %q", dms[0].text)
	}

	h.run("1", ">deal")
	if got := onlyReply(t, h); !strings.Contains(got, "A game hasn't been created yet") {
		t.Fatalf("deal after reset = %q", got)
	}
}

func TestTeamRejections(t *testing.T) {
	h := newHarness(t, Options{})

	h.run("1", ">team Aces bob <@2>")
	if got := onlyReply(t, h); got != ">>> bob is not a user mention." {
		t.Fatalf("reply = %q", got)
	}
	h.run("1", ">team Aces <@1> <@99>")
	if got := onlyReply(t, h); got != ">>> I can't find <@99> here." {
		t.Fatalf("reply = %q", got)
	}
	h.run("1", ">team Aces <@1> <@!1>")
	if got := onlyReply(t, h); got != ">>> A team needs two different players." {
		t.Fatalf("reply = %q", got)
	}
	h.run("1", ">team Aces <@1> <@2>")
	h.run("1", ">team Kings <@2> <@3>")
	if got := onlyReply(t, h); got != ">>> bob is already on a team." {
		t.Fatalf("reply = %q", got)
	}
	h.run("1", ">team Aces <@1>")
	if got := onlyReply(t, h); got != ">>> Usage: >team <teamName> <@user1> <@user2>" {
		t.Fatalf("reply = %q", got)
	}
}

func TestGameDependentCommandsAreGuarded(t *testing.T) {
	h := newHarness(t, Options{})
	for _, line := range []string{">deal", ">bet 3", ">play 1", ">hand", ">books", ">show", ">rematch"} {
		h.run("1", line)
		want := ">>> A game hasn't been created yet. Make one with '>game [score]'"
		if got := onlyReply(t, h); got != want {
			t.Fatalf("%s reply = %q", line, got)
		}
	}
	if len(h.chat.takeDMs()) != 0 {
		t.Fatalf("guarded commands sent private messages")
	}
}

func TestStrangerIsRejected(t *testing.T) {
	h := newHarness(t, Options{})
	g := h.startGame()

	h.run("77", ">deal")
	if got := onlyReply(t, h); got != ">>> You are not in this game." {
		t.Fatalf("reply = %q", got)
	}
	if len(g.Actions()) != 0 {
		t.Fatalf("stranger reached the engine")
	}
}

func TestDealBetPlay(t *testing.T) {
	h := newHarness(t, Options{})
	g := h.startGame()

	h.run("2", ">deal")
	h.run("2", ">bet tth")
	h.run("2", ">bet N")
	h.run("2", ">bet xyz")
	h.run("2", ">play 4")

	actions := g.Actions()
	want := []spadestest.Action{
		{Kind: spades.ActionDeal, Payload: 0},
		{Kind: spades.ActionBet, Payload: int(spades.BetTenTwoHundred)},
		{Kind: spades.ActionBet, Payload: int(spades.BetNil)},
		{Kind: spades.ActionBet, Payload: int(spades.BetNone)},
		{Kind: spades.ActionPlay, Payload: 4},
	}
	if len(actions) != len(want) {
		t.Fatalf("actions = %+v", actions)
	}
	for i, a := range actions {
		if a.Player.ID != "2" || a.Kind != want[i].Kind || a.Payload != want[i].Payload {
			t.Fatalf("action %d = %+v, want %+v", i, a, want[i])
		}
	}

	dms := h.chat.takeDMs()
	if len(dms) != 4*len(want) {
		t.Fatalf("broadcast %d messages, want %d", len(dms), 4*len(want))
	}
	if dms[len(dms)-1].text != ">>> bob: PLAY 4" {
		t.Fatalf("last broadcast = %q", dms[len(dms)-1].text)
	}
}

func TestBetOutOfRangeIsRejected(t *testing.T) {
	h := newHarness(t, Options{})
	g := h.startGame()

	h.run("1", ">bet 14")
	if got := onlyReply(t, h); !strings.Contains(got, "Bets go from 0 to 13") {
		t.Fatalf("reply = %q", got)
	}
	if len(g.Actions()) != 0 {
		t.Fatalf("out of range bet reached the engine")
	}

	h.run("1", ">play first")
	if got := onlyReply(t, h); got != `>>> cardIndex must be a whole number, got "first".` {
		t.Fatalf("reply = %q", got)
	}
}

func TestHandBooksShowGoToCaller(t *testing.T) {
	h := newHarness(t, Options{})
	g := h.startGame()
	g.SetHand("3", card.New(card.Spade, card.Ace), card.New(card.Heart, card.Nine))
	g.Score = spades.ScoreInfo{Teams: []spades.TeamScore{{Name: "Aces", Score: 10}, {Name: "Kings", Score: 20, Overbooks: 1}}}
	g.Turn = spades.TurnInfo{Turn: g.Teams()[1].Players[0], Dealer: g.Teams()[0].Players[0]}

	h.run("3", ">hand")
	dms := h.chat.takeDMs()
	if len(dms) != 1 || dms[0].to != "3" {
		t.Fatalf("hand dms = %+v", dms)
	}
	if dms[0].text != ">>> Here's your hand, sport:\n(1):regional_indicator_a: <:s:4>\t(2):nine: <:h:3>\t" {
		t.Fatalf("hand = %q", dms[0].text)
	}

	h.run("3", ">books")
	dms = h.chat.takeDMs()
	if len(dms) != 1 || !strings.HasPrefix(dms[0].text, ">>> Here's the current booking and betting info:") {
		t.Fatalf("books dms = %+v", dms)
	}

	h.run("4", ">show")
	dms = h.chat.takeDMs()
	want := ">>> Aces  (10|0)    :vs:    Kings  (20|1)\nTurn: cat\tDealer: ann\tSpades Broken? false\n"
	if len(dms) != 1 || dms[0].to != "4" || dms[0].text != want {
		t.Fatalf("show dms = %+v", dms)
	}
}

func TestRematchKeepsRosterAndScore(t *testing.T) {
	h := newHarness(t, Options{})
	first := h.startGame()

	h.run("4", ">rematch Aces <@1> <@2>")
	second := h.engine.Last()
	if second == first {
		t.Fatalf("rematch did not create a new game")
	}
	if second.MaxScore() != 500 || second.Teams() != first.Teams() {
		t.Fatalf("rematch setup = %+v", second.Setup())
	}
	if got := recipients(h.chat.takeDMs()); strings.Join(got, ",") != "1,2,3,4" {
		t.Fatalf("rematch broadcast reached %v", got)
	}

	h.run("1", ">deal")
	if a := second.Actions(); len(a) != 1 || a[0].Player.ID != "1" {
		t.Fatalf("identity lost across rematch: %+v", a)
	}
}

func TestSimulationTriesEverySeat(t *testing.T) {
	h := newHarness(t, Options{Simulation: true})
	h.run("1", ">team Aces <@1> <@2>")
	h.run("1", ">team Kings <@1> <@2>")
	h.run("1", ">game 200")
	g := h.engine.Last()
	if g == nil || !g.Setup().Practice {
		t.Fatalf("practice game not created: %+v", g)
	}
	seats := 0
	for _, team := range g.Teams() {
		for _, p := range team.Players {
			if p.ID == "1" {
				seats++
			}
		}
	}
	if seats != 2 {
		t.Fatalf("user 1 holds %d seats", seats)
	}

	// the engine only accepts the Kings seat of user 1
	g.SetAccept(func(a spadestest.Action) bool { return a.Seat == 2 })

	h.run("1", ">deal")
	actions := g.Actions()
	if len(actions) != 2 || actions[0].Seat != 0 || actions[1].Seat != 2 {
		t.Fatalf("actions = %+v", actions)
	}
	if actions[0].Player.ID != "1" || actions[1].Player.ID != "1" {
		t.Fatalf("both tries should come from user 1: %+v", actions)
	}

	// user 2 holds seats 1 and 3; only the seat on turn gets shown
	g.Turn = spades.TurnInfo{Turn: g.Teams()[1].Players[1]}
	g.SetSeatHand(1, card.New(card.Heart, card.Ace))
	g.SetSeatHand(3, card.New(card.Club, card.Two))
	h.chat.takeDMs()
	h.run("1", ">hand")
	dms := h.chat.takeDMs()
	if len(dms) != 1 || dms[0].to != "1" || !strings.Contains(dms[0].text, ":two:") || strings.Contains(dms[0].text, "<:h:3>") {
		t.Fatalf("simulated hand = %+v", dms)
	}
}

func TestHelp(t *testing.T) {
	h := newHarness(t, Options{})
	h.run("1", ">help")
	dms := h.chat.takeDMs()
	if len(dms) != 1 || !strings.Contains(dms[0].text, "`>bet <betInput>`") {
		t.Fatalf("help = %+v", dms)
	}
	h.run("1", ">help deal")
	dms = h.chat.takeDMs()
	if len(dms) != 1 || dms[0].text != ">>> `>deal`\nDeal cards." {
		t.Fatalf("help deal = %+v", dms)
	}
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	h := newHarness(t, Options{})
	h.run("1", ">shuffle")
	h.run("1", ">lol nice")
	if dms, replies := h.chat.takeDMs(), h.chat.takeReplies(); len(dms) != 0 || len(replies) != 0 {
		t.Fatalf("dms = %+v replies = %+v", dms, replies)
	}
	recs, err := h.ledger.Recent(context.Background(), "guild", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("records = %+v", recs)
	}
}

func TestGameWithoutTeams(t *testing.T) {
	h := newHarness(t, Options{})
	h.run("1", ">game 500")
	if h.engine.Last() != nil {
		t.Fatalf("game created without teams")
	}
	// nobody is seated, so the notice reaches no one
	if dms, replies := h.chat.takeDMs(), h.chat.takeReplies(); len(dms) != 0 || len(replies) != 0 {
		t.Fatalf("dms = %+v replies = %+v", dms, replies)
	}
}

func TestGameWithTooManyTeams(t *testing.T) {
	h := newHarness(t, Options{})
	h.seatTeams()
	h.chat.takeDMs()

	extra := &spades.Team{Name: "Jacks", Players: [2]*spades.Player{{ID: "1", Name: "ann"}, {ID: "3", Name: "cat"}}}
	err := h.router.Registry.Get("guild").Submit(context.Background(), func(_ context.Context, st *session.State) error {
		st.Teams = append(st.Teams, extra)
		return nil
	})
	if err != nil {
		t.Fatalf("seed team: %v", err)
	}

	h.run("1", ">game 500")
	if h.engine.Last() != nil {
		t.Fatalf("game created with three teams")
	}
	dms := h.chat.takeDMs()
	if len(dms) != 4 {
		t.Fatalf("dms = %+v", dms)
	}
	for _, m := range dms {
		if !strings.Contains(m.text, "There are too many teams.") || !strings.Contains(m.text, `">team <team name> <user1> <user2>"`) {
			t.Fatalf("dm = %+v", m)
		}
	}
}

func TestFailedRematchKeepsRunningGame(t *testing.T) {
	h := newHarness(t, Options{})
	first := h.startGame()
	h.engine.Err = errors.New("engine down")

	err := h.router.Handle(context.Background(), Invocation{
		Scope: "guild", ChannelID: "chan", Author: session.User{ID: "1", Name: "ann"}, Name: "rematch",
	})
	if err == nil || !strings.Contains(err.Error(), "engine down") {
		t.Fatalf("err = %v", err)
	}
	h.chat.takeReplies()
	h.engine.Err = nil

	h.run("1", ">deal")
	if got := h.chat.takeReplies(); len(got) != 0 {
		t.Fatalf("replies = %+v", got)
	}
	if a := first.Actions(); len(a) != 1 || a[0].Kind != spades.ActionDeal {
		t.Fatalf("first game actions = %+v", a)
	}
	if len(h.engine.Games()) != 1 {
		t.Fatalf("games = %d", len(h.engine.Games()))
	}
}

func TestLedgerRecordsOutcomes(t *testing.T) {
	h := newHarness(t, Options{})
	h.run("1", ">team Aces <@1> <@2>")
	h.run("1", ">deal")

	recs, err := h.ledger.Recent(context.Background(), "guild", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %+v", recs)
	}
	if !strings.HasPrefix(recs[0].Outcome, "rejected: A game hasn't been created yet") {
		t.Fatalf("deal outcome = %q", recs[0].Outcome)
	}
	if recs[1].Outcome != "ok" || recs[1].Args[1] != "<@user>" {
		t.Fatalf("team record = %+v", recs[1])
	}
}

func TestEngineFailureIsReported(t *testing.T) {
	h := newHarness(t, Options{})
	h.seatTeams()
	h.chat.takeDMs()
	h.engine.Err = errors.New("engine down")

	name, args, _ := Parse(">game 500", ">")
	err := h.router.Handle(context.Background(), Invocation{
		Scope: "guild", ChannelID: "chan", Author: session.User{ID: "1", Name: "ann"}, Name: name, Args: args,
	})
	if err == nil || !strings.Contains(err.Error(), "engine down") {
		t.Fatalf("err = %v", err)
	}
	if got := onlyReply(t, h); !strings.Contains(got, "Something went wrong") {
		t.Fatalf("reply = %q", got)
	}
}

func TestHistoryListsRecentCommands(t *testing.T) {
	h := newHarness(t, Options{})
	h.run("1", ">team Aces <@1> <@2>")
	h.chat.takeDMs()
	h.run("1", ">bet 3")
	h.chat.takeReplies()

	h.run("2", ">history 5")
	dms := h.chat.takeDMs()
	if len(dms) != 1 || dms[0].to != "2" {
		t.Fatalf("history dms = %+v", dms)
	}
	text := dms[0].text
	if !strings.Contains(text, ">team Aces <@user> <@user> (ok)") || !strings.Contains(text, ">bet 3 (rejected: ") {
		t.Fatalf("history = %q", text)
	}
	if strings.Index(text, ">bet 3") > strings.Index(text, ">team Aces") {
		t.Fatalf("history not newest first: %q", text)
	}
}
