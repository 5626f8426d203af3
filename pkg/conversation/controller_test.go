package conversation

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/emotion"
	"github.com/jwebster45206/tavern-engine/pkg/memory"
	"github.com/jwebster45206/tavern-engine/pkg/player"
	"github.com/jwebster45206/tavern-engine/pkg/relationship"
	"github.com/jwebster45206/tavern-engine/pkg/tavern"
	"github.com/jwebster45206/tavern-engine/pkg/world"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
}

func testCharacter() *character.Character {
	return &character.Character{
		ID:             "greta",
		Name:           "greta",
		Race:           "Human",
		Class:          "innkeeper",
		Age:            44,
		MemoryStrength: 50,
	}
}

func testPlayer(t *testing.T) *player.State {
	t.Helper()
	ps, err := player.NewState(&player.Spec{ID: "pc_1", Name: "Wanderer"})
	if err != nil {
		t.Fatalf("new player state: %v", err)
	}
	return ps
}

func testWorld() *world.Context {
	return &world.Context{
		TavernReputation:     50,
		CustomerSatisfaction: 60,
		Atmosphere:           50,
	}
}

// gretaTrees builds a small hand-authored tree: a friendly chat that
// warms the relationship, a provocation that sours it badly, and a
// memory callback branch.
func gretaTrees() []*dialogue.Tree {
	root := &dialogue.Node{
		ID: "root", Role: dialogue.RoleRoot, Speaker: "greta",
		Text:     "What'll it be?",
		Children: []string{"opt_chat", "opt_insult", "opt_ask"},
	}
	chat := &dialogue.Node{
		ID: "opt_chat", Role: dialogue.RoleBranch, Speaker: dialogue.SpeakerPlayer,
		Text: "How's the evening treating you?", Type: dialogue.OptionSocial, Priority: 5,
		Effects:  []dialogue.Effect{{Kind: dialogue.EffectRelationship, Amount: 5}},
		Children: []string{"reply_chat"},
	}
	replyChat := &dialogue.Node{
		ID: "reply_chat", Role: dialogue.RoleBranch, Speaker: "greta",
		Text:     "Quiet enough, so far.",
		Children: []string{"opt_ask"},
	}
	insult := &dialogue.Node{
		ID: "opt_insult", Role: dialogue.RoleBranch, Speaker: dialogue.SpeakerPlayer,
		Text: "This swill isn't fit for pigs.", Type: dialogue.OptionConfrontation, Priority: 1,
		Effects:  []dialogue.Effect{{Kind: dialogue.EffectRelationship, Amount: -40}},
		Children: []string{"reply_insult"},
	}
	replyInsult := &dialogue.Node{
		ID: "reply_insult", Role: dialogue.RoleBranch, Speaker: "greta",
		Text: "Then drink elsewhere.",
	}
	ask := &dialogue.Node{
		ID: "opt_ask", Role: dialogue.RoleBranch, Speaker: dialogue.SpeakerPlayer,
		Text: "Any word on the harvest?", Type: dialogue.OptionSocial, Priority: 3,
		Children: []string{"reply_ask"},
	}
	replyAsk := &dialogue.Node{
		ID: "reply_ask", Role: dialogue.RoleMemoryReference, Speaker: "greta",
		Text: "Aye, plenty to tell.", MemoryTopic: "the harvest",
	}
	return []*dialogue.Tree{dialogue.NewTree(
		"greta_smalltalk", "greta", dialogue.CategoryGreeting,
		root, chat, replyChat, insult, replyInsult, ask, replyAsk,
	)}
}

type fixture struct {
	clock      *clock
	ledger     *memory.Ledger
	emotions   *emotion.Model
	relTable   *relationship.Table
	store      *dialogue.Store
	controller *Controller
}

func newFixture(t *testing.T, seed int64, injector *tavern.Injector) *fixture {
	t.Helper()
	clk := newClock()
	ledger := memory.NewLedger(clk.now)
	emotions := emotion.NewModel(clk.now)
	relTable := relationship.NewTable(clk.now)
	store := dialogue.NewStore(clk.now)
	store.AddTrees("greta", gretaTrees()...)
	emotions.Initialize(testCharacter())

	ctrl := NewController(ledger, emotions, relTable, store, injector,
		rand.New(rand.NewSource(seed)), clk.now, nil)
	return &fixture{
		clock:      clk,
		ledger:     ledger,
		emotions:   emotions,
		relTable:   relTable,
		store:      store,
		controller: ctrl,
	}
}

func TestController_StartSeedsStateAndOffersOptions(t *testing.T) {
	f := newFixture(t, 1, nil)
	char := testCharacter()
	ps := testPlayer(t)

	sess, options, err := f.controller.Start(ps, char, testWorld())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.State != StateActive {
		t.Errorf("expected active session, got %s", sess.State)
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Kind != KindCharacter {
		t.Fatalf("expected one opening character message, got %d", len(sess.Messages))
	}

	rec, ok := f.ledger.Lookup("greta", "pc_1")
	if !ok {
		t.Fatal("expected a memory record after start")
	}
	if rec.Trust != 50 {
		t.Errorf("expected starting trust 50, got %d", rec.Trust)
	}
	dyn, err := f.relTable.Get("greta", "pc_1")
	if err != nil {
		t.Fatalf("expected relationship dynamics: %v", err)
	}
	if dyn.Status != relationship.StatusStranger {
		t.Errorf("expected stranger status, got %s", dyn.Status)
	}

	if len(options) != 3 {
		t.Fatalf("expected 3 root options, got %d", len(options))
	}
	if options[0].ID != "opt_chat" {
		t.Errorf("expected highest-priority option first, got %s", options[0].ID)
	}
}

func TestController_FriendlyTurnWarmsRelationship(t *testing.T) {
	f := newFixture(t, 2, nil)
	char := testCharacter()
	ps := testPlayer(t)
	ctx := testWorld()

	sess, _, err := f.controller.Start(ps, char, ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := f.controller.SelectOption(sess, char, ps, ctx, "opt_chat")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if result.Ended {
		t.Fatal("friendly turn must not end the session")
	}
	if result.PlayerMessage.Text != "How's the evening treating you?" {
		t.Errorf("unexpected player line %q", result.PlayerMessage.Text)
	}
	if result.Response.Text != "Quiet enough, so far." {
		t.Errorf("expected authored response, got %q", result.Response.Text)
	}

	// Happiness 5 routes to friendship +1 via the updater, so the
	// turn's net impact is 1 and the pair crosses into acquaintance.
	if result.Impact != 1 {
		t.Errorf("expected impact 1, got %d", result.Impact)
	}
	dyn, _ := f.relTable.Get("greta", "pc_1")
	if dyn.Friendship != 11 {
		t.Errorf("expected friendship 11, got %d", dyn.Friendship)
	}
	if dyn.Status != relationship.StatusAcquaintance {
		t.Errorf("expected acquaintance, got %s", dyn.Status)
	}

	summary, err := f.controller.End(sess, []*character.Character{char})
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if summary.Tone != TonePleasant {
		t.Errorf("expected pleasant tone, got %q", summary.Tone)
	}
	// First meeting seeds relationship 5; the turn's net change adds 1.
	rec, _ := f.ledger.Lookup("greta", "pc_1")
	if rec.Relationship != 6 {
		t.Errorf("expected persisted relationship 6, got %d", rec.Relationship)
	}
	if rec.ConversationCount != 1 {
		t.Errorf("expected conversation count 1, got %d", rec.ConversationCount)
	}
}

func TestController_HostileTurnCollapsesSession(t *testing.T) {
	f := newFixture(t, 3, nil)
	char := testCharacter()
	ps := testPlayer(t)
	ctx := testWorld()

	sess, _, err := f.controller.Start(ps, char, ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := f.controller.SelectOption(sess, char, ps, ctx, "opt_insult")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !result.Ended {
		t.Fatal("expected the session to collapse")
	}
	if result.Summary == nil || result.Summary.Tone != ToneTense {
		t.Fatalf("expected tense summary, got %+v", result.Summary)
	}
	if sess.State != StateEnded {
		t.Errorf("expected ended state, got %s", sess.State)
	}

	last := sess.Messages[len(sess.Messages)-1]
	if last.Kind != KindSystem || !strings.Contains(last.Text, "turns away") {
		t.Errorf("expected a terminal system message, got %q", last.Text)
	}

	if _, err := f.controller.SelectOption(sess, char, ps, ctx, "opt_chat"); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("expected ErrSessionEnded on a dead session, got %v", err)
	}
}

func TestController_MemoryReferencesWeaveIntoResponse(t *testing.T) {
	f := newFixture(t, 4, nil)
	char := testCharacter()
	ps := testPlayer(t)
	ctx := testWorld()

	f.ledger.Get("greta", "pc_1", char.MemoryStrength)
	f.ledger.AppendSummary("greta", "pc_1", memory.Summary{
		Topic: "the harvest", Text: "We spoke of the harvest.", RelationshipChange: 2,
	})

	sess, _, err := f.controller.Start(ps, char, ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := f.controller.SelectOption(sess, char, ps, ctx, "opt_ask")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.HasPrefix(result.Response.Text, "Last time we spoke of the harvest.") {
		t.Errorf("expected a memory callback prefix, got %q", result.Response.Text)
	}
	if !strings.HasSuffix(result.Response.Text, "Aye, plenty to tell.") {
		t.Errorf("expected the authored line to follow, got %q", result.Response.Text)
	}
}

func TestController_UnknownOptionIsLoud(t *testing.T) {
	f := newFixture(t, 5, nil)
	char := testCharacter()
	ps := testPlayer(t)
	ctx := testWorld()

	sess, _, err := f.controller.Start(ps, char, ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.controller.SelectOption(sess, char, ps, ctx, "no_such_node"); !errors.Is(err, dialogue.ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestController_SpontaneousEventEventuallyFires(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	clk := newClock()
	ledger := memory.NewLedger(clk.now)
	emotions := emotion.NewModel(clk.now)
	relTable := relationship.NewTable(clk.now)
	store := dialogue.NewStore(clk.now)
	store.AddTrees("greta", gretaTrees()...)
	char := testCharacter()
	emotions.Initialize(char)

	inj := tavern.NewInjector(nil, rng, clk.now, nil)
	ctrl := NewController(ledger, emotions, relTable, store, inj, rng, clk.now, nil)

	ps := testPlayer(t)
	ctx := testWorld()
	sess, _, err := ctrl.Start(ps, char, ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	fired := false
	for i := 0; i < 50; i++ {
		clk.advance(30 * time.Minute)
		ev, msgs := ctrl.InjectSpontaneous(sess, []*character.Character{char}, ctx)
		if ev != nil {
			fired = true
			if len(msgs) == 0 {
				t.Fatal("expected event messages in the session log")
			}
			if msgs[0].Kind != KindSystem || msgs[0].Text != ev.Headline {
				t.Errorf("expected the headline as a system message, got %q", msgs[0].Text)
			}
			if len(sess.AppliedEvents) == 0 || sess.AppliedEvents[0] != ev.ID {
				t.Error("expected the event recorded on the session")
			}
			break
		}
	}
	if !fired {
		t.Fatal("expected a spontaneous event within 25 in-game hours")
	}

	ended, _ := ctrl.End(sess, []*character.Character{char})
	if ended == nil || len(ended.AppliedEvents) == 0 {
		t.Error("expected applied events carried into the summary")
	}
}

func TestController_EndTicksForgivenessAfterGoodTalk(t *testing.T) {
	f := newFixture(t, 7, nil)
	char := testCharacter()
	ps := testPlayer(t)
	ctx := testWorld()

	f.relTable.Initialize("greta", "pc_1")
	if err := f.relTable.AddGrudge("greta", "pc_1", relationship.Grudge{
		Type: "insult", Severity: 20, Description: "spilled a full tray and laughed",
	}); err != nil {
		t.Fatalf("add grudge: %v", err)
	}

	sess, _, err := f.controller.Start(ps, char, ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.controller.SelectOption(sess, char, ps, ctx, "opt_chat"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := f.controller.End(sess, []*character.Character{char}); err != nil {
		t.Fatalf("end: %v", err)
	}

	dyn, _ := f.relTable.Get("greta", "pc_1")
	if len(dyn.Grudges) != 1 {
		t.Fatalf("expected the grudge to survive one tick, got %d", len(dyn.Grudges))
	}
	want := 20/20 + 1 - 1
	if dyn.Grudges[0].Forgiveness != want {
		t.Errorf("expected forgiveness %d after one tick, got %d", want, dyn.Grudges[0].Forgiveness)
	}
}
