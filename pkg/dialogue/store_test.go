package dialogue

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/memory"
	"github.com/jwebster45206/tavern-engine/pkg/relationship"
)

// clock is a movable test clock.
type clock struct {
	t time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func storeEnv(t *testing.T) Env {
	t.Helper()

	ledger := memory.NewLedger(nil)
	rec := ledger.Get("greta", "p1", 50)
	rels := relationship.NewTable(nil)
	rel := rels.Initialize("greta", "p1")
	return Env{Memory: rec, Rel: rel}
}

func simpleTree(characterID string) *Tree {
	root := &Node{
		ID:       characterID + "_root",
		Role:     RoleRoot,
		Speaker:  characterID,
		Text:     "Well met.",
		Children: []string{characterID + "_opt_a", characterID + "_opt_b"},
	}
	optA := &Node{
		ID:       characterID + "_opt_a",
		Speaker:  SpeakerPlayer,
		Type:     OptionSocial,
		Text:     "Hello there.",
		Priority: 5,
		Children: []string{characterID + "_reply_a"},
	}
	replyA := &Node{
		ID:       characterID + "_reply_a",
		Speaker:  characterID,
		Text:     "Hello yourself.",
		Children: []string{characterID + "_opt_b"},
	}
	optB := &Node{
		ID:       characterID + "_opt_b",
		Speaker:  SpeakerPlayer,
		Type:     OptionFarewell,
		Text:     "Goodbye.",
		Priority: 1,
	}
	return NewTree(characterID+"_tree", characterID, CategoryGreeting, root, optA, replyA, optB)
}

func TestStore_AvailableOptionsSortAndCap(t *testing.T) {
	clk := newClock()
	s := NewStore(clk.now)
	env := storeEnv(t)

	root := &Node{ID: "root", Role: RoleRoot, Speaker: "greta"}
	var rest []*Node
	for i := 0; i < 9; i++ {
		id := fmt.Sprintf("opt_%d", i)
		root.Children = append(root.Children, id)
		rest = append(rest, &Node{
			ID:       id,
			Speaker:  SpeakerPlayer,
			Type:     OptionSocial,
			Text:     id,
			Priority: i,
		})
	}
	s.AddTrees("greta", NewTree("tree", "greta", CategoryGreeting, root, rest...))

	opts := s.AvailableOptions("greta", env)
	if len(opts) != MaxOptions {
		t.Fatalf("expected %d options, got %d", MaxOptions, len(opts))
	}
	for i := 1; i < len(opts); i++ {
		if opts[i].Priority > opts[i-1].Priority {
			t.Errorf("options not sorted by priority descending: %d before %d",
				opts[i-1].Priority, opts[i].Priority)
		}
	}
	if opts[0].ID != "opt_8" {
		t.Errorf("expected highest-priority option first, got %s", opts[0].ID)
	}
}

func TestStore_OneTimeExclusion(t *testing.T) {
	clk := newClock()
	s := NewStore(clk.now)
	env := storeEnv(t)

	root := &Node{ID: "root", Role: RoleRoot, Speaker: "greta", Children: []string{"once"}}
	once := &Node{ID: "once", Speaker: SpeakerPlayer, Type: OptionSocial, Text: "one time", OneTime: true}
	s.AddTrees("greta", NewTree("tree", "greta", CategoryGreeting, root, once))

	if opts := s.AvailableOptions("greta", env); len(opts) != 1 {
		t.Fatalf("expected the one-time option before selection, got %d options", len(opts))
	}
	if _, err := s.SelectOption("greta", "once"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts := s.AvailableOptions("greta", env); len(opts) != 0 {
		t.Errorf("expected one-time option excluded after selection, got %d options", len(opts))
	}
	// Still excluded arbitrarily far in the future.
	clk.advance(1000 * time.Hour)
	if opts := s.AvailableOptions("greta", env); len(opts) != 0 {
		t.Errorf("expected one-time exclusion to be permanent, got %d options", len(opts))
	}
}

func TestStore_CooldownBoundary(t *testing.T) {
	clk := newClock()
	s := NewStore(clk.now)
	env := storeEnv(t)

	root := &Node{ID: "root", Role: RoleRoot, Speaker: "greta", Children: []string{"ask"}}
	ask := &Node{
		ID:       "ask",
		Speaker:  SpeakerPlayer,
		Type:     OptionInfoRequest,
		Text:     "any news?",
		Cooldown: 30 * time.Minute,
	}
	s.AddTrees("greta", NewTree("tree", "greta", CategoryGreeting, root, ask))

	if _, err := s.SelectOption("greta", "ask"); err != nil {
		t.Fatal(err)
	}

	clk.advance(29 * time.Minute)
	if opts := s.AvailableOptions("greta", env); len(opts) != 0 {
		t.Errorf("expected option on cooldown at T+29m, got %d options", len(opts))
	}

	clk.advance(1 * time.Minute)
	if opts := s.AvailableOptions("greta", env); len(opts) != 1 {
		t.Errorf("expected option available again at T+30m, got %d options", len(opts))
	}
}

func TestStore_UnlockConditionsGateTrees(t *testing.T) {
	clk := newClock()
	s := NewStore(clk.now)
	env := storeEnv(t)

	tree := simpleTree("greta")
	tree.UnlockConditions = []Condition{
		{Kind: CondRelationship, Op: OpLessThan, Value: -20},
	}
	s.AddTrees("greta", tree)

	if opts := s.AvailableOptions("greta", env); len(opts) != 0 {
		t.Fatalf("expected locked tree to contribute no options, got %d", len(opts))
	}

	env.Memory.Relationship = -30
	if opts := s.AvailableOptions("greta", env); len(opts) == 0 {
		t.Error("expected tree unlocked at relationship -30")
	}
}

func TestStore_DeduplicateAcrossTrees(t *testing.T) {
	clk := newClock()
	s := NewStore(clk.now)
	env := storeEnv(t)

	shared := &Node{ID: "shared", Speaker: SpeakerPlayer, Type: OptionSocial, Text: "hi", Priority: 2}
	rootA := &Node{ID: "root_a", Role: RoleRoot, Speaker: "greta", Children: []string{"shared"}}
	rootB := &Node{ID: "root_b", Role: RoleRoot, Speaker: "greta", Children: []string{"shared"}}
	s.AddTrees("greta",
		NewTree("tree_a", "greta", CategoryGreeting, rootA, shared),
		NewTree("tree_b", "greta", CategoryDynamic, rootB, shared),
	)

	if opts := s.AvailableOptions("greta", env); len(opts) != 1 {
		t.Errorf("expected duplicate node id offered once, got %d options", len(opts))
	}
}

func TestStore_SelectOption(t *testing.T) {
	clk := newClock()
	s := NewStore(clk.now)

	s.AddTrees("greta", simpleTree("greta"))

	sel, err := s.SelectOption("greta", "greta_opt_a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Response == nil || sel.Response.ID != "greta_reply_a" {
		t.Fatalf("expected character response greta_reply_a, got %+v", sel.Response)
	}
	if len(sel.NextOptions) != 1 || sel.NextOptions[0].ID != "greta_opt_b" {
		t.Errorf("expected next option greta_opt_b, got %+v", sel.NextOptions)
	}
	if sel.Tree.Completion != CompletionInProgress {
		t.Errorf("expected tree in_progress, got %s", sel.Tree.Completion)
	}
}

func TestStore_SelectOptionNotFound(t *testing.T) {
	s := NewStore(nil)
	s.AddTrees("greta", simpleTree("greta"))

	_, err := s.SelectOption("greta", "no_such_node")
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestStore_AttachNodes(t *testing.T) {
	s := NewStore(nil)
	s.AddTrees("greta", simpleTree("greta"))

	extra := &Node{ID: "dyn_1", Speaker: SpeakerPlayer, Type: OptionQuest, Text: "about that rumor..."}
	if err := s.AttachNodes("greta", "greta_tree", "greta_root", []*Node{extra}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := storeEnv(t)
	found := false
	for _, o := range s.AvailableOptions("greta", env) {
		if o.ID == "dyn_1" {
			found = true
		}
	}
	if !found {
		t.Error("expected attached node to become available")
	}

	// Attaching a duplicate id fails and attaches nothing.
	if err := s.AttachNodes("greta", "greta_tree", "greta_root", []*Node{extra}); err == nil {
		t.Error("expected error attaching duplicate node id")
	}
	if err := s.AttachNodes("greta", "no_tree", "greta_root", nil); !errors.Is(err, ErrTreeNotFound) {
		t.Errorf("expected ErrTreeNotFound, got %v", err)
	}
}

func TestGenerateTrees(t *testing.T) {
	merchant := &character.Character{
		ID: "bram", Name: "Bram", Class: "merchant", Age: 45,
		Goals:  []string{"recover the stolen cask"},
		Traits: []string{"Suspicious"},
	}
	trees := GenerateTrees(merchant)

	byCategory := make(map[Category]*Tree)
	for _, tr := range trees {
		byCategory[tr.Category] = tr
	}

	for _, want := range []Category{CategoryGreeting, CategoryConflict, CategoryQuest, CategoryPersonal, CategoryTrade, CategoryRomance} {
		if byCategory[want] == nil {
			t.Errorf("expected a %s tree", want)
		}
	}

	// Root always present in its own node map.
	for _, tr := range trees {
		if tr.Root() == nil {
			t.Errorf("tree %s has no root in its node map", tr.ID)
		}
	}

	celibate := &character.Character{ID: "ida", Name: "Ida", Age: 30, Traits: []string{"Celibate"}}
	for _, tr := range GenerateTrees(celibate) {
		if tr.Category == CategoryRomance {
			t.Error("expected no romance tree for a Celibate character")
		}
	}

	elder := &character.Character{ID: "old", Name: "Old Man", Age: 77}
	for _, tr := range GenerateTrees(elder) {
		if tr.Category == CategoryRomance {
			t.Error("expected no romance tree outside the age window")
		}
	}
}
