package tavern

import (
	"math/rand"
	"testing"
	"time"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/world"
)

func eveningNow() func() time.Time {
	t := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func morningNow() func() time.Time {
	t := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func testContext() *world.Context {
	return &world.Context{
		TavernReputation:     50,
		CustomerSatisfaction: 50,
		Atmosphere:           50,
	}
}

func TestInjector_MaybeTriggerRespectsPreconditions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	inj := NewInjector(nil, rng, morningNow(), nil)
	ctx := testContext()

	// The hooded stranger requires evening hours; at 9am it must
	// never fire regardless of rolls.
	for i := 0; i < 200; i++ {
		if e := inj.MaybeTrigger(ctx, nil); e != nil && e.ID == "stranger_hood" {
			t.Fatal("stranger_hood fired outside its hour window")
		}
	}
}

func TestInjector_CulturalEventGate(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	ctx := testContext()

	inj := NewInjector(nil, rng, eveningNow(), nil)
	for i := 0; i < 200; i++ {
		if e := inj.MaybeTrigger(ctx, nil); e != nil && e.ID == "cultural_toast" {
			t.Fatal("cultural_toast fired without the festival active")
		}
	}

	ctx.ActiveCulturalEvents = []string{"harvest_festival"}
	seen := false
	for i := 0; i < 500; i++ {
		if e := inj.MaybeTrigger(ctx, nil); e != nil && e.ID == "cultural_toast" {
			seen = true
			break
		}
	}
	if !seen {
		t.Error("expected cultural_toast to become eligible during the festival")
	}
}

func TestInjector_NoEligibleEvents(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	catalogue := []Event{{
		ID:         "unreachable",
		Priority:   PriorityLow,
		Conditions: Preconditions{MinReputation: 99},
	}}
	inj := NewInjector(catalogue, rng, eveningNow(), nil)

	if e := inj.MaybeTrigger(testContext(), nil); e != nil {
		t.Errorf("expected nil with no eligible events, got %v", e.ID)
	}
}

func TestInjector_ApplyClampsAtmosphereAndReacts(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	inj := NewInjector(nil, rng, eveningNow(), nil)

	ctx := testContext()
	ctx.Atmosphere = 98
	chars := []*character.Character{
		{ID: "bram", Name: "bram", Class: "Merchant"},
		{ID: "ida", Name: "ida", Class: "weaver"},
	}

	var caravan *Event
	for i := range Catalogue() {
		e := Catalogue()[i]
		if e.ID == "arrival_caravan" {
			caravan = &e
			break
		}
	}

	out := inj.Apply(caravan, chars, ctx)
	if out.Context.Atmosphere != 100 {
		t.Errorf("expected atmosphere clamped to 100, got %d", out.Context.Atmosphere)
	}
	if ctx.Atmosphere != 98 {
		t.Errorf("expected original context untouched, got %d", ctx.Atmosphere)
	}
	if len(out.Reactions) != 2 {
		t.Fatalf("expected a reaction per character, got %d", len(out.Reactions))
	}
	if out.Reactions[0].Line != "Bram sizes up the newcomers' coin purses." {
		t.Errorf("expected class-keyed reaction, got %q", out.Reactions[0].Line)
	}
	if out.Reactions[1].Line != "Ida glances at the newcomers, then back to you." {
		t.Errorf("expected default-fallback reaction, got %q", out.Reactions[1].Line)
	}
}

func TestInjector_SatisfactionWeighting(t *testing.T) {
	// With satisfaction high, positive events double their weight;
	// verify by distribution over a seeded run.
	rng := rand.New(rand.NewSource(5))
	inj := NewInjector(nil, rng, eveningNow(), nil)

	ctx := testContext()
	ctx.CustomerSatisfaction = 90

	positive := 0
	total := 0
	for i := 0; i < 1000; i++ {
		e := inj.MaybeTrigger(ctx, nil)
		if e == nil {
			continue
		}
		total++
		if e.Positive {
			positive++
		}
	}
	if total == 0 {
		t.Fatal("expected events to fire")
	}
	if float64(positive)/float64(total) < 0.5 {
		t.Errorf("expected positive events to dominate at high satisfaction, got %d/%d", positive, total)
	}
}
