package conversation

import (
	"testing"

	"github.com/jwebster45206/tavern-engine/pkg/character"
)

func groupCast() []*character.Character {
	return []*character.Character{
		{ID: "borin", Name: "borin", Race: "Dwarf", Class: "smith", Age: 140, SocialRank: 3, MemoryStrength: 40},
		{ID: "ael", Name: "ael", Race: "Elf", Class: "bard", Age: 120, SocialRank: 4, MemoryStrength: 60},
		{ID: "tam", Name: "tam", Race: "Human", Class: "farmer", Age: 30, SocialRank: 2, MemoryStrength: 30},
	}
}

func startGroup(t *testing.T, f *fixture) (*GroupSession, []*character.Character) {
	t.Helper()
	chars := groupCast()
	for _, ch := range chars {
		f.emotions.Initialize(ch)
	}
	g, err := f.controller.StartGroup(testPlayer(t), chars, testWorld(), "the weather")
	if err != nil {
		t.Fatalf("start group: %v", err)
	}
	return g, chars
}

func TestStartGroup_SeedsStructure(t *testing.T) {
	f := newFixture(t, 11, nil)
	g, chars := startGroup(t, f)

	if len(g.SpeakingOrder) != len(chars) {
		t.Fatalf("expected %d in speaking order, got %d", len(chars), len(g.SpeakingOrder))
	}
	found := false
	for _, id := range g.SpeakingOrder {
		if id == g.CurrentSpeaker {
			found = true
		}
	}
	if !found {
		t.Error("current speaker must be an element of the speaking order")
	}

	// Borin and Ael carry the dwarf-elf friction from the pair table.
	if len(g.Tensions) != 1 {
		t.Fatalf("expected one pairwise tension, got %d", len(g.Tensions))
	}
	if g.Tensions[0].Level != 40 {
		t.Errorf("expected dwarf-elf tension 40, got %d", g.Tensions[0].Level)
	}

	for _, id := range []string{"borin", "ael", "tam"} {
		if _, ok := g.Dominance[id]; !ok {
			t.Errorf("expected a dominance score for %s", id)
		}
		if _, ok := g.Styles()[id]; !ok {
			t.Errorf("expected a communication style for %s", id)
		}
		if _, ok := f.ledger.Lookup(id, "pc_1"); !ok {
			t.Errorf("expected a seeded memory record for %s", id)
		}
	}
}

func TestStartGroup_RejectsTooFewParticipants(t *testing.T) {
	f := newFixture(t, 12, nil)
	if _, err := f.controller.StartGroup(testPlayer(t), groupCast()[:1], testWorld(), ""); err == nil {
		t.Error("expected an error with a single character")
	}
}

func TestDriftMood_DisagreementsHeatTheRoom(t *testing.T) {
	// Two disagreements against zero positives step casual toward
	// tense; the reverse cools tense back toward casual.
	if got := driftMood(GroupMoodCasual, 0, 2); got != GroupMoodTense {
		t.Errorf("expected tense, got %s", got)
	}
	if got := driftMood(GroupMoodTense, 2, 0); got != GroupMoodCasual {
		t.Errorf("expected casual, got %s", got)
	}
	if got := driftMood(GroupMoodHeated, 0, 3); got != GroupMoodHeated {
		t.Errorf("heated is the ceiling, got %s", got)
	}
	if got := driftMood(GroupMoodFriendly, 3, 0); got != GroupMoodFriendly {
		t.Errorf("friendly is the floor, got %s", got)
	}
	// Entry moods join the axis before drifting.
	if got := driftMood(GroupMoodFormal, 0, 1); got != GroupMoodTense {
		t.Errorf("formal drifts as casual, got %s", got)
	}
	if got := driftMood(GroupMoodIntimate, 0, 1); got != GroupMoodCasual {
		t.Errorf("intimate drifts as friendly, got %s", got)
	}
	if got := driftMood(GroupMoodCasual, 1, 1); got != GroupMoodCasual {
		t.Errorf("balanced reactions hold the mood, got %s", got)
	}
}

func TestNextSpeaker_UrgentInterruptionPreempts(t *testing.T) {
	f := newFixture(t, 13, nil)
	g, _ := startGroup(t, f)

	g.CurrentSpeaker = g.SpeakingOrder[0]
	g.Enqueue(Interruption{CharacterID: "tam", Urgency: 85, Reason: "spilled ale"})
	g.Enqueue(Interruption{CharacterID: "ael", Urgency: 40, Reason: "a quip"})

	if got := g.NextSpeaker(); got != "tam" {
		t.Fatalf("expected the urgent interrupter, got %s", got)
	}
	if g.CurrentSpeaker != "tam" {
		t.Errorf("current speaker must track the interrupter, got %s", g.CurrentSpeaker)
	}
	for _, in := range g.QueuedInterruptions() {
		if in.CharacterID == "tam" {
			t.Error("expected the served interruption dequeued")
		}
	}

	// The remaining entry is below the preemption bar, so rotation
	// resumes from the interrupter's position in the order.
	next := g.NextSpeaker()
	if next == "tam" {
		t.Error("rotation must advance past the previous speaker")
	}
	found := false
	for _, id := range g.SpeakingOrder {
		if id == next {
			found = true
		}
	}
	if !found {
		t.Errorf("next speaker %s must come from the speaking order", next)
	}
}

func TestNextSpeaker_RotatesCircularly(t *testing.T) {
	f := newFixture(t, 14, nil)
	g, _ := startGroup(t, f)

	g.CurrentSpeaker = g.SpeakingOrder[len(g.SpeakingOrder)-1]
	if got := g.NextSpeaker(); got != g.SpeakingOrder[0] {
		t.Errorf("expected wraparound to %s, got %s", g.SpeakingOrder[0], got)
	}
}

func TestPostMessage_ReactionsAndInvariants(t *testing.T) {
	f := newFixture(t, 15, nil)
	g, _ := startGroup(t, f)

	turn, err := f.controller.PostMessage(g, "pc_1", "So. Who's buying the next round?", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if turn.Message.Kind != KindPlayer {
		t.Errorf("expected a player message, got %s", turn.Message.Kind)
	}

	// Every character rolls a reaction; the speaker never does.
	if len(turn.Reactions) != 3 {
		t.Fatalf("expected 3 reactions, got %d", len(turn.Reactions))
	}
	for _, r := range turn.Reactions {
		if r.CharacterID == "pc_1" {
			t.Error("the speaker must not react to their own line")
		}
		if r.Intensity < 1 || r.Intensity > 10 {
			t.Errorf("intensity out of range: %d", r.Intensity)
		}
		if r.Verbal == "" || r.Physical == "" {
			t.Error("expected templated verbal and physical strings")
		}
	}

	valid := map[GroupMood]bool{
		GroupMoodFriendly: true, GroupMoodTense: true, GroupMoodFormal: true,
		GroupMoodCasual: true, GroupMoodHeated: true, GroupMoodIntimate: true,
	}
	if !valid[turn.Mood] {
		t.Errorf("mood left the enum: %s", turn.Mood)
	}

	// Queued interruptions stay sorted by urgency.
	q := g.QueuedInterruptions()
	for i := 1; i < len(q); i++ {
		if q[i-1].Urgency < q[i].Urgency {
			t.Error("interruption queue must be ordered by urgency")
		}
	}
}

func TestPostMessage_AddressedRaisesInterruptionPressure(t *testing.T) {
	f := newFixture(t, 16, nil)
	g, _ := startGroup(t, f)

	// Addressed participants interrupt at a visibly higher rate over
	// many beats. Rough bounds, not exact probabilities.
	addressedHits, unaddressedHits := 0, 0
	for i := 0; i < 400; i++ {
		turn, err := f.controller.PostMessage(g, "pc_1", "And what do you say to that?", []string{"borin"})
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		for _, in := range turn.Interruptions {
			if in.CharacterID == "borin" {
				addressedHits++
			} else {
				unaddressedHits++
			}
		}
		g.queue = nil
	}
	if addressedHits <= unaddressedHits/2 {
		t.Errorf("expected addressed participant to interrupt more: addressed %d vs others %d", addressedHits, unaddressedHits)
	}
}

func TestEndGroup_WritesEachLedger(t *testing.T) {
	f := newFixture(t, 17, nil)
	g, chars := startGroup(t, f)

	if _, err := f.controller.PostMessage(g, "pc_1", "To good company.", nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	summary, err := f.controller.EndGroup(g, chars)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if summary.MessageCount < 2 {
		t.Errorf("expected the opener and the toast in the log, got %d", summary.MessageCount)
	}
	for _, ch := range chars {
		rec, ok := f.ledger.Lookup(ch.ID, "pc_1")
		if !ok || rec.ConversationCount != 1 {
			t.Errorf("expected one recorded conversation for %s", ch.ID)
		}
	}
	if g.State != StateEnded {
		t.Errorf("expected ended state, got %s", g.State)
	}
}
