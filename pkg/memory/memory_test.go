package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func fixedNow() func() time.Time {
	t := time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestLedger_GetCreatesWithFirstMeeting(t *testing.T) {
	l := NewLedger(fixedNow())

	r := l.Get("greta", "p1", 60)
	if r.Trust != 50 {
		t.Errorf("expected initial trust 50, got %d", r.Trust)
	}
	if r.Relationship != 5 {
		t.Errorf("expected relationship 5 after first-meeting milestone, got %d", r.Relationship)
	}
	if len(r.Milestones) != 1 || r.Milestones[0].Type != "first_meeting" {
		t.Fatalf("expected a single first_meeting milestone, got %+v", r.Milestones)
	}
}

func TestLedger_ConcurrentPairAccess(t *testing.T) {
	l := NewLedger(fixedNow())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			playerID := fmt.Sprintf("p%d", i)
			l.Get("greta", playerID, 50)
			l.AppendSummary("greta", playerID, Summary{Topic: "ale", Text: "we talked"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		r, ok := l.Lookup("greta", fmt.Sprintf("p%d", i))
		if !ok {
			t.Fatalf("expected a record for p%d", i)
		}
		if r.ConversationCount != 1 {
			t.Errorf("expected one conversation for p%d, got %d", i, r.ConversationCount)
		}
	}
}

func TestLedger_GetIsIdempotent(t *testing.T) {
	l := NewLedger(fixedNow())

	first := l.Get("greta", "p1", 60)
	second := l.Get("greta", "p1", 60)

	if first != second {
		t.Error("expected the same record on repeated Get")
	}
	if len(second.Milestones) != 1 {
		t.Errorf("expected first-meeting milestone not to be re-seeded, got %d milestones", len(second.Milestones))
	}
}

func TestLedger_SummaryCapEviction(t *testing.T) {
	l := NewLedger(fixedNow())
	r := l.Get("greta", "p1", 30) // cap = 30/10 + 5 = 8

	for i := 0; i < 12; i++ {
		l.AppendSummary("greta", "p1", Summary{
			Topic: fmt.Sprintf("topic-%d", i),
			Text:  "we talked",
		})
	}

	if cap := r.SummaryCap(); cap != 8 {
		t.Fatalf("expected cap 8, got %d", cap)
	}
	if len(r.Summaries) != 8 {
		t.Fatalf("expected 8 summaries after eviction, got %d", len(r.Summaries))
	}
	// FIFO: oldest dropped first, so the list starts at topic-4.
	if r.Summaries[0].Topic != "topic-4" {
		t.Errorf("expected oldest surviving summary topic-4, got %s", r.Summaries[0].Topic)
	}
	if r.Summaries[7].Topic != "topic-11" {
		t.Errorf("expected newest summary topic-11, got %s", r.Summaries[7].Topic)
	}
	if r.ConversationCount != 12 {
		t.Errorf("expected conversation count 12, got %d", r.ConversationCount)
	}
}

func TestLedger_AddSecretTrustBonus(t *testing.T) {
	tests := []struct {
		severity Severity
		want     int
	}{
		{SeverityMinor, 55},
		{SeverityModerate, 60},
		{SeverityMajor, 70},
		{SeverityCritical, 85},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			l := NewLedger(fixedNow())
			l.Get("greta", "p1", 50)
			l.AddSecret("greta", "p1", "a secret", tt.severity)

			r, _ := l.Lookup("greta", "p1")
			if r.Trust != tt.want {
				t.Errorf("expected trust %d, got %d", tt.want, r.Trust)
			}
		})
	}
}

func TestLedger_ResolvePromise(t *testing.T) {
	l := NewLedger(fixedNow())
	l.Get("greta", "p1", 50)
	l.AddPromise("greta", "p1", "deliver the letter", time.Time{}, SeverityModerate)

	l.ResolvePromise("greta", "p1", "deliver the letter", true)
	r, _ := l.Lookup("greta", "p1")
	if r.Trust != 70 {
		t.Errorf("expected trust 70 after kept moderate promise, got %d", r.Trust)
	}
	if !r.Promises[0].Fulfilled {
		t.Error("expected promise marked fulfilled")
	}

	// Resolving again is a no-op.
	l.ResolvePromise("greta", "p1", "deliver the letter", true)
	if r.Trust != 70 {
		t.Errorf("expected trust unchanged on double resolve, got %d", r.Trust)
	}
}

func TestLedger_BrokenPromisePenalty(t *testing.T) {
	l := NewLedger(fixedNow())
	l.Get("greta", "p1", 50)
	l.AddPromise("greta", "p1", "repay the debt", time.Time{}, SeverityCritical)
	l.ResolvePromise("greta", "p1", "repay the debt", false)

	r, _ := l.Lookup("greta", "p1")
	if r.Trust != 0 {
		t.Errorf("expected trust clamped to 0 after broken critical promise, got %d", r.Trust)
	}
}

func TestLedger_EmotionalMomentImpact(t *testing.T) {
	tests := []struct {
		name      string
		emotion   string
		intensity int
		want      int // relationship after first-meeting +5
	}{
		{"positive", "joy", 6, 17},
		{"negative", "anger", 4, -3},
		{"neutral", "surprise", 8, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(fixedNow())
			l.Get("greta", "p1", 50)
			l.AddEmotionalMoment("greta", "p1", tt.emotion, tt.intensity, "")

			r, _ := l.Lookup("greta", "p1")
			if r.Relationship != tt.want {
				t.Errorf("expected relationship %d, got %d", tt.want, r.Relationship)
			}
		})
	}
}

func TestLedger_ConversationReferences(t *testing.T) {
	l := NewLedger(fixedNow())
	l.Get("greta", "p1", 50)

	l.AppendSummary("greta", "p1", Summary{Topic: "the harvest festival", Text: "festival plans"})
	l.AddSecret("greta", "p1", "the cellar passage", SeverityMajor)
	l.AddPromise("greta", "p1", "bring word from the capital", time.Time{}, SeverityMinor)
	l.AddEmotionalMoment("greta", "p1", "joy", 9, "shared a toast")

	refs := l.ConversationReferences("greta", "p1", "festival")
	if len(refs) != 2 {
		t.Fatalf("expected references capped at 2, got %d: %v", len(refs), refs)
	}
	if refs[0] != "Last time we spoke of the harvest festival." {
		t.Errorf("expected topic reference first, got %q", refs[0])
	}
	if refs[1] != "I still keep what you told me in confidence." {
		t.Errorf("expected secret reference second, got %q", refs[1])
	}
}

func TestLedger_ConversationReferencesUnknownPair(t *testing.T) {
	l := NewLedger(fixedNow())
	if refs := l.ConversationReferences("nobody", "p1", ""); refs != nil {
		t.Errorf("expected nil references for unknown pair, got %v", refs)
	}
}
