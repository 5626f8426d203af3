package tavern

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/world"
)

// Injector selects and applies world events against a conversation's
// context. Selection is probabilistic but driven by the injected
// rand source, so tests can pin outcomes.
type Injector struct {
	catalogue []Event
	rng       *rand.Rand
	now       func() time.Time
	logger    *slog.Logger
}

// NewInjector builds an injector over the given catalogue. A nil
// catalogue uses the built-in one; nil now uses time.Now.
func NewInjector(catalogue []Event, rng *rand.Rand, now func() time.Time, logger *slog.Logger) *Injector {
	if catalogue == nil {
		catalogue = Catalogue()
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Injector{
		catalogue: catalogue,
		rng:       rng,
		now:       now,
		logger:    logger,
	}
}

// MaybeTrigger filters the catalogue by preconditions, weights the
// survivors by priority adjusted for current customer satisfaction,
// and picks one by weighted random selection. Returns nil when no
// event is eligible.
func (i *Injector) MaybeTrigger(ctx *world.Context, chars []*character.Character) *Event {
	now := i.now()

	type weighted struct {
		event  *Event
		weight int
	}
	var pool []weighted
	total := 0

	for idx := range i.catalogue {
		e := &i.catalogue[idx]
		if !e.eligible(ctx, now, chars) {
			continue
		}
		w := priorityWeight[e.Priority]
		if w == 0 {
			w = 1
		}
		// High satisfaction favors positive events; low satisfaction
		// dampens events that would drag the room down further.
		if ctx.CustomerSatisfaction >= 70 && e.Positive {
			w *= 2
		}
		if ctx.CustomerSatisfaction <= 30 && e.AtmosphereDelta < 0 {
			w = (w + 1) / 2
		}
		pool = append(pool, weighted{event: e, weight: w})
		total += w
	}

	if total == 0 {
		return nil
	}

	roll := i.rng.Intn(total)
	for _, w := range pool {
		roll -= w.weight
		if roll < 0 {
			return w.event
		}
	}
	return pool[len(pool)-1].event
}

// Reaction is one character's in-scene response to an event.
type Reaction struct {
	CharacterID string `json:"character_id"`
	Line        string `json:"line"`
}

// Outcome is the non-destructive result of applying an event: an
// updated copy of the context plus one reaction line per character.
// The caller decides whether to splice these into the session log.
type Outcome struct {
	Event     *Event        `json:"event"`
	Context   world.Context `json:"context"`
	Reactions []Reaction    `json:"reactions"`
}

// Apply computes the event's effect on a copy of the context and
// generates a reaction line per present character, looked up by
// class with a "default" fallback.
func (i *Injector) Apply(e *Event, chars []*character.Character, ctx *world.Context) *Outcome {
	updated := *ctx
	updated.Atmosphere += e.AtmosphereDelta
	if updated.Atmosphere > 100 {
		updated.Atmosphere = 100
	}
	if updated.Atmosphere < 0 {
		updated.Atmosphere = 0
	}

	caser := cases.Title(language.English)
	reactions := make([]Reaction, 0, len(chars))
	for _, c := range chars {
		line, ok := e.Reactions[strings.ToLower(c.Class)]
		if !ok {
			line = e.Reactions["default"]
		}
		if line == "" {
			line = "takes it in without comment."
		}
		reactions = append(reactions, Reaction{
			CharacterID: c.ID,
			Line:        fmt.Sprintf("%s %s", caser.String(c.Name), line),
		})
	}

	i.logger.Debug("Applied tavern event",
		"event", e.ID,
		"atmosphere", updated.Atmosphere,
		"reactions", len(reactions))

	return &Outcome{
		Event:     e,
		Context:   updated,
		Reactions: reactions,
	}
}
