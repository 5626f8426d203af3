// Package tavern implements mid-conversation world-event injection:
// a fixed catalogue of typed tavern events, precondition filtering,
// satisfaction-adjusted weighted selection, and non-destructive
// application.
package tavern

import (
	"time"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/world"
)

// EventType classifies a catalogue entry.
type EventType string

const (
	EventArrival            EventType = "arrival"
	EventNews               EventType = "news"
	EventCulturalMoment     EventType = "cultural_moment"
	EventFactionTension     EventType = "faction_tension"
	EventTavernIncident     EventType = "tavern_incident"
	EventWeather            EventType = "weather"
	EventMysteriousStranger EventType = "mysterious_stranger"
)

// Priority tiers weight event selection: low x1 through critical x4.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityWeight = map[Priority]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityCritical: 4,
}

// Preconditions gate when an event can fire. Zero values mean
// unconstrained.
type Preconditions struct {
	MinHour          int      `json:"min_hour,omitempty"`
	MaxHour          int      `json:"max_hour,omitempty"` // 0 means no ceiling
	MinReputation    int      `json:"min_reputation,omitempty"`
	RequiredRaces    []string `json:"required_races,omitempty"`
	RequiresCultural string   `json:"requires_cultural,omitempty"` // named active cultural event
}

// Event is one catalogue entry.
type Event struct {
	ID              string            `json:"id"`
	Type            EventType         `json:"type"`
	Priority        Priority          `json:"priority"`
	Headline        string            `json:"headline"`
	Description     string            `json:"description"`
	MoodShift       string            `json:"mood_shift,omitempty"`
	AtmosphereDelta int               `json:"atmosphere_delta"`
	OptionHints     []string          `json:"option_hints,omitempty"`
	Reactions       map[string]string `json:"reactions,omitempty"` // class-keyed, "default" fallback
	Duration        time.Duration     `json:"duration,omitempty"`
	Conditions      Preconditions     `json:"conditions,omitempty"`
	Positive        bool              `json:"positive"`
}

// eligible checks the event's preconditions against the current
// context and present characters.
func (e *Event) eligible(ctx *world.Context, now time.Time, chars []*character.Character) bool {
	h := now.Hour()
	if e.Conditions.MinHour > 0 && h < e.Conditions.MinHour {
		return false
	}
	if e.Conditions.MaxHour > 0 && h > e.Conditions.MaxHour {
		return false
	}
	if ctx.TavernReputation < e.Conditions.MinReputation {
		return false
	}
	if e.Conditions.RequiresCultural != "" && !ctx.HasActiveEvent(e.Conditions.RequiresCultural) {
		return false
	}
	for _, race := range e.Conditions.RequiredRaces {
		found := false
		for _, c := range chars {
			if c.Race == race {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
