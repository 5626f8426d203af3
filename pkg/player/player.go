// Package player holds the player-side state consulted during
// dialogue condition evaluation. Skills are compiled into a
// d20.Actor so predicate checks read through Actor.Attribute.
package player

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/d20"
)

// Spec is the serializable description of a player.
type Spec struct {
	ID               string         `json:"id"`
	Name             string         `json:"name,omitempty"`
	Skills           map[string]int `json:"skills,omitempty"`
	Items            []string       `json:"items,omitempty"`
	ActiveQuests     []string       `json:"active_quests,omitempty"`
	CompletedQuests  []string       `json:"completed_quests,omitempty"`
	FactionStandings map[string]int `json:"faction_standings,omitempty"`
	Reputation       int            `json:"reputation,omitempty"`
}

// State is the runtime representation of a player.
type State struct {
	Spec  *Spec
	Actor *d20.Actor // built from Spec.Skills
}

// NewState builds a runtime player from its spec.
func NewState(spec *Spec) (*State, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	if spec.ID == "" {
		return nil, fmt.Errorf("player id cannot be empty")
	}

	attrs := make(map[string]int, len(spec.Skills))
	for k, v := range spec.Skills {
		attrs[strings.ToLower(k)] = v
	}

	// The tavern engine has no combat; HP/AC are nominal values the
	// actor builder requires.
	actor, err := d20.NewActor(spec.ID).
		WithHP(10).
		WithAC(10).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	return &State{Spec: spec, Actor: actor}, nil
}

// Skill returns the player's rating for a skill, or 0 if untrained.
func (s *State) Skill(name string) int {
	if s == nil || s.Actor == nil {
		return 0
	}
	if v, ok := s.Actor.Attribute(strings.ToLower(name)); ok {
		return v
	}
	return 0
}

// HasItem reports whether the player carries the named item.
func (s *State) HasItem(name string) bool {
	if s == nil || s.Spec == nil {
		return false
	}
	for _, it := range s.Spec.Items {
		if strings.EqualFold(it, name) {
			return true
		}
	}
	return false
}

// QuestActive reports whether the named quest is in progress.
func (s *State) QuestActive(id string) bool {
	if s == nil || s.Spec == nil {
		return false
	}
	for _, q := range s.Spec.ActiveQuests {
		if q == id {
			return true
		}
	}
	return false
}

// QuestCompleted reports whether the named quest is finished.
func (s *State) QuestCompleted(id string) bool {
	if s == nil || s.Spec == nil {
		return false
	}
	for _, q := range s.Spec.CompletedQuests {
		if q == id {
			return true
		}
	}
	return false
}

// Standing returns the player's standing with a faction, or 0.
func (s *State) Standing(faction string) int {
	if s == nil || s.Spec == nil {
		return 0
	}
	return s.Spec.FactionStandings[faction]
}
