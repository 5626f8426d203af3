// Package character defines the character description record consumed
// from the character-generation subsystem. The conversation engine
// treats these records as read-only input.
package character

import "strings"

// Character describes a tavern character as supplied by the
// character-generation subsystem.
type Character struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Race             string         `json:"race,omitempty"`
	Class            string         `json:"class,omitempty"`
	Age              int            `json:"age,omitempty"`
	Traits           []string       `json:"traits,omitempty"`
	Skills           map[string]int `json:"skills,omitempty"`
	Goals            []string       `json:"goals,omitempty"`
	FactionStandings map[string]int `json:"faction_standings,omitempty"`
	SocialRank       int            `json:"social_rank,omitempty"`

	// MemoryStrength (0-100) determines how many conversation
	// summaries the character retains about a player.
	MemoryStrength int `json:"memory_strength,omitempty"`
}

// merchantClasses are classes treated as merchant-like for trade
// dialogue purposes.
var merchantClasses = map[string]bool{
	"merchant":   true,
	"trader":     true,
	"shopkeeper": true,
	"peddler":    true,
	"smuggler":   true,
}

// HasTrait reports whether the character has the named trait.
// Matching is case-insensitive.
func (c *Character) HasTrait(name string) bool {
	for _, t := range c.Traits {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// HasGoals reports whether the character has any declared goals.
func (c *Character) HasGoals() bool {
	return len(c.Goals) > 0
}

// IsMerchant reports whether the character's class is merchant-like.
func (c *Character) IsMerchant() bool {
	return merchantClasses[strings.ToLower(c.Class)]
}

// Skill returns the character's rating for a skill, or 0 if unknown.
func (c *Character) Skill(name string) int {
	return c.Skills[strings.ToLower(name)]
}

// Standing returns the character's standing with a faction, or 0.
func (c *Character) Standing(faction string) int {
	return c.FactionStandings[faction]
}
