// Package world holds the tavern/world context record supplied by the
// regional and tavern-economy subsystems. The conversation engine
// reads it for condition evaluation and event injection, and adjusts
// only the atmosphere score.
package world

import "time"

// Context is a snapshot of the tavern and surrounding region.
type Context struct {
	CurrentScene         string   `json:"current_scene,omitempty"`
	ActiveCulturalEvents []string `json:"active_cultural_events,omitempty"`
	TavernReputation     int      `json:"tavern_reputation"`     // 0-100
	CustomerSatisfaction int      `json:"customer_satisfaction"` // 0-100
	Region               string   `json:"region,omitempty"`
	RecentNews           []string `json:"recent_news,omitempty"`
	ActiveRumors         []string `json:"active_rumors,omitempty"`
	PlayerReputation     int      `json:"player_reputation"`

	// Atmosphere (0-100) is the one field the engine mutates, via
	// event application.
	Atmosphere int `json:"atmosphere"`
}

// IsEvening reports whether t falls in the tavern's busy evening
// hours, when spontaneous events peak.
func IsEvening(t time.Time) bool {
	h := t.Hour()
	return h >= 18 && h <= 23
}

// Activity returns a 0.5-2.0 multiplier for how lively the tavern is
// at time t. Satisfaction raises it, dead morning hours lower it.
func (c *Context) Activity(t time.Time) float64 {
	m := 0.5 + float64(c.CustomerSatisfaction)/100.0
	if IsEvening(t) {
		m *= 1.5
	} else if t.Hour() < 10 {
		m *= 0.6
	}
	if m > 2.0 {
		m = 2.0
	}
	return m
}

// HasActiveEvent reports whether the named cultural event is running.
func (c *Context) HasActiveEvent(name string) bool {
	for _, e := range c.ActiveCulturalEvents {
		if e == name {
			return true
		}
	}
	return false
}
