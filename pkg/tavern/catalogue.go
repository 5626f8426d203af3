package tavern

import "time"

// Catalogue is the fixed set of injectable tavern events. Treated as
// static configuration data.
func Catalogue() []Event {
	return []Event{
		{
			ID:              "arrival_caravan",
			Type:            EventArrival,
			Priority:        PriorityMedium,
			Headline:        "A dusty caravan crew pushes through the door.",
			Description:     "Half a dozen road-worn travelers crowd the bar, calling for ale and news.",
			MoodShift:       "casual",
			AtmosphereDelta: 8,
			OptionHints:     []string{"ask the travelers about the road"},
			Reactions: map[string]string{
				"merchant": "sizes up the newcomers' coin purses.",
				"guard":    "shifts to keep the door in view.",
				"default":  "glances at the newcomers, then back to you.",
			},
			Duration: 30 * time.Minute,
			Positive: true,
		},
		{
			ID:              "news_crier",
			Type:            EventNews,
			Priority:        PriorityLow,
			Headline:        "A crier's voice carries in from the square.",
			Description:     "Word of a proclamation filters through the room, retold with embellishment at every table.",
			AtmosphereDelta: 3,
			OptionHints:     []string{"ask about the proclamation"},
			Reactions: map[string]string{
				"scholar": "mutters a correction of the crier's grammar.",
				"default": "listens for a moment with half an ear.",
			},
			Duration: 15 * time.Minute,
			Positive: true,
		},
		{
			ID:              "cultural_toast",
			Type:            EventCulturalMoment,
			Priority:        PriorityMedium,
			Headline:        "The room rises for the festival toast.",
			Description:     "Mugs lift all around as the old festival toast is called out.",
			MoodShift:       "friendly",
			AtmosphereDelta: 12,
			Reactions: map[string]string{
				"bard":    "leads the toast with a flourish.",
				"default": "raises a mug out of habit.",
			},
			Duration:   10 * time.Minute,
			Conditions: Preconditions{RequiresCultural: "harvest_festival"},
			Positive:   true,
		},
		{
			ID:              "faction_argument",
			Type:            EventFactionTension,
			Priority:        PriorityHigh,
			Headline:        "Voices rise sharply at a corner table.",
			Description:     "Two factions' colors face off over a spilled drink, and the room quiets to listen.",
			MoodShift:       "tense",
			AtmosphereDelta: -10,
			Reactions: map[string]string{
				"guard":    "rests a hand on a cudgel.",
				"merchant": "quietly moves valuables below the table.",
				"default":  "lowers their voice and watches the corner table.",
			},
			Duration: 20 * time.Minute,
		},
		{
			ID:              "incident_spill",
			Type:            EventTavernIncident,
			Priority:        PriorityLow,
			Headline:        "A tray of drinks crashes to the floor.",
			Description:     "A serving tray goes down in a spray of ale and oaths.",
			AtmosphereDelta: -4,
			Reactions: map[string]string{
				"default": "winces at the crash.",
			},
			Duration: 5 * time.Minute,
		},
		{
			ID:              "weather_storm",
			Type:            EventWeather,
			Priority:        PriorityMedium,
			Headline:        "Thunder rolls; rain hammers the shutters.",
			Description:     "A storm breaks overhead and the tavern fills with people in no hurry to leave.",
			MoodShift:       "casual",
			AtmosphereDelta: 5,
			OptionHints:     []string{"remark on the storm"},
			Reactions: map[string]string{
				"farmer":  "frowns at the ceiling, thinking of the fields.",
				"default": "edges closer to the fire.",
			},
			Duration: 60 * time.Minute,
			Positive: true,
		},
		{
			ID:              "stranger_hood",
			Type:            EventMysteriousStranger,
			Priority:        PriorityCritical,
			Headline:        "A hooded figure takes the darkest table without a word.",
			Description:     "Nobody saw the stranger enter, yet there they sit, watching the room.",
			MoodShift:       "tense",
			AtmosphereDelta: -6,
			OptionHints:     []string{"ask about the stranger"},
			Reactions: map[string]string{
				"rogue":   "pretends very hard not to notice.",
				"guard":   "marks the stranger's hands and exits.",
				"default": "steals a glance at the dark table.",
			},
			Duration:   45 * time.Minute,
			Conditions: Preconditions{MinHour: 17},
		},
	}
}
