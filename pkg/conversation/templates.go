package conversation

import (
	"math/rand"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/world"
)

// OpeningCategory classifies how a character opens a conversation.
type OpeningCategory string

const (
	OpeningGreeting        OpeningCategory = "greeting"
	OpeningRegionalNews    OpeningCategory = "regional_news"
	OpeningTavernComment   OpeningCategory = "tavern_comment"
	OpeningFactionPolitics OpeningCategory = "faction_politics"
)

// openingLines are static configuration data, not logic; selection
// within a category is rng-driven.
var openingLines = map[OpeningCategory][]string{
	OpeningGreeting: {
		"Evening. Pull up a stool if you like.",
		"Well now. Haven't seen your face in here before.",
		"You look like someone with a story. Sit.",
	},
	OpeningRegionalNews: {
		"You hear what happened out on the east road?",
		"They say the river towns are restless again.",
		"Word travels slow in winter, but it got here all the same.",
	},
	OpeningTavernComment: {
		"The ale's better than the roof. Mind the drip.",
		"Busy night. The hearth draws them in when the wind's up.",
		"Old Marta waters the wine after midnight. You didn't hear that from me.",
	},
	OpeningFactionPolitics: {
		"Guild colors everywhere tonight. Makes a body nervous.",
		"The council can argue all it likes; it's us who pay the tariffs.",
		"Don't sit near the west wall unless you share their politics.",
	},
}

// pickOpening does the weighted category pick described in the
// session-controller contract. Traits and world context skew the
// weights before the roll.
func pickOpening(rng *rand.Rand, c *character.Character, ctx *world.Context) (OpeningCategory, string) {
	weights := map[OpeningCategory]int{
		OpeningGreeting:        40,
		OpeningRegionalNews:    20,
		OpeningTavernComment:   25,
		OpeningFactionPolitics: 15,
	}
	if c.HasTrait("Gossip") {
		weights[OpeningRegionalNews] += 20
	}
	if c.HasTrait("Political") {
		weights[OpeningFactionPolitics] += 20
	}
	if ctx != nil {
		if len(ctx.RecentNews) > 0 {
			weights[OpeningRegionalNews] += 10
		}
		if ctx.CustomerSatisfaction > 70 {
			weights[OpeningTavernComment] += 10
		}
	}

	order := []OpeningCategory{
		OpeningGreeting, OpeningRegionalNews, OpeningTavernComment, OpeningFactionPolitics,
	}
	total := 0
	for _, cat := range order {
		total += weights[cat]
	}
	roll := rng.Intn(total)
	category := order[len(order)-1]
	for _, cat := range order {
		roll -= weights[cat]
		if roll < 0 {
			category = cat
			break
		}
	}

	lines := openingLines[category]
	return category, lines[rng.Intn(len(lines))]
}

// ResponseStyle is the tone a character answers in.
type ResponseStyle string

const (
	StyleFriendly   ResponseStyle = "friendly"
	StyleGruff      ResponseStyle = "gruff"
	StyleDefensive  ResponseStyle = "defensive"
	StyleNervous    ResponseStyle = "nervous"
	StyleIntrigued  ResponseStyle = "intrigued"
	StyleSuspicious ResponseStyle = "suspicious"
)

// resolveStyle applies the fixed precedence: secret probes resolve
// by relationship depth, suspicious characters bristle at
// information requests, and everything else falls back to the
// character's base preference.
func resolveStyle(optionType dialogue.OptionType, c *character.Character, relationshipScore int) ResponseStyle {
	if optionType == dialogue.OptionSecretProbe {
		switch {
		case relationshipScore < 10:
			return StyleDefensive
		case relationshipScore < 50:
			return StyleNervous
		default:
			return StyleIntrigued
		}
	}
	if optionType == dialogue.OptionInfoRequest && c.HasTrait("Suspicious") {
		return StyleSuspicious
	}
	return basePreference(c)
}

func basePreference(c *character.Character) ResponseStyle {
	switch {
	case c.HasTrait("Gruff"), c.HasTrait("Surly"):
		return StyleGruff
	case c.HasTrait("Suspicious"):
		return StyleSuspicious
	default:
		return StyleFriendly
	}
}

// responseTemplates maps (option type, style) to candidate lines.
// Missing entries fall back to the friendly/social defaults rather
// than erroring, to stay robust to incomplete data tables.
var responseTemplates = map[dialogue.OptionType]map[ResponseStyle][]string{
	dialogue.OptionSocial: {
		StyleFriendly: {
			"Ha! You're good company, I'll give you that.",
			"Can't complain. The fire's warm and the night's young.",
		},
		StyleGruff: {
			"Hmph. Talk's free, I suppose.",
			"If you say so.",
		},
		StyleSuspicious: {
			"Friendly, aren't you. Wonder why.",
		},
	},
	dialogue.OptionInfoRequest: {
		StyleFriendly: {
			"Now that you mention it, I did hear something.",
			"Depends what you want to know, friend.",
		},
		StyleSuspicious: {
			"Who's asking? You, or someone paying you to ask?",
			"I keep my ears open and my mouth shut. Mostly.",
		},
		StyleGruff: {
			"Do I look like a town crier to you?",
		},
	},
	dialogue.OptionSecretProbe: {
		StyleDefensive: {
			"I don't know what you think you've heard, but drop it.",
			"That's no business of yours. Or anyone's.",
		},
		StyleNervous: {
			"Keep your voice down. Not here. Not now.",
			"Why would you... who told you to ask me that?",
		},
		StyleIntrigued: {
			"You're sharper than you look. All right. Lean in.",
			"Maybe I do know something. Maybe I've been waiting to tell someone.",
		},
	},
	dialogue.OptionTrade: {
		StyleFriendly: {
			"For you? I might shave a little off the top.",
		},
		StyleGruff: {
			"Prices are on the board. Coin first.",
		},
	},
	dialogue.OptionFlirt: {
		StyleFriendly: {
			"Careful. Charm like that gets people in trouble in here.",
		},
		StyleGruff: {
			"Save it for someone who blushes.",
		},
	},
	dialogue.OptionConfrontation: {
		StyleFriendly: {
			"Easy now. No need for that between us.",
		},
		StyleGruff: {
			"You want to do this? Here? Think hard.",
		},
		StyleDefensive: {
			"I've done nothing you can prove.",
		},
	},
	dialogue.OptionFarewell: {
		StyleFriendly: {
			"Safe roads to you. Come back when your cup's empty.",
		},
		StyleGruff: {
			"Aye. Go on, then.",
		},
	},
}

// responseLine picks a template line for the option type and style,
// falling back to the friendly social lines when the table has no
// entry.
func responseLine(rng *rand.Rand, optionType dialogue.OptionType, style ResponseStyle) string {
	styles, ok := responseTemplates[optionType]
	if !ok {
		styles = responseTemplates[dialogue.OptionSocial]
	}
	lines, ok := styles[style]
	if !ok || len(lines) == 0 {
		lines = responseTemplates[dialogue.OptionSocial][StyleFriendly]
	}
	return lines[rng.Intn(len(lines))]
}
