package dialogue

import (
	"fmt"
	"time"

	"github.com/jwebster45206/tavern-engine/pkg/character"
)

// GenerateTrees builds a character's static dialogue forest at
// onboarding. Greeting is always present; conflict is gated behind a
// soured relationship; quest, personal-story, trade and romance
// trees appear per the character's goals, class and eligibility.
// The generated trees are static thereafter; only visitation state
// changes. Dynamic quest content attaches separately via
// Store.AttachNodes.
func GenerateTrees(c *character.Character) []*Tree {
	trees := []*Tree{greetingTree(c), conflictTree(c)}
	if c.HasGoals() {
		trees = append(trees, questTree(c))
	}
	trees = append(trees, personalTree(c))
	if c.IsMerchant() {
		trees = append(trees, tradeTree(c))
	}
	if romanceEligible(c) {
		trees = append(trees, romanceTree(c))
	}
	return trees
}

// romanceEligible applies the static half of the romance gate; the
// relationship and attraction thresholds live on the tree's unlock
// conditions.
func romanceEligible(c *character.Character) bool {
	return c.Age >= 18 && c.Age <= 60 && !c.HasTrait("Celibate")
}

func nodeID(characterID, tree, name string) string {
	return fmt.Sprintf("%s_%s_%s", characterID, tree, name)
}

func greetingTree(c *character.Character) *Tree {
	id := func(name string) string { return nodeID(c.ID, "greeting", name) }

	root := &Node{
		ID:      id("root"),
		Role:    RoleRoot,
		Speaker: c.ID,
		Text:    fmt.Sprintf("%s looks up as you approach.", c.Name),
		Children: []string{
			id("chat"), id("ask_news"), id("ask_self"), id("probe"), id("farewell"),
		},
	}
	chat := &Node{
		ID:       id("chat"),
		Role:     RoleBranch,
		Speaker:  SpeakerPlayer,
		Type:     OptionSocial,
		Text:     "How's the evening treating you?",
		Priority: 5,
		Children: []string{id("chat_reply")},
	}
	chatReply := &Node{
		ID:       id("chat_reply"),
		Role:     RoleBranch,
		Speaker:  c.ID,
		Text:     "Well enough, well enough. The ale helps.",
		Children: []string{id("ask_news"), id("farewell")},
	}
	askNews := &Node{
		ID:       id("ask_news"),
		Role:     RoleBranch,
		Speaker:  SpeakerPlayer,
		Type:     OptionInfoRequest,
		Text:     "Heard anything worth hearing lately?",
		Priority: 4,
		Cooldown: 30 * time.Minute,
		Children: []string{id("news_reply")},
	}
	newsReply := &Node{
		ID:      id("news_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "Depends who's asking, and who's buying.",
		Effects: []Effect{{Kind: EffectInfo, Text: "local gossip"}},
	}
	askSelf := &Node{
		ID:       id("ask_self"),
		Role:     RoleMemoryReference,
		Speaker:  SpeakerPlayer,
		Type:     OptionSocial,
		Text:     "We've talked before, haven't we?",
		Priority: 3,
		Conditions: []Condition{
			{Kind: CondMemory, Op: OpGreaterThan, Value: 0},
		},
		Children: []string{id("self_reply")},
	}
	selfReply := &Node{
		ID:          id("self_reply"),
		Role:        RoleMemoryReference,
		Speaker:     c.ID,
		Text:        "Aye, I remember you.",
		MemoryTopic: "",
	}
	probe := &Node{
		ID:       id("probe"),
		Role:     RoleConditional,
		Speaker:  SpeakerPlayer,
		Type:     OptionSecretProbe,
		Text:     "You strike me as someone who knows things others don't.",
		Priority: 2,
		OneTime:  true,
		Conditions: []Condition{
			{Kind: CondRelationship, Key: "trust", Op: OpGreaterThan, Value: 30},
		},
		Children: []string{id("probe_reply")},
	}
	probeReply := &Node{
		ID:      id("probe_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "And you strike me as someone who asks dangerous questions.",
	}
	farewell := &Node{
		ID:       id("farewell"),
		Role:     RoleLeaf,
		Speaker:  SpeakerPlayer,
		Type:     OptionFarewell,
		Text:     "I'll leave you to your drink.",
		Priority: 1,
		Children: []string{id("farewell_reply")},
	}
	farewellReply := &Node{
		ID:      id("farewell_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "Mind the door on your way out.",
	}

	return NewTree(nodeID(c.ID, "greeting", "tree"), c.ID, CategoryGreeting,
		root, chat, chatReply, askNews, newsReply, askSelf, selfReply,
		probe, probeReply, farewell, farewellReply)
}

func conflictTree(c *character.Character) *Tree {
	id := func(name string) string { return nodeID(c.ID, "conflict", name) }

	root := &Node{
		ID:       id("root"),
		Role:     RoleRoot,
		Speaker:  c.ID,
		Text:     fmt.Sprintf("%s eyes you coldly.", c.Name),
		Children: []string{id("confront"), id("apologize")},
	}
	confront := &Node{
		ID:       id("confront"),
		Role:     RoleBranch,
		Speaker:  SpeakerPlayer,
		Type:     OptionConfrontation,
		Text:     "If you have something to say, say it.",
		Priority: 5,
		Children: []string{id("confront_reply")},
	}
	confrontReply := &Node{
		ID:      id("confront_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "You know exactly what you did.",
		Effects: []Effect{{Kind: EffectRelationship, Amount: -5}, {Kind: EffectMood, Mood: "tense"}},
	}
	apologize := &Node{
		ID:       id("apologize"),
		Role:     RoleBranch,
		Speaker:  SpeakerPlayer,
		Type:     OptionSocial,
		Text:     "I'd like to make things right between us.",
		Priority: 4,
		Children: []string{id("apologize_reply")},
	}
	apologizeReply := &Node{
		ID:      id("apologize_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "Words are cheap in this place. We'll see.",
		Effects: []Effect{{Kind: EffectRelationship, Amount: 3}},
	}

	t := NewTree(nodeID(c.ID, "conflict", "tree"), c.ID, CategoryConflict,
		root, confront, confrontReply, apologize, apologizeReply)
	t.UnlockConditions = []Condition{
		{Kind: CondRelationship, Op: OpLessThan, Value: -20},
	}
	return t
}

func questTree(c *character.Character) *Tree {
	id := func(name string) string { return nodeID(c.ID, "quest", name) }

	goal := c.Goals[0]
	root := &Node{
		ID:       id("root"),
		Role:     RoleQuestGate,
		Speaker:  c.ID,
		Text:     fmt.Sprintf("%s seems preoccupied with something.", c.Name),
		Children: []string{id("offer_help")},
	}
	offerHelp := &Node{
		ID:       id("offer_help"),
		Role:     RoleBranch,
		Speaker:  SpeakerPlayer,
		Type:     OptionQuest,
		Text:     "Something weighing on you? Maybe I can help.",
		Priority: 6,
		OneTime:  true,
		Children: []string{id("quest_pitch")},
	}
	questPitch := &Node{
		ID:      id("quest_pitch"),
		Role:    RoleQuestGate,
		Speaker: c.ID,
		Text:    fmt.Sprintf("There is one thing. %s. Interested?", goal),
		Effects: []Effect{{Kind: EffectQuest, Text: goal}},
		Children: []string{
			id("accept"), id("decline"),
		},
	}
	accept := &Node{
		ID:       id("accept"),
		Role:     RoleLeaf,
		Speaker:  SpeakerPlayer,
		Type:     OptionQuest,
		Text:     "Count me in.",
		Priority: 5,
		Children: []string{id("accept_reply")},
	}
	acceptReply := &Node{
		ID:      id("accept_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "Good. Don't make me regret trusting an outsider.",
		Effects: []Effect{
			{Kind: EffectRelationship, Amount: 5},
			{Kind: EffectPromise, Text: goal, Severity: "moderate"},
		},
	}
	decline := &Node{
		ID:       id("decline"),
		Role:     RoleLeaf,
		Speaker:  SpeakerPlayer,
		Type:     OptionSocial,
		Text:     "Not my kind of trouble, sorry.",
		Priority: 4,
		Children: []string{id("decline_reply")},
	}
	declineReply := &Node{
		ID:      id("decline_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "Suit yourself.",
		Effects: []Effect{{Kind: EffectRelationship, Amount: -2}},
	}

	return NewTree(nodeID(c.ID, "quest", "tree"), c.ID, CategoryQuest,
		root, offerHelp, questPitch, accept, acceptReply, decline, declineReply)
}

func personalTree(c *character.Character) *Tree {
	id := func(name string) string { return nodeID(c.ID, "personal", name) }

	root := &Node{
		ID:       id("root"),
		Role:     RoleRoot,
		Speaker:  c.ID,
		Text:     fmt.Sprintf("%s seems at ease in your company.", c.Name),
		Children: []string{id("ask_past")},
	}
	askPast := &Node{
		ID:       id("ask_past"),
		Role:     RoleBranch,
		Speaker:  SpeakerPlayer,
		Type:     OptionSocial,
		Text:     "How did you end up in this tavern, of all places?",
		Priority: 5,
		OneTime:  true,
		Children: []string{id("past_reply")},
	}
	pastReply := &Node{
		ID:      id("past_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "That's a longer story than you have coin for. But since you ask...",
		Effects: []Effect{
			{Kind: EffectRelationship, Amount: 5},
			{Kind: EffectSecret, Text: "a piece of my past", Severity: "minor"},
		},
	}

	t := NewTree(nodeID(c.ID, "personal", "tree"), c.ID, CategoryPersonal,
		root, askPast, pastReply)
	t.UnlockConditions = []Condition{
		{Kind: CondRelationship, Op: OpGreaterThan, Value: 40},
	}
	return t
}

func tradeTree(c *character.Character) *Tree {
	id := func(name string) string { return nodeID(c.ID, "trade", name) }

	root := &Node{
		ID:       id("root"),
		Role:     RoleRoot,
		Speaker:  c.ID,
		Text:     fmt.Sprintf("%s pats a well-worn ledger.", c.Name),
		Children: []string{id("browse"), id("haggle")},
	}
	browse := &Node{
		ID:       id("browse"),
		Role:     RoleBranch,
		Speaker:  SpeakerPlayer,
		Type:     OptionTrade,
		Text:     "What are you selling?",
		Priority: 5,
		Children: []string{id("browse_reply")},
	}
	browseReply := &Node{
		ID:      id("browse_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "Only the finest, friend. Only the finest.",
	}
	haggle := &Node{
		ID:       id("haggle"),
		Role:     RoleConditional,
		Speaker:  SpeakerPlayer,
		Type:     OptionTrade,
		Text:     "Those prices are robbery and you know it.",
		Priority: 4,
		Conditions: []Condition{
			{Kind: CondSkill, Key: "persuasion", Op: OpGreaterThan, Value: 3},
		},
		Children: []string{id("haggle_reply")},
	}
	haggleReply := &Node{
		ID:      id("haggle_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "Robbery! From me? ...Fine. Ten percent, and not a copper more.",
		Effects: []Effect{{Kind: EffectRelationship, Amount: 2}},
	}

	return NewTree(nodeID(c.ID, "trade", "tree"), c.ID, CategoryTrade,
		root, browse, browseReply, haggle, haggleReply)
}

func romanceTree(c *character.Character) *Tree {
	id := func(name string) string { return nodeID(c.ID, "romance", name) }

	root := &Node{
		ID:       id("root"),
		Role:     RoleRoot,
		Speaker:  c.ID,
		Text:     fmt.Sprintf("%s holds your gaze a moment longer than necessary.", c.Name),
		Children: []string{id("flirt")},
	}
	flirt := &Node{
		ID:       id("flirt"),
		Role:     RoleBranch,
		Speaker:  SpeakerPlayer,
		Type:     OptionFlirt,
		Text:     "Is it the firelight, or do you look especially fine tonight?",
		Priority: 5,
		Cooldown: 60 * time.Minute,
		Children: []string{id("flirt_reply")},
	}
	flirtReply := &Node{
		ID:      id("flirt_reply"),
		Role:    RoleLeaf,
		Speaker: c.ID,
		Text:    "The firelight flatters everyone. You needed no help.",
		Effects: []Effect{
			{Kind: EffectRelationship, Amount: 3},
			{Kind: EffectEmotion, Emotion: "love", Amount: 5},
		},
	}

	t := NewTree(nodeID(c.ID, "romance", "tree"), c.ID, CategoryRomance,
		root, flirt, flirtReply)
	t.UnlockConditions = []Condition{
		{Kind: CondRelationship, Op: OpGreaterThan, Value: 60},
		{Kind: CondEmotion, Key: "love", Op: OpGreaterThan, Value: 50},
	}
	return t
}
