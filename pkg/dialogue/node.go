// Package dialogue implements the per-character dialogue tree store:
// the node/condition/consequence model, availability evaluation,
// option selection, and onboarding tree generation.
package dialogue

import "time"

// Role classifies a node's structural purpose within its tree.
type Role string

const (
	RoleRoot            Role = "root"
	RoleBranch          Role = "branch"
	RoleLeaf            Role = "leaf"
	RoleConditional     Role = "conditional"
	RoleMemoryReference Role = "memory_reference"
	RoleQuestGate       Role = "quest_gate"
)

// SpeakerPlayer marks nodes spoken by the player; any other speaker
// value is a character id.
const SpeakerPlayer = "player"

// OptionType keys the response-template lookup in the session
// controller.
type OptionType string

const (
	OptionSocial        OptionType = "social"
	OptionInfoRequest   OptionType = "information_request"
	OptionSecretProbe   OptionType = "secret_probe"
	OptionTrade         OptionType = "trade"
	OptionQuest         OptionType = "quest"
	OptionFlirt         OptionType = "flirt"
	OptionConfrontation OptionType = "confrontation"
	OptionFarewell      OptionType = "farewell"
)

// EffectKind tags a consequence effect. Each kind uses only the
// fields it needs.
type EffectKind string

const (
	EffectRelationship EffectKind = "relationship" // Amount: signed delta, routed through the relationship updater
	EffectMood         EffectKind = "mood"         // Mood: new session mood label
	EffectInfo         EffectKind = "reveal_info"  // Text: information discovered
	EffectSecret       EffectKind = "secret"       // Text + Severity: secret shared
	EffectQuest        EffectKind = "quest"        // Text: quest hook discovered
	EffectEmotion      EffectKind = "emotion"      // Emotion + Amount: emotional delta for the character
	EffectPromise      EffectKind = "promise"      // Text + Severity: promise made
)

// Effect is one consequence of selecting a dialogue node.
type Effect struct {
	Kind     EffectKind `json:"kind"`
	Amount   int        `json:"amount,omitempty"`
	Emotion  string     `json:"emotion,omitempty"`
	Mood     string     `json:"mood,omitempty"`
	Text     string     `json:"text,omitempty"`
	Severity string     `json:"severity,omitempty"`
}

// Node is a single line or choice in a dialogue tree.
type Node struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Speaker    string      `json:"speaker"` // SpeakerPlayer or a character id
	Text       string      `json:"text"`
	Type       OptionType  `json:"type,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Effects    []Effect    `json:"effects,omitempty"`
	Children   []string    `json:"children,omitempty"`
	Priority   int         `json:"priority,omitempty"`
	OneTime    bool        `json:"one_time,omitempty"`

	// Cooldown is the minimum wait before the node may be offered
	// again after use. Zero means no cooldown.
	Cooldown time.Duration `json:"cooldown,omitempty"`

	// MemoryTopic, on memory-reference nodes, hints which past topic
	// the character should call back to.
	MemoryTopic string `json:"memory_topic,omitempty"`
}

// IsPlayer reports whether the node is spoken by the player.
func (n *Node) IsPlayer() bool {
	return n.Speaker == SpeakerPlayer
}
