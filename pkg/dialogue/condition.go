package dialogue

import (
	"strings"
	"time"

	"github.com/jwebster45206/tavern-engine/pkg/emotion"
	"github.com/jwebster45206/tavern-engine/pkg/memory"
	"github.com/jwebster45206/tavern-engine/pkg/player"
	"github.com/jwebster45206/tavern-engine/pkg/relationship"
	"github.com/jwebster45206/tavern-engine/pkg/world"
)

// ConditionKind tags a condition predicate.
type ConditionKind string

const (
	CondRelationship ConditionKind = "relationship"
	CondSkill        ConditionKind = "skill"
	CondItem         ConditionKind = "item"
	CondQuest        ConditionKind = "quest"
	CondSecret       ConditionKind = "secret"
	CondMemory       ConditionKind = "memory"
	CondEmotion      ConditionKind = "emotion"
	CondTime         ConditionKind = "time"
	CondFaction      ConditionKind = "faction"
)

// Operator compares a state value against a condition's target.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
)

// Condition is one typed predicate on a dialogue node or tree. Each
// kind reads only the fields it needs: numeric kinds use Key/Op/Value,
// membership kinds use Text.
type Condition struct {
	Kind  ConditionKind `json:"kind"`
	Key   string        `json:"key,omitempty"`
	Op    Operator      `json:"op,omitempty"`
	Value int           `json:"value,omitempty"`
	Text  string        `json:"text,omitempty"`
}

// Env is the evaluation environment a condition reads from. Any
// field may be nil; predicates against missing state fail closed for
// known kinds.
type Env struct {
	Memory   *memory.Record
	Rel      *relationship.Dynamics
	Player   *player.State
	Emotion  *emotion.State
	World    *world.Context
	Now      time.Time
	Visited  map[string]bool
	LastUsed map[string]time.Time
}

// Eval evaluates every condition; all must hold.
func Eval(conds []Condition, env Env) bool {
	for _, c := range conds {
		if !evalCondition(c, env) {
			return false
		}
	}
	return true
}

func evalCondition(c Condition, env Env) bool {
	switch c.Kind {
	case CondRelationship:
		return evalRelationship(c, env)
	case CondSkill:
		if env.Player == nil {
			return false
		}
		return compare(env.Player.Skill(c.Key), c.Op, c.Value)
	case CondItem:
		if env.Player == nil {
			return false
		}
		has := env.Player.HasItem(c.Text)
		return membership(has, c.Op)
	case CondQuest:
		return evalQuest(c, env)
	case CondSecret:
		return evalSecret(c, env)
	case CondMemory:
		return evalMemory(c, env)
	case CondEmotion:
		if env.Emotion == nil {
			return false
		}
		return compare(env.Emotion.Values[c.Key], c.Op, c.Value)
	case CondTime:
		if env.Now.IsZero() {
			return false
		}
		return compare(env.Now.Hour(), c.Op, c.Value)
	case CondFaction:
		if env.Player == nil {
			return false
		}
		return compare(env.Player.Standing(c.Key), c.Op, c.Value)
	default:
		// Unknown predicate kinds are treated as satisfied. This
		// permissiveness keeps content with newer condition kinds
		// usable on older engines; see DESIGN.md before tightening.
		return true
	}
}

// evalRelationship reads the pairwise relationship scalar from the
// memory record when no key is given, or a named dynamics scalar
// otherwise.
func evalRelationship(c Condition, env Env) bool {
	if c.Key == "" {
		if env.Memory == nil {
			return false
		}
		return compare(env.Memory.Relationship, c.Op, c.Value)
	}
	if env.Rel == nil {
		return false
	}
	var v int
	switch c.Key {
	case "friendship":
		v = env.Rel.Friendship
	case "romance":
		v = env.Rel.Romance
	case "rivalry":
		v = env.Rel.Rivalry
	case "mentorship":
		v = env.Rel.Mentorship
	case "trust":
		v = env.Rel.Trust
	case "respect":
		v = env.Rel.Respect
	default:
		return true // unknown scalar name: permissive
	}
	return compare(v, c.Op, c.Value)
}

func evalQuest(c Condition, env Env) bool {
	if env.Player == nil {
		return false
	}
	var has bool
	switch c.Key {
	case "active":
		has = env.Player.QuestActive(c.Text)
	default:
		has = env.Player.QuestCompleted(c.Text)
	}
	return membership(has, c.Op)
}

func evalSecret(c Condition, env Env) bool {
	if env.Memory == nil {
		return false
	}
	if c.Op == OpContains || c.Op == OpNotContains {
		found := false
		for _, s := range env.Memory.Secrets {
			if strings.Contains(strings.ToLower(s.Content), strings.ToLower(c.Text)) {
				found = true
				break
			}
		}
		return membership(found, c.Op)
	}
	return compare(len(env.Memory.Secrets), c.Op, c.Value)
}

func evalMemory(c Condition, env Env) bool {
	if env.Memory == nil {
		return false
	}
	if c.Op == OpContains || c.Op == OpNotContains {
		found := false
		for _, s := range env.Memory.Summaries {
			if strings.Contains(strings.ToLower(s.Topic), strings.ToLower(c.Text)) ||
				strings.Contains(strings.ToLower(s.Text), strings.ToLower(c.Text)) {
				found = true
				break
			}
		}
		return membership(found, c.Op)
	}
	switch c.Key {
	case "trust":
		return compare(env.Memory.Trust, c.Op, c.Value)
	default:
		return compare(env.Memory.ConversationCount, c.Op, c.Value)
	}
}

func compare(actual int, op Operator, target int) bool {
	switch op {
	case OpEquals:
		return actual == target
	case OpGreaterThan:
		return actual > target
	case OpLessThan:
		return actual < target
	default:
		return true // unsupported operator for this kind: permissive
	}
}

func membership(has bool, op Operator) bool {
	switch op {
	case OpNotContains:
		return !has
	case OpContains:
		return has
	default:
		return has
	}
}
