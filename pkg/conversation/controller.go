package conversation

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/emotion"
	"github.com/jwebster45206/tavern-engine/pkg/memory"
	"github.com/jwebster45206/tavern-engine/pkg/player"
	"github.com/jwebster45206/tavern-engine/pkg/relationship"
	"github.com/jwebster45206/tavern-engine/pkg/tavern"
	"github.com/jwebster45206/tavern-engine/pkg/world"
)

// ErrSessionEnded is returned when acting on a session that has
// already ended.
var ErrSessionEnded = errors.New("session has ended")

// hostileThreshold is the pair-relationship level below which a
// conversation collapses mid-turn.
const hostileThreshold = -20

// Controller drives single-character conversations. It owns no
// state tables itself; the four leaf components are injected at
// construction.
type Controller struct {
	ledger        *memory.Ledger
	emotions      *emotion.Model
	relationships *relationship.Table
	store         *dialogue.Store
	injector      *tavern.Injector
	rng           *rand.Rand
	now           func() time.Time
	logger        *slog.Logger
}

// NewController wires a session controller. Pass nil now to use
// time.Now and nil logger to use slog.Default.
func NewController(
	ledger *memory.Ledger,
	emotions *emotion.Model,
	relationships *relationship.Table,
	store *dialogue.Store,
	injector *tavern.Injector,
	rng *rand.Rand,
	now func() time.Time,
	logger *slog.Logger,
) *Controller {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		ledger:        ledger,
		emotions:      emotions,
		relationships: relationships,
		store:         store,
		injector:      injector,
		rng:           rng,
		now:           now,
		logger:        logger,
	}
}

// env assembles the dialogue evaluation environment for a pair.
func (c *Controller) env(char *character.Character, ps *player.State, ctx *world.Context) dialogue.Env {
	rec := c.ledger.Get(char.ID, ps.Spec.ID, char.MemoryStrength)
	rel := c.relationships.Initialize(char.ID, ps.Spec.ID)
	emo, err := c.emotions.Get(char.ID)
	if err != nil {
		emo = c.emotions.Initialize(char)
	}
	return dialogue.Env{
		Memory:  rec,
		Rel:     rel,
		Player:  ps,
		Emotion: emo,
		World:   ctx,
		Now:     c.now(),
	}
}

// Start opens a session with one character: seeds the memory and
// relationship tables on first contact, runs emotional recovery for
// the time since the last meeting, generates the opening line, and
// returns the initial options.
func (c *Controller) Start(ps *player.State, char *character.Character, ctx *world.Context) (*Session, []*dialogue.Node, error) {
	if ps == nil || char == nil {
		return nil, nil, fmt.Errorf("player and character are required")
	}

	now := c.now()
	rec := c.ledger.Get(char.ID, ps.Spec.ID, char.MemoryStrength)

	if minutes := now.Sub(rec.LastInteraction).Minutes(); minutes > 0 {
		if err := c.emotions.Recover(char.ID, minutes); err != nil {
			c.emotions.Initialize(char)
		}
	}
	c.relationships.Initialize(char.ID, ps.Spec.ID)

	sess := &Session{
		ID:                  uuid.New(),
		PlayerID:            ps.Spec.ID,
		Participants:        []string{char.ID},
		State:               StateActive,
		StartedAt:           now,
		LastActivity:        now,
		RelationshipChanges: make(map[string]int),
		Mood:                "casual",
	}

	category, line := pickOpening(c.rng, char, ctx)
	sess.append(char.ID, line, KindCharacter, now)

	c.logger.Debug("Conversation started",
		"session_id", sess.ID,
		"character", char.ID,
		"player", ps.Spec.ID,
		"opening_category", string(category))

	options := c.store.AvailableOptions(char.ID, c.env(char, ps, ctx))
	return sess, options, nil
}

// TurnResult is what one selected option produces.
type TurnResult struct {
	PlayerMessage Message          `json:"player_message"`
	Response      Message          `json:"response"`
	EventMessages []Message        `json:"event_messages,omitempty"`
	Event         *tavern.Event    `json:"event,omitempty"`
	Impact        int              `json:"impact"`
	Options       []*dialogue.Node `json:"options,omitempty"`
	Ended         bool             `json:"ended"`
	Summary       *Summary         `json:"summary,omitempty"`
}

// SelectOption advances the session one turn: logs the player's
// line, resolves the character's styled response, applies the
// option's consequences through the leaf components, gives the event
// injector its chance, and returns the refreshed options.
func (c *Controller) SelectOption(sess *Session, char *character.Character, ps *player.State, ctx *world.Context, nodeID string) (*TurnResult, error) {
	if sess.State != StateActive {
		return nil, ErrSessionEnded
	}

	sel, err := c.store.SelectOption(char.ID, nodeID)
	if err != nil {
		return nil, err
	}

	now := c.now()
	result := &TurnResult{
		PlayerMessage: sess.append(ps.Spec.ID, sel.Option.Text, KindPlayer, now),
	}

	rec := c.ledger.Get(char.ID, ps.Spec.ID, char.MemoryStrength)
	line := c.composeResponse(sel, char, rec, ps)
	result.Response = sess.append(char.ID, line, KindCharacter, now)

	impact := c.applyEffects(sess, char, ps, sel.Effects)
	result.Impact = impact
	sess.RelationshipChanges[char.ID] += impact

	// A conversation gone bad enough collapses on its own.
	if impact < 0 && rec.Relationship+sess.RelationshipChanges[char.ID] < hostileThreshold {
		sess.append(char.ID, fmt.Sprintf("%s turns away. The conversation is over.", char.Name), KindSystem, now)
		summary, endErr := c.End(sess, []*character.Character{char})
		if endErr != nil {
			return nil, endErr
		}
		result.Ended = true
		result.Summary = summary
		return result, nil
	}

	if ev, msgs := c.maybeInjectEvent(sess, []*character.Character{char}, ctx); ev != nil {
		result.Event = ev
		result.EventMessages = msgs
	}

	result.Options = c.store.AvailableOptions(char.ID, c.env(char, ps, ctx))
	return result, nil
}

// composeResponse resolves the character's line: styled template for
// probing or suspicious exchanges, the authored node text otherwise,
// with memory callbacks prepended when the response references the
// past.
func (c *Controller) composeResponse(sel *dialogue.Selection, char *character.Character, rec *memory.Record, ps *player.State) string {
	style := resolveStyle(sel.Option.Type, char, rec.Relationship)

	var line string
	switch {
	case style == StyleDefensive || style == StyleNervous || style == StyleIntrigued || style == StyleSuspicious:
		line = responseLine(c.rng, sel.Option.Type, style)
	case sel.Response != nil && sel.Response.Text != "":
		line = sel.Response.Text
	default:
		line = responseLine(c.rng, sel.Option.Type, style)
	}

	if sel.Response != nil && sel.Response.Role == dialogue.RoleMemoryReference {
		refs := c.ledger.ConversationReferences(char.ID, ps.Spec.ID, sel.MemoryTopic)
		if len(refs) > 0 {
			line = strings.Join(refs, " ") + " " + line
		}
	}
	return line
}

// applyEffects routes each consequence to its owning component and
// returns the net relationship impact.
func (c *Controller) applyEffects(sess *Session, char *character.Character, ps *player.State, effects []dialogue.Effect) int {
	impact := 0
	for _, eff := range effects {
		switch eff.Kind {
		case dialogue.EffectRelationship:
			resp := relationship.Response{}
			if eff.Amount > 0 {
				resp.Happiness = eff.Amount
			} else {
				resp.Suspicion = -eff.Amount
			}
			delta, err := c.relationships.ApplyEmotionalResponse(char.ID, ps.Spec.ID, resp)
			if err != nil {
				c.logger.Warn("Relationship update failed", "character", char.ID, "error", err)
				continue
			}
			impact += delta
		case dialogue.EffectMood:
			sess.Mood = eff.Mood
		case dialogue.EffectInfo:
			sess.Information = append(sess.Information, eff.Text)
		case dialogue.EffectSecret:
			c.ledger.AddSecret(char.ID, ps.Spec.ID, eff.Text, memory.Severity(eff.Severity))
			sess.Secrets = append(sess.Secrets, eff.Text)
		case dialogue.EffectQuest:
			sess.Quests = append(sess.Quests, eff.Text)
		case dialogue.EffectPromise:
			c.ledger.AddPromise(char.ID, ps.Spec.ID, eff.Text, time.Time{}, memory.Severity(eff.Severity))
		case dialogue.EffectEmotion:
			if _, err := c.emotions.ApplyDelta(char.ID, map[string]int{eff.Emotion: eff.Amount}); err != nil {
				c.logger.Warn("Emotion update failed", "character", char.ID, "error", err)
			}
		}
	}
	return impact
}

// maybeInjectEvent rolls for a spontaneous world event. The chance
// grows with time since the last event and scales with tavern
// activity, which peaks in the evening.
func (c *Controller) maybeInjectEvent(sess *Session, chars []*character.Character, ctx *world.Context) (*tavern.Event, []Message) {
	if ctx == nil || c.injector == nil {
		return nil, nil
	}

	now := c.now()
	last := sess.LastEventAt
	if last.IsZero() {
		last = sess.StartedAt
	}

	p := now.Sub(last).Minutes() * 0.02 * ctx.Activity(now)
	if p > 0.6 {
		p = 0.6
	}
	if c.rng.Float64() >= p {
		return nil, nil
	}

	ev := c.injector.MaybeTrigger(ctx, chars)
	if ev == nil {
		return nil, nil
	}

	out := c.injector.Apply(ev, chars, ctx)
	*ctx = out.Context

	var msgs []Message
	msgs = append(msgs, sess.append("narrator", ev.Headline, KindSystem, now))
	for _, r := range out.Reactions {
		msgs = append(msgs, sess.append(r.CharacterID, r.Line, KindSystem, now))
	}
	if ev.MoodShift != "" {
		sess.Mood = ev.MoodShift
	}
	sess.AppliedEvents = append(sess.AppliedEvents, ev.ID)
	sess.LastEventAt = now
	return ev, msgs
}

// InjectSpontaneous is the sweep entry point: it gives an idle but
// active session the same event roll a turn would.
func (c *Controller) InjectSpontaneous(sess *Session, chars []*character.Character, ctx *world.Context) (*tavern.Event, []Message) {
	if sess.State != StateActive {
		return nil, nil
	}
	return c.maybeInjectEvent(sess, chars, ctx)
}

// End closes the session: writes a conversation summary into each
// participant's ledger, ticks grudge forgiveness after a good talk,
// and returns the terminal summary. Ending is always legal while the
// session is active.
func (c *Controller) End(sess *Session, chars []*character.Character) (*Summary, error) {
	if sess.State != StateActive {
		return nil, ErrSessionEnded
	}

	now := c.now()
	sess.State = StateEnded

	topic := "a chat at the tavern"
	if len(sess.Quests) > 0 {
		topic = sess.Quests[0]
	} else if len(sess.Information) > 0 {
		topic = sess.Information[0]
	}

	for _, char := range chars {
		net := sess.RelationshipChanges[char.ID]
		c.ledger.AppendSummary(char.ID, sess.PlayerID, memory.Summary{
			Topic:              topic,
			Text:               fmt.Sprintf("We spoke of %s.", topic),
			RelationshipChange: net,
			Timestamp:          now,
		})
		if net > 0 {
			if err := c.relationships.TickForgiveness(char.ID, sess.PlayerID); err != nil {
				c.logger.Warn("Forgiveness tick failed", "character", char.ID, "error", err)
			}
		}
	}

	net := sess.NetRelationshipChange()
	summary := &Summary{
		SessionID:           sess.ID,
		Participants:        sess.Participants,
		Duration:            now.Sub(sess.StartedAt),
		MessageCount:        len(sess.Messages),
		NetRelationship:     net,
		RelationshipChanges: sess.RelationshipChanges,
		Tone:                toneFor(net),
		Information:         sess.Information,
		Quests:              sess.Quests,
		Secrets:             sess.Secrets,
		AppliedEvents:       sess.AppliedEvents,
	}

	c.logger.Info("Conversation ended",
		"session_id", sess.ID,
		"duration", summary.Duration,
		"net_relationship", net,
		"tone", summary.Tone)

	return summary, nil
}
