package conversation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/player"
	"github.com/jwebster45206/tavern-engine/pkg/world"
)

// GroupMood labels the shared temperature of a group scene.
type GroupMood string

const (
	GroupMoodFriendly GroupMood = "friendly"
	GroupMoodTense    GroupMood = "tense"
	GroupMoodFormal   GroupMood = "formal"
	GroupMoodCasual   GroupMood = "casual"
	GroupMoodHeated   GroupMood = "heated"
	GroupMoodIntimate GroupMood = "intimate"
)

// moodAxis is the drift track. Formal and intimate are entry moods
// that join the axis at casual and friendly respectively; once the
// scene starts moving it stays on the axis.
var moodAxis = []GroupMood{GroupMoodFriendly, GroupMoodCasual, GroupMoodTense, GroupMoodHeated}

func axisIndex(m GroupMood) int {
	switch m {
	case GroupMoodFormal:
		return 1
	case GroupMoodIntimate:
		return 0
	}
	for i, v := range moodAxis {
		if v == m {
			return i
		}
	}
	return 1
}

// driftMood nudges the mood one step along the axis: net negative
// reactions heat the room, net positive cool it.
func driftMood(m GroupMood, positives, negatives int) GroupMood {
	i := axisIndex(m)
	switch {
	case negatives > positives && i < len(moodAxis)-1:
		return moodAxis[i+1]
	case positives > negatives && i > 0:
		return moodAxis[i-1]
	}
	if i >= 0 && i < len(moodAxis) {
		return moodAxis[i]
	}
	return m
}

// CommStyle is a participant's communication profile, trait- and
// class-biased, each scalar 0-100.
type CommStyle struct {
	Talkativeness int `json:"talkativeness"`
	Interruption  int `json:"interruption"`
	Listening     int `json:"listening"`
	Empathy       int `json:"empathy"`
}

func clampStyle(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

func styleFor(c *character.Character) CommStyle {
	s := CommStyle{Talkativeness: 50, Interruption: 20, Listening: 50, Empathy: 50}

	if c.HasTrait("Gossip") || c.HasTrait("Boisterous") || c.HasTrait("Charming") {
		s.Talkativeness += 20
	}
	if c.HasTrait("Quiet") || c.HasTrait("Shy") {
		s.Talkativeness -= 20
		s.Listening += 15
	}
	if c.HasTrait("Rude") || c.HasTrait("Impatient") {
		s.Interruption += 25
		s.Listening -= 10
		s.Empathy -= 10
	}
	if c.HasTrait("Patient") {
		s.Listening += 20
	}
	if c.HasTrait("Kind") || c.HasTrait("Gentle") {
		s.Empathy += 20
	}
	if c.HasTrait("Suspicious") {
		s.Empathy -= 10
	}

	switch strings.ToLower(c.Class) {
	case "bard", "merchant", "trader":
		s.Talkativeness += 15
	case "scholar", "monk", "priest":
		s.Listening += 10
	}

	s.Talkativeness = clampStyle(s.Talkativeness)
	s.Interruption = clampStyle(s.Interruption)
	s.Listening = clampStyle(s.Listening)
	s.Empathy = clampStyle(s.Empathy)
	return s
}

// socialRank scores a participant for the speaking hierarchy.
func socialRank(c *character.Character) int {
	score := c.SocialRank * 10
	if c.Age > 50 {
		score += 10
	}
	if c.Age < 25 {
		score -= 5
	}
	switch strings.ToLower(c.Class) {
	case "noble", "merchant":
		score += 10
	case "bard":
		score += 5
	}
	return score
}

// dominanceScore is rank plus trait modifiers.
func dominanceScore(c *character.Character) int {
	score := socialRank(c)
	if c.HasTrait("Boisterous") {
		score += 10
	}
	if c.HasTrait("Commanding") || c.HasTrait("Proud") {
		score += 15
	}
	if c.HasTrait("Shy") || c.HasTrait("Timid") {
		score -= 15
	}
	return score
}

// racePairTension is the fixed table of baseline frictions, keyed by
// the sorted lowercase race pair.
var racePairTension = map[string]int{
	"dwarf|elf":       40,
	"human|orc":       30,
	"elf|orc":         50,
	"goblin|halfling": 35,
}

func pairKey(a, b string) string {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// Tension is a pairwise friction between two participants.
type Tension struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Level  int    `json:"level"` // 0-100
	Reason string `json:"reason"`
}

// Alliance is a pairwise affinity between two participants.
type Alliance struct {
	A     string `json:"a"`
	B     string `json:"b"`
	Basis string `json:"basis"`
}

// Interruption is one queued request to seize the floor.
type Interruption struct {
	CharacterID string `json:"character_id"`
	Urgency     int    `json:"urgency"` // 0-100
	Reason      string `json:"reason"`
}

// GroupSession extends a session to N participants with turn-taking
// structure. CurrentSpeaker is always an element of SpeakingOrder.
type GroupSession struct {
	Session

	SpeakingOrder  []string       `json:"speaking_order"`
	CurrentSpeaker string         `json:"current_speaker"`
	Dominance      map[string]int `json:"dominance"`
	Tensions       []Tension      `json:"tensions,omitempty"`
	Alliances      []Alliance     `json:"alliances,omitempty"`
	GroupMood      GroupMood      `json:"group_mood"`

	// queue is kept sorted by urgency descending.
	queue  []Interruption
	styles map[string]CommStyle
}

// Styles exposes the computed communication profiles.
func (g *GroupSession) Styles() map[string]CommStyle { return g.styles }

// QueuedInterruptions returns a copy of the pending queue.
func (g *GroupSession) QueuedInterruptions() []Interruption {
	out := make([]Interruption, len(g.queue))
	copy(out, g.queue)
	return out
}

// Enqueue inserts an interruption request, keeping the queue ordered
// by urgency.
func (g *GroupSession) Enqueue(in Interruption) {
	g.queue = append(g.queue, in)
	sort.SliceStable(g.queue, func(i, j int) bool {
		return g.queue[i].Urgency > g.queue[j].Urgency
	})
}

// NextSpeaker picks who talks next. An interruption with urgency
// above 70 preempts the rotation and is dequeued; otherwise the
// speaking order advances circularly.
func (g *GroupSession) NextSpeaker() string {
	if len(g.queue) > 0 && g.queue[0].Urgency > 70 {
		in := g.queue[0]
		g.queue = g.queue[1:]
		g.CurrentSpeaker = in.CharacterID
		return in.CharacterID
	}

	if len(g.SpeakingOrder) == 0 {
		return g.CurrentSpeaker
	}
	idx := 0
	for i, id := range g.SpeakingOrder {
		if id == g.CurrentSpeaker {
			idx = i
			break
		}
	}
	g.CurrentSpeaker = g.SpeakingOrder[(idx+1)%len(g.SpeakingOrder)]
	return g.CurrentSpeaker
}

// StartGroup opens a scene with several characters: ranks them,
// derives alliances and tensions, computes communication styles and
// the initial mood, and seeds pairwise state for each participant.
func (c *Controller) StartGroup(ps *player.State, chars []*character.Character, ctx *world.Context, topic string) (*GroupSession, error) {
	if ps == nil || len(chars) < 2 {
		return nil, fmt.Errorf("group conversations need a player and at least two characters")
	}

	now := c.now()
	g := &GroupSession{
		Session: Session{
			ID:                  uuid.New(),
			PlayerID:            ps.Spec.ID,
			State:               StateActive,
			StartedAt:           now,
			LastActivity:        now,
			RelationshipChanges: make(map[string]int),
		},
		Dominance: make(map[string]int),
		styles:    make(map[string]CommStyle),
	}

	type ranked struct {
		id    string
		score int
	}
	order := make([]ranked, 0, len(chars))
	for _, ch := range chars {
		g.Participants = append(g.Participants, ch.ID)
		g.Dominance[ch.ID] = dominanceScore(ch)
		g.styles[ch.ID] = styleFor(ch)
		c.ledger.Get(ch.ID, ps.Spec.ID, ch.MemoryStrength)
		c.relationships.Initialize(ch.ID, ps.Spec.ID)
		order = append(order, ranked{
			id:    ch.ID,
			score: socialRank(ch) + c.rng.Intn(21) - 10,
		})
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].score > order[j].score })
	for _, r := range order {
		g.SpeakingOrder = append(g.SpeakingOrder, r.id)
	}
	g.CurrentSpeaker = g.SpeakingOrder[0]

	for i := 0; i < len(chars); i++ {
		for j := i + 1; j < len(chars); j++ {
			a, b := chars[i], chars[j]
			if strings.EqualFold(a.Race, b.Race) {
				g.Alliances = append(g.Alliances, Alliance{A: a.ID, B: b.ID, Basis: "shared race"})
			} else if strings.EqualFold(a.Class, b.Class) {
				g.Alliances = append(g.Alliances, Alliance{A: a.ID, B: b.ID, Basis: "shared trade"})
			}
			if level, ok := racePairTension[pairKey(a.Race, b.Race)]; ok {
				g.Tensions = append(g.Tensions, Tension{
					A: a.ID, B: b.ID, Level: level,
					Reason: fmt.Sprintf("old grievances between %s and %s folk", strings.ToLower(a.Race), strings.ToLower(b.Race)),
				})
			}
		}
	}

	g.GroupMood = initialMood(c.emotionsDominant(chars), topic)
	g.Mood = string(g.GroupMood)

	g.append("narrator", "The table settles in. All eyes drift toward whoever speaks first.", KindSystem, now)

	c.logger.Debug("Group conversation started",
		"session_id", g.ID,
		"participants", len(chars),
		"mood", string(g.GroupMood))
	return g, nil
}

// emotionsDominant collects each character's dominant emotion label,
// empty for uninitialized characters.
func (c *Controller) emotionsDominant(chars []*character.Character) []string {
	out := make([]string, 0, len(chars))
	for _, ch := range chars {
		st, err := c.emotions.Get(ch.ID)
		if err != nil {
			continue
		}
		out = append(out, st.Dominant)
	}
	return out
}

// initialMood derives the opening mood from the majority dominant
// emotion, then lets topic keywords override.
func initialMood(dominants []string, topic string) GroupMood {
	counts := map[GroupMood]int{}
	for _, d := range dominants {
		switch d {
		case "anger", "disgust":
			counts[GroupMoodTense]++
		case "joy", "love", "contentment", "hope":
			counts[GroupMoodFriendly]++
		default:
			counts[GroupMoodCasual]++
		}
	}
	mood := GroupMoodCasual
	best := 0
	for _, m := range []GroupMood{GroupMoodFriendly, GroupMoodCasual, GroupMoodTense} {
		if counts[m] > best {
			best = counts[m]
			mood = m
		}
	}

	t := strings.ToLower(topic)
	switch {
	case strings.Contains(t, "politic"), strings.Contains(t, "war"), strings.Contains(t, "debt"):
		return GroupMoodTense
	case strings.Contains(t, "festival"), strings.Contains(t, "celebration"):
		return GroupMoodFriendly
	case strings.Contains(t, "trade"), strings.Contains(t, "contract"), strings.Contains(t, "business"):
		return GroupMoodFormal
	}
	return mood
}

// ReactionType classifies a participant's response to a posted
// message.
type ReactionType string

const (
	ReactAgreement    ReactionType = "agreement"
	ReactDisagreement ReactionType = "disagreement"
	ReactAmusement    ReactionType = "amusement"
	ReactBoredom      ReactionType = "boredom"
	ReactSurprise     ReactionType = "surprise"
	ReactDiscomfort   ReactionType = "discomfort"
)

var reactionTypes = []ReactionType{
	ReactAgreement, ReactDisagreement, ReactAmusement,
	ReactBoredom, ReactSurprise, ReactDiscomfort,
}

var positiveReactions = map[ReactionType]bool{
	ReactAgreement: true,
	ReactAmusement: true,
}

var negativeReactions = map[ReactionType]bool{
	ReactDisagreement: true,
	ReactDiscomfort:   true,
}

var reactionVerbal = map[ReactionType][]string{
	ReactAgreement:    {"Aye, that's the truth of it.", "Well said."},
	ReactDisagreement: {"That's not how I heard it.", "You're wrong, and loudly so."},
	ReactAmusement:    {"Ha! Tell that one again.", "Oh, that's rich."},
	ReactBoredom:      {"Mm. Is there more ale coming?", "Hm."},
	ReactSurprise:     {"Wait. Say that again?", "You can't mean it."},
	ReactDiscomfort:   {"Let's... speak of something else.", "I'd not repeat that too loudly in here."},
}

var reactionPhysical = map[ReactionType][]string{
	ReactAgreement:    {"raps the table in assent", "nods along"},
	ReactDisagreement: {"folds their arms", "sets down their mug hard"},
	ReactAmusement:    {"barks a laugh", "grins into their cup"},
	ReactBoredom:      {"stares toward the hearth", "picks at the table grain"},
	ReactSurprise:     {"leans in sharply", "raises both brows"},
	ReactDiscomfort:   {"shifts on the bench", "glances at the door"},
}

// GroupReaction is one participant's rolled response.
type GroupReaction struct {
	CharacterID string       `json:"character_id"`
	Type        ReactionType `json:"type"`
	Intensity   int          `json:"intensity"` // 1-10
	Verbal      string       `json:"verbal"`
	Physical    string       `json:"physical"`
}

// GroupTurn is what one posted message produces.
type GroupTurn struct {
	Message       Message         `json:"message"`
	Reactions     []GroupReaction `json:"reactions"`
	Mood          GroupMood       `json:"mood"`
	Interruptions []Interruption  `json:"interruptions,omitempty"`
}

// PostMessage runs one group beat: the message joins the log, every
// other participant rolls a reaction, the mood drifts with the net
// reaction valence, and each non-speaker rolls for an interruption
// request. addressed lists the participant ids the line was aimed at.
func (c *Controller) PostMessage(g *GroupSession, speakerID, text string, addressed []string) (*GroupTurn, error) {
	if g.State != StateActive {
		return nil, ErrSessionEnded
	}

	now := c.now()
	kind := KindCharacter
	if speakerID == g.PlayerID {
		kind = KindPlayer
	}

	turn := &GroupTurn{
		Message: g.append(speakerID, text, kind, now),
	}

	addressedSet := make(map[string]bool, len(addressed))
	for _, id := range addressed {
		addressedSet[id] = true
	}

	positives, negatives := 0, 0
	for _, id := range g.Participants {
		if id == speakerID {
			continue
		}

		rt := reactionTypes[c.rng.Intn(len(reactionTypes))]
		r := GroupReaction{
			CharacterID: id,
			Type:        rt,
			Intensity:   1 + c.rng.Intn(10),
			Verbal:      reactionVerbal[rt][c.rng.Intn(len(reactionVerbal[rt]))],
			Physical:    reactionPhysical[rt][c.rng.Intn(len(reactionPhysical[rt]))],
		}
		turn.Reactions = append(turn.Reactions, r)
		if positiveReactions[rt] {
			positives++
		}
		if negativeReactions[rt] {
			negatives++
		}

		if in, ok := c.rollInterruption(g, id, addressedSet[id]); ok {
			g.Enqueue(in)
			turn.Interruptions = append(turn.Interruptions, in)
		}
	}

	g.GroupMood = driftMood(g.GroupMood, positives, negatives)
	g.Mood = string(g.GroupMood)
	turn.Mood = g.GroupMood
	return turn, nil
}

// rollInterruption runs one participant's chance to demand the floor.
// Base 10%, plus interruption tendency, plus being addressed, plus a
// hot room, capped at 50%.
func (c *Controller) rollInterruption(g *GroupSession, id string, addressed bool) (Interruption, bool) {
	style := g.styles[id]
	p := 0.10 + float64(style.Interruption)/1000
	if addressed {
		p += 0.20
	}
	if g.GroupMood == GroupMoodHeated || g.GroupMood == GroupMoodTense {
		p += 0.15
	}
	if p > 0.50 {
		p = 0.50
	}
	if c.rng.Float64() >= p {
		return Interruption{}, false
	}

	urgency := 20 + style.Interruption/2 + c.rng.Intn(30)
	if addressed {
		urgency += 20
	}
	if urgency > 100 {
		urgency = 100
	}
	reason := "has something to add"
	if addressed {
		reason = "was spoken to directly"
	}
	return Interruption{CharacterID: id, Urgency: urgency, Reason: reason}, true
}

// EndGroup closes the scene the same way a pairwise session ends,
// writing one ledger summary per participant.
func (c *Controller) EndGroup(g *GroupSession, chars []*character.Character) (*Summary, error) {
	return c.End(&g.Session, chars)
}

// IdleFor reports how long the scene has gone without a message.
func (g *GroupSession) IdleFor(now time.Time) time.Duration {
	return now.Sub(g.LastActivity)
}
