// Package memory implements the per character-player memory ledger:
// the durable record of past conversations, secrets, promises,
// emotional moments and milestones.
package memory

import (
	"sync"
	"time"
)

// Severity tiers secrets, promises and milestones.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Trust adjustments indexed by severity tier.
var (
	secretTrustBonus = map[Severity]int{
		SeverityMinor:    5,
		SeverityModerate: 10,
		SeverityMajor:    20,
		SeverityCritical: 35,
	}
	promiseKeptBonus = map[Severity]int{
		SeverityMinor:    10,
		SeverityModerate: 20,
		SeverityMajor:    35,
		SeverityCritical: 50,
	}
	promiseBrokenPenalty = map[Severity]int{
		SeverityMinor:    -15,
		SeverityModerate: -30,
		SeverityMajor:    -50,
		SeverityCritical: -75,
	}
)

// Summary is one remembered conversation.
type Summary struct {
	Topic              string    `json:"topic,omitempty"`
	Text               string    `json:"text"`
	RelationshipChange int       `json:"relationship_change"`
	Timestamp          time.Time `json:"timestamp"`
}

// Secret is a confidence the player shared with the character.
type Secret struct {
	Content   string    `json:"content"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Promise is a commitment made between the two parties.
type Promise struct {
	Content   string    `json:"content"`
	DueDate   time.Time `json:"due_date,omitempty"`
	Fulfilled bool      `json:"fulfilled"`
	Broken    bool      `json:"broken"`
	Severity  Severity  `json:"severity"`
	MadeAt    time.Time `json:"made_at"`
}

// EmotionalMoment is a remembered high-feeling beat of a past
// conversation. Intensity runs 1-10.
type EmotionalMoment struct {
	Emotion    string    `json:"emotion"`
	Intensity  int       `json:"intensity"`
	Recovered  bool      `json:"recovered"`
	Context    string    `json:"context,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Milestone is a typed relationship event with a signed impact.
type Milestone struct {
	Type         string    `json:"type"`
	Impact       int       `json:"impact"`
	Significance Severity  `json:"significance"`
	Description  string    `json:"description,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Record is everything one character remembers about one player.
// Records are created on first contact and never deleted; the
// summary list is capped by memory strength.
type Record struct {
	CharacterID       string            `json:"character_id"`
	PlayerID          string            `json:"player_id"`
	FirstMet          time.Time         `json:"first_met"`
	LastInteraction   time.Time         `json:"last_interaction"`
	ConversationCount int               `json:"conversation_count"`
	Relationship      int               `json:"relationship"` // -100..100
	Trust             int               `json:"trust"`        // 0..100
	MemoryStrength    int               `json:"memory_strength"`
	Summaries         []Summary         `json:"summaries,omitempty"`
	Secrets           []Secret          `json:"secrets,omitempty"`
	Promises          []Promise         `json:"promises,omitempty"`
	Moments           []EmotionalMoment `json:"moments,omitempty"`
	Milestones        []Milestone       `json:"milestones,omitempty"`
}

// SummaryCap is the maximum number of conversation summaries the
// record retains, derived from memory strength.
func (r *Record) SummaryCap() int {
	return r.MemoryStrength/10 + 5
}

func clampRelationship(v int) int {
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return v
}

func clampTrust(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

// positiveEmotions and negativeEmotions classify emotional moments
// for relationship impact. Unlisted emotions are neutral.
var (
	positiveEmotions = map[string]bool{
		"joy": true, "happiness": true, "gratitude": true,
		"love": true, "trust": true, "hope": true,
		"amusement": true, "pride": true, "contentment": true,
	}
	negativeEmotions = map[string]bool{
		"anger": true, "fear": true, "sadness": true,
		"disgust": true, "suspicion": true, "envy": true,
		"guilt": true, "loneliness": true, "betrayal": true,
	}
)

// Ledger owns all memory records, keyed by character-player pair.
// A single mutex guards the record map and all record mutation, so
// sessions for different pairs can run concurrently.
type Ledger struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

// NewLedger creates an empty ledger. The now func is injectable for
// tests; pass nil to use time.Now.
func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		records: make(map[string]*Record),
		now:     now,
	}
}

func key(characterID, playerID string) string {
	return characterID + "|" + playerID
}

// Get returns the memory record for a character-player pair,
// creating it with a first-meeting milestone if absent. It never
// errors, and repeated calls with no intervening mutation return the
// same record.
func (l *Ledger) Get(characterID, playerID string, memoryStrength int) *Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(characterID, playerID, memoryStrength)
}

// get is Get without locking, for mutators that already hold l.mu.
func (l *Ledger) get(characterID, playerID string, memoryStrength int) *Record {
	k := key(characterID, playerID)
	if r, ok := l.records[k]; ok {
		return r
	}

	now := l.now()
	first := Milestone{
		Type:         "first_meeting",
		Impact:       5,
		Significance: SeverityMinor,
		Description:  "We met for the first time.",
		OccurredAt:   now,
	}
	r := &Record{
		CharacterID:     characterID,
		PlayerID:        playerID,
		FirstMet:        now,
		LastInteraction: now,
		Relationship:    clampRelationship(first.Impact),
		Trust:           50,
		MemoryStrength:  memoryStrength,
		Milestones:      []Milestone{first},
	}
	l.records[k] = r
	return r
}

// Lookup returns an existing record without creating one.
func (l *Ledger) Lookup(characterID, playerID string) (*Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[key(characterID, playerID)]
	return r, ok
}

// Restore inserts a previously persisted record, replacing any
// in-memory copy for the same pair.
func (l *Ledger) Restore(r *Record) {
	if r == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[key(r.CharacterID, r.PlayerID)] = r
}

// AppendSummary records a finished conversation. The relationship
// scalar moves by the summary's change, and the oldest summaries are
// evicted beyond the memory-strength cap.
func (l *Ledger) AppendSummary(characterID, playerID string, s Summary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.get(characterID, playerID, 0)
	if s.Timestamp.IsZero() {
		s.Timestamp = l.now()
	}
	r.Relationship = clampRelationship(r.Relationship + s.RelationshipChange)
	r.Summaries = append(r.Summaries, s)
	if cap := r.SummaryCap(); len(r.Summaries) > cap {
		r.Summaries = r.Summaries[len(r.Summaries)-cap:]
	}
	r.ConversationCount++
	r.LastInteraction = l.now()
}

// AddSecret records a shared secret and raises trust by the
// severity-indexed bonus.
func (l *Ledger) AddSecret(characterID, playerID string, content string, severity Severity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.get(characterID, playerID, 0)
	r.Secrets = append(r.Secrets, Secret{
		Content:   content,
		Severity:  severity,
		Timestamp: l.now(),
	})
	r.Trust = clampTrust(r.Trust + secretTrustBonus[severity])
	r.LastInteraction = l.now()
}

// AddPromise records a new, unfulfilled promise.
func (l *Ledger) AddPromise(characterID, playerID string, content string, due time.Time, severity Severity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.get(characterID, playerID, 0)
	r.Promises = append(r.Promises, Promise{
		Content:  content,
		DueDate:  due,
		Severity: severity,
		MadeAt:   l.now(),
	})
	r.LastInteraction = l.now()
}

// ResolvePromise marks the oldest open promise matching content as
// kept or broken and applies the trust consequence. A kept promise
// earns the severity bonus; a broken one costs the severity penalty.
// Unknown content is a no-op.
func (l *Ledger) ResolvePromise(characterID, playerID string, content string, kept bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.get(characterID, playerID, 0)
	for i := range r.Promises {
		p := &r.Promises[i]
		if p.Fulfilled || p.Broken || p.Content != content {
			continue
		}
		if kept {
			p.Fulfilled = true
			r.Trust = clampTrust(r.Trust + promiseKeptBonus[p.Severity])
		} else {
			p.Broken = true
			r.Trust = clampTrust(r.Trust + promiseBrokenPenalty[p.Severity])
		}
		r.LastInteraction = l.now()
		return
	}
}

// AddEmotionalMoment records a high-feeling beat. Positive emotions
// move the relationship by +2x intensity, negative by -2x; neutral
// emotions leave it unchanged.
func (l *Ledger) AddEmotionalMoment(characterID, playerID string, emotion string, intensity int, context string) {
	if intensity < 1 {
		intensity = 1
	}
	if intensity > 10 {
		intensity = 10
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.get(characterID, playerID, 0)
	r.Moments = append(r.Moments, EmotionalMoment{
		Emotion:    emotion,
		Intensity:  intensity,
		Context:    context,
		OccurredAt: l.now(),
	})
	switch {
	case positiveEmotions[emotion]:
		r.Relationship = clampRelationship(r.Relationship + 2*intensity)
	case negativeEmotions[emotion]:
		r.Relationship = clampRelationship(r.Relationship - 2*intensity)
	}
	r.LastInteraction = l.now()
}

// AddMilestone records a typed relationship event and applies its
// signed impact to the relationship scalar.
func (l *Ledger) AddMilestone(characterID, playerID string, m Milestone) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.get(characterID, playerID, 0)
	if m.OccurredAt.IsZero() {
		m.OccurredAt = l.now()
	}
	r.Milestones = append(r.Milestones, m)
	r.Relationship = clampRelationship(r.Relationship + m.Impact)
	r.LastInteraction = l.now()
}
