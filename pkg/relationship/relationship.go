// Package relationship tracks the derived, player-specific affinity
// scores and status label for each character-player pair. All scalar
// changes route through ApplyEmotionalResponse; the status enum is a
// pure function of the scalars and is recomputed after every
// mutation.
package relationship

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no dynamics exist for a pair.
var ErrNotFound = errors.New("relationship dynamics not found")

// Status is the derived relationship label.
type Status string

const (
	StatusStranger         Status = "stranger"
	StatusAcquaintance     Status = "acquaintance"
	StatusFriend           Status = "friend"
	StatusCloseFriend      Status = "close_friend"
	StatusBestFriend       Status = "best_friend"
	StatusRomanticInterest Status = "romantic_interest"
	StatusLover            Status = "lover"
	StatusRival            Status = "rival"
	StatusEnemy            Status = "enemy"
)

// Bond is a typed positive attachment.
type Bond struct {
	Type        string    `json:"type"`
	Strength    int       `json:"strength"` // 0-100
	Description string    `json:"description,omitempty"`
	FormedAt    time.Time `json:"formed_at"`
}

// Grudge is a typed negative attachment. Forgiveness counts down as
// conversations end well; a grudge at zero is spent.
type Grudge struct {
	Type        string    `json:"type"`
	Severity    int       `json:"severity"` // 0-100
	Forgiveness int       `json:"forgiveness"`
	Description string    `json:"description,omitempty"`
	FormedAt    time.Time `json:"formed_at"`
}

// Dynamics holds the affinity scalars and derived status for one
// character-player pair.
type Dynamics struct {
	CharacterID string `json:"character_id"`
	PlayerID    string `json:"player_id"`

	Friendship int `json:"friendship"` // 0-100
	Romance    int `json:"romance"`    // 0-100
	Rivalry    int `json:"rivalry"`    // 0-100
	Mentorship int `json:"mentorship"` // 0-100
	Trust      int `json:"trust"`      // 0-100
	Respect    int `json:"respect"`    // 0-100

	Status  Status   `json:"status"`
	Bonds   []Bond   `json:"bonds,omitempty"`
	Grudges []Grudge `json:"grudges,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Response is the emotional read of a single player action, as fed
// to ApplyEmotionalResponse.
type Response struct {
	Trust     int `json:"trust,omitempty"`
	Suspicion int `json:"suspicion,omitempty"`
	Happiness int `json:"happiness,omitempty"`
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// deriveStatus maps the four intensity scalars to a status by fixed
// priority. Romance outranks rivalry outranks friendship.
func deriveStatus(d *Dynamics) Status {
	switch {
	case d.Romance > 70:
		return StatusLover
	case d.Romance > 40:
		return StatusRomanticInterest
	case d.Rivalry > 60:
		return StatusEnemy
	case d.Rivalry > 30:
		return StatusRival
	case d.Friendship > 80:
		return StatusBestFriend
	case d.Friendship > 60:
		return StatusCloseFriend
	case d.Friendship > 30:
		return StatusFriend
	case d.Friendship > 10:
		return StatusAcquaintance
	default:
		return StatusStranger
	}
}

// Table owns the dynamics for all pairs. A single mutex guards the
// pair map and all scalar mutation.
type Table struct {
	mu    sync.Mutex
	pairs map[string]*Dynamics
	now   func() time.Time
}

// NewTable creates an empty relationship table. Pass nil to use
// time.Now.
func NewTable(now func() time.Time) *Table {
	if now == nil {
		now = time.Now
	}
	return &Table{
		pairs: make(map[string]*Dynamics),
		now:   now,
	}
}

func key(characterID, playerID string) string {
	return characterID + "|" + playerID
}

// Initialize seeds the dynamics for a new pair. Existing dynamics
// are returned unchanged.
func (t *Table) Initialize(characterID, playerID string) *Dynamics {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(characterID, playerID)
	if d, ok := t.pairs[k]; ok {
		return d
	}
	d := &Dynamics{
		CharacterID: characterID,
		PlayerID:    playerID,
		Friendship:  10,
		Trust:       50,
		Respect:     50,
		Status:      StatusStranger,
		UpdatedAt:   t.now(),
	}
	t.pairs[k] = d
	return d
}

// Get returns the dynamics for a pair.
func (t *Table) Get(characterID, playerID string) (*Dynamics, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pairs[key(characterID, playerID)]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// ApplyEmotionalResponse folds one turn's emotional read into the
// pair's scalars and recomputes the status. It returns a signed
// relationship-impact value for UI feedback: trust and happiness
// contributions minus suspicion contributions.
//
// This is the only place relationship numbers change; dialogue
// consequences and events must route through it.
func (t *Table) ApplyEmotionalResponse(characterID, playerID string, resp Response) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pairs[key(characterID, playerID)]
	if !ok {
		return 0, ErrNotFound
	}

	impact := 0

	d.Trust = clamp(d.Trust + resp.Trust)
	if resp.Trust > 0 {
		d.Friendship = clamp(d.Friendship + resp.Trust/2)
	}
	impact += resp.Trust

	if resp.Suspicion > 0 {
		d.Trust = clamp(d.Trust - resp.Suspicion)
		d.Rivalry = clamp(d.Rivalry + resp.Suspicion/3)
		impact -= resp.Suspicion
	}

	if resp.Happiness > 0 {
		d.Friendship = clamp(d.Friendship + resp.Happiness/3)
		impact += resp.Happiness / 3
	}

	d.Status = deriveStatus(d)
	d.UpdatedAt = t.now()
	return impact, nil
}

// AdjustRomance shifts the romance scalar and recomputes status.
func (t *Table) AdjustRomance(characterID, playerID string, delta int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pairs[key(characterID, playerID)]
	if !ok {
		return ErrNotFound
	}
	d.Romance = clamp(d.Romance + delta)
	d.Status = deriveStatus(d)
	d.UpdatedAt = t.now()
	return nil
}

// AdjustMentorship shifts the mentorship scalar and recomputes status.
func (t *Table) AdjustMentorship(characterID, playerID string, delta int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pairs[key(characterID, playerID)]
	if !ok {
		return ErrNotFound
	}
	d.Mentorship = clamp(d.Mentorship + delta)
	d.Status = deriveStatus(d)
	d.UpdatedAt = t.now()
	return nil
}

// AddBond records a typed positive attachment.
func (t *Table) AddBond(characterID, playerID string, b Bond) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pairs[key(characterID, playerID)]
	if !ok {
		return ErrNotFound
	}
	if b.FormedAt.IsZero() {
		b.FormedAt = t.now()
	}
	d.Bonds = append(d.Bonds, b)
	d.UpdatedAt = t.now()
	return nil
}

// AddGrudge records a typed negative attachment. Forgiveness starts
// proportional to severity.
func (t *Table) AddGrudge(characterID, playerID string, g Grudge) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pairs[key(characterID, playerID)]
	if !ok {
		return ErrNotFound
	}
	if g.FormedAt.IsZero() {
		g.FormedAt = t.now()
	}
	if g.Forgiveness == 0 {
		g.Forgiveness = g.Severity/20 + 1
	}
	d.Grudges = append(d.Grudges, g)
	d.UpdatedAt = t.now()
	return nil
}

// TickForgiveness decrements every open grudge's forgiveness counter
// and drops grudges that reach zero. Called when a conversation ends
// on good terms.
func (t *Table) TickForgiveness(characterID, playerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pairs[key(characterID, playerID)]
	if !ok {
		return ErrNotFound
	}
	remaining := d.Grudges[:0]
	for _, g := range d.Grudges {
		g.Forgiveness--
		if g.Forgiveness > 0 {
			remaining = append(remaining, g)
		}
	}
	d.Grudges = remaining
	d.UpdatedAt = t.now()
	return nil
}
