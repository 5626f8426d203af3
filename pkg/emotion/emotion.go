// Package emotion implements the per-character transient emotional
// state: six primary and ten secondary emotion intensities with
// time-based recovery toward a baseline.
package emotion

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jwebster45206/tavern-engine/pkg/character"
)

// ErrCharacterNotFound is returned when a character has no
// initialized emotional state. Callers must Initialize first.
var ErrCharacterNotFound = errors.New("emotional state not found for character")

// Baseline is the resting intensity primary emotions recover toward.
const Baseline = 30

// PrimaryEmotions and SecondaryEmotions fix the iteration order used
// for dominant-emotion tie-breaking: primary before secondary, in
// declaration order.
var PrimaryEmotions = []string{
	"joy", "sadness", "anger", "fear", "surprise", "disgust",
}

var SecondaryEmotions = []string{
	"trust", "anticipation", "love", "guilt", "pride",
	"envy", "hope", "curiosity", "contentment", "loneliness",
}

// State is one character's current emotional vector. All intensities
// stay in [0,100]; Dominant and Intensity are recomputed after every
// mutation.
type State struct {
	CharacterID  string         `json:"character_id"`
	Values       map[string]int `json:"values"`
	Dominant     string         `json:"dominant"`
	Intensity    int            `json:"intensity"` // mean of all sixteen
	Stability    int            `json:"stability"`
	Volatility   int            `json:"volatility"`
	RecoveryRate int            `json:"recovery_rate"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// primarySeedMods adjust primary baselines per trait.
var primarySeedMods = map[string]map[string]int{
	"Cheerful":     {"joy": 25},
	"Gloomy":       {"sadness": 20, "joy": -10},
	"Hot-Tempered": {"anger": 25},
	"Anxious":      {"fear": 20},
	"Stoic":        {"surprise": -15},
	"Squeamish":    {"disgust": 15},
}

// secondarySeeds give trait-flagged characters a higher starting
// value for a secondary emotion; everything else defaults to 40
// except guilt, which starts low.
var secondarySeeds = map[string]struct {
	emotion string
	value   int
}{
	"Trusting":  {"trust", 70},
	"Ambitious": {"anticipation", 65},
	"Romantic":  {"love", 60},
	"Guilty":    {"guilt", 55},
	"Proud":     {"pride", 65},
	"Envious":   {"envy", 60},
	"Optimist":  {"hope", 65},
	"Curious":   {"curiosity", 70},
	"Content":   {"contentment", 60},
	"Loner":     {"loneliness", 60},
}

const defaultSecondary = 40

// Model owns the per-character emotional state table. A single mutex
// guards the state map and all intensity mutation.
type Model struct {
	mu     sync.Mutex
	states map[string]*State
	now    func() time.Time
}

// NewModel creates an empty emotional state table. Pass nil to use
// time.Now.
func NewModel(now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	return &Model{
		states: make(map[string]*State),
		now:    now,
	}
}

// Initialize seeds a character's emotional state from its traits and
// age. Calling it again for the same character resets the state.
func (m *Model) Initialize(c *character.Character) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	values := make(map[string]int, len(PrimaryEmotions)+len(SecondaryEmotions))
	for _, e := range PrimaryEmotions {
		values[e] = Baseline
	}
	for _, trait := range c.Traits {
		for e, mod := range primarySeedMods[trait] {
			values[e] = clamp(values[e]+mod, 0, 100)
		}
	}

	for _, e := range SecondaryEmotions {
		values[e] = defaultSecondary
	}
	values["guilt"] = 20
	for _, trait := range c.Traits {
		if seed, ok := secondarySeeds[trait]; ok {
			values[seed.emotion] = seed.value
		}
	}

	stability := 50 + c.Age/3
	volatility := 60 - c.Age/3
	recovery := 50
	if c.HasTrait("Stoic") {
		stability += 20
		volatility -= 20
	}
	if c.HasTrait("Hot-Tempered") {
		volatility += 25
		stability -= 10
	}
	if c.HasTrait("Resilient") {
		recovery += 25
	}
	if c.HasTrait("Brooding") {
		recovery -= 20
	}

	s := &State{
		CharacterID:  c.ID,
		Values:       values,
		Stability:    clamp(stability, 10, 100),
		Volatility:   clamp(volatility, 0, 100),
		RecoveryRate: clamp(recovery, 10, 100),
		UpdatedAt:    m.now(),
	}
	s.recompute()
	m.states[c.ID] = s
	return s
}

// Get returns a character's emotional state.
func (m *Model) Get(characterID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[characterID]
	if !ok {
		return nil, ErrCharacterNotFound
	}
	return s, nil
}

// ApplyDelta shifts the named emotions by their signed deltas,
// clamping each to [0,100], then recomputes the dominant emotion and
// overall intensity.
func (m *Model) ApplyDelta(characterID string, delta map[string]int) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[characterID]
	if !ok {
		return nil, ErrCharacterNotFound
	}
	for e, d := range delta {
		if _, known := s.Values[e]; !known {
			continue
		}
		s.Values[e] = clamp(s.Values[e]+d, 0, 100)
	}
	s.recompute()
	s.UpdatedAt = m.now()
	return s, nil
}

// Recover moves each primary emotion toward the baseline by
// min(|distance|, rate/100 x minutes). Values within one point of
// baseline are left alone.
func (m *Model) Recover(characterID string, minutes float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[characterID]
	if !ok {
		return ErrCharacterNotFound
	}
	if minutes <= 0 {
		return nil
	}

	step := float64(s.RecoveryRate) / 100.0 * minutes
	for _, e := range PrimaryEmotions {
		dist := float64(s.Values[e] - Baseline)
		if math.Abs(dist) <= 1 {
			continue
		}
		move := math.Min(math.Abs(dist), step)
		if dist > 0 {
			s.Values[e] = clamp(s.Values[e]-int(move), 0, 100)
		} else {
			s.Values[e] = clamp(s.Values[e]+int(move), 0, 100)
		}
	}
	s.recompute()
	s.UpdatedAt = m.now()
	return nil
}

// recompute refreshes Dominant (arg-max over all sixteen emotions,
// ties broken by fixed iteration order) and Intensity (the mean).
func (s *State) recompute() {
	best := ""
	bestVal := -1
	sum := 0
	for _, e := range PrimaryEmotions {
		v := s.Values[e]
		sum += v
		if v > bestVal {
			best, bestVal = e, v
		}
	}
	for _, e := range SecondaryEmotions {
		v := s.Values[e]
		sum += v
		if v > bestVal {
			best, bestVal = e, v
		}
	}
	s.Dominant = best
	s.Intensity = sum / (len(PrimaryEmotions) + len(SecondaryEmotions))
}
