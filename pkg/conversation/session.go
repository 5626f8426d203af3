// Package conversation implements the session controller for one-on-
// one tavern conversations and the coordinator that generalizes it
// to group scenes.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// State is the session lifecycle: not_started -> active -> ended.
type State string

const (
	StateNotStarted State = "not_started"
	StateActive     State = "active"
	StateEnded      State = "ended"
)

// Kind classifies a message's speaker role.
type Kind string

const (
	KindPlayer    Kind = "player"
	KindCharacter Kind = "character"
	KindSystem    Kind = "system"
)

// Message is one entry in a session's ordered log.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one active conversation between a player and one or
// more characters.
type Session struct {
	ID           uuid.UUID `json:"id"`
	PlayerID     string    `json:"player_id"`
	Participants []string  `json:"participants"` // character ids
	State        State     `json:"state"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	Messages     []Message `json:"messages"`

	// RelationshipChanges accumulates net relationship impact per
	// character over the session.
	RelationshipChanges map[string]int `json:"relationship_changes,omitempty"`

	Information []string `json:"information,omitempty"`
	Quests      []string `json:"quests,omitempty"`
	Secrets     []string `json:"secrets,omitempty"`

	Mood          string   `json:"mood,omitempty"`
	AppliedEvents []string `json:"applied_events,omitempty"`

	LastEventAt time.Time `json:"last_event_at,omitempty"`
}

func (s *Session) append(speaker, text string, kind Kind, at time.Time) Message {
	m := Message{
		ID:        uuid.New(),
		Speaker:   speaker,
		Text:      text,
		Kind:      kind,
		Timestamp: at,
	}
	s.Messages = append(s.Messages, m)
	s.LastActivity = at
	return m
}

// NetRelationshipChange sums the per-character impacts.
func (s *Session) NetRelationshipChange() int {
	net := 0
	for _, v := range s.RelationshipChanges {
		net += v
	}
	return net
}

// Tone bands for end-of-session summaries.
const (
	ToneVeryWell = "went very well"
	TonePleasant = "pleasant"
	ToneTense    = "tense and damaging"
	ToneNeutral  = "neutral"
)

// Summary is the terminal report returned when a session ends; the
// session itself is removed.
type Summary struct {
	SessionID           uuid.UUID      `json:"session_id"`
	Participants        []string       `json:"participants"`
	Duration            time.Duration  `json:"duration"`
	MessageCount        int            `json:"message_count"`
	NetRelationship     int            `json:"net_relationship"`
	RelationshipChanges map[string]int `json:"relationship_changes,omitempty"`
	Tone                string         `json:"tone"`
	Information         []string       `json:"information,omitempty"`
	Quests              []string       `json:"quests,omitempty"`
	Secrets             []string       `json:"secrets,omitempty"`
	AppliedEvents       []string       `json:"applied_events,omitempty"`
}

// toneFor maps a net relationship change to its summary band.
func toneFor(net int) string {
	switch {
	case net > 10:
		return ToneVeryWell
	case net > 0:
		return TonePleasant
	case net < -10:
		return ToneTense
	default:
		return ToneNeutral
	}
}
