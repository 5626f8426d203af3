package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/conversation"
	"github.com/jwebster45206/tavern-engine/pkg/memory"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	records    map[string]*memory.Record
	summaries  map[uuid.UUID]*conversation.Summary
	characters map[string]*character.Character
	pingError  error
	saveError  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		records:    make(map[string]*memory.Record),
		summaries:  make(map[uuid.UUID]*conversation.Summary),
		characters: make(map[string]*character.Character),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures all writes to fail with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// AddCharacter seeds a character definition
func (m *MockStorage) AddCharacter(c *character.Character) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters[c.ID] = c
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveMemoryRecord(ctx context.Context, rec *memory.Record) error {
	if rec == nil {
		return errors.New("memory record cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.records[rec.CharacterID+":"+rec.PlayerID] = rec
	return nil
}

func (m *MockStorage) LoadMemoryRecord(ctx context.Context, characterID, playerID string) (*memory.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[characterID+":"+playerID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (m *MockStorage) ListMemoryRecords(ctx context.Context, characterID string) ([]*memory.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*memory.Record
	for _, rec := range m.records {
		if rec.CharacterID == characterID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MockStorage) SaveSessionSummary(ctx context.Context, s *conversation.Summary) error {
	if s == nil {
		return errors.New("summary cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.summaries[s.SessionID] = s
	return nil
}

func (m *MockStorage) LoadSessionSummary(ctx context.Context, id uuid.UUID) (*conversation.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *MockStorage) ListCharacters(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.characters))
	for id := range m.characters {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MockStorage) LoadCharacter(ctx context.Context, id string) (*character.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.characters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}
