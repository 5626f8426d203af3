// Package storage persists engine state: memory records and session
// summaries in Redis, character definition files on the filesystem.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/conversation"
	"github.com/jwebster45206/tavern-engine/pkg/memory"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the persistence surface for the conversation engine.
// All writes are best effort from the engine's point of view; the
// engine logs failures and keeps its in-memory state authoritative.
type Storage interface {
	Ping(ctx context.Context) error
	Close() error

	// Memory records are durable and unexpiring.
	SaveMemoryRecord(ctx context.Context, rec *memory.Record) error
	LoadMemoryRecord(ctx context.Context, characterID, playerID string) (*memory.Record, error)
	ListMemoryRecords(ctx context.Context, characterID string) ([]*memory.Record, error)

	// Session summaries expire after a day; they exist for recaps,
	// not as a system of record.
	SaveSessionSummary(ctx context.Context, s *conversation.Summary) error
	LoadSessionSummary(ctx context.Context, id uuid.UUID) (*conversation.Summary, error)

	// Character definitions are static files under the data dir.
	ListCharacters(ctx context.Context) ([]string, error)
	LoadCharacter(ctx context.Context, id string) (*character.Character, error)
}
