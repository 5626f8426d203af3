package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/conversation"
	"github.com/jwebster45206/tavern-engine/pkg/memory"
)

const summaryTTL = 24 * time.Hour

// RedisStorage implements Storage using Redis for engine state and
// the filesystem for static character definitions.
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	if dataDir == "" {
		dataDir = "./data"
	}

	return &RedisStorage{
		client:  rdb,
		logger:  logger,
		dataDir: dataDir,
	}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func memoryKey(characterID, playerID string) string {
	return "memory:" + characterID + ":" + playerID
}

// SaveMemoryRecord persists a memory record with no expiry. Memory is
// the system of record for what characters remember across restarts.
func (r *RedisStorage) SaveMemoryRecord(ctx context.Context, rec *memory.Record) error {
	if rec == nil {
		return errors.New("memory record cannot be nil")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		r.logger.Error("Failed to marshal memory record", "character", rec.CharacterID, "error", err)
		return fmt.Errorf("failed to marshal memory record: %w", err)
	}

	key := memoryKey(rec.CharacterID, rec.PlayerID)
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save memory record", "key", key, "error", err)
		return fmt.Errorf("failed to save memory record: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadMemoryRecord(ctx context.Context, characterID, playerID string) (*memory.Record, error) {
	cmd := r.client.Get(ctx, memoryKey(characterID, playerID))
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load memory record: %w", err)
	}

	var rec memory.Record
	if err := json.Unmarshal([]byte(cmd.Val()), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory record: %w", err)
	}
	return &rec, nil
}

// ListMemoryRecords loads every persisted record for one character.
func (r *RedisStorage) ListMemoryRecords(ctx context.Context, characterID string) ([]*memory.Record, error) {
	var records []*memory.Record
	iter := r.client.Scan(ctx, 0, memoryKey(characterID, "*"), 100).Iterator()
	for iter.Next(ctx) {
		cmd := r.client.Get(ctx, iter.Val())
		if cmd.Err() != nil {
			continue
		}
		var rec memory.Record
		if err := json.Unmarshal([]byte(cmd.Val()), &rec); err != nil {
			r.logger.Warn("Skipping unreadable memory record", "key", iter.Val(), "error", err)
			continue
		}
		records = append(records, &rec)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan memory records: %w", err)
	}
	return records, nil
}

func summaryKey(id uuid.UUID) string {
	return "summary:" + id.String()
}

func (r *RedisStorage) SaveSessionSummary(ctx context.Context, s *conversation.Summary) error {
	if s == nil {
		return errors.New("summary cannot be nil")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session summary: %w", err)
	}
	if err := r.client.Set(ctx, summaryKey(s.SessionID), string(data), summaryTTL).Err(); err != nil {
		r.logger.Error("Failed to save session summary", "session_id", s.SessionID, "error", err)
		return fmt.Errorf("failed to save session summary: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSessionSummary(ctx context.Context, id uuid.UUID) (*conversation.Summary, error) {
	cmd := r.client.Get(ctx, summaryKey(id))
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session summary: %w", err)
	}

	var s conversation.Summary
	if err := json.Unmarshal([]byte(cmd.Val()), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session summary: %w", err)
	}
	return &s, nil
}

// Character definitions (filesystem-backed)

func (r *RedisStorage) ListCharacters(ctx context.Context) ([]string, error) {
	return ListCharacterFiles(r.dataDir)
}

func (r *RedisStorage) LoadCharacter(ctx context.Context, id string) (*character.Character, error) {
	return LoadCharacterFile(r.dataDir, id)
}
