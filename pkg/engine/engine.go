// Package engine is the top-level conversation engine: it owns the
// memory ledger, emotional state table, relationship table, dialogue
// store and event injector, and is the only component with mutation
// rights over them. Callers drive it one turn at a time; a per-session
// lock keeps the periodic event sweep from racing an in-flight turn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/conversation"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/emotion"
	"github.com/jwebster45206/tavern-engine/pkg/memory"
	"github.com/jwebster45206/tavern-engine/pkg/player"
	"github.com/jwebster45206/tavern-engine/pkg/relationship"
	"github.com/jwebster45206/tavern-engine/pkg/tavern"
	"github.com/jwebster45206/tavern-engine/pkg/world"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrCharacterNotFound = errors.New("character not found")
	ErrPlayerNotFound    = errors.New("player not found")
)

// Store is the persistence surface the engine writes through. Writes
// are best effort: a failure is logged and never aborts the in-memory
// transition.
type Store interface {
	SaveMemoryRecord(ctx context.Context, rec *memory.Record) error
	SaveSessionSummary(ctx context.Context, s *conversation.Summary) error
}

// Config wires an engine. Zero values get sensible defaults: wall
// clock time, an unseeded rand source, slog's default logger, no
// persistence.
type Config struct {
	Seed    int64
	Now     func() time.Time
	Logger  *slog.Logger
	Storage Store
	World   *world.Context
}

// Engine owns all conversation state. All exported methods are safe
// for concurrent use; turns on the same session serialize on a
// per-session mutex.
type Engine struct {
	ledger        *memory.Ledger
	emotions      *emotion.Model
	relationships *relationship.Table
	dialogues     *dialogue.Store
	injector      *tavern.Injector
	controller    *conversation.Controller

	now     func() time.Time
	logger  *slog.Logger
	storage Store

	mu         sync.RWMutex
	characters map[string]*character.Character
	players    map[string]*player.State
	sessions   map[uuid.UUID]*sessionEntry
	groups     map[uuid.UUID]*groupEntry
	world      *world.Context
}

type sessionEntry struct {
	mu   sync.Mutex
	sess *conversation.Session
	char *character.Character
}

type groupEntry struct {
	mu    sync.Mutex
	sess  *conversation.GroupSession
	chars []*character.Character
}

// lockedSource serializes a rand source the same way math/rand's
// global source does.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// New builds an engine from config.
func New(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := cfg.World
	if w == nil {
		w = &world.Context{
			TavernReputation:     50,
			CustomerSatisfaction: 50,
			Atmosphere:           50,
		}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = now().UnixNano()
	}
	// One rand source is shared by the controller and injector across
	// all sessions, so it needs a lock of its own.
	rng := rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)})

	ledger := memory.NewLedger(now)
	emotions := emotion.NewModel(now)
	relationships := relationship.NewTable(now)
	dialogues := dialogue.NewStore(now)
	injector := tavern.NewInjector(nil, rng, now, logger)

	return &Engine{
		ledger:        ledger,
		emotions:      emotions,
		relationships: relationships,
		dialogues:     dialogues,
		injector:      injector,
		controller: conversation.NewController(
			ledger, emotions, relationships, dialogues, injector, rng, now, logger),
		now:        now,
		logger:     logger,
		storage:    cfg.Storage,
		characters: make(map[string]*character.Character),
		players:    make(map[string]*player.State),
		sessions:   make(map[uuid.UUID]*sessionEntry),
		groups:     make(map[uuid.UUID]*groupEntry),
		world:      w,
	}
}

// RegisterCharacter onboards a character: seeds its emotional state
// from traits and generates its static dialogue forest. Re-registering
// the same id replaces the description but keeps accumulated state.
func (e *Engine) RegisterCharacter(c *character.Character) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("character id is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.characters[c.ID]; !exists {
		e.emotions.Initialize(c)
		e.dialogues.AddTrees(c.ID, dialogue.GenerateTrees(c)...)
	}
	e.characters[c.ID] = c
	e.logger.Debug("Character registered", "character", c.ID, "class", c.Class)
	return nil
}

// RegisterPlayer onboards a player and returns their runtime state.
func (e *Engine) RegisterPlayer(spec player.Spec) (*player.State, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("player id is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if ps, exists := e.players[spec.ID]; exists {
		return ps, nil
	}
	ps, err := player.NewState(&spec)
	if err != nil {
		return nil, fmt.Errorf("building player state: %w", err)
	}
	e.players[spec.ID] = ps
	return ps, nil
}

// Character returns a registered character description.
func (e *Engine) Character(id string) (*character.Character, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.characters[id]
	if !ok {
		return nil, ErrCharacterNotFound
	}
	return c, nil
}

// Characters lists registered character ids.
func (e *Engine) Characters() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.characters))
	for id := range e.characters {
		out = append(out, id)
	}
	return out
}

// World returns the engine's current world context.
func (e *Engine) World() *world.Context {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.world
}

// SetWorld replaces the world context, typically from the economy
// subsystem's periodic update.
func (e *Engine) SetWorld(w *world.Context) {
	if w == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.world = w
}

// worldCopy hands a turn its private world context. Event application
// mutates the copy; if an event fires the copy is published back via
// SetWorld, so a published context is never written in place.
func (e *Engine) worldCopy() *world.Context {
	e.mu.RLock()
	w := *e.world
	e.mu.RUnlock()
	return &w
}

func (e *Engine) lookup(playerID, characterID string) (*player.State, *character.Character, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ps, ok := e.players[playerID]
	if !ok {
		return nil, nil, ErrPlayerNotFound
	}
	c, ok := e.characters[characterID]
	if !ok {
		return nil, nil, ErrCharacterNotFound
	}
	return ps, c, nil
}

// StartSession opens a one-on-one conversation and returns the
// session plus the initial dialogue options.
func (e *Engine) StartSession(playerID, characterID string) (*conversation.Session, []*dialogue.Node, error) {
	ps, c, err := e.lookup(playerID, characterID)
	if err != nil {
		return nil, nil, err
	}

	sess, options, err := e.controller.Start(ps, c, e.World())
	if err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	e.sessions[sess.ID] = &sessionEntry{sess: sess, char: c}
	e.mu.Unlock()
	return sess, options, nil
}

func (e *Engine) session(id uuid.UUID) (*sessionEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// Session returns an active session by id.
func (e *Engine) Session(id uuid.UUID) (*conversation.Session, error) {
	entry, err := e.session(id)
	if err != nil {
		return nil, err
	}
	return entry.sess, nil
}

// SelectOption advances a session one turn. If the turn collapses the
// conversation, the session is finalized and removed exactly as an
// explicit end would.
func (e *Engine) SelectOption(ctx context.Context, sessionID uuid.UUID, nodeID string) (*conversation.TurnResult, error) {
	entry, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	e.mu.RLock()
	ps, ok := e.players[entry.sess.PlayerID]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrPlayerNotFound
	}

	w := e.worldCopy()
	result, err := e.controller.SelectOption(entry.sess, entry.char, ps, w, nodeID)
	if err != nil {
		return nil, err
	}
	if result.Event != nil {
		e.SetWorld(w)
	}
	if result.Ended {
		e.finalize(ctx, sessionID, entry.sess, []*character.Character{entry.char}, result.Summary)
	}
	return result, nil
}

// EndSession closes a session and returns its summary.
func (e *Engine) EndSession(ctx context.Context, sessionID uuid.UUID) (*conversation.Summary, error) {
	entry, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	summary, err := e.controller.End(entry.sess, []*character.Character{entry.char})
	if err != nil {
		return nil, err
	}
	e.finalize(ctx, sessionID, entry.sess, []*character.Character{entry.char}, summary)
	return summary, nil
}

// finalize drops the session from the registry and flushes the
// touched records to storage. Storage failures are logged, never
// surfaced.
func (e *Engine) finalize(ctx context.Context, id uuid.UUID, sess *conversation.Session, chars []*character.Character, summary *conversation.Summary) {
	e.mu.Lock()
	delete(e.sessions, id)
	delete(e.groups, id)
	e.mu.Unlock()

	if e.storage == nil {
		return
	}
	if err := e.storage.SaveSessionSummary(ctx, summary); err != nil {
		e.logger.Warn("Failed to persist session summary", "session_id", id, "error", err)
	}
	for _, c := range chars {
		rec, ok := e.ledger.Lookup(c.ID, sess.PlayerID)
		if !ok {
			continue
		}
		if err := e.storage.SaveMemoryRecord(ctx, rec); err != nil {
			e.logger.Warn("Failed to persist memory record", "character", c.ID, "error", err)
		}
	}
}

// RestoreMemory loads a persisted record back into the ledger, used
// at startup.
func (e *Engine) RestoreMemory(rec *memory.Record) {
	e.ledger.Restore(rec)
}

// StartGroupSession opens a group scene with the named characters.
func (e *Engine) StartGroupSession(playerID string, characterIDs []string, topic string) (*conversation.GroupSession, error) {
	e.mu.RLock()
	ps, ok := e.players[playerID]
	if !ok {
		e.mu.RUnlock()
		return nil, ErrPlayerNotFound
	}
	chars := make([]*character.Character, 0, len(characterIDs))
	for _, id := range characterIDs {
		c, exists := e.characters[id]
		if !exists {
			e.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
		}
		chars = append(chars, c)
	}
	e.mu.RUnlock()

	g, err := e.controller.StartGroup(ps, chars, e.World(), topic)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.groups[g.ID] = &groupEntry{sess: g, chars: chars}
	e.mu.Unlock()
	return g, nil
}

func (e *Engine) group(id uuid.UUID) (*groupEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.groups[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// PostGroupMessage runs one group beat.
func (e *Engine) PostGroupMessage(groupID uuid.UUID, speakerID, text string, addressed []string) (*conversation.GroupTurn, error) {
	entry, err := e.group(groupID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return e.controller.PostMessage(entry.sess, speakerID, text, addressed)
}

// NextGroupSpeaker advances the floor.
func (e *Engine) NextGroupSpeaker(groupID uuid.UUID) (string, error) {
	entry, err := e.group(groupID)
	if err != nil {
		return "", err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.sess.NextSpeaker(), nil
}

// EndGroupSession closes a group scene.
func (e *Engine) EndGroupSession(ctx context.Context, groupID uuid.UUID) (*conversation.Summary, error) {
	entry, err := e.group(groupID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	summary, err := e.controller.EndGroup(entry.sess, entry.chars)
	if err != nil {
		return nil, err
	}
	e.finalize(ctx, groupID, &entry.sess.Session, entry.chars, summary)
	return summary, nil
}

// SweepEvents gives every active session, one-on-one and group, its
// spontaneous event roll. It is the periodic-sweep entry point; the
// per-session lock keeps it from racing an in-flight turn.
func (e *Engine) SweepEvents() int {
	e.mu.RLock()
	entries := make([]*sessionEntry, 0, len(e.sessions))
	for _, entry := range e.sessions {
		entries = append(entries, entry)
	}
	groups := make([]*groupEntry, 0, len(e.groups))
	for _, entry := range e.groups {
		groups = append(groups, entry)
	}
	e.mu.RUnlock()

	fired := 0
	for _, entry := range entries {
		w := e.worldCopy()
		entry.mu.Lock()
		ev, _ := e.controller.InjectSpontaneous(entry.sess, []*character.Character{entry.char}, w)
		entry.mu.Unlock()
		if ev != nil {
			fired++
			e.SetWorld(w)
		}
	}
	for _, entry := range groups {
		w := e.worldCopy()
		entry.mu.Lock()
		ev, _ := e.controller.InjectSpontaneous(&entry.sess.Session, entry.chars, w)
		entry.mu.Unlock()
		if ev != nil {
			fired++
			e.SetWorld(w)
		}
	}
	if fired > 0 {
		e.logger.Debug("Event sweep complete",
			"fired", fired,
			"sessions", len(entries)+len(groups))
	}
	return fired
}

// ActiveSessions reports how many sessions are live.
func (e *Engine) ActiveSessions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions) + len(e.groups)
}

// MemorySnapshot returns a read-only view of what a character
// remembers about a player.
func (e *Engine) MemorySnapshot(characterID, playerID string) (*memory.Record, error) {
	rec, ok := e.ledger.Lookup(characterID, playerID)
	if !ok {
		return nil, fmt.Errorf("%w: no memory of %s", ErrCharacterNotFound, playerID)
	}
	return rec, nil
}

// EmotionSnapshot returns a character's current emotional state.
func (e *Engine) EmotionSnapshot(characterID string) (*emotion.State, error) {
	return e.emotions.Get(characterID)
}

// RelationshipSnapshot returns the pairwise relationship dynamics.
func (e *Engine) RelationshipSnapshot(characterID, playerID string) (*relationship.Dynamics, error) {
	return e.relationships.Get(characterID, playerID)
}

// AttachDialogueNodes adds runtime-generated content under an
// existing node, used by the dynamic quest generator.
func (e *Engine) AttachDialogueNodes(characterID, treeID, parentID string, nodes []*dialogue.Node) error {
	return e.dialogues.AttachNodes(characterID, treeID, parentID, nodes)
}
