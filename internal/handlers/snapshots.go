package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/tavern-engine/pkg/engine"
)

// CharacterHandler exposes read-only state snapshots for the UI.
// Routes:
// GET /v1/characters                          - List registered character ids
// GET /v1/characters/{id}                     - Character description
// GET /v1/characters/{id}/memory?player=      - Memory record for a pair
// GET /v1/characters/{id}/emotion             - Current emotional state
// GET /v1/characters/{id}/relationship?player= - Relationship dynamics for a pair
type CharacterHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewCharacterHandler(eng *engine.Engine, logger *slog.Logger) *CharacterHandler {
	return &CharacterHandler{
		engine: eng,
		logger: logger,
	}
}

func (h *CharacterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/characters"), "/")
	if path == "" {
		writeJSON(w, h.logger, http.StatusOK, h.engine.Characters())
		return
	}

	parts := strings.SplitN(path, "/", 2)
	characterID := parts[0]
	resource := ""
	if len(parts) == 2 {
		resource = parts[1]
	}

	switch resource {
	case "":
		c, err := h.engine.Character(characterID)
		if err != nil {
			h.writeSnapshotError(w, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, c)

	case "memory":
		playerID := r.URL.Query().Get("player")
		if playerID == "" {
			writeError(w, h.logger, http.StatusBadRequest, "player query parameter is required")
			return
		}
		rec, err := h.engine.MemorySnapshot(characterID, playerID)
		if err != nil {
			h.writeSnapshotError(w, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, rec)

	case "emotion":
		st, err := h.engine.EmotionSnapshot(characterID)
		if err != nil {
			h.writeSnapshotError(w, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, st)

	case "relationship":
		playerID := r.URL.Query().Get("player")
		if playerID == "" {
			writeError(w, h.logger, http.StatusBadRequest, "player query parameter is required")
			return
		}
		dyn, err := h.engine.RelationshipSnapshot(characterID, playerID)
		if err != nil {
			h.writeSnapshotError(w, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, dyn)

	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown resource: "+resource)
	}
}

// writeSnapshotError reports missing characters and missing pairwise
// state alike as not-found; there is nothing else a read can fail on.
func (h *CharacterHandler) writeSnapshotError(w http.ResponseWriter, err error) {
	writeError(w, h.logger, http.StatusNotFound, err.Error())
}
