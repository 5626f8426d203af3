package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/pkg/conversation"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/engine"
	"github.com/jwebster45206/tavern-engine/pkg/player"
)

// SessionHandler exposes conversation sessions over HTTP.
// Routes:
// POST /v1/sessions                       - Start a session (one character or a group)
// GET /v1/sessions/{id}                   - Read session state
// DELETE /v1/sessions/{id}                - End session, returns the summary
// POST /v1/sessions/{id}/say              - Select a dialogue option
// POST /v1/sessions/{id}/message          - Post a group message
// POST /v1/sessions/{id}/next-speaker     - Advance the group floor
type SessionHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewSessionHandler(eng *engine.Engine, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		engine: eng,
		logger: logger,
	}
}

// StartSessionRequest creates a session. One entry in CharacterIDs
// starts a one-on-one conversation; two or more start a group scene.
type StartSessionRequest struct {
	Player       player.Spec `json:"player"`
	CharacterIDs []string    `json:"character_ids"`
	Topic        string      `json:"topic,omitempty"`
}

// StartSessionResponse returns the created session and, for
// one-on-one conversations, the initial dialogue options.
type StartSessionResponse struct {
	Session *conversation.Session      `json:"session,omitempty"`
	Group   *conversation.GroupSession `json:"group,omitempty"`
	Options []*dialogue.Node           `json:"options,omitempty"`
}

// SayRequest selects a dialogue option in a one-on-one session.
type SayRequest struct {
	NodeID string `json:"node_id"`
}

// GroupMessageRequest posts one line into a group scene.
type GroupMessageRequest struct {
	SpeakerID string   `json:"speaker_id"`
	Text      string   `json:"text"`
	Addressed []string `json:"addressed,omitempty"`
}

// NextSpeakerResponse reports whose turn it is.
type NextSpeakerResponse struct {
	SpeakerID string `json:"speaker_id"`
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleStart(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	sessionID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleRead(w, r, sessionID)
	case action == "" && r.Method == http.MethodDelete:
		h.handleEnd(w, r, sessionID)
	case action == "say" && r.Method == http.MethodPost:
		h.handleSay(w, r, sessionID)
	case action == "message" && r.Method == http.MethodPost:
		h.handleGroupMessage(w, r, sessionID)
	case action == "next-speaker" && r.Method == http.MethodPost:
		h.handleNextSpeaker(w, r, sessionID)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Unsupported method or action")
	}
}

func (h *SessionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Player.ID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "player.id is required")
		return
	}
	if len(req.CharacterIDs) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "character_ids must not be empty")
		return
	}

	if _, err := h.engine.RegisterPlayer(req.Player); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.CharacterIDs) == 1 {
		sess, options, err := h.engine.StartSession(req.Player.ID, req.CharacterIDs[0])
		if err != nil {
			h.writeEngineError(w, err, "Failed to start session")
			return
		}
		h.logger.Debug("Session started", "session_id", sess.ID, "character", req.CharacterIDs[0])
		writeJSON(w, h.logger, http.StatusCreated, StartSessionResponse{Session: sess, Options: options})
		return
	}

	g, err := h.engine.StartGroupSession(req.Player.ID, req.CharacterIDs, req.Topic)
	if err != nil {
		h.writeEngineError(w, err, "Failed to start group session")
		return
	}
	h.logger.Debug("Group session started", "session_id", g.ID, "participants", len(req.CharacterIDs))
	writeJSON(w, h.logger, http.StatusCreated, StartSessionResponse{Group: g})
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sess, err := h.engine.Session(id)
	if err != nil {
		h.writeEngineError(w, err, "Failed to load session")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sess)
}

func (h *SessionHandler) handleSay(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req SayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.NodeID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "node_id is required")
		return
	}

	result, err := h.engine.SelectOption(r.Context(), id, req.NodeID)
	if err != nil {
		h.writeEngineError(w, err, "Failed to select option")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *SessionHandler) handleGroupMessage(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req GroupMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.SpeakerID == "" || req.Text == "" {
		writeError(w, h.logger, http.StatusBadRequest, "speaker_id and text are required")
		return
	}

	turn, err := h.engine.PostGroupMessage(id, req.SpeakerID, req.Text, req.Addressed)
	if err != nil {
		h.writeEngineError(w, err, "Failed to post message")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, turn)
}

func (h *SessionHandler) handleNextSpeaker(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	speaker, err := h.engine.NextGroupSpeaker(id)
	if err != nil {
		h.writeEngineError(w, err, "Failed to advance speaker")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, NextSpeakerResponse{SpeakerID: speaker})
}

func (h *SessionHandler) handleEnd(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	summary, err := h.engine.EndSession(r.Context(), id)
	if errors.Is(err, engine.ErrSessionNotFound) {
		// Maybe it's a group scene.
		summary, err = h.engine.EndGroupSession(r.Context(), id)
	}
	if err != nil {
		h.writeEngineError(w, err, "Failed to end session")
		return
	}
	h.logger.Debug("Session ended", "session_id", id, "tone", summary.Tone)
	writeJSON(w, h.logger, http.StatusOK, summary)
}

// writeEngineError maps engine errors onto HTTP statuses: unknown
// ids are 404, a finished session is 409, everything else 500.
func (h *SessionHandler) writeEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound),
		errors.Is(err, engine.ErrCharacterNotFound),
		errors.Is(err, engine.ErrPlayerNotFound),
		errors.Is(err, dialogue.ErrNodeNotFound),
		errors.Is(err, dialogue.ErrTreeNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	case errors.Is(err, conversation.ErrSessionEnded):
		writeError(w, h.logger, http.StatusConflict, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, fallback)
	}
}
