package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/engine"
	"github.com/jwebster45206/tavern-engine/pkg/player"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.New(engine.Config{Seed: 7, Logger: testLogger()})
	chars := []*character.Character{
		{ID: "greta", Name: "Greta", Race: "Human", Class: "innkeeper", Age: 44, MemoryStrength: 50},
		{ID: "borin", Name: "Borin", Race: "Dwarf", Class: "smith", Age: 140, MemoryStrength: 40},
		{ID: "ael", Name: "Ael", Race: "Elf", Class: "bard", Age: 120, MemoryStrength: 60},
	}
	for _, c := range chars {
		if err := eng.RegisterCharacter(c); err != nil {
			t.Fatalf("register character: %v", err)
		}
	}
	return eng
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func startTestSession(t *testing.T, h *SessionHandler, characterIDs []string) StartSessionResponse {
	t.Helper()
	rr := postJSON(t, h, "/v1/sessions", StartSessionRequest{
		Player:       player.Spec{ID: "pc_1", Name: "Wanderer"},
		CharacterIDs: characterIDs,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp StartSessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestSessionHandler_StartAndSay(t *testing.T) {
	h := NewSessionHandler(testEngine(t), testLogger())

	resp := startTestSession(t, h, []string{"greta"})
	if resp.Session == nil {
		t.Fatal("expected a session in the response")
	}
	if len(resp.Options) == 0 {
		t.Fatal("expected initial dialogue options")
	}

	rr := postJSON(t, h, fmt.Sprintf("/v1/sessions/%s/say", resp.Session.ID), SayRequest{
		NodeID: resp.Options[0].ID,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var turn map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&turn); err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	if _, ok := turn["response"]; !ok {
		t.Error("expected a character response in the turn result")
	}
}

func TestSessionHandler_ReadAndEnd(t *testing.T) {
	h := NewSessionHandler(testEngine(t), testLogger())
	resp := startTestSession(t, h, []string{"greta"})

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+resp.Session.ID.String(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on read, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+resp.Session.ID.String(), nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on end, got %d: %s", rr.Code, rr.Body.String())
	}

	var summary map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary["tone"] == "" {
		t.Error("expected a tone in the summary")
	}

	// The session is gone afterwards.
	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+resp.Session.ID.String(), nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 after end, got %d", rr.Code)
	}
}

func TestSessionHandler_GroupFlow(t *testing.T) {
	h := NewSessionHandler(testEngine(t), testLogger())

	resp := startTestSession(t, h, []string{"greta", "borin", "ael"})
	if resp.Group == nil {
		t.Fatal("expected a group session in the response")
	}

	rr := postJSON(t, h, fmt.Sprintf("/v1/sessions/%s/message", resp.Group.ID), GroupMessageRequest{
		SpeakerID: "pc_1",
		Text:      "First round's on me.",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = postJSON(t, h, fmt.Sprintf("/v1/sessions/%s/next-speaker", resp.Group.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var next NextSpeakerResponse
	if err := json.NewDecoder(rr.Body).Decode(&next); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if next.SpeakerID == "" {
		t.Error("expected a speaker id")
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+resp.Group.ID.String(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ending a group via the same route, got %d", rec.Code)
	}
}

func TestSessionHandler_Validation(t *testing.T) {
	h := NewSessionHandler(testEngine(t), testLogger())

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"malformed id", http.MethodGet, "/v1/sessions/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/v1/sessions/" + uuid.NewString(), nil, http.StatusNotFound},
		{"missing player", http.MethodPost, "/v1/sessions", StartSessionRequest{CharacterIDs: []string{"greta"}}, http.StatusBadRequest},
		{"missing characters", http.MethodPost, "/v1/sessions", StartSessionRequest{Player: player.Spec{ID: "pc_1"}}, http.StatusBadRequest},
		{"unknown character", http.MethodPost, "/v1/sessions", StartSessionRequest{
			Player: player.Spec{ID: "pc_1"}, CharacterIDs: []string{"nobody"},
		}, http.StatusNotFound},
		{"wrong method on collection", http.MethodGet, "/v1/sessions", nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rr *httptest.ResponseRecorder
			if tt.method == http.MethodPost {
				rr = postJSON(t, h, tt.path, tt.body)
			} else {
				req := httptest.NewRequest(tt.method, tt.path, nil)
				rr = httptest.NewRecorder()
				h.ServeHTTP(rr, req)
			}
			if rr.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSessionHandler_SayUnknownNodeIs404(t *testing.T) {
	h := NewSessionHandler(testEngine(t), testLogger())
	resp := startTestSession(t, h, []string{"greta"})

	rr := postJSON(t, h, fmt.Sprintf("/v1/sessions/%s/say", resp.Session.ID), SayRequest{NodeID: "no_such_node"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown node, got %d", rr.Code)
	}
}
