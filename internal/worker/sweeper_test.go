package worker

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jwebster45206/tavern-engine/pkg/character"
	"github.com/jwebster45206/tavern-engine/pkg/engine"
	"github.com/jwebster45206/tavern-engine/pkg/player"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestSweeper_RunOnce(t *testing.T) {
	clock := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	eng := engine.New(engine.Config{Seed: 9, Now: now, Logger: testLogger()})
	if err := eng.RegisterCharacter(&character.Character{
		ID: "greta", Name: "Greta", Class: "innkeeper", Age: 44, MemoryStrength: 50,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := eng.RegisterPlayer(player.Spec{ID: "pc_1"}); err != nil {
		t.Fatalf("register player: %v", err)
	}
	if _, _, err := eng.StartSession("pc_1", "greta"); err != nil {
		t.Fatalf("start: %v", err)
	}

	s := New(eng, time.Second, testLogger(), "test-sweeper")

	fired := 0
	for i := 0; i < 50 && fired == 0; i++ {
		clock = clock.Add(30 * time.Minute)
		fired = s.RunOnce()
	}
	if fired == 0 {
		t.Fatal("expected the sweep to inject an event eventually")
	}
}

func TestSweeper_StartStop(t *testing.T) {
	eng := engine.New(engine.Config{Seed: 10, Logger: testLogger()})
	s := New(eng, 5*time.Millisecond, testLogger(), "")

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	time.Sleep(25 * time.Millisecond)
	s.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error from Start: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop in time")
	}
}
