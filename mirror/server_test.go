package mirror

import (
	"testing"

	"github.com/remora-mod/remora/hosttest"
)

func TestServerCapturedOnFirstWorld(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()
	alice := h.newPlayer(1, "alice", 20)
	bob := h.newPlayer(2, "bob", 20)
	wobj := h.newWorld("overworld")
	wobj.SetState("server", h.newServer(alice, bob))

	ctx.World(wobj) // first observation captures the handle

	s := ctx.Server()
	players := s.Players()
	if len(players) != 2 {
		t.Fatalf("Players = %d entries, want 2", len(players))
	}
	if got := players[0].Name(); got != "alice" {
		t.Errorf("players[0] = %q, want alice", got)
	}

	if p, ok := s.Player("ALICE"); !ok || p.Name() != "alice" {
		t.Errorf("lookup by name failed: %v, %v", p, ok)
	}
	if _, ok := s.Player("nobody"); ok {
		t.Error("lookup invented a player")
	}

	s.Broadcast("hello")
	if len(h.broadcasts) != 1 || h.broadcasts[0] != "hello" {
		t.Errorf("broadcasts = %v", h.broadcasts)
	}
}

func TestServerBeforeCapture(t *testing.T) {
	ctx := testContext(t)

	s := ctx.Server()
	if got := len(s.Players()); got != 0 {
		t.Errorf("Players = %d entries before capture, want 0", got)
	}
	if _, ok := s.Player("alice"); ok {
		t.Error("lookup succeeded before capture")
	}
	s.Broadcast("dropped") // no panic, no effect
	if got := s.Version(); got != "1.7.2" {
		t.Errorf("Version = %q, want the pinned version", got)
	}
}

// The capture runs once. A world that cannot reach the server spends the
// attempt; a later, healthier world does not get another.
func TestServerCaptureIsSingleShot(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()

	dark := hosttest.NewObject(hosttest.NewClass("gw.wd0", nil))
	ctx.World(dark)

	good := h.newWorld("overworld")
	good.SetState("server", h.newServer(h.newPlayer(1, "alice", 20)))
	ctx.World(good)

	if got := len(ctx.Server().Players()); got != 0 {
		t.Fatalf("Players = %d, want 0 after a spent capture", got)
	}
}

func TestServerSecondWorldDoesNotRecapture(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()

	w1 := h.newWorld("overworld")
	w1.SetState("server", h.newServer(h.newPlayer(1, "alice", 20)))
	w2 := h.newWorld("nether")
	w2.SetState("server", h.newServer(h.newPlayer(2, "bob", 20), h.newPlayer(3, "carol", 20)))

	ctx.World(w1)
	ctx.World(w2)

	if got := len(ctx.Server().Players()); got != 1 {
		t.Fatalf("Players = %d, want 1 from the first capture", got)
	}
}
