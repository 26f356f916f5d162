package mirror

import (
	"errors"
	"reflect"
	"testing"

	"github.com/remora-mod/remora/api"
	"github.com/remora-mod/remora/hosttest"
)

func TestPlayerReadsThroughPins(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()
	alice := h.newPlayer(42, "alice", 17)
	alice.SetState("q", 1.5)
	alice.SetState("r", 64.0)
	alice.SetState("s", -8.25)

	p := ctx.Player(alice)
	if got := p.Name(); got != "alice" {
		t.Errorf("Name = %q, want alice", got)
	}
	if got := p.ID(); got != 42 {
		t.Errorf("ID = %d, want 42", got)
	}
	if got := p.Health(); got != 17 {
		t.Errorf("Health = %d, want 17", got)
	}
	if got := p.MaxHealth(); got != 20 {
		t.Errorf("MaxHealth = %d, want 20", got)
	}
	if got, want := p.Position(), (api.Position{X: 1.5, Y: 64, Z: -8.25}); got != want {
		t.Errorf("Position = %+v, want %+v", got, want)
	}
	if got := p.Category(); got != api.CategoryPlayer {
		t.Errorf("Category = %v, want player", got)
	}

	p.SendMessage("hello")
	p.SendMessage("again")
	msgs, _ := alice.State("msgs")
	if want := []string{"hello", "again"}; !reflect.DeepEqual(msgs, want) {
		t.Errorf("messages = %v, want %v", msgs, want)
	}

	p.Kick("enough")
	if kicked, _ := alice.State("kicked"); kicked != "enough" {
		t.Errorf("kicked = %v, want enough", kicked)
	}
}

// A host release whose layout drifted resolves nothing; every accessor
// must report its documented default and none may panic.
func TestWrapperDefaultsOnStructuralMismatch(t *testing.T) {
	ctx := testContext(t)
	mystery := hosttest.NewObject(hosttest.NewClass("gw.mystery", nil))

	p := ctx.Player(mystery)
	if got := p.Name(); got != "" {
		t.Errorf("Name = %q, want empty", got)
	}
	if got := p.ID(); got != 0 {
		t.Errorf("ID = %d, want 0", got)
	}
	if got := p.Health(); got != 20 {
		t.Errorf("Health = %d, want the pinned maximum", got)
	}
	if got := p.Position(); got != (api.Position{}) {
		t.Errorf("Position = %+v, want zero", got)
	}
	if p.Teleport(api.Position{X: 1}) {
		t.Error("Teleport reported success")
	}
	if got := p.Category(); got != api.CategoryUnknown {
		t.Errorf("Category = %v, want unknown", got)
	}

	inv := p.Inventory()
	if got := inv.Size(); got != 0 {
		t.Errorf("Inventory.Size = %d, want 0", got)
	}
	if got := inv.Slot(0); !got.Empty() {
		t.Errorf("Slot(0) = %+v, want empty", got)
	}

	w := p.World()
	if got := w.Name(); got != "" {
		t.Errorf("World.Name = %q, want empty", got)
	}
	b := w.BlockAt(1, 2, 3)
	if got := b.TypeID(); got != 0 {
		t.Errorf("TypeID = %d, want 0", got)
	}
	if b.SetTypeID(5) {
		t.Error("SetTypeID reported success")
	}

	// These only touch the metadata store, which never depends on the
	// host; they must work even for an unresolvable entity.
	p.SendMessage("dropped")
	p.SetMetadata("k", 1)
	if _, ok := p.Metadata("k"); !ok {
		t.Error("metadata lost on drifted class")
	}
	p.ClearMetadata()
}

// A member that resolves but misbehaves degrades exactly like one that
// never resolved.
func TestWrapperDefaultsOnInvocationFailure(t *testing.T) {
	ctx := testContext(t)
	flaky := hosttest.NewClass("gw.flaky", nil).
		AddMethod("nm", nil, kStr, func(*hosttest.Object, []any) (any, error) {
			return nil, errors.New("boom")
		}).
		AddMethod("sm", kinds(kStr), kVoid, func(*hosttest.Object, []any) (any, error) {
			panic("host bug")
		}).
		AddField("hp", kInt)
	o := hosttest.NewObject(flaky)
	o.SetState("hp", "not a number") // foreign shape behind a located field

	p := ctx.Player(o)
	if got := p.Name(); got != "" {
		t.Errorf("Name = %q, want empty on error", got)
	}
	if got := p.Health(); got != 20 {
		t.Errorf("Health = %d, want the pinned maximum on bad shape", got)
	}
	p.SendMessage("x") // must swallow the panic
}

func TestWritesGoThroughPins(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()
	cow := hosttest.NewObject(h.cow)
	cow.SetState("hp", int32(9))

	l := ctx.Living(cow)
	l.SetHealth(4)
	if hp, _ := cow.State("hp"); hp != int32(4) {
		t.Fatalf("hp = %v, want 4", hp)
	}
	if !l.Teleport(api.Position{X: 1, Y: 2, Z: 3}) {
		t.Fatal("Teleport failed")
	}
}

func TestInventorySlots(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()
	sword := h.newItem(267, 1, 12)
	inv := hosttest.NewObject(h.inv)
	inv.SetState("size", int32(36))
	inv.SetState("slots", []*hosttest.Object{sword})
	alice := h.newPlayer(1, "alice", 20)
	alice.SetState("inv", inv)

	got := ctx.Player(alice).Inventory()
	if n := got.Size(); n != 36 {
		t.Errorf("Size = %d, want 36", n)
	}
	if it, want := got.Slot(0), (api.Item{TypeID: 267, Count: 1, Damage: 12}); it != want {
		t.Errorf("Slot(0) = %+v, want %+v", it, want)
	}
	if it := got.Slot(1); !it.Empty() {
		t.Errorf("Slot(1) = %+v, want empty", it)
	}
}

func TestBlockViewThroughWorld(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()
	h.blocks[[3]int32{1, 64, -3}] = 9
	wobj := h.newWorld("overworld")

	w := ctx.World(wobj)
	if got := w.Name(); got != "overworld" {
		t.Fatalf("Name = %q", got)
	}
	b := w.BlockAt(1, 64, -3)
	if b.X() != 1 || b.Y() != 64 || b.Z() != -3 {
		t.Fatalf("coords = (%d,%d,%d)", b.X(), b.Y(), b.Z())
	}
	if got := b.TypeID(); got != 9 {
		t.Fatalf("TypeID = %d, want 9", got)
	}
	if !b.SetTypeID(3) {
		t.Fatal("SetTypeID failed")
	}
	// The view is positional, not a snapshot.
	if got := b.TypeID(); got != 3 {
		t.Fatalf("TypeID after set = %d, want 3", got)
	}
}

func TestBlockFromHostObject(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()
	h.blocks[[3]int32{5, 70, 5}] = 2
	wobj := h.newWorld("overworld")
	blockObj := hosttest.NewObject(h.block)
	blockObj.SetState("w", wobj)
	blockObj.SetState("bx", int32(5))
	blockObj.SetState("by", int32(70))
	blockObj.SetState("bz", int32(5))

	b := ctx.Block(blockObj)
	if b.X() != 5 || b.Y() != 70 || b.Z() != 5 {
		t.Fatalf("coords = (%d,%d,%d)", b.X(), b.Y(), b.Z())
	}
	if got := b.TypeID(); got != 2 {
		t.Fatalf("TypeID = %d, want 2", got)
	}
	if got := b.World().Name(); got != "overworld" {
		t.Fatalf("World.Name = %q", got)
	}
}

func TestEntityWrapsByCategory(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()

	if _, ok := ctx.Entity(h.newPlayer(1, "a", 20)).(api.Player); !ok {
		t.Error("player entity does not assert to api.Player")
	}
	if _, ok := ctx.Entity(hosttest.NewObject(h.wolf)).(api.Living); !ok {
		t.Error("tameable entity does not assert to api.Living")
	}
	if _, ok := ctx.Entity(hosttest.NewObject(h.boat)).(api.Living); ok {
		t.Error("generic entity asserts to api.Living")
	}
}

func TestMetadataKeyedByEntityID(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()
	alice := h.newPlayer(42, "alice", 20)
	bob := h.newPlayer(43, "bob", 20)

	// Wrappers are throwaway; tags belong to the entity id.
	ctx.Player(alice).SetMetadata("home", "north")
	if v, ok := ctx.Player(alice).Metadata("home"); !ok || v != "north" {
		t.Fatalf("Metadata = %v, %v via a fresh wrapper", v, ok)
	}
	if _, ok := ctx.Player(bob).Metadata("home"); ok {
		t.Fatal("tag leaked to a different entity")
	}

	ctx.Player(alice).RemoveMetadata("home")
	if _, ok := ctx.Player(alice).Metadata("home"); ok {
		t.Fatal("tag survived removal")
	}
}

type nodeGrant string

func (g nodeGrant) Has(_ api.Player, node string) bool { return node == string(g) }

type panicProvider struct{}

func (panicProvider) Has(api.Player, string) bool { panic("provider bug") }

func TestHasPermission(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()
	p := ctx.Player(h.newPlayer(1, "alice", 20))

	if p.HasPermission("build") {
		t.Error("granted with no provider installed")
	}

	ctx.SetPermissions(nodeGrant("build"))
	if !p.HasPermission("build") {
		t.Error("provider grant ignored")
	}
	if p.HasPermission("fly") {
		t.Error("ungranted node allowed")
	}

	ctx.SetPermissions(panicProvider{})
	if p.HasPermission("build") {
		t.Error("panicking provider granted")
	}
}
