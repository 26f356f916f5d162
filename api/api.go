// Package api is the public modding surface: wrapper interfaces over live
// host objects, the events mods subscribe to, and the command and
// permission extension points. Mods depend only on this package; the
// concrete wrappers live in the mirror package and are handed out at boot.
//
// Every operation here carries a documented safe default. When the host's
// internal layout has drifted and a member cannot be found, or an
// invocation fails, the wrapper returns that default instead of
// propagating the failure.
package api

// Category is the most specific variant a host entity class maps to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryPlayer
	CategoryTameable
	CategoryProjectile
	CategoryLiving
	CategoryGeneric
)

var categoryNames = map[Category]string{
	CategoryUnknown:    "unknown",
	CategoryPlayer:     "player",
	CategoryTameable:   "tameable",
	CategoryProjectile: "projectile",
	CategoryLiving:     "living",
	CategoryGeneric:    "generic",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return "unknown"
}

// Position is a point in a world.
type Position struct {
	X, Y, Z float64
}

// Item describes one inventory slot. The zero value is an empty slot.
type Item struct {
	TypeID int32
	Count  int32
	Damage int32
}

// Empty reports whether the slot holds nothing.
func (it Item) Empty() bool { return it.Count == 0 }

// Entity is any object living in a world. Defaults: ID 0, CategoryUnknown,
// zero Position, nil World, Teleport false.
type Entity interface {
	// ID is the host's stable identity for this entity. Metadata is keyed
	// by it, so it survives re-wrapping.
	ID() int32
	Category() Category
	World() World
	Position() Position
	// Teleport moves the entity. False means the move could not be issued.
	Teleport(to Position) bool

	// SetMetadata tags the entity. Tags live as long as the process, not
	// the wrapper.
	SetMetadata(key string, value any)
	Metadata(key string) (any, bool)
	RemoveMetadata(key string)
	ClearMetadata()
}

// Living is an entity with health. Defaults: Health and MaxHealth report
// the catalog's pinned maximum, SetHealth is a no-op on failure.
type Living interface {
	Entity
	Health() int32
	SetHealth(v int32)
	MaxHealth() int32
}

// Player is a connected human. Defaults: empty Name, message/kick no-ops,
// empty Inventory, HasPermission false unless a provider grants it.
type Player interface {
	Living
	Name() string
	SendMessage(msg string)
	Kick(reason string)
	Inventory() Inventory
	HasPermission(node string) bool
}

// World is one dimension of the running game. Defaults: empty Name,
// BlockAt a block whose reads return zero values.
type World interface {
	Name() string
	BlockAt(x, y, z int) Block
}

// Block is a positional view into a world; it holds coordinates, not a
// snapshot. Defaults: TypeID 0, SetTypeID false.
type Block interface {
	World() World
	X() int
	Y() int
	Z() int
	TypeID() int32
	SetTypeID(id int32) bool
}

// Inventory is a fixed-size slot container. Defaults: Size 0, empty Item.
type Inventory interface {
	Size() int
	Slot(i int) Item
}

// Server is the running host instance. Defaults: empty player list, nil
// lookup, Broadcast no-op.
type Server interface {
	// Version is the pinned host version this build targets.
	Version() string
	Players() []Player
	Player(name string) (Player, bool)
	Broadcast(msg string)
}
