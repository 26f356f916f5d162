package mirror

import (
	"github.com/remora-mod/remora/api"
	"github.com/remora-mod/remora/host"
)

// Entity wraps obj as the most capable wrapper its category supports, so
// type assertions against api.Player or api.Living succeed exactly where
// classification allows them.
func (c *Context) Entity(obj host.Object) api.Entity {
	switch c.categoryOf(obj) {
	case api.CategoryPlayer:
		return player{living{entity{c, obj}}}
	case api.CategoryTameable, api.CategoryLiving:
		return living{entity{c, obj}}
	default:
		return entity{c, obj}
	}
}

// Living wraps obj with health access regardless of category. Prefer
// Entity when classification should decide.
func (c *Context) Living(obj host.Object) api.Living {
	return living{entity{c, obj}}
}

// Player wraps obj as a player. The wrapper tolerates obj being nil or
// not actually a player; its operations just report their defaults.
func (c *Context) Player(obj host.Object) api.Player {
	return player{living{entity{c, obj}}}
}

func (c *Context) categoryOf(obj host.Object) api.Category {
	if obj == nil {
		return api.CategoryUnknown
	}
	return c.Classify(obj.Class())
}

type entity struct {
	ctx *Context
	obj host.Object
}

func (e entity) ID() int32 { return e.ctx.intOp(e.obj, opEntityID, 0) }

func (e entity) Category() api.Category { return e.ctx.categoryOf(e.obj) }

func (e entity) World() api.World {
	return e.ctx.wrapWorld(e.ctx.refOp(e.obj, opEntityWorld))
}

func (e entity) Position() api.Position {
	return api.Position{
		X: e.ctx.floatOp(e.obj, opPosX, 0),
		Y: e.ctx.floatOp(e.obj, opPosY, 0),
		Z: e.ctx.floatOp(e.obj, opPosZ, 0),
	}
}

func (e entity) Teleport(to api.Position) bool {
	return e.ctx.do(e.obj, opTeleport, to.X, to.Y, to.Z)
}

func (e entity) SetMetadata(key string, v any) { e.ctx.meta.Set(e.ID(), key, v) }

func (e entity) Metadata(key string) (any, bool) { return e.ctx.meta.Get(e.ID(), key) }

func (e entity) RemoveMetadata(key string) { e.ctx.meta.Remove(e.ID(), key) }

func (e entity) ClearMetadata() { e.ctx.meta.Clear(e.ID()) }

type living struct {
	entity
}

func (l living) MaxHealth() int32 { return l.ctx.pins.Values.MaxHealth }

// Health reports the pinned maximum when the member cannot be read: a
// drifted pin must look healthy, not dead.
func (l living) Health() int32 { return l.ctx.intOp(l.obj, opHealth, l.MaxHealth()) }

func (l living) SetHealth(v int32) { l.ctx.do(l.obj, opHealth, v) }

type player struct {
	living
}

func (p player) Name() string { return p.ctx.strOp(p.obj, opPlayerName, "") }

func (p player) SendMessage(msg string) { p.ctx.do(p.obj, opSendMessage, msg) }

func (p player) Kick(reason string) { p.ctx.do(p.obj, opKick, reason) }

func (p player) Inventory() api.Inventory {
	return inventory{p.ctx, p.ctx.refOp(p.obj, opInventory)}
}

func (p player) HasPermission(node string) bool { return p.ctx.allowed(p, node) }
