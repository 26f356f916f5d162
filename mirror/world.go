package mirror

import (
	"github.com/remora-mod/remora/api"
	"github.com/remora-mod/remora/host"
)

// World wraps a raw world object.
func (c *Context) World(obj host.Object) api.World { return c.wrapWorld(obj) }

// wrapWorld builds the world wrapper and gives the context its chance to
// capture the server handle from a live object.
func (c *Context) wrapWorld(obj host.Object) api.World {
	if obj != nil {
		c.captureServer(obj)
	}
	return world{c, obj}
}

type world struct {
	ctx *Context
	obj host.Object
}

func (w world) Name() string { return w.ctx.strOp(w.obj, opWorldName, "") }

func (w world) BlockAt(x, y, z int) api.Block {
	return blockView{w.ctx, w.obj, x, y, z}
}

// Block wraps a raw block object. Its coordinates and world are read
// once; the result is a positional view, so type reads stay current
// rather than snapshotting the block.
func (c *Context) Block(obj host.Object) api.Block {
	w := c.refOp(obj, opBlockWorld)
	if w != nil {
		c.captureServer(w)
	}
	return blockView{
		ctx:   c,
		world: w,
		x:     int(c.intOp(obj, opBlockX, 0)),
		y:     int(c.intOp(obj, opBlockY, 0)),
		z:     int(c.intOp(obj, opBlockZ, 0)),
	}
}

type blockView struct {
	ctx     *Context
	world   host.Object
	x, y, z int
}

func (b blockView) World() api.World { return world{b.ctx, b.world} }

func (b blockView) X() int { return b.x }
func (b blockView) Y() int { return b.y }
func (b blockView) Z() int { return b.z }

func (b blockView) TypeID() int32 {
	return b.ctx.intOp(b.world, opBlockType, 0, int32(b.x), int32(b.y), int32(b.z))
}

func (b blockView) SetTypeID(id int32) bool {
	return b.ctx.boolOp(b.world, opSetBlockType, false, int32(b.x), int32(b.y), int32(b.z), id)
}
