package mirror

import (
	"github.com/remora-mod/remora/api"
	"github.com/remora-mod/remora/host"
)

type inventory struct {
	ctx *Context
	obj host.Object
}

func (v inventory) Size() int { return int(v.ctx.intOp(v.obj, opInvSize, 0)) }

func (v inventory) Slot(i int) api.Item {
	it := v.ctx.refOp(v.obj, opInvSlot, int32(i))
	if it == nil {
		return api.Item{}
	}
	return api.Item{
		TypeID: v.ctx.intOp(it, opItemID, 0),
		Count:  v.ctx.intOp(it, opItemCount, 0),
		Damage: v.ctx.intOp(it, opItemDamage, 0),
	}
}
