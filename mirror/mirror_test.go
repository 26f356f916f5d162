package mirror

import (
	"testing"

	"github.com/remora-mod/remora/classfile"
	"github.com/remora-mod/remora/hosttest"
	"github.com/remora-mod/remora/pin"
)

const (
	kBool  = classfile.KindBool
	kInt   = classfile.KindInt
	kFloat = classfile.KindFloat
	kStr   = classfile.KindString
	kRef   = classfile.KindRef
	kVoid  = classfile.KindVoid
)

func kinds(ks ...classfile.TypeKind) []classfile.TypeKind { return ks }

// testCatalog pins the synthetic host newTestHost builds, in the shape a
// real release catalog ships.
const testCatalog = `
[host]
version = "1.7.2"
protocol = 47

[values]
max-health = 20

[classes]
entity = "gw.en"
living = "gw.lv"
tameable = "gw.tm"
projectile = "gw.pj"
player = "gw.pl"
world = "gw.wd"
block = "gw.bk"
inventory = "gw.iv"
item = "gw.it"
server = "gw.srv"
list = "gw.ls"

[members.entity-id]
owner = "entity"
kind = "field"
name = "a"
desc = "I"

[members.entity-world]
owner = "entity"
kind = "field"
name = "w"
desc = "Lgw.wd;"

[members.pos-x]
owner = "entity"
kind = "field"
name = "q"
desc = "F"

[members.pos-y]
owner = "entity"
kind = "field"
name = "r"
desc = "F"

[members.pos-z]
owner = "entity"
kind = "field"
name = "s"
desc = "F"

# Not pinnable by name in this release; located by shape alone.
[members.teleport]
owner = "entity"
kind = "method"
desc = "(FFF)V"

[members.health]
owner = "living"
kind = "field"
name = "hp"
desc = "I"

[members.player-name]
owner = "player"
kind = "method"
name = "nm"
desc = "()S"

[members.send-message]
owner = "player"
kind = "method"
name = "sm"
desc = "(S)V"

[members.kick]
owner = "player"
kind = "method"
name = "kk"
desc = "(S)V"

[members.inventory]
owner = "player"
kind = "method"
name = "iv"
desc = "()Lgw.iv;"

[members.inventory-size]
owner = "inventory"
kind = "method"
name = "sz"
desc = "()I"

[members.inventory-slot]
owner = "inventory"
kind = "method"
name = "st"
desc = "(I)Lgw.it;"

[members.item-id]
owner = "item"
kind = "field"
name = "d"
desc = "I"

[members.item-count]
owner = "item"
kind = "field"
name = "c"
desc = "I"

[members.item-damage]
owner = "item"
kind = "field"
name = "g"
desc = "I"

[members.world-name]
owner = "world"
kind = "field"
name = "nm"
desc = "S"

[members.block-type]
owner = "world"
kind = "method"
name = "bt"
desc = "(III)I"

[members.set-block-type]
owner = "world"
kind = "method"
name = "sb"
desc = "(IIII)Z"

[members.world-server]
owner = "world"
kind = "method"
name = "sv"
desc = "()Lgw.srv;"

[members.block-world]
owner = "block"
kind = "field"
name = "w"
desc = "Lgw.wd;"

[members.block-x]
owner = "block"
kind = "field"
name = "bx"
desc = "I"

[members.block-y]
owner = "block"
kind = "field"
name = "by"
desc = "I"

[members.block-z]
owner = "block"
kind = "field"
name = "bz"
desc = "I"

[members.server-players]
owner = "server"
kind = "method"
name = "pp"
desc = "()Lgw.ls;"

[members.broadcast]
owner = "server"
kind = "method"
name = "bc"
desc = "(S)V"

[members.list-size]
owner = "list"
kind = "method"
name = "sz"
desc = "()I"

[members.list-get]
owner = "list"
kind = "method"
name = "gt"
desc = "(I)Lgw.pl;"
`

func testContext(t *testing.T) *Context {
	t.Helper()
	pins, err := pin.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return NewContext(pins)
}

// testHost is the synthetic class graph behind testCatalog: an entity
// hierarchy with a tameable branch, a projectile interface, and the
// world/block/inventory/server surfaces the wrappers read.
type testHost struct {
	entity, living, tameable, player *hosttest.Class
	projectile                       *hosttest.Class
	wolf, cow, sheep, arrow, boat    *hosttest.Class
	world, block, inv, item          *hosttest.Class
	server, list                     *hosttest.Class

	blocks     map[[3]int32]int32
	broadcasts []string
}

func newTestHost() *testHost {
	h := &testHost{blocks: make(map[[3]int32]int32)}

	h.entity = hosttest.NewClass("gw.en", nil).
		AddField("a", kInt).
		AddField("w", kRef).
		AddField("q", kFloat).
		AddField("r", kFloat).
		AddField("s", kFloat).
		AddMethod("tp", kinds(kFloat, kFloat, kFloat), kVoid, func(recv *hosttest.Object, args []any) (any, error) {
			recv.SetState("moved", []float64{args[0].(float64), args[1].(float64), args[2].(float64)})
			return nil, nil
		})

	h.living = hosttest.NewClass("gw.lv", h.entity).AddField("hp", kInt)
	h.tameable = hosttest.NewClass("gw.tm", h.living)
	h.projectile = hosttest.NewClass("gw.pj", nil)
	h.wolf = hosttest.NewClass("gw.wf", h.tameable)
	h.cow = hosttest.NewClass("gw.cw", h.living)
	h.sheep = hosttest.NewClass("gw.sh", h.living)
	h.arrow = hosttest.NewClass("gw.ar", h.entity).AddInterface(h.projectile)
	h.boat = hosttest.NewClass("gw.bt", h.entity)

	h.player = hosttest.NewClass("gw.pl", h.living).
		AddMethod("nm", nil, kStr, func(recv *hosttest.Object, _ []any) (any, error) {
			v, _ := recv.State("name")
			return v, nil
		}).
		AddMethod("sm", kinds(kStr), kVoid, func(recv *hosttest.Object, args []any) (any, error) {
			var msgs []string
			if v, ok := recv.State("msgs"); ok {
				msgs = v.([]string)
			}
			recv.SetState("msgs", append(msgs, args[0].(string)))
			return nil, nil
		}).
		AddMethod("kk", kinds(kStr), kVoid, func(recv *hosttest.Object, args []any) (any, error) {
			recv.SetState("kicked", args[0].(string))
			return nil, nil
		}).
		AddMethod("iv", nil, kRef, func(recv *hosttest.Object, _ []any) (any, error) {
			v, _ := recv.State("inv")
			return v, nil
		})

	h.item = hosttest.NewClass("gw.it", nil).
		AddField("d", kInt).
		AddField("c", kInt).
		AddField("g", kInt)

	h.inv = hosttest.NewClass("gw.iv", nil).
		AddMethod("sz", nil, kInt, func(recv *hosttest.Object, _ []any) (any, error) {
			v, ok := recv.State("size")
			if !ok {
				return int32(0), nil
			}
			return v, nil
		}).
		AddMethod("st", kinds(kInt), kRef, func(recv *hosttest.Object, args []any) (any, error) {
			v, ok := recv.State("slots")
			if !ok {
				return nil, nil
			}
			slots := v.([]*hosttest.Object)
			i := int(args[0].(int32))
			if i < 0 || i >= len(slots) {
				return nil, nil
			}
			return slots[i], nil
		})

	h.world = hosttest.NewClass("gw.wd", nil).
		AddField("nm", kStr).
		AddMethod("bt", kinds(kInt, kInt, kInt), kInt, func(_ *hosttest.Object, args []any) (any, error) {
			return h.blocks[blockKey(args)], nil
		}).
		AddMethod("sb", kinds(kInt, kInt, kInt, kInt), kBool, func(_ *hosttest.Object, args []any) (any, error) {
			h.blocks[blockKey(args)] = args[3].(int32)
			return true, nil
		}).
		AddMethod("sv", nil, kRef, func(recv *hosttest.Object, _ []any) (any, error) {
			v, _ := recv.State("server")
			return v, nil
		})

	h.block = hosttest.NewClass("gw.bk", nil).
		AddField("w", kRef).
		AddField("bx", kInt).
		AddField("by", kInt).
		AddField("bz", kInt)

	h.list = hosttest.NewClass("gw.ls", nil).
		AddMethod("sz", nil, kInt, func(recv *hosttest.Object, _ []any) (any, error) {
			return int32(len(listItems(recv))), nil
		}).
		AddMethod("gt", kinds(kInt), kRef, func(recv *hosttest.Object, args []any) (any, error) {
			items := listItems(recv)
			i := int(args[0].(int32))
			if i < 0 || i >= len(items) {
				return nil, nil
			}
			return items[i], nil
		})

	h.server = hosttest.NewClass("gw.srv", nil).
		AddMethod("pp", nil, kRef, func(recv *hosttest.Object, _ []any) (any, error) {
			v, _ := recv.State("players-list")
			return v, nil
		}).
		AddMethod("bc", kinds(kStr), kVoid, func(_ *hosttest.Object, args []any) (any, error) {
			h.broadcasts = append(h.broadcasts, args[0].(string))
			return nil, nil
		})

	return h
}

func blockKey(args []any) [3]int32 {
	return [3]int32{args[0].(int32), args[1].(int32), args[2].(int32)}
}

func listItems(recv *hosttest.Object) []*hosttest.Object {
	v, ok := recv.State("items")
	if !ok {
		return nil
	}
	return v.([]*hosttest.Object)
}

func (h *testHost) newPlayer(id int32, name string, hp int32) *hosttest.Object {
	o := hosttest.NewObject(h.player)
	o.SetState("a", id)
	o.SetState("name", name)
	o.SetState("hp", hp)
	return o
}

func (h *testHost) newWorld(name string) *hosttest.Object {
	o := hosttest.NewObject(h.world)
	o.SetState("nm", name)
	return o
}

func (h *testHost) newServer(players ...*hosttest.Object) *hosttest.Object {
	list := hosttest.NewObject(h.list)
	list.SetState("items", players)
	s := hosttest.NewObject(h.server)
	s.SetState("players-list", list)
	return s
}

func (h *testHost) newItem(id, count, damage int32) *hosttest.Object {
	o := hosttest.NewObject(h.item)
	o.SetState("d", id)
	o.SetState("c", count)
	o.SetState("g", damage)
	return o
}
