// Package hooks is the dispatch layer between rewritten host code and
// mod code. Call sites injected by the transform engine resolve against
// one synthetic class of static entry points; each entry point converts
// its opaque arguments through the adapter context, runs listeners or
// registries, and answers with the primitive the call site expects.
//
// Every entry point runs under blanket recovery. A panic anywhere below
// it, listener code included, reads as "no interception": the neutral
// value lets the host proceed exactly as if the hook were absent.
// Nothing here queues or spawns; hooks run inline on whichever host
// thread reached the call site.
package hooks

import (
	"github.com/tliron/commonlog"

	"github.com/remora-mod/remora/api"
	"github.com/remora-mod/remora/handshake"
	"github.com/remora-mod/remora/host"
	"github.com/remora-mod/remora/mirror"
)

var log = commonlog.GetLogger("remora.hooks")

// CalloutClass is the class name injected call sites resolve against.
const CalloutClass = "remora.Callouts"

// Dispatcher holds what the entry points need: the adapter context for
// object conversion, the event bus and command registry mods populate,
// and the handshake table for the compatibility gate.
type Dispatcher struct {
	ctx   *mirror.Context
	bus   *api.Bus
	cmds  *api.Commands
	table *handshake.Table
	brand string
}

func NewDispatcher(ctx *mirror.Context, bus *api.Bus, cmds *api.Commands, table *handshake.Table) *Dispatcher {
	return &Dispatcher{ctx: ctx, bus: bus, cmds: cmds, table: table}
}

// SetBrandTitle configures the replacement console title. Call before
// the callouts are bound; empty leaves the host's own title in place.
func (d *Dispatcher) SetBrandTitle(title string) { d.brand = title }

// Callouts enumerates every entry point under its bound name. The agent
// binds each into the host runtime against CalloutClass.
func (d *Dispatcher) Callouts() map[string]host.CalloutFunc {
	return map[string]host.CalloutFunc{
		"blockBreak": d.BlockBreak,
		"blockPlace": d.BlockPlace,
		"chat":       d.Chat,
		"command":    d.Command,
		"join":       d.Join,
		"quit":       d.Quit,
		"death":      d.Death,
		"teleport":   d.Teleport,
		"handshake":  d.HandshakeAddress,
		"login":      d.LoginGate,
		"brandTitle": d.BrandTitle,
	}
}

// suppress converts a panic below an entry point into the neutral value
// for that hook.
func suppress(hook string, out *any, neutral any) {
	if r := recover(); r != nil {
		log.Errorf("%s hook panicked: %v", hook, r)
		*out = neutral
	}
}

func objArg(args []any, i int) host.Object {
	if i >= len(args) {
		return nil
	}
	o, _ := args[i].(host.Object)
	return o
}

func strArg(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	s, _ := args[i].(string)
	return s
}

// ---------------------------------------------------------------------------
// Gameplay hooks
// ---------------------------------------------------------------------------

// BlockBreak runs before the host removes a block: (player, block).
// True cancels the break.
func (d *Dispatcher) BlockBreak(args []any) (cancel any) {
	defer suppress("block-break", &cancel, false)
	ev := &api.BlockBreakEvent{
		Player: d.ctx.Player(objArg(args, 0)),
		Block:  d.ctx.Block(objArg(args, 1)),
	}
	d.bus.FireBlockBreak(ev)
	return ev.Cancelled
}

// BlockPlace runs before the host sets a placed block: (player, block).
// True cancels the placement.
func (d *Dispatcher) BlockPlace(args []any) (cancel any) {
	defer suppress("block-place", &cancel, false)
	ev := &api.BlockPlaceEvent{
		Player: d.ctx.Player(objArg(args, 0)),
		Block:  d.ctx.Block(objArg(args, 1)),
	}
	d.bus.FireBlockPlace(ev)
	return ev.Cancelled
}

// Chat runs before a chat line is broadcast: (player, message). True
// swallows the line.
func (d *Dispatcher) Chat(args []any) (cancel any) {
	defer suppress("chat", &cancel, false)
	ev := &api.ChatEvent{
		Player:  d.ctx.Player(objArg(args, 0)),
		Message: strArg(args, 1),
	}
	d.bus.FireChat(ev)
	return ev.Cancelled
}

// Command runs before the host parses a slash command: (player, line).
// A registered handler that takes the command cancels the host's own
// parsing; unknown commands fall through untouched.
func (d *Dispatcher) Command(args []any) (cancel any) {
	defer suppress("command", &cancel, false)
	p := d.ctx.Player(objArg(args, 0))
	return d.cmds.Dispatch(p, strArg(args, 1))
}

// ---------------------------------------------------------------------------
// Notify hooks, injected before every return of their target methods.
// All are void; their return value is ignored by the call site.
// ---------------------------------------------------------------------------

func (d *Dispatcher) Join(args []any) (ret any) {
	defer suppress("join", &ret, nil)
	d.bus.FireJoin(&api.JoinEvent{Player: d.ctx.Player(objArg(args, 0))})
	return nil
}

func (d *Dispatcher) Quit(args []any) (ret any) {
	defer suppress("quit", &ret, nil)
	d.bus.FireQuit(&api.QuitEvent{Player: d.ctx.Player(objArg(args, 0))})
	return nil
}

func (d *Dispatcher) Death(args []any) (ret any) {
	defer suppress("death", &ret, nil)
	d.bus.FireDeath(&api.DeathEvent{Entity: d.ctx.Entity(objArg(args, 0))})
	return nil
}

func (d *Dispatcher) Teleport(args []any) (ret any) {
	defer suppress("teleport", &ret, nil)
	d.bus.FireTeleport(&api.TeleportEvent{Entity: d.ctx.Entity(objArg(args, 0))})
	return nil
}

// ---------------------------------------------------------------------------
// Connection hooks
// ---------------------------------------------------------------------------

// HandshakeAddress filters the connection address field: (conn, field).
// The host's parser gets back a plain address whether or not a marker
// was present; a well-formed marker also verifies the connection.
func (d *Dispatcher) HandshakeAddress(args []any) (out any) {
	field := strArg(args, 1)
	defer suppress("handshake", &out, field)
	plain, rec, ok := handshake.Extract(field)
	if ok {
		remote := d.ctx.RemoteAddress(objArg(args, 0))
		d.table.Verify(handshake.Key(remote), rec)
	}
	return plain
}

// LoginGate displaces the host's login validation: (receiver, conn,
// name). Empty string accepts; anything else disconnects the client
// with that message. A failure in the gate itself must never lock
// players out, so its neutral value is accept.
func (d *Dispatcher) LoginGate(args []any) (verdict any) {
	defer suppress("login", &verdict, "")
	conn := objArg(args, 1)
	name := strArg(args, 2)
	remote := d.ctx.RemoteAddress(conn)
	if reject := d.table.Resolve(handshake.Key(remote)); reject != "" {
		log.Infof("refusing %q from %s: %s", name, remote, reject)
		return reject
	}
	return ""
}

// BrandTitle supplies the console title the host assigns at startup:
// (original). Without a configured title the host's value stands.
func (d *Dispatcher) BrandTitle(args []any) (title any) {
	orig := strArg(args, 0)
	defer suppress("brand-title", &title, orig)
	if d.brand != "" {
		return d.brand
	}
	return orig
}
