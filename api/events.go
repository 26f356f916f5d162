package api

import "sync"

// Cancellable is embedded by events whose source operation can be stopped.
// Any listener may set Cancelled; the dispatch layer reads it after all
// listeners ran.
type Cancellable struct {
	Cancelled bool
}

// Cancel stops the operation the event describes.
func (c *Cancellable) Cancel() { c.Cancelled = true }

// BlockBreakEvent fires before a player breaks a block.
type BlockBreakEvent struct {
	Cancellable
	Player Player
	Block  Block
}

// BlockPlaceEvent fires before a player places a block.
type BlockPlaceEvent struct {
	Cancellable
	Player Player
	Block  Block
}

// ChatEvent fires before a chat line is broadcast.
type ChatEvent struct {
	Cancellable
	Player  Player
	Message string
}

// JoinEvent fires after a player finished joining.
type JoinEvent struct {
	Player Player
}

// QuitEvent fires after a player disconnected.
type QuitEvent struct {
	Player Player
}

// DeathEvent fires after an entity died.
type DeathEvent struct {
	Entity Entity
}

// TeleportEvent fires after an entity moved worlds or was teleported.
type TeleportEvent struct {
	Entity Entity
}

// Bus routes events to subscribed listeners. Subscription is typed per
// event; listeners run synchronously on the host thread that raised the
// event, in subscription order.
type Bus struct {
	mu         sync.RWMutex
	blockBreak []func(*BlockBreakEvent)
	blockPlace []func(*BlockPlaceEvent)
	chat       []func(*ChatEvent)
	join       []func(*JoinEvent)
	quit       []func(*QuitEvent)
	death      []func(*DeathEvent)
	teleport   []func(*TeleportEvent)
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) OnBlockBreak(fn func(*BlockBreakEvent)) {
	b.mu.Lock()
	b.blockBreak = append(b.blockBreak, fn)
	b.mu.Unlock()
}

func (b *Bus) OnBlockPlace(fn func(*BlockPlaceEvent)) {
	b.mu.Lock()
	b.blockPlace = append(b.blockPlace, fn)
	b.mu.Unlock()
}

func (b *Bus) OnChat(fn func(*ChatEvent)) {
	b.mu.Lock()
	b.chat = append(b.chat, fn)
	b.mu.Unlock()
}

func (b *Bus) OnJoin(fn func(*JoinEvent)) {
	b.mu.Lock()
	b.join = append(b.join, fn)
	b.mu.Unlock()
}

func (b *Bus) OnQuit(fn func(*QuitEvent)) {
	b.mu.Lock()
	b.quit = append(b.quit, fn)
	b.mu.Unlock()
}

func (b *Bus) OnDeath(fn func(*DeathEvent)) {
	b.mu.Lock()
	b.death = append(b.death, fn)
	b.mu.Unlock()
}

func (b *Bus) OnTeleport(fn func(*TeleportEvent)) {
	b.mu.Lock()
	b.teleport = append(b.teleport, fn)
	b.mu.Unlock()
}

func (b *Bus) FireBlockBreak(ev *BlockBreakEvent) {
	b.mu.RLock()
	fns := b.blockBreak
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) FireBlockPlace(ev *BlockPlaceEvent) {
	b.mu.RLock()
	fns := b.blockPlace
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) FireChat(ev *ChatEvent) {
	b.mu.RLock()
	fns := b.chat
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) FireJoin(ev *JoinEvent) {
	b.mu.RLock()
	fns := b.join
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) FireQuit(ev *QuitEvent) {
	b.mu.RLock()
	fns := b.quit
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) FireDeath(ev *DeathEvent) {
	b.mu.RLock()
	fns := b.death
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Bus) FireTeleport(ev *TeleportEvent) {
	b.mu.RLock()
	fns := b.teleport
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
