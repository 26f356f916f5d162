package mirror

// Adapter operations, by the ids used in the member section of the pin
// catalog. Every wrapper call resolves through one of these; adding an
// operation means adding a pin for it to each supported release.
const (
	opEntityID    = "entity-id"
	opEntityWorld = "entity-world"
	opPosX        = "pos-x"
	opPosY        = "pos-y"
	opPosZ        = "pos-z"
	opTeleport    = "teleport"
	opHealth      = "health"

	opPlayerName  = "player-name"
	opSendMessage = "send-message"
	opKick        = "kick"
	opInventory   = "inventory"

	opInvSize    = "inventory-size"
	opInvSlot    = "inventory-slot"
	opItemID     = "item-id"
	opItemCount  = "item-count"
	opItemDamage = "item-damage"

	opWorldName    = "world-name"
	opBlockType    = "block-type"
	opSetBlockType = "set-block-type"
	opWorldServer  = "world-server"

	opBlockWorld = "block-world"
	opBlockX     = "block-x"
	opBlockY     = "block-y"
	opBlockZ     = "block-z"

	opServerPlayers = "server-players"
	opBroadcast     = "broadcast"
	opListSize      = "list-size"
	opListGet       = "list-get"

	opRemoteAddress = "remote-address"
)
