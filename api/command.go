package api

import (
	"strings"
	"sync"
)

// CommandFunc handles one registered command. args excludes the command
// word itself. Return true when the command was handled; false lets the
// host's own command handling run.
type CommandFunc func(p Player, args []string) bool

// Commands is the command registry the command hook consults. Names are
// case-insensitive.
type Commands struct {
	mu sync.RWMutex
	m  map[string]CommandFunc
}

func NewCommands() *Commands {
	return &Commands{m: make(map[string]CommandFunc)}
}

// Register binds a command name. A second registration of the same name
// replaces the first.
func (c *Commands) Register(name string, fn CommandFunc) {
	c.mu.Lock()
	c.m[strings.ToLower(name)] = fn
	c.mu.Unlock()
}

// Dispatch routes a raw command line ("/home set" or "home set"). It
// returns false for empty lines and unregistered names, which lets the
// host's handling proceed untouched.
func (c *Commands) Dispatch(p Player, line string) bool {
	line = strings.TrimPrefix(line, "/")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	c.mu.RLock()
	fn, ok := c.m[strings.ToLower(fields[0])]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	return fn(p, fields[1:])
}

// PermissionProvider answers permission checks for players. Mods install
// one at boot; without a provider every check denies.
type PermissionProvider interface {
	Has(p Player, node string) bool
}
