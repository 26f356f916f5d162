package agent

import (
	"sort"
	"sync"

	"github.com/remora-mod/remora/api"
	"github.com/remora-mod/remora/mirror"
)

// API is the handle a mod initializer receives at boot.
type API struct {
	Events   *api.Bus
	Commands *api.Commands
	Server   api.Server

	ctx *mirror.Context
}

// SetPermissions installs the provider consulted by Player.HasPermission.
// The last provider installed wins.
func (a *API) SetPermissions(p api.PermissionProvider) { a.ctx.SetPermissions(p) }

// ModInit is a mod's entry point, called once during boot.
type ModInit func(*API)

var (
	modsMu sync.RWMutex
	mods   = make(map[string]ModInit)
)

// Register makes a mod initializer available under the given name. It is
// meant to be called from a mod package's init function, so that a blank
// import of the mod package is enough to include it in the boot. It
// panics on a duplicate name or a nil initializer.
func Register(name string, init ModInit) {
	modsMu.Lock()
	defer modsMu.Unlock()
	if init == nil {
		panic("agent: Register initializer is nil")
	}
	if _, dup := mods[name]; dup {
		panic("agent: Register called twice for mod " + name)
	}
	mods[name] = init
}

// Mods returns the names of the registered mods, sorted.
func Mods() []string {
	modsMu.RLock()
	defer modsMu.RUnlock()
	list := make([]string, 0, len(mods))
	for name := range mods {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

// runMods initializes every registered mod in name order. A mod that
// panics is logged and dropped; the remaining mods and the host still
// come up.
func (a *Agent) runMods() {
	for _, name := range Mods() {
		modsMu.RLock()
		init := mods[name]
		modsMu.RUnlock()
		a.runMod(name, init)
	}
}

func (a *Agent) runMod(name string, init ModInit) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("mod %s failed to initialize: %v", name, r)
		}
	}()
	init(a.api)
	log.Infof("mod %s initialized", name)
}
