package mirror

import (
	"github.com/remora-mod/remora/api"
	"github.com/remora-mod/remora/host"
)

// categoryPins orders the ancestor checks most specific first; the first
// category whose pinned ancestor appears anywhere above a class wins, so
// a tameable animal never falls back to plain living. Roles resolve
// through the catalog's class section; a release missing a role simply
// never produces that category.
var categoryPins = []struct {
	role string
	cat  api.Category
}{
	{"player", api.CategoryPlayer},
	{"tameable", api.CategoryTameable},
	{"projectile", api.CategoryProjectile},
	{"living", api.CategoryLiving},
	{"entity", api.CategoryGeneric},
}

// Classify maps a concrete host class to its most specific category. The
// ancestor walk runs at most once per distinct class name; afterwards
// classification is a single map read. Entries are keyed by exact class,
// so two classes sharing a category still occupy two entries.
func (c *Context) Classify(cls host.Class) api.Category {
	if cls == nil {
		return api.CategoryUnknown
	}
	if v, ok := c.classes.Load(cls.Name()); ok {
		return v.(api.Category)
	}
	cat := c.classify(cls)
	actual, _ := c.classes.LoadOrStore(cls.Name(), cat)
	return actual.(api.Category)
}

func (c *Context) classify(cls host.Class) api.Category {
	names := ancestorNames(cls)
	for _, p := range categoryPins {
		pinned, ok := c.pins.Class(p.role)
		if !ok {
			continue
		}
		if _, hit := names[pinned]; hit {
			return p.cat
		}
	}
	return api.CategoryUnknown
}

// ancestorNames collects every name reachable from cls: the class itself,
// its superclass chain, and the interfaces (with their own ancestors) of
// everything on it.
func ancestorNames(cls host.Class) map[string]struct{} {
	seen := make(map[string]struct{})
	var walk func(k host.Class)
	walk = func(k host.Class) {
		for ; k != nil; k = k.Super() {
			if _, dup := seen[k.Name()]; dup {
				return
			}
			seen[k.Name()] = struct{}{}
			for _, iface := range k.Interfaces() {
				walk(iface)
			}
		}
	}
	walk(cls)
	return seen
}
