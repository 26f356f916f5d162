// Package mirror implements the public API against live host objects.
// No host name is trusted: members are located through the pin catalog by
// name and structural shape, classes are classified once by ancestor
// walk, and every operation degrades to its documented default when the
// host's layout has drifted. Nothing in this package panics outward or
// returns an error to API callers.
package mirror

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/remora-mod/remora/api"
	"github.com/remora-mod/remora/host"
	"github.com/remora-mod/remora/pin"
)

var log = commonlog.GetLogger("remora.mirror")

// Failure categories. They never reach API callers; operations branch on
// them internally and feed the debug log.
var (
	// ErrNoMember marks a structural mismatch: the pinned member does not
	// exist on the class in this host release.
	ErrNoMember = errors.New("mirror: no structural match")
	// ErrInvoke marks a located member that failed when used, including
	// values of unexpected shape.
	ErrInvoke = errors.New("mirror: invocation failed")
)

// Context owns every cache the adapter layer keeps: located members,
// class categories, entity metadata, and the captured server handle.
// There is no package-level state; all wrappers are built through one
// Context and share it.
type Context struct {
	pins *pin.Table
	meta *Metadata

	members sync.Map // "class\x00op" -> *memberEntry
	classes sync.Map // class name -> api.Category

	serverOnce sync.Once
	serverMu   sync.RWMutex
	serverObj  host.Object

	permMu sync.RWMutex
	perms  api.PermissionProvider
}

func NewContext(pins *pin.Table) *Context {
	return &Context{pins: pins, meta: NewMetadata()}
}

// SetPermissions installs the provider permission checks consult.
// Without one every check denies.
func (c *Context) SetPermissions(p api.PermissionProvider) {
	c.permMu.Lock()
	c.perms = p
	c.permMu.Unlock()
}

func (c *Context) allowed(p api.Player, node string) (granted bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("permission provider panicked on %q: %v", node, r)
			granted = false
		}
	}()
	c.permMu.RLock()
	prov := c.perms
	c.permMu.RUnlock()
	if prov == nil {
		return false
	}
	return prov.Has(p, node)
}

// ---------------------------------------------------------------------------
// Host access. Everything below funnels through call and set, which are
// the only two places live host members are touched: both convert panics
// from the host boundary into ErrInvoke.
// ---------------------------------------------------------------------------

// call resolves op against obj's class and reads through it: methods are
// invoked with args, fields are read.
func (c *Context) call(obj host.Object, op string, args ...any) (v any, err error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: %s on nil receiver", ErrNoMember, op)
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %s: %v", ErrInvoke, op, r)
		}
	}()
	mem, err := c.locate(obj.Class(), op)
	if err != nil {
		return nil, err
	}
	if mem.field != nil {
		v, err = mem.field.Get(obj)
	} else {
		v, err = mem.method.Invoke(obj, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvoke, op, err)
	}
	return v, nil
}

// set resolves op and writes through it: fields are assigned the single
// value, methods are invoked for effect.
func (c *Context) set(obj host.Object, op string, args ...any) (err error) {
	if obj == nil {
		return fmt.Errorf("%w: %s on nil receiver", ErrNoMember, op)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrInvoke, op, r)
		}
	}()
	mem, err := c.locate(obj.Class(), op)
	if err != nil {
		return err
	}
	if mem.field != nil {
		if len(args) != 1 {
			return fmt.Errorf("%w: %s: field write wants one value, got %d", ErrInvoke, op, len(args))
		}
		err = mem.field.Set(obj, args[0])
	} else {
		_, err = mem.method.Invoke(obj, args...)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvoke, op, err)
	}
	return nil
}

// Typed reads. Each returns def on any failure; resolution misses were
// already logged once by the locator, so only use-time failures log here.

func (c *Context) intOp(obj host.Object, op string, def int32, args ...any) int32 {
	v, err := c.call(obj, op, args...)
	if err != nil {
		logMiss(err)
		return def
	}
	n, ok := v.(int32)
	if !ok {
		logShape(op, v)
		return def
	}
	return n
}

func (c *Context) floatOp(obj host.Object, op string, def float64, args ...any) float64 {
	v, err := c.call(obj, op, args...)
	if err != nil {
		logMiss(err)
		return def
	}
	f, ok := v.(float64)
	if !ok {
		logShape(op, v)
		return def
	}
	return f
}

func (c *Context) strOp(obj host.Object, op string, def string, args ...any) string {
	v, err := c.call(obj, op, args...)
	if err != nil {
		logMiss(err)
		return def
	}
	s, ok := v.(string)
	if !ok {
		logShape(op, v)
		return def
	}
	return s
}

func (c *Context) boolOp(obj host.Object, op string, def bool, args ...any) bool {
	v, err := c.call(obj, op, args...)
	if err != nil {
		logMiss(err)
		return def
	}
	b, ok := v.(bool)
	if !ok {
		logShape(op, v)
		return def
	}
	return b
}

func (c *Context) refOp(obj host.Object, op string, args ...any) host.Object {
	v, err := c.call(obj, op, args...)
	if err != nil {
		logMiss(err)
		return nil
	}
	if v == nil {
		return nil
	}
	o, ok := v.(host.Object)
	if !ok {
		logShape(op, v)
		return nil
	}
	return o
}

// do writes through op and reports whether the write took.
func (c *Context) do(obj host.Object, op string, args ...any) bool {
	if err := c.set(obj, op, args...); err != nil {
		logMiss(err)
		return false
	}
	return true
}

func logMiss(err error) {
	if errors.Is(err, ErrInvoke) {
		log.Debugf("%v", err)
	}
}

func logShape(op string, v any) {
	log.Debugf("%s: unexpected value type %T", op, v)
}

// ---------------------------------------------------------------------------
// Server capture
// ---------------------------------------------------------------------------

// captureServer grabs the server handle the first time any world is
// observed. One attempt total: a drifted pin would fail identically on
// every later world of the same class, so there is nothing to retry.
func (c *Context) captureServer(worldObj host.Object) {
	c.serverOnce.Do(func() {
		obj := c.refOp(worldObj, opWorldServer)
		if obj == nil {
			log.Warningf("server handle unavailable: no pinned route from world %s", className(worldObj))
			return
		}
		c.serverMu.Lock()
		c.serverObj = obj
		c.serverMu.Unlock()
		log.Debugf("captured server handle via %s", className(worldObj))
	})
}

func (c *Context) server() host.Object {
	c.serverMu.RLock()
	defer c.serverMu.RUnlock()
	return c.serverObj
}

func className(obj host.Object) string {
	if obj == nil || obj.Class() == nil {
		return "<nil>"
	}
	return obj.Class().Name()
}

// RemoteAddress reads the remote socket address off a connection-shaped
// object. The handshake and login hooks derive their record keys from
// it; empty means the connection could not be identified.
func (c *Context) RemoteAddress(conn host.Object) string {
	return c.strOp(conn, opRemoteAddress, "")
}
