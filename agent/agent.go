// Package agent boots the instrumentation layer. It loads the loader
// manifest and the release's pin catalog, builds the rewrite engine and
// the dispatch layer, installs both into a host runtime, runs registered
// mod initializers, and only then hands control to the host's own
// startup.
package agent

import (
	_ "embed"

	"github.com/tliron/commonlog"

	"github.com/remora-mod/remora/api"
	"github.com/remora-mod/remora/bundle"
	"github.com/remora-mod/remora/bytecode"
	"github.com/remora-mod/remora/handshake"
	"github.com/remora-mod/remora/hooks"
	"github.com/remora-mod/remora/host"
	"github.com/remora-mod/remora/manifest"
	"github.com/remora-mod/remora/mirror"
	"github.com/remora-mod/remora/pin"
	"github.com/remora-mod/remora/transform"
)

var log = commonlog.GetLogger("remora.agent")

//go:embed pins/1.7.2.toml
var defaultPins []byte

// Agent owns everything that must exist before the host starts.
type Agent struct {
	pins  *pin.Table
	eng   *transform.Engine
	disp  *hooks.Dispatcher
	table *handshake.Table
	api   *API
}

// New assembles an agent from a loaded manifest. The pin catalog comes
// from the manifest override when one is configured and the embedded
// default otherwise; the host bundle supplies the class hierarchy used
// during re-verification.
func New(m *manifest.Manifest) (*Agent, error) {
	pins, err := loadPins(m)
	if err != nil {
		return nil, err
	}
	log.Infof("pins for host %s (protocol %d)", pins.Host.Version, pins.Host.Protocol)

	ctx := mirror.NewContext(pins)
	bus := api.NewBus()
	cmds := api.NewCommands()
	table := handshake.NewTable(pins.Host.Protocol, m.Policy.RequireClientMod)

	disp := hooks.NewDispatcher(ctx, bus, cmds, table)
	disp.SetBrandTitle(m.Policy.BrandTitle)

	return &Agent{
		pins:  pins,
		eng:   transform.NewEngine(Rules(pins), resolverFor(m, pins)),
		disp:  disp,
		table: table,
		api:   &API{Events: bus, Commands: cmds, Server: ctx.Server(), ctx: ctx},
	}, nil
}

func loadPins(m *manifest.Manifest) (*pin.Table, error) {
	if path := m.PinsPath(); path != "" {
		return pin.Load(path)
	}
	return pin.Parse(defaultPins)
}

// resolverFor indexes the host bundle's class hierarchy. An unreadable
// bundle degrades to the universal-base resolver: rewrites still verify,
// with maximally conservative reference merges.
func resolverFor(m *manifest.Manifest, pins *pin.Table) bytecode.AncestorResolver {
	root, ok := pins.Class("base")
	if !ok {
		log.Warningf("pin catalog names no base class; merges degrade to a nameless root")
	}
	b, err := bundle.ReadFile(m.BundlePath())
	if err != nil {
		log.Warningf("cannot index host bundle: %v", err)
		return bytecode.UniversalBase(root)
	}
	if b.HostVersion != pins.Host.Version {
		log.Warningf("bundle is host %s but pins are for %s; expect skipped rules",
			b.HostVersion, pins.Host.Version)
	}
	log.Infof("indexed %d classes from %s", len(b.Classes), m.BundlePath())
	return b.Hierarchy(root)
}

// Install wires the engine ahead of the host's class loader and binds
// every dispatch entry point. It must run before the runtime starts.
func (a *Agent) Install(rt host.Runtime) {
	rt.InterceptClasses(a.eng.Transform)
	for name, fn := range a.disp.Callouts() {
		rt.BindCallout(hooks.CalloutClass, name, fn)
	}
}

// Boot installs into the runtime, initializes registered mods, and
// starts the host. It returns when the host exits.
func (a *Agent) Boot(rt host.Runtime) error {
	a.Install(rt)
	a.runMods()
	err := rt.Start()
	log.Infof("transform pass: %s", a.eng.Report())
	return err
}

// Check runs every class of a bundle through the engine without a host
// attached and returns the counters. Used by the dry-run command.
func (a *Agent) Check(b *bundle.Bundle) transform.Report {
	for _, e := range b.Classes {
		a.eng.Transform(e.Name, e.Data)
	}
	return a.eng.Report()
}

// API returns the handle mod initializers receive at boot.
func (a *Agent) API() *API { return a.api }

// Pins returns the catalog the agent was assembled with.
func (a *Agent) Pins() *pin.Table { return a.pins }
