// Remora CLI - validates a deployment directory and dry-runs the rewrite
// pass over a host bundle.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/remora-mod/remora/agent"
	"github.com/remora-mod/remora/bundle"
	"github.com/remora-mod/remora/manifest"
)

func main() {
	configDir := flag.String("c", "", "Directory holding remora.toml (default: walk up from the working directory)")
	check := flag.Bool("check", false, "Run every bundle class through the rewrite engine and report")
	verbosity := flag.Int("v", -1, "Log verbosity overriding the manifest (0=notice, 1=info, 2=debug)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: remora [options]\n\n")
		fmt.Fprintf(os.Stderr, "Validates a remora deployment: the manifest, the pin catalog, and, with\n")
		fmt.Fprintf(os.Stderr, "-check, the rewrite pass over the host bundle. Booting happens in the\n")
		fmt.Fprintf(os.Stderr, "host build itself, which links the agent package.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  remora                # Validate using the nearest remora.toml\n")
		fmt.Fprintf(os.Stderr, "  remora -c ./deploy    # Validate ./deploy/remora.toml\n")
		fmt.Fprintf(os.Stderr, "  remora -check         # Also rewrite the whole bundle and report\n")
		fmt.Fprintf(os.Stderr, "  remora -check -v 2    # Same, with per-rule logging\n")
	}
	flag.Parse()

	m, err := loadManifest(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := m.Log.Verbosity
	if *verbosity >= 0 {
		level = *verbosity
	}
	commonlog.Configure(level, nil)

	a, err := agent.New(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	pins := a.Pins()
	fmt.Printf("manifest: %s\n", filepath.Join(m.Dir, "remora.toml"))
	fmt.Printf("host:     %s (protocol %d)\n", pins.Host.Version, pins.Host.Protocol)
	fmt.Printf("rules:    %d\n", len(agent.Rules(pins)))

	if !*check {
		return
	}

	b, err := bundle.ReadFile(m.BundlePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("bundle:   %d classes (host %s)\n", len(b.Classes), b.HostVersion)

	report := a.Check(b)
	fmt.Println(report)
	if report.Failed > 0 {
		os.Exit(1)
	}
}

// loadManifest resolves the deployment directory: an explicit -c wins,
// otherwise the nearest remora.toml above the working directory.
func loadManifest(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("no remora.toml found above %s", wd)
	}
	return m, nil
}
