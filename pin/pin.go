// Package pin holds the per-host-version name catalog. The host ships with
// mechanically shortened class and member names that change between
// releases, so every other layer resolves names through a pin table instead
// of hardcoding them. One table is maintained per supported host version.
package pin

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/remora-mod/remora/classfile"
)

// Table is one host version's pin catalog.
type Table struct {
	Host    Host                 `toml:"host"`
	Values  Values               `toml:"values"`
	Classes map[string]string    `toml:"classes"`
	Methods map[string]MethodPin `toml:"methods"`
	Members map[string]MemberPin `toml:"members"`
}

// Host identifies the release the table was pinned against.
type Host struct {
	Version  string `toml:"version"`
	Protocol int32  `toml:"protocol"`
}

// Values are gameplay constants that are stable per release but not
// readable from any live object.
type Values struct {
	MaxHealth int32 `toml:"max-health"`
}

// MethodPin names a rewrite target exactly: the declaring class and the
// method's obfuscated name and descriptor in that release.
type MethodPin struct {
	Class string `toml:"class"`
	Name  string `toml:"name"`
	Desc  string `toml:"desc"`
}

// MemberPin describes a member the adapter layer resolves at run time.
// Owner is a role from the [classes] section, not a literal class name.
// An empty Name means the member could not be pinned for this release and
// must be located by shape instead.
type MemberPin struct {
	Owner  string `toml:"owner"`
	Kind   string `toml:"kind"` // "method" or "field"
	Name   string `toml:"name"`
	Desc   string `toml:"desc"`
	Static bool   `toml:"static"`
}

// Parse decodes and checks a pin table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("pin: parse error: %w", err)
	}
	if t.Host.Version == "" {
		return nil, fmt.Errorf("pin: missing host.version")
	}
	for id, m := range t.Methods {
		if m.Class == "" || m.Name == "" {
			return nil, fmt.Errorf("pin: method %q: class and name are required", id)
		}
		if _, _, err := classfile.ParseDescriptor(m.Desc); err != nil {
			return nil, fmt.Errorf("pin: method %q: %w", id, err)
		}
	}
	for id, m := range t.Members {
		if _, ok := t.Classes[m.Owner]; !ok {
			return nil, fmt.Errorf("pin: member %q: unknown owner role %q", id, m.Owner)
		}
		switch m.Kind {
		case "method":
			if _, _, err := classfile.ParseDescriptor(m.Desc); err != nil {
				return nil, fmt.Errorf("pin: member %q: %w", id, err)
			}
		case "field":
			if _, err := classfile.ParseType(m.Desc); err != nil {
				return nil, fmt.Errorf("pin: member %q: %w", id, err)
			}
		default:
			return nil, fmt.Errorf("pin: member %q: kind must be method or field", id)
		}
	}
	return &t, nil
}

// Load reads a pin table from disk.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pin: cannot read %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return t, nil
}

// Class resolves a role to its obfuscated class name.
func (t *Table) Class(role string) (string, bool) {
	name, ok := t.Classes[role]
	return name, ok
}

// Method returns the pinned rewrite target for a rule.
func (t *Table) Method(id string) (MethodPin, bool) {
	m, ok := t.Methods[id]
	return m, ok
}

// Member returns the pinned member descriptor for an adapter operation.
func (t *Table) Member(id string) (MemberPin, bool) {
	m, ok := t.Members[id]
	return m, ok
}

// OwnerClass resolves a member pin's owner role to its class name.
func (t *Table) OwnerClass(m MemberPin) (string, bool) {
	return t.Class(m.Owner)
}
