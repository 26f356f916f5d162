package pin

import (
	"strings"
	"testing"
)

const sampleTable = `
[host]
version = "1.7.2"
protocol = 47

[values]
max-health = 20

[classes]
entity = "gw.aa"
living = "gw.ab"
player = "gw.df"

[methods.block-break]
class = "gw.fn"
name = "aa"
desc = "(Lgw.bk;)Z"

[members.entity-id]
owner = "entity"
kind = "method"
name = "aq"
desc = "()I"

[members.health]
owner = "living"
kind = "field"
name = ""
desc = "I"
`

func TestParse(t *testing.T) {
	tab, err := Parse([]byte(sampleTable))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if tab.Host.Version != "1.7.2" {
		t.Errorf("Host.Version = %q, want %q", tab.Host.Version, "1.7.2")
	}
	if tab.Host.Protocol != 47 {
		t.Errorf("Host.Protocol = %d, want 47", tab.Host.Protocol)
	}
	if tab.Values.MaxHealth != 20 {
		t.Errorf("Values.MaxHealth = %d, want 20", tab.Values.MaxHealth)
	}

	if cls, ok := tab.Class("player"); !ok || cls != "gw.df" {
		t.Errorf("Class(player) = %q, %v, want gw.df, true", cls, ok)
	}
	if _, ok := tab.Class("boat"); ok {
		t.Error("Class(boat) resolved, want miss")
	}

	m, ok := tab.Method("block-break")
	if !ok {
		t.Fatal("Method(block-break) missing")
	}
	if m.Class != "gw.fn" || m.Name != "aa" || m.Desc != "(Lgw.bk;)Z" {
		t.Errorf("Method(block-break) = %+v", m)
	}

	id, ok := tab.Member("entity-id")
	if !ok {
		t.Fatal("Member(entity-id) missing")
	}
	if owner, ok := tab.OwnerClass(id); !ok || owner != "gw.aa" {
		t.Errorf("OwnerClass = %q, %v, want gw.aa, true", owner, ok)
	}

	// Unpinned name: resolved by shape at run time.
	health, _ := tab.Member("health")
	if health.Name != "" || health.Desc != "I" {
		t.Errorf("Member(health) = %+v, want unpinned field I", health)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		mangle  func(string) string
		wantSub string
	}{
		{
			"missing version",
			func(s string) string { return strings.Replace(s, `version = "1.7.2"`, `version = ""`, 1) },
			"host.version",
		},
		{
			"bad method descriptor",
			func(s string) string { return strings.Replace(s, `desc = "(Lgw.bk;)Z"`, `desc = "(Q)Z"`, 1) },
			"block-break",
		},
		{
			"unknown owner role",
			func(s string) string { return strings.Replace(s, `owner = "entity"`, `owner = "boat"`, 1) },
			"owner role",
		},
		{
			"bad member kind",
			func(s string) string { return strings.Replace(s, `kind = "field"`, `kind = "slot"`, 1) },
			"kind",
		},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.mangle(sampleTable)))
		if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
			t.Errorf("%s: err = %v, want mention of %q", tt.name, err, tt.wantSub)
		}
	}
}
