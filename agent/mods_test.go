package agent

import (
	"reflect"
	"testing"
)

// swapMods gives a test a private registry and restores the real one
// afterward; registration is process-global state.
func swapMods(t *testing.T) {
	t.Helper()
	modsMu.Lock()
	saved := mods
	mods = make(map[string]ModInit)
	modsMu.Unlock()
	t.Cleanup(func() {
		modsMu.Lock()
		mods = saved
		modsMu.Unlock()
	})
}

func TestRegisterAndMods(t *testing.T) {
	swapMods(t)
	Register("warp", func(*API) {})
	Register("anticheat", func(*API) {})
	if got, want := Mods(), []string{"anticheat", "warp"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Mods() = %v, want %v", got, want)
	}
}

func TestRegisterNilPanics(t *testing.T) {
	swapMods(t)
	defer func() {
		if recover() == nil {
			t.Fatal("Register(nil) did not panic")
		}
	}()
	Register("broken", nil)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	swapMods(t)
	Register("warp", func(*API) {})
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Register did not panic")
		}
	}()
	Register("warp", func(*API) {})
}

func TestRunModsIsolatesPanics(t *testing.T) {
	swapMods(t)
	var order []string
	Register("b-late", func(*API) { order = append(order, "b-late") })
	Register("a-early", func(*API) {
		order = append(order, "a-early")
		panic("bad init")
	})

	a, err := New(testManifest(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.runMods()

	if want := []string{"a-early", "b-late"}; !reflect.DeepEqual(order, want) {
		t.Errorf("init order = %v, want %v", order, want)
	}
}
