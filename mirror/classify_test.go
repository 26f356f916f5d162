package mirror

import (
	"testing"

	"github.com/remora-mod/remora/api"
	"github.com/remora-mod/remora/hosttest"
)

func classCount(ctx *Context) int {
	n := 0
	ctx.classes.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func TestClassifyCategories(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()

	tests := []struct {
		cls  *hosttest.Class
		want api.Category
	}{
		{h.player, api.CategoryPlayer},
		{h.wolf, api.CategoryTameable}, // tameable beats its living ancestor
		{h.cow, api.CategoryLiving},
		{h.arrow, api.CategoryProjectile}, // via interface, beats entity
		{h.boat, api.CategoryGeneric},
		{h.item, api.CategoryUnknown},
	}
	for _, tt := range tests {
		if got := ctx.Classify(tt.cls); got != tt.want {
			t.Errorf("Classify(%s) = %v, want %v", tt.cls.Name(), got, tt.want)
		}
	}
}

func TestClassifyIdempotent(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()

	for i := 0; i < 50; i++ {
		if got := ctx.Classify(h.wolf); got != api.CategoryTameable {
			t.Fatalf("call %d: Classify = %v, want tameable", i, got)
		}
	}
	if n := classCount(ctx); n != 1 {
		t.Fatalf("cache entries = %d after repeated classification, want 1", n)
	}
}

// Two classes sharing a category still occupy two cache entries: the
// cache is keyed by exact class, never by the resulting category.
func TestClassifySharedCategorySeparateEntries(t *testing.T) {
	ctx := testContext(t)
	h := newTestHost()

	if got := ctx.Classify(h.cow); got != api.CategoryLiving {
		t.Fatalf("Classify(cow) = %v, want living", got)
	}
	if got := ctx.Classify(h.sheep); got != api.CategoryLiving {
		t.Fatalf("Classify(sheep) = %v, want living", got)
	}
	if n := classCount(ctx); n != 2 {
		t.Fatalf("cache entries = %d, want 2", n)
	}
	for _, name := range []string{"gw.cw", "gw.sh"} {
		if _, ok := ctx.classes.Load(name); !ok {
			t.Errorf("no cache entry keyed by %q", name)
		}
	}
}

func TestClassifyNilClass(t *testing.T) {
	ctx := testContext(t)
	if got := ctx.Classify(nil); got != api.CategoryUnknown {
		t.Fatalf("Classify(nil) = %v, want unknown", got)
	}
}
