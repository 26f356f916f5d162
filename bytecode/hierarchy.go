package bytecode

import (
	"sync"

	"github.com/remora-mod/remora/classfile"
)

// AncestorResolver supplies the common-ancestor queries the verifier needs
// when two reference types meet at a control-flow join.
type AncestorResolver interface {
	CommonAncestor(a, b string) string
}

// UniversalBase is an AncestorResolver that merges every pair of reference
// types to one base class. It is the conservative fallback when no class
// hierarchy has been indexed: joins stay well-typed, but every merged
// reference degrades to the base.
type UniversalBase string

// CommonAncestor returns the base class for any pair.
func (u UniversalBase) CommonAncestor(a, b string) string {
	if a == b {
		return a
	}
	return string(u)
}

// HierarchyIndex records superclass edges scanned from class files and
// answers ancestor queries. Classes never added resolve through the root,
// which keeps merges conservative rather than wrong when only part of the
// host is indexed.
type HierarchyIndex struct {
	mu     sync.RWMutex
	root   string
	supers map[string]string
}

// NewHierarchyIndex returns an index rooted at the host's universal base
// class.
func NewHierarchyIndex(root string) *HierarchyIndex {
	return &HierarchyIndex{
		root:   root,
		supers: make(map[string]string),
	}
}

// Root returns the universal base class name.
func (ix *HierarchyIndex) Root() string {
	return ix.root
}

// Add records that name extends super. An empty super means name sits
// directly under the root.
func (ix *HierarchyIndex) Add(name, super string) {
	if name == "" || name == ix.root {
		return
	}
	if super == "" {
		super = ix.root
	}
	ix.mu.Lock()
	ix.supers[name] = super
	ix.mu.Unlock()
}

// AddClassFile records the superclass edge of a parsed class.
func (ix *HierarchyIndex) AddClassFile(cf *classfile.ClassFile) {
	ix.Add(cf.Name(), cf.SuperName())
}

// Known reports whether the class has an indexed superclass edge.
func (ix *HierarchyIndex) Known(name string) bool {
	if name == ix.root {
		return true
	}
	ix.mu.RLock()
	_, ok := ix.supers[name]
	ix.mu.RUnlock()
	return ok
}

// Super returns the recorded superclass of name.
func (ix *HierarchyIndex) Super(name string) (string, bool) {
	ix.mu.RLock()
	super, ok := ix.supers[name]
	ix.mu.RUnlock()
	return super, ok
}

// Ancestors returns name followed by its superclass chain up to and
// including the root. Unknown classes get just themselves and the root.
func (ix *HierarchyIndex) Ancestors(name string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	chain := []string{name}
	for name != ix.root {
		super, ok := ix.supers[name]
		if !ok {
			chain = append(chain, ix.root)
			break
		}
		chain = append(chain, super)
		name = super
		if len(chain) > len(ix.supers)+2 { // cycle in scanned data
			break
		}
	}
	return chain
}

// CommonAncestor returns the nearest class both a and b descend from.
// Either side being unknown degrades the answer to the root.
func (ix *HierarchyIndex) CommonAncestor(a, b string) string {
	if a == b {
		return a
	}
	seen := make(map[string]bool)
	for _, c := range ix.Ancestors(a) {
		seen[c] = true
	}
	for _, c := range ix.Ancestors(b) {
		if seen[c] {
			return c
		}
	}
	return ix.root
}
