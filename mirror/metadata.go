package mirror

import "sync"

// Metadata tags live entities with mod-defined key/value pairs, keyed by
// the host's stable entity id so tags survive re-wrapping. An id has an
// entry only while it holds at least one tag: the last removal deletes
// the entry, which is what keeps the store bounded over entity churn.
type Metadata struct {
	byID sync.Map // int32 -> *metaSlot
}

// metaSlot is one entity's tag map. dead marks a slot that has been
// unlinked from the store; writers that lose that race start over on a
// fresh slot.
type metaSlot struct {
	mu   sync.Mutex
	tags map[string]any
	dead bool
}

func NewMetadata() *Metadata {
	return &Metadata{}
}

func (md *Metadata) Set(id int32, key string, v any) {
	for {
		s := md.slot(id)
		s.mu.Lock()
		if s.dead {
			s.mu.Unlock()
			continue
		}
		s.tags[key] = v
		s.mu.Unlock()
		return
	}
}

func (md *Metadata) Get(id int32, key string) (any, bool) {
	v, ok := md.byID.Load(id)
	if !ok {
		return nil, false
	}
	s := v.(*metaSlot)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tags[key]
	return t, ok
}

// Remove drops one tag. Removing the last tag removes the entity's entry
// entirely.
func (md *Metadata) Remove(id int32, key string) {
	v, ok := md.byID.Load(id)
	if !ok {
		return
	}
	s := v.(*metaSlot)
	s.mu.Lock()
	delete(s.tags, key)
	if len(s.tags) == 0 {
		s.dead = true
		md.byID.Delete(id)
	}
	s.mu.Unlock()
}

// Clear drops every tag an entity holds.
func (md *Metadata) Clear(id int32) {
	v, ok := md.byID.LoadAndDelete(id)
	if !ok {
		return
	}
	s := v.(*metaSlot)
	s.mu.Lock()
	s.dead = true
	s.mu.Unlock()
}

func (md *Metadata) slot(id int32) *metaSlot {
	v, _ := md.byID.LoadOrStore(id, &metaSlot{tags: make(map[string]any)})
	return v.(*metaSlot)
}

// entries counts ids currently holding tags.
func (md *Metadata) entries() int {
	n := 0
	md.byID.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
