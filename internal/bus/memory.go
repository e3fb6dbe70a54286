// Package bus implements an in-memory event bus satisfying the module's
// EventBus contract, suitable for tests and for a single-process deployment
// without a real relay connection (spec.md SS6 "Bus (subscribe) contract").
package bus

import (
	"sync"

	"ratchetlink/internal/domain/interfaces"
	"ratchetlink/internal/domain/types"
	"ratchetlink/internal/eventcodec"
)

type subscription struct {
	id      uint64
	filter  types.Filter
	handler interfaces.EventHandler
}

// Memory is an in-process EventBus. It holds every published event and
// replays replaceable-event semantics (spec.md SS6): for kinds in
// [10000,20000) it retains only the newest event per (pubkey, kind, d-tag).
type Memory struct {
	mu sync.Mutex

	nextSubID uint64
	subs      map[uint64]*subscription

	events       []types.Event
	replaceables map[replaceableKey]types.Event
}

type replaceableKey struct {
	pubkey string
	kind   int
	dTag   string
}

// NewMemory returns an empty in-memory bus.
func NewMemory() *Memory {
	return &Memory{
		subs:         map[uint64]*subscription{},
		replaceables: map[replaceableKey]types.Event{},
	}
}

var _ interfaces.EventBus = (*Memory)(nil)

// Publish verifies event's signature, stores it, and delivers it to every
// matching subscriber. Replaceable events overwrite any prior event with
// the same (pubkey, kind, d-tag) rather than accumulating.
func (m *Memory) Publish(event types.Event) error {
	if !eventcodec.Verify(event) {
		return eventcodec.ErrBadSignature
	}

	m.mu.Lock()
	if types.IsReplaceable(event.Kind) {
		dTag, _ := event.Tag("d")
		key := replaceableKey{pubkey: event.PubKey.Hex(), kind: event.Kind, dTag: dTag}
		if existing, ok := m.replaceables[key]; ok && existing.CreatedAt > event.CreatedAt {
			m.mu.Unlock()
			return nil
		}
		m.replaceables[key] = event
	} else {
		m.events = append(m.events, event)
	}

	handlers := make([]interfaces.EventHandler, 0, len(m.subs))
	for _, sub := range m.subs {
		if matchFilter(sub.filter, event) {
			handlers = append(handlers, sub.handler)
		}
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Subscribe registers handler for every future Publish matching filter.
// Unsubscribe is idempotent (spec.md SS5).
func (m *Memory) Subscribe(filter types.Filter, handler interfaces.EventHandler) interfaces.Unsubscribe {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = &subscription{id: id, filter: filter, handler: handler}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Replaceable returns the current value held for (pubkey, kind, d-tag), if any.
func (m *Memory) Replaceable(pubkey types.PublicKey, kind int, dTag string) (types.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.replaceables[replaceableKey{pubkey: pubkey.Hex(), kind: kind, dTag: dTag}]
	return e, ok
}

// matchFilter is total: every Filter field is either empty (matches
// anything) or a whitelist the event must satisfy (spec.md SS6).
func matchFilter(filter types.Filter, event types.Event) bool {
	if len(filter.Kinds) > 0 && !containsInt(filter.Kinds, event.Kind) {
		return false
	}
	if len(filter.Authors) > 0 && !containsPub(filter.Authors, event.PubKey) {
		return false
	}
	for tagName, wanted := range filter.Tags {
		key := tagName
		if len(key) == 2 && key[0] == '#' {
			key = key[1:]
		}
		values := event.TagValues(key)
		if !anyIntersect(values, wanted) {
			return false
		}
	}
	return true
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsPub(xs []types.PublicKey, v types.PublicKey) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func anyIntersect(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
