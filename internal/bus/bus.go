// Package bus provides the publish/subscribe channel that decouples state
// mutation from backend synchronization. Events form a closed catalog:
// each kind has exactly one payload type, so subscribers can type-assert
// without inspecting string names.
package bus

import (
	"sync"

	"github.com/flowdeck/flowdeck/internal/flow"
)

// Kind identifies an event in the catalog.
type Kind int

const (
	KindFlowUpdated Kind = iota
	KindFlowMatchRequested
	KindFlowListRefreshRequested
	KindTagSearchRefreshRequested
	KindTagFavoriteToggleRequested
	KindAuthLoginRequested
	KindAuthRegisterRequested
	KindAuthLogoutRequested
)

// Event is implemented by every payload in the catalog.
type Event interface {
	Kind() Kind
}

// FlowUpdated carries the full flow+matches snapshot after any mutation.
// It is the sole trigger for backend persistence.
type FlowUpdated struct {
	Aggregate flow.Aggregate
}

// FlowMatchRequested asks the sync layer to re-fetch a single flow's
// aggregate, e.g. after a match's source excerpt was recaptured.
type FlowMatchRequested struct {
	FlowID      string
	FlowMatchID string
}

// FlowListRefreshRequested asks for a refresh of the flow list.
type FlowListRefreshRequested struct{}

// TagSearchRefreshRequested asks for a remote tag search with the given
// query and pagination.
type TagSearchRefreshRequested struct {
	Query   string
	Page    int
	PerPage int
}

// TagFavoriteToggleRequested asks the sync layer to persist a favourite
// flip. Tag carries the desired (already flipped) state.
type TagFavoriteToggleRequested struct {
	Tag flow.Tag
}

// AuthLoginRequested asks for a credential exchange.
type AuthLoginRequested struct {
	Email    string
	Password string
}

// AuthRegisterRequested asks for account creation.
type AuthRegisterRequested struct {
	Email    string
	Name     string
	Password string
}

// AuthLogoutRequested asks for the stored session to be discarded.
type AuthLogoutRequested struct{}

func (FlowUpdated) Kind() Kind                { return KindFlowUpdated }
func (FlowMatchRequested) Kind() Kind         { return KindFlowMatchRequested }
func (FlowListRefreshRequested) Kind() Kind   { return KindFlowListRefreshRequested }
func (TagSearchRefreshRequested) Kind() Kind  { return KindTagSearchRefreshRequested }
func (TagFavoriteToggleRequested) Kind() Kind { return KindTagFavoriteToggleRequested }
func (AuthLoginRequested) Kind() Kind         { return KindAuthLoginRequested }
func (AuthRegisterRequested) Kind() Kind      { return KindAuthRegisterRequested }
func (AuthLogoutRequested) Kind() Kind        { return KindAuthLogoutRequested }

// Handler receives events of the kind it subscribed to.
type Handler func(Event)

// Bus dispatches events to subscribers synchronously, in subscription
// order. It is safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[Kind]map[int]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Kind]map[int]Handler)}
}

// Subscribe registers a handler for the given kind and returns a function
// that removes it.
func (b *Bus) Subscribe(k Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[k] == nil {
		b.subs[k] = make(map[int]Handler)
	}
	id := b.next
	b.next++
	b.subs[k][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[k], id)
	}
}

// Publish delivers the event to every subscriber of its kind. Handlers run
// synchronously on the caller's goroutine.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Kind()]))
	for _, h := range b.subs[e.Kind()] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
