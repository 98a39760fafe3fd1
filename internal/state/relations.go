package state

import (
	"context"
	"sync"

	"github.com/flowdeck/flowdeck/internal/flow"
)

// RelationFetcher reads a flow's parent/children projection from the
// backend. The API client satisfies this.
type RelationFetcher interface {
	FlowRelations(ctx context.Context, flowID string) (flow.Relation, error)
}

// RelationState fetches and caches one flow's parent/children linkage.
// Unlike the other containers it is per-owning-view, never shared:
// simultaneously rendered relation panels must not clobber each other.
//
// Concurrent Fetch calls are not de-duplicated or cancelled; the last
// response to resolve wins. That is an accepted limitation of the design.
type RelationState struct {
	mu       sync.Mutex
	fetcher  RelationFetcher
	onChange func()

	loading  bool
	err      string
	parent   *flow.Flow
	children []flow.Flow
}

// NewRelationState creates an empty relation container.
func NewRelationState(fetcher RelationFetcher) *RelationState {
	return &RelationState{fetcher: fetcher}
}

// OnChange registers a callback invoked after every state change.
func (s *RelationState) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Fetch issues a single read for the flow's relations. On failure both
// fields are cleared and the error message is recorded. The loading flag
// is always cleared before observers are notified, success or failure.
func (s *RelationState) Fetch(ctx context.Context, flowID string) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	rel, err := s.fetcher.FlowRelations(ctx, flowID)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.parent = nil
		s.children = nil
		s.err = err.Error()
	} else {
		s.parent = rel.Parent
		s.children = rel.Children
		if s.children == nil {
			s.children = []flow.Flow{}
		}
		s.err = ""
	}
	s.mu.Unlock()
	s.notify()
}

// Reset restores all fields to their initial empty values.
func (s *RelationState) Reset() {
	s.mu.Lock()
	s.loading = false
	s.err = ""
	s.parent = nil
	s.children = nil
	s.mu.Unlock()
	s.notify()
}

// Loading reports whether a fetch is in flight.
func (s *RelationState) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last fetch error message, empty on success.
func (s *RelationState) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Parent returns the parent flow, nil when the flow has none.
func (s *RelationState) Parent() *flow.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parent == nil {
		return nil
	}
	p := *s.parent
	return &p
}

// Children returns the child flows, possibly empty.
func (s *RelationState) Children() []flow.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]flow.Flow(nil), s.children...)
}

func (s *RelationState) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
