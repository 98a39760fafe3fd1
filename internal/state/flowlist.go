package state

import (
	"sort"
	"sync"

	"github.com/flowdeck/flowdeck/internal/bus"
	"github.com/flowdeck/flowdeck/internal/flow"
)

// dateLabelLayout formats a flow's last-updated day for group headers.
const dateLabelLayout = "January 2, 2006"

// DateGroup is one display group produced by GroupByDate.
type DateGroup struct {
	Label string
	Flows []flow.Summary
}

// FlowListState owns the collection of flow summaries shown in list views.
// The collection itself is unordered; ordering is a display-time
// projection.
type FlowListState struct {
	mu       sync.Mutex
	bus      *bus.Bus
	onChange func()
	flows    []flow.Summary
}

// NewFlowListState creates an empty list container publishing on b.
func NewFlowListState(b *bus.Bus) *FlowListState {
	return &FlowListState{bus: b}
}

// OnChange registers a callback invoked after every state change.
func (s *FlowListState) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load replaces the collection.
func (s *FlowListState) Load(flows []flow.Summary) {
	s.mu.Lock()
	s.flows = append([]flow.Summary(nil), flows...)
	s.mu.Unlock()
	s.notify()
}

// Push appends the flow unless an entry with the same id already exists.
// The idempotence absorbs overlap between polled refreshes and the live
// update feed delivering the same flow.
func (s *FlowListState) Push(f flow.Summary) {
	s.mu.Lock()
	for i := range s.flows {
		if s.flows[i].ID == f.ID {
			s.mu.Unlock()
			return
		}
	}
	s.flows = append(s.flows, f)
	s.mu.Unlock()
	s.notify()
}

// All returns a copy of the collection.
func (s *FlowListState) All() []flow.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]flow.Summary(nil), s.flows...)
}

// RequestRefresh asks the sync layer for a remote refresh.
func (s *FlowListState) RequestRefresh() {
	if s.bus != nil {
		s.bus.Publish(bus.FlowListRefreshRequested{})
	}
}

// GroupByDate projects the collection into (date label, flows) groups,
// most recent day first. Recomputed on every call, never cached.
func (s *FlowListState) GroupByDate() []DateGroup {
	s.mu.Lock()
	flows := append([]flow.Summary(nil), s.flows...)
	s.mu.Unlock()

	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].UpdatedAt.After(flows[j].UpdatedAt)
	})

	var groups []DateGroup
	for _, f := range flows {
		label := f.UpdatedAt.Format(dateLabelLayout)
		if n := len(groups); n > 0 && groups[n-1].Label == label {
			groups[n-1].Flows = append(groups[n-1].Flows, f)
			continue
		}
		groups = append(groups, DateGroup{Label: label, Flows: []flow.Summary{f}})
	}
	return groups
}

func (s *FlowListState) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
