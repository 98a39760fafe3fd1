// Package state holds the client-side state containers. Each container is
// the single source of truth for its slice of data: the rendering layer
// reads through accessors and mutates only through the sanctioned
// operations, and the sync layer feeds backend responses back in through
// the same surface. Containers are constructed once at application start
// and injected where needed; none of them is a package-level global.
package state

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/internal/bus"
	"github.com/flowdeck/flowdeck/internal/flow"
)

// ErrMalformedPayload is returned by Load when the payload is missing the
// flow or the matches key. It indicates a caller bug; existing state is
// left untouched.
var ErrMalformedPayload = errors.New("state: malformed flow payload")

// DefaultFlowName is the scaffold name used by Reset before the user has
// typed anything.
const DefaultFlowName = "Untitled flow"

// CurrentUser reports the signed-in user's id, or "" when signed out.
// AuthState satisfies this.
type CurrentUser interface {
	UserID() string
}

// FlowState owns exactly one flow (metadata plus ordered steps) during an
// editing session. Every mutation restores the order-index invariant
// before observers are notified: sorted order_index values are always
// 0..n-1 with no gaps or duplicates.
type FlowState struct {
	mu       sync.Mutex
	bus      *bus.Bus
	user     CurrentUser
	onChange func()

	flow     flow.Flow
	matches  []flow.Match
	markdown string
	preview  bool
}

// NewFlowState creates an empty container publishing on b. user may be nil
// when no auth context exists (CanEdit then always returns false).
func NewFlowState(b *bus.Bus, user CurrentUser) *FlowState {
	return &FlowState{bus: b, user: user}
}

// OnChange registers a callback invoked after every state change, for the
// rendering layer. Only one callback is kept.
func (s *FlowState) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load replaces the entire in-memory flow with the given payload. Both the
// flow and the matches key must be present; otherwise ErrMalformedPayload
// is returned and existing state is untouched. Legacy note shapes are
// normalized and steps are sorted by order index.
func (s *FlowState) Load(payload flow.Aggregate) error {
	if payload.Flow == nil || payload.Matches == nil {
		return ErrMalformedPayload
	}

	clone := payload.Clone()
	for i := range clone.Matches {
		clone.Matches[i].Normalize()
	}
	sort.SliceStable(clone.Matches, func(i, j int) bool {
		return clone.Matches[i].OrderIndex < clone.Matches[j].OrderIndex
	})

	s.mu.Lock()
	s.flow = *clone.Flow
	s.matches = clone.Matches
	s.markdown = ""
	s.preview = false
	s.mu.Unlock()

	s.notify()
	return nil
}

// LoadPreview replaces state with a read-only projection for preview
// rendering. The pre-rendered markdown is stored separately; the step list
// is not populated in preview mode.
func (s *FlowState) LoadPreview(summary flow.Summary) {
	s.mu.Lock()
	s.flow = summary.Flow
	s.matches = nil
	s.markdown = summary.Markdown
	s.preview = true
	s.mu.Unlock()

	s.notify()
}

// UpdateFlow replaces the metadata wholesale. Callers are responsible for
// carrying over prior fields they want to keep. Emits the updated event.
func (s *FlowState) UpdateFlow(meta flow.Flow) {
	s.mu.Lock()
	s.flow = meta
	s.mu.Unlock()

	s.emitUpdated()
	s.notify()
}

// AssignID back-fills the backend-assigned id after the first save without
// discarding in-flight edits. A no-op when an id is already set.
func (s *FlowState) AssignID(id string) {
	s.mu.Lock()
	changed := s.flow.ID == "" && id != ""
	if changed {
		s.flow.ID = id
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// UpdateMatch replaces the step with the same flow_match_id in place and
// emits the updated event. A silent no-op when the id is not found: the UI
// may hold a stale reference across a re-render race.
func (s *FlowState) UpdateMatch(m flow.Match) {
	s.mu.Lock()
	i := s.indexOf(m.FlowMatchID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.matches[i] = m.Clone()
	s.mu.Unlock()

	s.emitUpdated()
	s.notify()
}

// DeleteMatch removes the step with the same flow_match_id and renumbers
// every step after the removed position, so gaps never form even under
// stale concurrent calls. A silent no-op when the id is not found.
func (s *FlowState) DeleteMatch(m flow.Match) {
	s.mu.Lock()
	i := s.indexOf(m.FlowMatchID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.matches = append(s.matches[:i], s.matches[i+1:]...)
	// Renumber from the removed position. Computed from position, not from
	// the old order values.
	for j := i; j < len(s.matches); j++ {
		s.matches[j].OrderIndex = j
	}
	s.mu.Unlock()

	s.emitUpdated()
	s.notify()
}

// MoveUp swaps the step with its previous neighbour, exchanging their two
// order indexes. A no-op for the first step.
func (s *FlowState) MoveUp(m flow.Match) {
	s.swap(m, -1)
}

// MoveDown swaps the step with its next neighbour. A no-op for the last
// step.
func (s *FlowState) MoveDown(m flow.Match) {
	s.swap(m, +1)
}

// swap exchanges the step with the neighbour whose order index differs by
// delta. The boundary check compares order indexes, not array positions,
// so it stays correct even if the slice is momentarily unsorted.
func (s *FlowState) swap(m flow.Match, delta int) {
	s.mu.Lock()
	i := s.indexOf(m.FlowMatchID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	cur := s.matches[i].OrderIndex
	target := cur + delta
	if target < 0 || target > len(s.matches)-1 {
		s.mu.Unlock()
		return
	}
	j := -1
	for k := range s.matches {
		if s.matches[k].OrderIndex == target {
			j = k
			break
		}
	}
	if j < 0 {
		s.mu.Unlock()
		return
	}
	s.matches[i].OrderIndex, s.matches[j].OrderIndex = target, cur
	s.matches[i], s.matches[j] = s.matches[j], s.matches[i]
	s.mu.Unlock()

	s.emitUpdated()
	s.notify()
}

// InsertNoteAfter creates a fresh note step right after the step at the
// given order index and renumbers everything behind the insertion point.
func (s *FlowState) InsertNoteAfter(index int) flow.Match {
	note := flow.Match{
		FlowMatchID: uuid.NewString(),
		ContentKind: flow.KindNote,
		OrderIndex:  index + 1,
		Step:        &flow.StepContent{},
	}
	s.insertAfter(index, note)
	return note
}

// InsertMatchAfter creates a fresh match step carrying the given source
// excerpt right after the step at the given order index.
func (s *FlowState) InsertMatchAfter(index int, grep flow.GrepMatch) flow.Match {
	m := flow.Match{
		FlowMatchID: uuid.NewString(),
		ContentKind: flow.KindMatch,
		OrderIndex:  index + 1,
		Grep:        &grep,
	}
	s.insertAfter(index, m)
	return m
}

func (s *FlowState) insertAfter(index int, m flow.Match) {
	s.mu.Lock()
	sort.SliceStable(s.matches, func(i, j int) bool {
		return s.matches[i].OrderIndex < s.matches[j].OrderIndex
	})
	pos := index + 1
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.matches) {
		pos = len(s.matches)
	}
	s.matches = append(s.matches, flow.Match{})
	copy(s.matches[pos+1:], s.matches[pos:])
	s.matches[pos] = m
	for j := pos; j < len(s.matches); j++ {
		s.matches[j].OrderIndex = j
	}
	s.mu.Unlock()

	s.emitUpdated()
	s.notify()
}

// Reset replaces state with a single-step scaffold flow, used when
// starting a brand-new flow before the backend has assigned an id.
func (s *FlowState) Reset() {
	s.mu.Lock()
	s.flow = flow.Flow{Name: DefaultFlowName, Status: flow.StatusPrivate}
	if s.user != nil {
		s.flow.UserID = s.user.UserID()
	}
	s.matches = []flow.Match{{
		FlowMatchID: uuid.NewString(),
		ContentKind: flow.KindNote,
		OrderIndex:  0,
		Step:        &flow.StepContent{},
	}}
	s.markdown = ""
	s.preview = false
	s.mu.Unlock()

	s.notify()
}

// Clear empties the container, used on navigating away from the editor.
func (s *FlowState) Clear() {
	s.mu.Lock()
	s.flow = flow.Flow{}
	s.matches = nil
	s.markdown = ""
	s.preview = false
	s.mu.Unlock()

	s.notify()
}

// CanEdit reports whether the given flow (or the currently loaded one when
// f is nil) belongs to the signed-in user. This is a UI hint only; the
// backend enforces authorization on every write.
func (s *FlowState) CanEdit(f *flow.Flow) bool {
	if s.user == nil {
		return false
	}
	uid := s.user.UserID()
	if uid == "" {
		return false
	}

	s.mu.Lock()
	owner := s.flow.UserID
	s.mu.Unlock()
	if f != nil {
		owner = f.UserID
	}
	return owner != "" && owner == uid
}

// Copy derives a child flow from the source aggregate: fresh flow identity,
// a name suffix, parent back-references, and a freshly generated id for
// every copied step. Old step ids are never reused; the backend treats them
// as the join key for relationship tracking.
func (s *FlowState) Copy(src flow.Aggregate, fromMatchID string) flow.Aggregate {
	child := src.Clone()
	name := DefaultFlowName
	if child.Flow == nil {
		child.Flow = &flow.Flow{}
	}
	if child.Flow.Name != "" {
		name = child.Flow.Name
	}

	parentID := child.Flow.ID
	child.Flow.ID = ""
	child.Flow.Name = name + " (copy)"
	child.Flow.ParentFlowID = parentID
	child.Flow.ParentFlowMatchID = fromMatchID
	if s.user != nil {
		child.Flow.UserID = s.user.UserID()
	}

	for i := range child.Matches {
		child.Matches[i].FlowMatchID = uuid.NewString()
	}
	return child
}

// Flow returns a copy of the current metadata.
func (s *FlowState) Flow() flow.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow
}

// Matches returns a deep copy of the steps sorted by order index.
func (s *FlowState) Matches() []flow.Match {
	s.mu.Lock()
	out := make([]flow.Match, len(s.matches))
	for i, m := range s.matches {
		out[i] = m.Clone()
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

// Markdown returns the pre-rendered preview markdown, empty outside
// preview mode.
func (s *FlowState) Markdown() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markdown
}

// IsPreview reports whether the container holds a preview projection.
func (s *FlowState) IsPreview() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// Aggregate returns a deep-copied snapshot of the current flow and steps.
func (s *FlowState) Aggregate() flow.Aggregate {
	f := s.Flow()
	return flow.Aggregate{Flow: &f, Matches: s.Matches()}
}

// indexOf returns the slice position of the step with the given id, or -1.
// Callers must hold the lock.
func (s *FlowState) indexOf(flowMatchID string) int {
	if flowMatchID == "" {
		return -1
	}
	for i := range s.matches {
		if s.matches[i].FlowMatchID == flowMatchID {
			return i
		}
	}
	return -1
}

func (s *FlowState) emitUpdated() {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.FlowUpdated{Aggregate: s.Aggregate()})
}

func (s *FlowState) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
