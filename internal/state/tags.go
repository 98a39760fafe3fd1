package state

import (
	"strings"
	"sync"

	"github.com/flowdeck/flowdeck/internal/bus"
	"github.com/flowdeck/flowdeck/internal/flow"
)

// TagsState owns the known tag collection plus a client-side search
// filter. The filter runs instantly on every keystroke; the remote refresh
// behind it is debounced by the sync layer.
type TagsState struct {
	mu       sync.Mutex
	bus      *bus.Bus
	onChange func()

	all     []flow.Tag
	filter  string
	page    int
	perPage int
}

// NewTagsState creates an empty tag container publishing on b.
func NewTagsState(b *bus.Bus) *TagsState {
	return &TagsState{bus: b, perPage: 50}
}

// OnChange registers a callback invoked after every state change.
func (s *TagsState) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load replaces the collection.
func (s *TagsState) Load(tags []flow.Tag) {
	s.mu.Lock()
	s.all = append([]flow.Tag(nil), tags...)
	s.mu.Unlock()
	s.notify()
}

// Tags returns the collection filtered by the current search string:
// case-insensitive prefix match on name or slug. An empty filter returns
// everything.
func (s *TagsState) Tags() []flow.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter == "" {
		return append([]flow.Tag(nil), s.all...)
	}
	q := strings.ToLower(s.filter)
	var out []flow.Tag
	for _, t := range s.all {
		if strings.HasPrefix(strings.ToLower(t.Name), q) ||
			strings.HasPrefix(strings.ToLower(t.Slug), q) {
			out = append(out, t)
		}
	}
	return out
}

// Search updates the filter immediately and asks the sync layer for a
// debounced remote refresh carrying the same arguments.
func (s *TagsState) Search(query string, page, perPage int) {
	s.mu.Lock()
	s.filter = query
	s.page = page
	if perPage > 0 {
		s.perPage = perPage
	}
	perPage = s.perPage
	s.mu.Unlock()
	s.notify()

	if s.bus != nil {
		s.bus.Publish(bus.TagSearchRefreshRequested{Query: query, Page: page, PerPage: perPage})
	}
}

// Filter returns the current search string.
func (s *TagsState) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// ToggleFavourite flips the favourite bit optimistically and asks the sync
// layer to persist the flip. The returned tag carries the desired state.
// If the remote call ultimately fails the sync layer reverts the flip via
// SetFavourite.
func (s *TagsState) ToggleFavourite(t flow.Tag) flow.Tag {
	t.IsFavourite = !t.IsFavourite

	s.mu.Lock()
	for i := range s.all {
		if s.all[i].ID == t.ID {
			s.all[i].IsFavourite = t.IsFavourite
			break
		}
	}
	s.mu.Unlock()
	s.notify()

	if s.bus != nil {
		s.bus.Publish(bus.TagFavoriteToggleRequested{Tag: t})
	}
	return t
}

// SetFavourite forces the favourite bit for the given tag id. Used by the
// sync layer to roll back a failed optimistic toggle.
func (s *TagsState) SetFavourite(tagID string, fav bool) {
	s.mu.Lock()
	for i := range s.all {
		if s.all[i].ID == tagID {
			s.all[i].IsFavourite = fav
			break
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Push adds the tag unless one with the same id is already present.
func (s *TagsState) Push(t flow.Tag) {
	s.mu.Lock()
	for i := range s.all {
		if s.all[i].ID == t.ID {
			s.mu.Unlock()
			return
		}
	}
	s.all = append(s.all, t)
	s.mu.Unlock()
	s.notify()
}

// Delete removes the tag with the same id, if present.
func (s *TagsState) Delete(t flow.Tag) {
	s.mu.Lock()
	for i := range s.all {
		if s.all[i].ID == t.ID {
			s.all = append(s.all[:i], s.all[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notify()
}

func (s *TagsState) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
