package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/flowdeck/flowdeck/internal/api"
	"github.com/flowdeck/flowdeck/internal/bus"
	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/state"
)

// fakeBackend records calls and returns canned responses.
type fakeBackend struct {
	mu stdsync.Mutex

	flows       []flow.Summary
	updates     []flow.Aggregate
	creates     []flow.Aggregate
	searches    []string
	favorites   []string
	unfavorites []string

	updateErr   error
	favoriteErr error
	loginErr    error

	searchResult api.TagPage
	session      api.Session
}

func (f *fakeBackend) Flows(ctx context.Context) ([]flow.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flows, nil
}

func (f *fakeBackend) FlowAggregate(ctx context.Context, id string) (flow.Aggregate, error) {
	return flow.Aggregate{Flow: &flow.Flow{ID: id}, Matches: []flow.Match{}}, nil
}

func (f *fakeBackend) CreateFlowAggregate(ctx context.Context, agg flow.Aggregate) (flow.Aggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, agg)
	created := agg.Clone()
	if created.Flow == nil {
		created.Flow = &flow.Flow{}
	}
	created.Flow.ID = "created-1"
	return created, nil
}

func (f *fakeBackend) UpdateFlowAggregate(ctx context.Context, agg flow.Aggregate) (flow.Aggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return flow.Aggregate{}, f.updateErr
	}
	f.updates = append(f.updates, agg)
	return agg, nil
}

func (f *fakeBackend) SearchTags(ctx context.Context, query string, page, perPage int) (api.TagPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	return f.searchResult, nil
}

func (f *fakeBackend) CreateFavoriteTag(ctx context.Context, tagID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favoriteErr != nil {
		return f.favoriteErr
	}
	f.favorites = append(f.favorites, tagID)
	return nil
}

func (f *fakeBackend) DeleteFavoriteTag(ctx context.Context, tagID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favoriteErr != nil {
		return f.favoriteErr
	}
	f.unfavorites = append(f.unfavorites, tagID)
	return nil
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (api.Session, error) {
	if f.loginErr != nil {
		return api.Session{}, f.loginErr
	}
	return f.session, nil
}

func (f *fakeBackend) Register(ctx context.Context, email, name, password string) (api.Session, error) {
	if f.loginErr != nil {
		return api.Session{}, f.loginErr
	}
	return f.session, nil
}

// zeroWindows makes every debouncer fire synchronously.
func zeroWindows() Windows { return Windows{} }

type harness struct {
	bus     *bus.Bus
	backend *fakeBackend
	flows   *state.FlowState
	list    *state.FlowListState
	tags    *state.TagsState
	auth    *state.AuthState
	ctl     *Controller
}

func setup(t *testing.T, w Windows) *harness {
	t.Helper()
	b := bus.New()
	backend := &fakeBackend{}
	auth := state.NewAuthState(b, nil)
	flows := state.NewFlowState(b, auth)
	list := state.NewFlowListState(b)
	tags := state.NewTagsState(b)

	ctl := New(b, backend, flows, list, tags, auth, w)
	ctl.Start()
	t.Cleanup(ctl.Stop)

	return &harness{bus: b, backend: backend, flows: flows, list: list, tags: tags, auth: auth, ctl: ctl}
}

func TestSearchBurstCollapsesToLastArgs(t *testing.T) {
	h := setup(t, Windows{TagSearch: 30 * time.Millisecond})

	for _, q := range []string{"g", "go", "gor", "goro", "gorou"} {
		h.tags.Search(q, 1, 50)
	}

	time.Sleep(150 * time.Millisecond)

	h.backend.mu.Lock()
	searches := append([]string(nil), h.backend.searches...)
	h.backend.mu.Unlock()

	if len(searches) != 1 {
		t.Fatalf("remote searches = %d, want 1", len(searches))
	}
	if searches[0] != "gorou" {
		t.Errorf("search query = %q, want the last one", searches[0])
	}
}

func TestSearchResultLoadsTags(t *testing.T) {
	h := setup(t, zeroWindows())
	h.backend.searchResult = api.TagPage{Rows: []flow.Tag{{ID: "t1", Name: "Go"}}}

	h.tags.Search("go", 1, 50)

	if got := h.tags.Tags(); len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("tags = %+v", got)
	}
}

func TestCreateFlowAssignsIDAndRequestsRefresh(t *testing.T) {
	h := setup(t, zeroWindows())
	h.backend.flows = []flow.Summary{{Flow: flow.Flow{ID: "created-1"}}}

	h.flows.Reset()
	created, err := h.ctl.CreateFlow(context.Background(), h.flows.Aggregate())
	if err != nil {
		t.Fatalf("CreateFlow: %v", err)
	}
	if created.Flow.ID != "created-1" {
		t.Errorf("created id = %q", created.Flow.ID)
	}
	if got := h.flows.Flow().ID; got != "created-1" {
		t.Errorf("state id = %q, want backend-assigned", got)
	}
	// The refresh round-trip must have repopulated the list.
	if got := h.list.All(); len(got) != 1 {
		t.Errorf("list = %d entries, want 1", len(got))
	}
}

func TestPersistBurstCollapses(t *testing.T) {
	h := setup(t, Windows{Persist: 30 * time.Millisecond})

	h.flows.Load(flow.Aggregate{
		Flow:    &flow.Flow{ID: "f1", Name: "v0"},
		Matches: []flow.Match{},
	})
	for i := 0; i < 4; i++ {
		meta := h.flows.Flow()
		meta.Name = "edited"
		h.flows.UpdateFlow(meta)
	}

	time.Sleep(150 * time.Millisecond)

	h.backend.mu.Lock()
	updates := len(h.backend.updates)
	h.backend.mu.Unlock()
	if updates != 1 {
		t.Fatalf("PUTs = %d, want 1 for the whole burst", updates)
	}
}

func TestUnsavedFlowIsNotPersisted(t *testing.T) {
	h := setup(t, zeroWindows())

	h.flows.Reset() // no id yet
	meta := h.flows.Flow()
	meta.Name = "typing before first save"
	h.flows.UpdateFlow(meta)

	h.backend.mu.Lock()
	updates := len(h.backend.updates)
	h.backend.mu.Unlock()
	if updates != 0 {
		t.Fatalf("PUTs = %d for an id-less flow, want 0", updates)
	}
}

func TestFavoriteToggleRoundTrip(t *testing.T) {
	h := setup(t, zeroWindows())
	h.tags.Load([]flow.Tag{{ID: "t1", Name: "Go"}})

	h.tags.ToggleFavourite(flow.Tag{ID: "t1"})

	h.backend.mu.Lock()
	favs := append([]string(nil), h.backend.favorites...)
	h.backend.mu.Unlock()
	if len(favs) != 1 || favs[0] != "t1" {
		t.Fatalf("favorites = %v", favs)
	}
	if got := h.tags.Tags(); !got[0].IsFavourite {
		t.Error("favourite bit lost after successful round trip")
	}
}

func TestFavoriteFailureRollsBack(t *testing.T) {
	h := setup(t, zeroWindows())
	h.tags.Load([]flow.Tag{{ID: "t1", Name: "Go"}})
	h.backend.favoriteErr = errors.New("boom")

	h.tags.ToggleFavourite(flow.Tag{ID: "t1"})

	if got := h.tags.Tags(); got[0].IsFavourite {
		t.Error("optimistic flip not rolled back after backend failure")
	}
}

func TestUnfavoriteUsesDelete(t *testing.T) {
	h := setup(t, zeroWindows())
	h.tags.Load([]flow.Tag{{ID: "t1", Name: "Go", IsFavourite: true}})

	h.tags.ToggleFavourite(flow.Tag{ID: "t1", IsFavourite: true})

	h.backend.mu.Lock()
	unfavs := append([]string(nil), h.backend.unfavorites...)
	h.backend.mu.Unlock()
	if len(unfavs) != 1 || unfavs[0] != "t1" {
		t.Fatalf("unfavorites = %v", unfavs)
	}
}

func TestLoginSuccessSetsSession(t *testing.T) {
	h := setup(t, zeroWindows())
	h.backend.session = api.Session{APIToken: "tok-1", User: flow.User{ID: "u1", Email: "a@b.c"}}

	h.auth.Login("a@b.c", "pw")

	if !h.auth.LoggedIn() {
		t.Fatal("not logged in after successful exchange")
	}
	if h.auth.Token() != "tok-1" {
		t.Errorf("token = %q", h.auth.Token())
	}
}

func TestLoginFailureSetsError(t *testing.T) {
	h := setup(t, zeroWindows())
	h.backend.loginErr = errors.New("invalid email or password")

	h.auth.Login("a@b.c", "wrong")

	if h.auth.LoggedIn() {
		t.Error("logged in after failed exchange")
	}
	if h.auth.Err() == "" {
		t.Error("error not recorded")
	}
	if h.auth.Loading() {
		t.Error("loading flag stuck after failure")
	}
}

func TestListRefreshCollapses(t *testing.T) {
	h := setup(t, Windows{ListRefresh: 30 * time.Millisecond})
	h.backend.flows = []flow.Summary{{Flow: flow.Flow{ID: "f1"}}}

	for i := 0; i < 5; i++ {
		h.list.RequestRefresh()
	}

	time.Sleep(150 * time.Millisecond)
	if got := h.list.All(); len(got) != 1 {
		t.Fatalf("list = %d entries, want 1", len(got))
	}
}
