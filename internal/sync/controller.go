// Package sync bridges the state containers and the backend. It listens on
// the event bus, coalesces bursts of requests behind trailing debouncers,
// performs the network calls, and feeds results back into the containers.
//
// Every debounced write carries a generation number; a response whose
// number is no longer the latest issued is discarded, so a slow in-flight
// request can never clobber the result of a newer one.
package sync

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/flowdeck/flowdeck/internal/api"
	"github.com/flowdeck/flowdeck/internal/bus"
	"github.com/flowdeck/flowdeck/internal/debounce"
	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/state"
)

// Backend is the slice of the API client the controller needs. api.Client
// satisfies it.
type Backend interface {
	Flows(ctx context.Context) ([]flow.Summary, error)
	FlowAggregate(ctx context.Context, id string) (flow.Aggregate, error)
	CreateFlowAggregate(ctx context.Context, agg flow.Aggregate) (flow.Aggregate, error)
	UpdateFlowAggregate(ctx context.Context, agg flow.Aggregate) (flow.Aggregate, error)
	SearchTags(ctx context.Context, query string, page, perPage int) (api.TagPage, error)
	CreateFavoriteTag(ctx context.Context, tagID string) error
	DeleteFavoriteTag(ctx context.Context, tagID string) error
	Login(ctx context.Context, email, password string) (api.Session, error)
	Register(ctx context.Context, email, name, password string) (api.Session, error)
}

// Windows holds the trailing-debounce delays for each outbound write path.
type Windows struct {
	Persist     time.Duration
	ListRefresh time.Duration
	TagSearch   time.Duration
	Favorite    time.Duration
}

// DefaultWindows mirrors the delays the UI was tuned for.
func DefaultWindows() Windows {
	return Windows{
		Persist:     500 * time.Millisecond,
		ListRefresh: time.Second,
		TagSearch:   300 * time.Millisecond,
		Favorite:    300 * time.Millisecond,
	}
}

// gen is a monotonically increasing request generation counter.
type gen struct {
	mu sync.Mutex
	n  uint64
}

func (g *gen) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

func (g *gen) latest(v uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return v == g.n
}

// Controller is the sole component performing network calls on behalf of
// the state containers.
type Controller struct {
	bus     *bus.Bus
	backend Backend
	flows   *state.FlowState
	list    *state.FlowListState
	tags    *state.TagsState
	auth    *state.AuthState

	persist   *debounce.Debouncer
	refresh   *debounce.Debouncer
	tagSearch *debounce.Debouncer
	favorite  *debounce.Debouncer

	persistGen gen
	refreshGen gen
	searchGen  gen

	mu         sync.Mutex
	lastSearch bus.TagSearchRefreshRequested

	unsubs []func()
}

// New wires a controller to the given containers. Call Start to begin
// listening.
func New(b *bus.Bus, backend Backend, flows *state.FlowState, list *state.FlowListState, tags *state.TagsState, auth *state.AuthState, w Windows) *Controller {
	return &Controller{
		bus:       b,
		backend:   backend,
		flows:     flows,
		list:      list,
		tags:      tags,
		auth:      auth,
		persist:   debounce.New(w.Persist),
		refresh:   debounce.New(w.ListRefresh),
		tagSearch: debounce.New(w.TagSearch),
		favorite:  debounce.New(w.Favorite),
	}
}

// Start subscribes to the event catalog.
func (c *Controller) Start() {
	c.unsubs = append(c.unsubs,
		c.bus.Subscribe(bus.KindFlowUpdated, c.onEvent),
		c.bus.Subscribe(bus.KindFlowMatchRequested, c.onEvent),
		c.bus.Subscribe(bus.KindFlowListRefreshRequested, c.onEvent),
		c.bus.Subscribe(bus.KindTagSearchRefreshRequested, c.onEvent),
		c.bus.Subscribe(bus.KindTagFavoriteToggleRequested, c.onEvent),
		c.bus.Subscribe(bus.KindAuthLoginRequested, c.onEvent),
		c.bus.Subscribe(bus.KindAuthRegisterRequested, c.onEvent),
	)
}

// Stop unsubscribes and drops any pending debounced work.
func (c *Controller) Stop() {
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
	c.persist.Stop()
	c.refresh.Stop()
	c.tagSearch.Stop()
	c.favorite.Stop()
}

// Flush forces all pending debounced work to run now. Used by the CLI
// before exiting.
func (c *Controller) Flush() {
	c.persist.Flush()
	c.favorite.Flush()
	c.tagSearch.Flush()
	c.refresh.Flush()
}

func (c *Controller) onEvent(e bus.Event) {
	switch ev := e.(type) {
	case bus.FlowUpdated:
		c.handleFlowUpdated(ev)
	case bus.FlowMatchRequested:
		c.handleMatchRequested(ev)
	case bus.FlowListRefreshRequested:
		c.handleListRefresh()
	case bus.TagSearchRefreshRequested:
		c.handleTagSearch(ev)
	case bus.TagFavoriteToggleRequested:
		c.handleFavorite(ev)
	case bus.AuthLoginRequested:
		c.handleLogin(ev)
	case bus.AuthRegisterRequested:
		c.handleRegister(ev)
	}
}

// CreateFlow persists a brand-new flow and returns the created entity with
// its backend-assigned ids. The list refresh notification goes out on the
// bus afterwards for any other interested observers.
func (c *Controller) CreateFlow(ctx context.Context, agg flow.Aggregate) (flow.Aggregate, error) {
	created, err := c.backend.CreateFlowAggregate(ctx, agg)
	if err != nil {
		return flow.Aggregate{}, err
	}
	if created.Flow != nil {
		c.flows.AssignID(created.Flow.ID)
	}
	c.bus.Publish(bus.FlowListRefreshRequested{})
	return created, nil
}

func (c *Controller) handleFlowUpdated(ev bus.FlowUpdated) {
	agg := ev.Aggregate
	if agg.Flow == nil || agg.Flow.ID == "" {
		// Creation goes through CreateFlow directly; nothing to PUT yet.
		return
	}
	c.persist.Do(func() {
		seq := c.persistGen.next()
		echoed, err := c.backend.UpdateFlowAggregate(context.Background(), agg)
		if err != nil {
			log.Printf("sync: persisting flow %s: %v", agg.Flow.ID, err)
			return
		}
		if !c.persistGen.latest(seq) {
			log.Printf("sync: discarding stale persist response for flow %s", agg.Flow.ID)
			return
		}
		if echoed.Flow != nil {
			c.flows.AssignID(echoed.Flow.ID)
		}
		c.bus.Publish(bus.FlowListRefreshRequested{})
	})
}

func (c *Controller) handleMatchRequested(ev bus.FlowMatchRequested) {
	agg, err := c.backend.FlowAggregate(context.Background(), ev.FlowID)
	if err != nil {
		log.Printf("sync: refreshing flow %s: %v", ev.FlowID, err)
		return
	}
	if c.flows.Flow().ID != ev.FlowID {
		return
	}
	if err := c.flows.Load(agg); err != nil {
		log.Printf("sync: reloading flow %s: %v", ev.FlowID, err)
	}
}

func (c *Controller) handleListRefresh() {
	c.refresh.Do(func() {
		seq := c.refreshGen.next()
		flows, err := c.backend.Flows(context.Background())
		if err != nil {
			log.Printf("sync: refreshing flow list: %v", err)
			return
		}
		if !c.refreshGen.latest(seq) {
			return
		}
		c.list.Load(flows)
	})
}

func (c *Controller) handleTagSearch(ev bus.TagSearchRefreshRequested) {
	c.mu.Lock()
	c.lastSearch = ev
	c.mu.Unlock()

	c.tagSearch.Do(func() {
		c.mu.Lock()
		args := c.lastSearch
		c.mu.Unlock()

		seq := c.searchGen.next()
		page, err := c.backend.SearchTags(context.Background(), args.Query, args.Page, args.PerPage)
		if err != nil {
			log.Printf("sync: searching tags %q: %v", args.Query, err)
			return
		}
		if !c.searchGen.latest(seq) {
			return
		}
		c.tags.Load(page.Rows)
	})
}

func (c *Controller) handleFavorite(ev bus.TagFavoriteToggleRequested) {
	c.favorite.Do(func() {
		t := ev.Tag
		var err error
		if t.IsFavourite {
			err = c.backend.CreateFavoriteTag(context.Background(), t.ID)
		} else {
			err = c.backend.DeleteFavoriteTag(context.Background(), t.ID)
		}
		if err != nil {
			log.Printf("sync: toggling favourite on tag %s: %v", t.ID, err)
			// Roll the optimistic flip back.
			c.tags.SetFavourite(t.ID, !t.IsFavourite)
		}
	})
}

func (c *Controller) handleLogin(ev bus.AuthLoginRequested) {
	sess, err := c.backend.Login(context.Background(), ev.Email, ev.Password)
	if err != nil {
		c.auth.SetError(err.Error())
		return
	}
	c.auth.SetSession(sess.APIToken, sess.User)
}

func (c *Controller) handleRegister(ev bus.AuthRegisterRequested) {
	sess, err := c.backend.Register(context.Background(), ev.Email, ev.Name, ev.Password)
	if err != nil {
		c.auth.SetError(err.Error())
		return
	}
	c.auth.SetSession(sess.APIToken, sess.User)
}
