package cmd

import (
	"fmt"
	"time"

	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/sync"
)

// openSession returns the persisted session store, failing when no token
// is present.
func openSession() (*auth.Store, error) {
	sessionPath, err := auth.DefaultPath()
	if err != nil {
		return nil, err
	}
	store := auth.NewStore(sessionPath)
	if store.Token() == "" {
		return nil, fmt.Errorf("not signed in; run `flowdeck login` first")
	}
	return store, nil
}

// clientWindows maps the configured debounce windows onto the sync
// controller's, keeping the defaults where the config says zero.
func clientWindows(cfg *config.Config) sync.Windows {
	w := sync.DefaultWindows()
	if ms := cfg.Client.PersistDebounceMS; ms > 0 {
		w.Persist = time.Duration(ms) * time.Millisecond
	}
	if ms := cfg.Client.ListRefreshDebounceMS; ms > 0 {
		w.ListRefresh = time.Duration(ms) * time.Millisecond
	}
	if ms := cfg.Client.TagSearchDebounceMS; ms > 0 {
		w.TagSearch = time.Duration(ms) * time.Millisecond
	}
	if ms := cfg.Client.FavoriteDebounceMS; ms > 0 {
		w.Favorite = time.Duration(ms) * time.Millisecond
	}
	return w
}
