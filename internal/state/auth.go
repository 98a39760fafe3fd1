package state

import (
	"log"
	"sync"

	"github.com/flowdeck/flowdeck/internal/bus"
	"github.com/flowdeck/flowdeck/internal/flow"
)

// SessionStore persists the api token and user under fixed keys in durable
// local storage. auth.Store satisfies this.
type SessionStore interface {
	Load() (token string, user flow.User, err error)
	Save(token string, user flow.User) error
	Clear() error
}

// AuthState owns the signed-in session. Presence of the token is the sole
// logged-in signal; no expiry check happens client-side.
type AuthState struct {
	mu       sync.Mutex
	bus      *bus.Bus
	store    SessionStore
	onChange func()

	token   string
	user    flow.User
	err     string
	loading bool
}

// NewAuthState creates an auth container, restoring any persisted session
// from the store. store may be nil for ephemeral sessions.
func NewAuthState(b *bus.Bus, store SessionStore) *AuthState {
	s := &AuthState{bus: b, store: store}
	if store != nil {
		token, user, err := store.Load()
		if err != nil {
			log.Printf("auth: restoring session: %v", err)
		} else {
			s.token = token
			s.user = user
		}
	}
	return s
}

// OnChange registers a callback invoked after every state change.
func (s *AuthState) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Login asks the sync layer to exchange credentials for a session.
func (s *AuthState) Login(email, password string) {
	s.setLoading(true)
	if s.bus != nil {
		s.bus.Publish(bus.AuthLoginRequested{Email: email, Password: password})
	}
}

// Register asks the sync layer to create an account.
func (s *AuthState) Register(email, name, password string) {
	s.setLoading(true)
	if s.bus != nil {
		s.bus.Publish(bus.AuthRegisterRequested{Email: email, Name: name, Password: password})
	}
}

// Logout discards the session.
func (s *AuthState) Logout() {
	if s.bus != nil {
		s.bus.Publish(bus.AuthLogoutRequested{})
	}
	s.ClearSession()
}

// SetSession stores the token and user and persists them. Called by the
// sync layer on a successful login or registration.
func (s *AuthState) SetSession(token string, user flow.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.err = ""
	s.loading = false
	store := s.store
	s.mu.Unlock()

	if store != nil {
		if err := store.Save(token, user); err != nil {
			log.Printf("auth: persisting session: %v", err)
		}
	}
	s.notify()
}

// ClearSession wipes the in-memory and persisted session.
func (s *AuthState) ClearSession() {
	s.mu.Lock()
	s.token = ""
	s.user = flow.User{}
	s.loading = false
	store := s.store
	s.mu.Unlock()

	if store != nil {
		if err := store.Clear(); err != nil {
			log.Printf("auth: clearing session: %v", err)
		}
	}
	s.notify()
}

// SetError records a failed auth attempt for inline display.
func (s *AuthState) SetError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// LoggedIn reports whether a token is present.
func (s *AuthState) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Token returns the stored api token, empty when signed out.
func (s *AuthState) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the signed-in user.
func (s *AuthState) User() flow.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// UserID satisfies CurrentUser.
func (s *AuthState) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.ID
}

// Err returns the last auth error message.
func (s *AuthState) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Loading reports whether an auth exchange is in flight.
func (s *AuthState) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *AuthState) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}

func (s *AuthState) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
