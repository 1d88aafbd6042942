package usecase

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

type AuthEvent uint8

const (
	AuthInitialSession AuthEvent = iota + 1
	AuthSignedIn
	AuthSignedOut
	AuthTokenRefreshed
)

func (e AuthEvent) String() string {
	switch e {
	case AuthInitialSession:
		return "INITIAL_SESSION"
	case AuthSignedIn:
		return "SIGNED_IN"
	case AuthSignedOut:
		return "SIGNED_OUT"
	case AuthTokenRefreshed:
		return "TOKEN_REFRESHED"
	default:
		return ""
	}
}

// AuthListener is called synchronously, in subscription order, after every session change.
// session is nil when signed out.
type AuthListener func(ctx context.Context, event AuthEvent, session *entity.Session)

// AuthContext owns the process' single session and fans its changes out to listeners.
type AuthContext struct {
	Auth       Authenticator
	RedirectTo string

	mu        sync.RWMutex
	session   *entity.Session
	gen       uint64
	loading   bool
	listeners map[uint64]AuthListener
	nextID    uint64
	closed    bool
}

func NewAuthContext(auth Authenticator, redirectTo string) *AuthContext {
	return &AuthContext{
		Auth:       auth,
		RedirectTo: redirectTo,
		loading:    true,
		listeners:  make(map[uint64]AuthListener),
	}
}

// Start restores a session from a refresh token. A missing or rejected token leaves
// the process signed out; it is not an error.
func (a *AuthContext) Start(ctx context.Context, refreshToken string) {
	var session *entity.Session
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		s, err := a.Auth.Refresh(ctx, refreshToken)
		if err != nil {
			log.Printf("⚠️ [AUTH] could not restore session: %v", err)
		} else {
			session = s
			log.Printf("🔐 [AUTH] session restored for %s", s.User.Email)
		}
	}

	a.mu.Lock()
	a.session = session
	a.gen++
	a.loading = false
	a.mu.Unlock()

	a.notify(ctx, AuthInitialSession, session)
}

// Current returns a copy of the signed-in session, or nil.
func (a *AuthContext) Current() *entity.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.session == nil {
		return nil
	}
	s := *a.session
	return &s
}

func (a *AuthContext) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Subscribe registers fn and returns the function that removes it.
func (a *AuthContext) Subscribe(fn AuthListener) (unsubscribe func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return func() {}
	}
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

func (a *AuthContext) SignIn(ctx context.Context, email, password string) (*entity.Session, error) {
	if err := validationFailure(ValidateCredentials(email, password)); err != nil {
		return nil, err
	}

	session, err := a.Auth.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, authFailure("sign in", err)
	}

	a.signIn(ctx, session)
	log.Printf("🔐 [AUTH] signed in as %s", session.User.Email)
	return a.Current(), nil
}

// SignUp registers a user. The returned session is nil when the address must be
// confirmed first.
func (a *AuthContext) SignUp(ctx context.Context, email, password string) (*entity.Session, error) {
	if err := validationFailure(ValidateCredentials(email, password)); err != nil {
		return nil, err
	}

	session, err := a.Auth.SignUp(ctx, strings.TrimSpace(email), password, a.RedirectTo)
	if err != nil {
		return nil, authFailure("sign up", err)
	}
	if session == nil {
		log.Printf("📧 [AUTH] confirmation sent to %s", strings.TrimSpace(email))
		return nil, nil
	}

	a.signIn(ctx, session)
	return a.Current(), nil
}

// signIn installs session. Replacing a different user's session signs that user
// out first so per-user state is torn down before the new user's loads run.
func (a *AuthContext) signIn(ctx context.Context, session *entity.Session) {
	if prev := a.Current(); prev != nil && prev.User.ID != session.User.ID {
		a.set(ctx, AuthSignedOut, nil)
		log.Printf("👋 [AUTH] signed out %s before switching user", prev.User.Email)
	}
	a.set(ctx, AuthSignedIn, session)
}

// SignOut always clears the local session; a failed remote revoke is only logged.
func (a *AuthContext) SignOut(ctx context.Context) {
	current := a.Current()
	if current == nil {
		return
	}

	if err := a.Auth.SignOut(ctx, current.AccessToken); err != nil {
		log.Printf("⚠️ [AUTH] remote sign out failed: %v", err)
	}

	a.set(ctx, AuthSignedOut, nil)
	log.Printf("👋 [AUTH] signed out %s", current.User.Email)
}

// Refresh exchanges the refresh token for a new session. A rejected token signs the
// process out. The result is dropped if the session changed while the call was out.
func (a *AuthContext) Refresh(ctx context.Context) error {
	a.mu.RLock()
	gen := a.gen
	var refreshToken string
	if a.session != nil {
		refreshToken = a.session.RefreshToken
	}
	a.mu.RUnlock()

	if refreshToken == "" {
		return &DomainError{Code: "NOT_AUTHENTICATED", Message: "not signed in", Err: entity.ErrNotAuthenticated}
	}

	session, err := a.Auth.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, entity.ErrAuthRejected) {
			a.setIf(ctx, gen, AuthSignedOut, nil)
		}
		return authFailure("refresh", err)
	}

	if !a.setIf(ctx, gen, AuthTokenRefreshed, session) {
		log.Printf("⚠️ [AUTH] session changed during refresh, result dropped")
		return &DomainError{Code: "SESSION_CHANGED", Message: "session changed during refresh", Err: entity.ErrNotAuthenticated}
	}
	return nil
}

// Close drops every listener; later subscriptions are ignored.
func (a *AuthContext) Close() {
	a.mu.Lock()
	a.closed = true
	a.listeners = make(map[uint64]AuthListener)
	a.mu.Unlock()
}

func (a *AuthContext) set(ctx context.Context, event AuthEvent, session *entity.Session) {
	a.mu.Lock()
	a.session = session
	a.gen++
	a.loading = false
	a.mu.Unlock()

	a.notify(ctx, event, session)
}

// setIf installs session only when no other change landed since gen was read.
func (a *AuthContext) setIf(ctx context.Context, gen uint64, event AuthEvent, session *entity.Session) bool {
	a.mu.Lock()
	if a.gen != gen {
		a.mu.Unlock()
		return false
	}
	a.session = session
	a.gen++
	a.loading = false
	a.mu.Unlock()

	a.notify(ctx, event, session)
	return true
}

func (a *AuthContext) notify(ctx context.Context, event AuthEvent, session *entity.Session) {
	a.mu.RLock()
	ids := make([]uint64, 0, len(a.listeners))
	for id := range a.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]AuthListener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, a.listeners[id])
	}
	a.mu.RUnlock()

	for _, fn := range fns {
		var s *entity.Session
		if session != nil {
			cp := *session
			s = &cp
		}
		fn(ctx, event, s)
	}
}

func authFailure(op string, err error) error {
	if errors.Is(err, entity.ErrAuthRejected) {
		return &DomainError{Code: "AUTH_REJECTED", Message: err.Error(), Err: err}
	}
	return &TechnicalError{Code: "AUTH_UNAVAILABLE", Message: op + ": auth service unavailable: " + err.Error(), Err: err}
}
