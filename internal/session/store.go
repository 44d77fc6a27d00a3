// Package session manages the authenticated user's credential: one persisted
// record, a three-phase state machine, and synchronous observer notification
// so the access gate is never ahead of the store.
package session

import (
	"context"
	"sync"

	"brickstore/internal/logging"
)

// Phase is the session lifecycle phase. Exactly one is current at any time.
type Phase int

const (
	// PhaseLoading is the initial phase, before the storage check. It is
	// never re-entered.
	PhaseLoading Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is the observable session state. Credential is non-nil exactly when
// Phase is PhaseAuthenticated.
type State struct {
	Phase      Phase
	Credential *Credential
}

// Authenticated reports whether a credential is present.
func (s State) Authenticated() bool { return s.Credential != nil }

// Authenticator verifies credentials against the backend and returns the
// resulting credential. Implemented by the api client; faked in tests.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*Credential, error)
}

// Store owns the credential. All mutation goes through Initialize, Login and
// Logout; everything else reads.
type Store struct {
	auth Authenticator
	dir  string

	mu          sync.RWMutex
	state       State
	initialized bool
	subscribers []func(State)
}

// NewStore creates a store in the loading phase. The directory is where the
// credential record is persisted.
func NewStore(auth Authenticator, dir string) *Store {
	return &Store{
		auth:  auth,
		dir:   dir,
		state: State{Phase: PhaseLoading},
	}
}

// Initialize performs the one-shot storage check, moving the store out of the
// loading phase. Subsequent calls are no-ops, so a process can only leave
// loading once.
func (s *Store) Initialize() {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true

	if cred := loadCredential(s.dir); cred != nil {
		s.state = State{Phase: PhaseAuthenticated, Credential: cred}
		logging.Session("restored session for %s", cred.Email)
	} else {
		s.state = State{Phase: PhaseUnauthenticated}
		logging.Session("no stored session")
	}
	state := s.state
	subs := append([]func(State){}, s.subscribers...)
	s.mu.Unlock()

	notify(subs, state)
}

// Login verifies credentials with the backend and, on success, persists and
// adopts the returned credential. Persist happens before adopt: a crash in
// between can only lose an adoption, never leave an adopted-but-unpersisted
// session. On any failure the state stays unauthenticated and the error is
// returned to the caller.
func (s *Store) Login(ctx context.Context, email, password string) (*Credential, error) {
	cred, err := s.auth.Authenticate(ctx, email, password)
	if err != nil {
		logging.SessionError("login failed: %v", err)
		return nil, err
	}

	if err := saveCredential(s.dir, cred); err != nil {
		// An unpersisted session must not be adopted; reload would
		// silently log the user out.
		logging.SessionError("login persist failed: %v", err)
		return nil, err
	}

	s.mu.Lock()
	s.state = State{Phase: PhaseAuthenticated, Credential: cred}
	state := s.state
	subs := append([]func(State){}, s.subscribers...)
	s.mu.Unlock()

	logging.Session("login ok for %s", cred.Email)
	notify(subs, state)
	return cred, nil
}

// Logout clears the stored credential and transitions to unauthenticated
// unconditionally. A storage failure is logged but cannot keep the user
// logged in; in-memory state always wins.
func (s *Store) Logout() {
	if err := removeCredential(s.dir); err != nil {
		logging.SessionError("logout storage cleanup failed: %v", err)
	}

	s.mu.Lock()
	s.state = State{Phase: PhaseUnauthenticated}
	state := s.state
	subs := append([]func(State){}, s.subscribers...)
	s.mu.Unlock()

	logging.Session("logged out")
	notify(subs, state)
}

// State returns the current session state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Credential returns the current credential, or nil when unauthenticated.
func (s *Store) Credential() *Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Credential
}

// Subscribe registers an observer called synchronously after every state
// transition. Observers registered before Initialize see the first decision.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func notify(subs []func(State), state State) {
	for _, fn := range subs {
		fn(state)
	}
}
