// Package session owns the authentication state of the client and is the
// only writer of persisted credentials.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/neilberkman/docchat/internal/core/api"
	"github.com/neilberkman/docchat/internal/core/models"
	"go.uber.org/zap"
)

// MinPasswordLength is enforced client-side on registration.
const MinPasswordLength = 6

// State is a snapshot of the session. Authenticated holds exactly when both
// User and Token are set.
type State struct {
	User          *models.User
	Token         string
	Authenticated bool
	Loading       bool
}

// Phase names the state machine position
func (s State) Phase() string {
	switch {
	case s.Loading:
		return "unresolved"
	case s.Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Persister stores credentials between runs.
type Persister interface {
	Load() (*models.Credentials, error)
	Save(models.Credentials) error
	Clear() error
}

// AuthAPI is the slice of the API client the store needs.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*models.TokenResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*models.TokenResponse, error)
	Me(ctx context.Context) (*models.User, error)
	MeWithToken(ctx context.Context, token string) (*models.User, error)
}

// RegisterInput is the account creation form
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

// Store holds the session. Create one per process and pass it to whatever
// needs tokens or auth state.
type Store struct {
	mu    sync.RWMutex
	state State

	persist Persister
	auth    AuthAPI
	log     *zap.Logger
	now     func() time.Time

	initOnce sync.Once
	initErr  error

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// NewStore creates a store in the unresolved (loading) state.
func NewStore(persist Persister, auth AuthAPI, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		state:   State{Loading: true},
		persist: persist,
		auth:    auth,
		log:     log,
		now:     time.Now,
		subs:    make(map[int]func(State)),
	}
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Token returns the bearer token, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Subscribe registers fn to receive every new state. The returned func
// unregisters it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	st := s.State()
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// Initialize restores persisted credentials. It runs once; later calls return
// the first result.
func (s *Store) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.restore(ctx)
	})
	return s.initErr
}

func (s *Store) restore(ctx context.Context) error {
	creds, err := s.persist.Load()
	if err != nil {
		s.log.Warn("failed to read stored session", zap.Error(err))
		s.resolveAnonymous()
		return fmt.Errorf("read stored session: %w", err)
	}
	if creds == nil || creds.Validate() != nil {
		s.resolveAnonymous()
		return nil
	}

	if tokenExpired(creds.Token, s.now()) {
		s.log.Info("stored token expired, discarding")
		s.resolveAnonymous()
		return nil
	}

	// Trust the stored credentials until the server says otherwise.
	s.mu.Lock()
	user := creds.User
	s.state = State{User: &user, Token: creds.Token, Authenticated: true, Loading: true}
	s.mu.Unlock()

	me, err := s.auth.Me(ctx)
	if err != nil {
		s.log.Info("stored session rejected", zap.Error(err))
		s.pruneRestored(creds.Token)
		return nil
	}

	s.mu.Lock()
	if s.state.Token != creds.Token {
		// expired or replaced while we were waiting
		s.state.Loading = false
		s.mu.Unlock()
		s.notify()
		return nil
	}
	refreshed := models.Credentials{Token: creds.Token, User: *me}
	if err := s.persist.Save(refreshed); err != nil {
		s.log.Warn("failed to refresh stored user", zap.Error(err))
		refreshed.User = creds.User
	}
	s.state = State{User: &refreshed.User, Token: refreshed.Token, Authenticated: true}
	s.mu.Unlock()

	s.log.Info("session restored", zap.String("user", refreshed.User.Username))
	s.notify()
	return nil
}

// resolveAnonymous prunes persisted credentials and ends loading.
func (s *Store) resolveAnonymous() {
	s.mu.Lock()
	if err := s.persist.Clear(); err != nil {
		s.log.Warn("failed to clear stored session", zap.Error(err))
	}
	s.state = State{}
	s.mu.Unlock()
	s.notify()
}

// pruneRestored drops the restored session unless a login replaced it while
// the server was being asked.
func (s *Store) pruneRestored(token string) {
	s.mu.Lock()
	if s.state.Token != token {
		s.state.Loading = false
	} else {
		if err := s.persist.Clear(); err != nil {
			s.log.Warn("failed to clear stored session", zap.Error(err))
		}
		s.state = State{}
	}
	s.mu.Unlock()
	s.notify()
}

// Login authenticates and persists the session. On failure the state is
// left as it was.
func (s *Store) Login(ctx context.Context, username, password string) (State, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return s.State(), &ValidationError{Field: "username", Message: "Username is required"}
	}
	if password == "" {
		return s.State(), &ValidationError{Field: "password", Message: "Password is required"}
	}

	resp, err := s.auth.Login(ctx, username, password)
	if err != nil {
		s.log.Info("login failed", zap.String("user", username), zap.Error(err))
		return s.State(), newAuthError(err, "Login failed")
	}
	return s.establish(ctx, resp, "Login failed")
}

// Register validates the form locally, creates the account and signs in.
func (s *Store) Register(ctx context.Context, in RegisterInput) (State, error) {
	if err := ValidateRegistration(in); err != nil {
		return s.State(), err
	}

	username := strings.TrimSpace(in.Username)
	resp, err := s.auth.Register(ctx, api.RegisterRequest{
		Username: username,
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
	})
	if err != nil {
		s.log.Info("registration failed", zap.String("user", username), zap.Error(err))
		return s.State(), newAuthError(err, "Registration failed")
	}

	if resp.AccessToken == "" {
		// some deployments only create the account
		resp, err = s.auth.Login(ctx, username, in.Password)
		if err != nil {
			return s.State(), newAuthError(err, "Account created, but sign in failed")
		}
	}
	return s.establish(ctx, resp, "Registration failed")
}

// ValidateRegistration checks the registration form without touching the network.
func ValidateRegistration(in RegisterInput) error {
	if strings.TrimSpace(in.Username) == "" {
		return &ValidationError{Field: "username", Message: "Username is required"}
	}
	if !strings.Contains(in.Email, "@") {
		return &ValidationError{Field: "email", Message: "Enter a valid email address"}
	}
	if len(in.Password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}
	if in.Password != in.Confirm {
		return &ValidationError{Field: "confirm", Message: "Passwords do not match"}
	}
	return nil
}

func (s *Store) establish(ctx context.Context, resp *models.TokenResponse, fallback string) (State, error) {
	if resp == nil || resp.AccessToken == "" {
		return s.State(), &AuthError{Reason: fallback + ": no token in response"}
	}

	var user models.User
	if resp.User != nil {
		user = *resp.User
	} else {
		me, err := s.auth.MeWithToken(ctx, resp.AccessToken)
		if err != nil {
			return s.State(), newAuthError(err, fallback)
		}
		user = *me
	}

	creds := models.Credentials{Token: resp.AccessToken, User: user}

	s.mu.Lock()
	if err := s.persist.Save(creds); err != nil {
		s.mu.Unlock()
		return s.State(), fmt.Errorf("save session: %w", err)
	}
	s.state = State{User: &creds.User, Token: creds.Token, Authenticated: true}
	s.mu.Unlock()

	s.log.Info("signed in", zap.String("user", user.Username))
	s.notify()
	return s.State(), nil
}

// Logout clears the session. It never fails; a storage error is logged.
func (s *Store) Logout() {
	s.clear("logout")
}

// Expire is called when the server rejects the token.
func (s *Store) Expire() {
	s.clear("expired")
}

func (s *Store) clear(reason string) {
	s.mu.Lock()
	if err := s.persist.Clear(); err != nil {
		s.log.Warn("failed to clear stored session", zap.String("reason", reason), zap.Error(err))
	}
	wasAuthenticated := s.state.Authenticated
	s.state = State{}
	s.mu.Unlock()

	if wasAuthenticated {
		s.log.Info("session cleared", zap.String("reason", reason))
	}
	s.notify()
}

// tokenExpired reads the exp claim of a JWT without verifying it. Opaque
// tokens and tokens without exp are never considered expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
