// Package memory is an in-process auth.Gateway with bcrypt password hashes
// and opaque session tokens.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"conti/internal/auth"
	"conti/internal/core"
)

const (
	minPasswordLen = 6
	sessionTTL     = 24 * time.Hour
)

type account struct {
	user core.User
	hash []byte
}

type session struct {
	uid       string
	expiresAt time.Time
}

type Gateway struct {
	mu       sync.Mutex
	accounts map[string]*account // by lower-cased email
	sessions map[string]session
	resets   map[string]int
	cost     int
	now      func() time.Time
	notifier auth.Notifier
}

var _ auth.Gateway = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{
		accounts: make(map[string]*account),
		sessions: make(map[string]session),
		resets:   make(map[string]int),
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// WithCost lowers the bcrypt cost, for tests.
func (g *Gateway) WithCost(cost int) *Gateway {
	g.cost = cost
	return g
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email", auth.ErrInvalidInput)
	}
	return email, nil
}

func (g *Gateway) SignUp(_ context.Context, email, password, displayName string) (auth.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return auth.Session{}, err
	}
	if len(password) < minPasswordLen {
		return auth.Session{}, fmt.Errorf("%w: password must be at least %d characters", auth.ErrInvalidInput, minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return auth.Session{}, fmt.Errorf("hash password: %w", err)
	}

	g.mu.Lock()
	if _, ok := g.accounts[email]; ok {
		g.mu.Unlock()
		return auth.Session{}, auth.ErrEmailInUse
	}
	acc := &account{
		user: core.User{UID: uuid.NewString(), Email: email, DisplayName: strings.TrimSpace(displayName)},
		hash: hash,
	}
	g.accounts[email] = acc
	s := g.startSession(acc.user)
	g.mu.Unlock()

	g.notifier.Notify(&s.User)
	return s, nil
}

func (g *Gateway) SignIn(_ context.Context, email, password string) (auth.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	g.mu.Lock()
	acc, ok := g.accounts[email]
	g.mu.Unlock()
	if !ok {
		return auth.Session{}, fmt.Errorf("%w: invalid email or password", core.ErrUnauthenticated)
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return auth.Session{}, fmt.Errorf("%w: invalid email or password", core.ErrUnauthenticated)
	}

	g.mu.Lock()
	s := g.startSession(acc.user)
	g.mu.Unlock()

	g.notifier.Notify(&s.User)
	return s, nil
}

// startSession must be called with g.mu held.
func (g *Gateway) startSession(u core.User) auth.Session {
	token := newToken()
	expires := g.now().Add(sessionTTL)
	g.sessions[token] = session{uid: u.UID, expiresAt: expires}
	return auth.Session{AccessToken: token, ExpiresAt: expires, User: u}
}

func (g *Gateway) SignInWithProvider(_ context.Context, provider, redirectURL string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "", fmt.Errorf("%w: provider is required", auth.ErrInvalidInput)
	}
	q := url.Values{"provider": {provider}}
	if redirectURL != "" {
		q.Set("redirect_to", redirectURL)
	}
	return "https://auth.local/authorize?" + q.Encode(), nil
}

func (g *Gateway) SignOut(_ context.Context, token string) error {
	g.mu.Lock()
	_, ok := g.sessions[token]
	delete(g.sessions, token)
	g.mu.Unlock()
	if !ok {
		return core.ErrUnauthenticated
	}
	g.notifier.Notify(nil)
	return nil
}

// ResetPassword records the request. Unknown addresses succeed silently.
func (g *Gateway) ResetPassword(_ context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.accounts[email]; ok {
		g.resets[email]++
	}
	return nil
}

// ResetRequests returns how many resets were requested for email.
func (g *Gateway) ResetRequests(email string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resets[strings.ToLower(strings.TrimSpace(email))]
}

func (g *Gateway) Verify(_ context.Context, token string) (core.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[token]
	if !ok {
		return core.User{}, core.ErrUnauthenticated
	}
	if g.now().After(s.expiresAt) {
		delete(g.sessions, token)
		return core.User{}, fmt.Errorf("%w: session expired", core.ErrUnauthenticated)
	}
	for _, acc := range g.accounts {
		if acc.user.UID == s.uid {
			return acc.user, nil
		}
	}
	return core.User{}, core.ErrUnauthenticated
}

func (g *Gateway) Subscribe(fn func(*core.User)) func() {
	return g.notifier.Subscribe(fn)
}

func newToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random token: %v", err))
	}
	return hex.EncodeToString(b)
}
