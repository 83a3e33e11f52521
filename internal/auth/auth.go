// Package auth authenticates users and tells listeners when a session
// starts or ends.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"conti/internal/core"
)

var (
	ErrInvalidInput = errors.New("invalid credentials input")
	ErrEmailInUse   = errors.New("email already registered")
)

type Session struct {
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
	User         core.User `json:"user"`
}

// Gateway is the identity provider used by the HTTP layer.
type Gateway interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	// SignUp may return a session without tokens when the provider requires
	// the email to be confirmed first.
	SignUp(ctx context.Context, email, password, displayName string) (Session, error)
	// SignInWithProvider returns the URL the client must visit to authorize.
	SignInWithProvider(ctx context.Context, provider, redirectURL string) (string, error)
	SignOut(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, email string) error
	// Verify resolves an access token, failing with core.ErrUnauthenticated.
	Verify(ctx context.Context, token string) (core.User, error)
	Subscribe(fn func(*core.User)) (unsubscribe func())
}

// Notifier fans auth state changes out to listeners, synchronously and in
// registration order. The zero value is ready to use.
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners []listener
}

type listener struct {
	id int
	fn func(*core.User)
}

// Subscribe registers fn. The returned func removes it and may be called
// any number of times.
func (n *Notifier) Subscribe(fn func(*core.User)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners = append(n.listeners, listener{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, l := range n.listeners {
				if l.id == id {
					n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify calls every listener with u; nil means signed out. Listeners may
// subscribe or unsubscribe while being notified.
func (n *Notifier) Notify(u *core.User) {
	n.mu.Lock()
	snapshot := append([]listener(nil), n.listeners...)
	n.mu.Unlock()

	for _, l := range snapshot {
		l.fn(u)
	}
}

// Len reports the number of listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
