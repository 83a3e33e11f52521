// Package supabase implements auth.Gateway on Supabase Auth (GoTrue).
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	supa "github.com/supabase-community/supabase-go"

	"conti/internal/auth"
	"conti/internal/core"
)

type Gateway struct {
	client   gotrue.Client
	notifier auth.Notifier
}

var _ auth.Gateway = (*Gateway)(nil)

func NewGateway(client *supa.Client) *Gateway {
	return New(client.Auth)
}

func New(client gotrue.Client) *Gateway {
	return &Gateway{client: client}
}

func (g *Gateway) SignIn(_ context.Context, email, password string) (auth.Session, error) {
	resp, err := g.client.SignInWithEmailPassword(strings.TrimSpace(email), password)
	if err != nil {
		return auth.Session{}, fmt.Errorf("%w: %v", core.ErrUnauthenticated, err)
	}
	s := toSession(resp.Session)
	g.notifier.Notify(&s.User)
	return s, nil
}

func (g *Gateway) SignUp(_ context.Context, email, password, displayName string) (auth.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return auth.Session{}, fmt.Errorf("%w: email and password are required", auth.ErrInvalidInput)
	}
	req := types.SignupRequest{Email: email, Password: password}
	if name := strings.TrimSpace(displayName); name != "" {
		req.Data = map[string]interface{}{"display_name": name}
	}

	resp, err := g.client.Signup(req)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already registered") {
			return auth.Session{}, auth.ErrEmailInUse
		}
		return auth.Session{}, fmt.Errorf("sign up: %w", err)
	}

	if resp.AccessToken == "" {
		// confirmation pending: no session yet
		return auth.Session{User: toUser(resp.User)}, nil
	}
	s := toSession(resp.Session)
	g.notifier.Notify(&s.User)
	return s, nil
}

func (g *Gateway) SignInWithProvider(_ context.Context, provider, redirectURL string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "", fmt.Errorf("%w: provider is required", auth.ErrInvalidInput)
	}
	resp, err := g.client.Authorize(types.AuthorizeRequest{Provider: types.Provider(provider)})
	if err != nil {
		return "", fmt.Errorf("authorize %s: %w", provider, err)
	}
	if redirectURL == "" {
		return resp.AuthorizationURL, nil
	}
	sep := "?"
	if strings.Contains(resp.AuthorizationURL, "?") {
		sep = "&"
	}
	return resp.AuthorizationURL + sep + "redirect_to=" + url.QueryEscape(redirectURL), nil
}

func (g *Gateway) SignOut(_ context.Context, token string) error {
	if err := g.client.WithToken(token).Logout(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrUnauthenticated, err)
	}
	g.notifier.Notify(nil)
	return nil
}

func (g *Gateway) ResetPassword(_ context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", auth.ErrInvalidInput)
	}
	if err := g.client.Recover(types.RecoverRequest{Email: email}); err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	return nil
}

func (g *Gateway) Verify(_ context.Context, token string) (core.User, error) {
	if token == "" {
		return core.User{}, core.ErrUnauthenticated
	}
	resp, err := g.client.WithToken(token).GetUser()
	if err != nil {
		return core.User{}, errors.Join(core.ErrUnauthenticated, err)
	}
	return toUser(resp.User), nil
}

func (g *Gateway) Subscribe(fn func(*core.User)) func() {
	return g.notifier.Subscribe(fn)
}

func toSession(s types.Session) auth.Session {
	out := auth.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         toUser(s.User),
	}
	if s.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	return out
}

func toUser(u types.User) core.User {
	return core.User{
		UID:         u.ID.String(),
		Email:       u.Email,
		DisplayName: metaString(u.UserMetadata, "display_name", "full_name", "name"),
		PhotoURL:    metaString(u.UserMetadata, "avatar_url", "picture"),
	}
}

func metaString(meta map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := meta[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
