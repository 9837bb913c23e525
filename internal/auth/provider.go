package auth

import (
	"context"
	"strconv"

	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/firebase"
)

// User is the account view shared by the HTTP surface and the stateful client.
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

// Session is a signed-in user plus the provider tokens.
type Session struct {
	User         User   `json:"user"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Provider is the identity backend capability. Errors are already normalized.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SendPasswordReset(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, idToken, displayName string) (*User, error)
	Lookup(ctx context.Context, idToken string) (*User, error)
}

// identityToolkit is the slice of *firebase.Client used here.
type identityToolkit interface {
	SignUp(ctx context.Context, email, password string) (*firebase.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*firebase.Session, error)
	SendPasswordResetEmail(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, idToken, displayName string) (*firebase.User, error)
	Lookup(ctx context.Context, idToken string) (*firebase.User, error)
}

// NewProvider returns the Firebase provider when an API key is configured and
// the not-configured provider otherwise.
func NewProvider(cfg config.FirebaseConfig, opts ...firebase.Option) (Provider, error) {
	if !cfg.Configured() {
		return NotConfigured(), nil
	}
	client, err := firebase.NewClient(cfg.APIKey, opts...)
	if err != nil {
		return nil, err
	}
	return &firebaseProvider{api: client}, nil
}

type firebaseProvider struct {
	api identityToolkit
}

func (p *firebaseProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	sess, err := p.api.SignUp(ctx, email, password)
	if err != nil {
		return nil, normalize(err)
	}
	return toSession(sess), nil
}

func (p *firebaseProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	sess, err := p.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, normalize(err)
	}
	return toSession(sess), nil
}

func (p *firebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	return normalize(p.api.SendPasswordResetEmail(ctx, email))
}

func (p *firebaseProvider) UpdateProfile(ctx context.Context, idToken, displayName string) (*User, error) {
	u, err := p.api.UpdateProfile(ctx, idToken, displayName)
	if err != nil {
		return nil, normalize(err)
	}
	return toUser(u), nil
}

func (p *firebaseProvider) Lookup(ctx context.Context, idToken string) (*User, error) {
	u, err := p.api.Lookup(ctx, idToken)
	if err != nil {
		return nil, normalize(err)
	}
	return toUser(u), nil
}

type notConfigured struct{}

// NotConfigured returns a Provider whose every call fails with ErrNotInitialized.
func NotConfigured() Provider { return notConfigured{} }

func (notConfigured) SignUp(context.Context, string, string) (*Session, error) {
	return nil, ErrNotInitialized
}

func (notConfigured) SignIn(context.Context, string, string) (*Session, error) {
	return nil, ErrNotInitialized
}

func (notConfigured) SendPasswordReset(context.Context, string) error { return ErrNotInitialized }

func (notConfigured) UpdateProfile(context.Context, string, string) (*User, error) {
	return nil, ErrNotInitialized
}

func (notConfigured) Lookup(context.Context, string) (*User, error) { return nil, ErrNotInitialized }

func toSession(s *firebase.Session) *Session {
	expires, _ := strconv.Atoi(s.ExpiresIn)
	return &Session{
		User: User{
			UID:         s.LocalID,
			Email:       s.Email,
			DisplayName: s.DisplayName,
		},
		IDToken:      s.IDToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    expires,
	}
}

func toUser(u *firebase.User) *User {
	return &User{
		UID:           u.LocalID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		EmailVerified: u.EmailVerified,
	}
}
