package auth

import (
	"context"
	"sync"
)

// fakeProvider is an in-memory account table.
type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]string
	names    map[string]string
	resets   []string
	failWith error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]string{}, names: map[string]string{}}
}

func (f *fakeProvider) SignUp(_ context.Context, email, password string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if _, ok := f.accounts[email]; ok {
		return nil, ErrEmailInUse
	}
	f.accounts[email] = password
	return f.session(email), nil
}

func (f *fakeProvider) SignIn(_ context.Context, email, password string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	stored, ok := f.accounts[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	if stored != password {
		return nil, ErrWrongPassword
	}
	return f.session(email), nil
}

func (f *fakeProvider) SendPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeProvider) UpdateProfile(_ context.Context, idToken, displayName string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := idToken[len("token-"):]
	f.names[email] = displayName
	return &User{UID: "uid-" + email, Email: email, DisplayName: displayName}, nil
}

func (f *fakeProvider) Lookup(_ context.Context, idToken string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := idToken[len("token-"):]
	if _, ok := f.accounts[email]; !ok {
		return nil, ErrUserNotFound
	}
	return &User{UID: "uid-" + email, Email: email, DisplayName: f.names[email]}, nil
}

func (f *fakeProvider) session(email string) *Session {
	return &Session{
		User:    User{UID: "uid-" + email, Email: email, DisplayName: f.names[email]},
		IDToken: "token-" + email,
	}
}
