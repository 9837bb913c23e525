package auth

import (
	"context"
	"sync"
)

// Observer receives the current user, or nil when signed out.
type Observer func(*User)

// Client holds one process's signed-in session and fans state changes out to
// observers. Observers run synchronously on the caller's goroutine and see
// changes in the order they were made, so they must not sign in or out
// themselves.
type Client struct {
	provider Provider

	// notifyMu orders state changes together with their delivery.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	session   *Session
	observers map[uint64]Observer
	nextID    uint64
}

func NewClient(provider Provider) *Client {
	if provider == nil {
		provider = NotConfigured()
	}
	return &Client{provider: provider, observers: map[uint64]Observer{}}
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*User, error) {
	cleaned, err := cleanEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	sess, err := c.provider.SignUp(ctx, cleaned, password)
	if err != nil {
		return nil, err
	}
	c.setSession(sess)
	return copyUser(&sess.User), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	cleaned, err := cleanEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrWrongPassword
	}
	sess, err := c.provider.SignIn(ctx, cleaned, password)
	if err != nil {
		return nil, err
	}
	c.setSession(sess)
	return copyUser(&sess.User), nil
}

// SignOut clears local state. Observers are notified even if no one was signed in.
func (c *Client) SignOut() {
	c.setSession(nil)
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	cleaned, err := cleanEmail(email)
	if err != nil {
		return err
	}
	return c.provider.SendPasswordReset(ctx, cleaned)
}

// UpdateProfile renames the signed-in user and notifies observers.
func (c *Client) UpdateProfile(ctx context.Context, displayName string) (*User, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return nil, ErrUserNotFound
	}

	updated, err := c.provider.UpdateProfile(ctx, sess.IDToken, cleanDisplayName(displayName))
	if err != nil {
		return nil, err
	}

	c.commit(func(cur *Session) (*Session, bool) {
		if cur != sess {
			// signed out or switched accounts while the call was in flight
			return nil, false
		}
		next := *sess
		next.User.DisplayName = updated.DisplayName
		return &next, true
	})
	return updated, nil
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return copyUser(&c.session.User)
}

// IDToken returns the signed-in user's ID token, or "".
func (c *Client) IDToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.IDToken
}

// OnAuthStateChanged calls fn with the current user immediately and after every
// sign-in or sign-out. The returned function unsubscribes and may be called more than once.
func (c *Client) OnAuthStateChanged(fn Observer) (unsubscribe func()) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	var current *User
	if c.session != nil {
		current = copyUser(&c.session.User)
	}
	c.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) setSession(sess *Session) {
	c.commit(func(*Session) (*Session, bool) { return sess, true })
}

// commit swaps the session when next allows it and delivers the new state
// before any later change can start.
func (c *Client) commit(next func(cur *Session) (*Session, bool)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	sess, ok := next(c.session)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.session = sess
	observers := make([]Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		var u *User
		if sess != nil {
			u = copyUser(&sess.User)
		}
		fn(u)
	}
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
