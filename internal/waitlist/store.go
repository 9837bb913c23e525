package waitlist

import (
	"context"
	"time"

	"github.com/wecr8/damp-backend/pkg/enums"
)

// Entry is one stored signup.
type Entry struct {
	Email     string               `json:"email"`
	Name      string               `json:"name,omitempty"`
	Source    enums.WaitlistSource `json:"source"`
	IP        string               `json:"ip,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Store persists entries keyed by lowercased email.
type Store interface {
	// Insert stores entry unless the email is already present and returns the
	// entry count after the call.
	Insert(ctx context.Context, entry Entry) (inserted bool, count int64, err error)
	Count(ctx context.Context) (int64, error)
}
