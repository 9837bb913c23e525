package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a keyset page request. Rows are ordered newest first by (created_at, id).
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type wireCursor struct {
	T  int64     `json:"t"`
	ID uuid.UUID `json:"id"`
}

var errMalformedCursor = errors.New("malformed cursor")

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer asks for one extra row so the caller can tell whether a next page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Trim drops the look-ahead row fetched with LimitWithBuffer and reports whether it existed.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	n := NormalizeLimit(limit)
	if len(rows) > n {
		return rows[:n], true
	}
	return rows, false
}

// EncodeCursor returns an opaque, URL-safe token for c.
func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(wireCursor{T: c.CreatedAt.UTC().UnixNano(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor reverses EncodeCursor. A blank token means the first page (nil, nil).
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedCursor, err)
	}
	var wc wireCursor
	if err := json.Unmarshal(raw, &wc); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedCursor, err)
	}
	if wc.ID == uuid.Nil || wc.T <= 0 {
		return nil, errMalformedCursor
	}
	return &Cursor{CreatedAt: time.Unix(0, wc.T).UTC(), ID: wc.ID}, nil
}
