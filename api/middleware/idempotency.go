package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wecr8/damp-backend/api/responses"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
	pkgredis "github.com/wecr8/damp-backend/pkg/redis"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	maxIdempotencyKey   = 255
	idempotencyInFlight = 2 * time.Minute
)

// IdempotencyPolicy sets how long a completed response is replayable and
// whether callers must send a key at all.
type IdempotencyPolicy struct {
	TTL      time.Duration
	Required bool
}

var (
	// IdempotencyOptional suits browser forms that may retry on flaky networks.
	IdempotencyOptional = IdempotencyPolicy{TTL: 24 * time.Hour}
	// IdempotencyPayment covers routes that create Stripe objects.
	IdempotencyPayment = IdempotencyPolicy{TTL: 7 * 24 * time.Hour}
	// IdempotencyRequired is for operator mutations that move money or stock.
	IdempotencyRequired = IdempotencyPolicy{TTL: 7 * 24 * time.Hour, Required: true}
)

type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the first completed response for a repeated
// Idempotency-Key. Keys are scoped per caller, method and path. A retry
// that arrives while the first request is still running gets 409, and 5xx
// responses release the key so the client can try again.
func Idempotency(store pkgredis.IdempotencyStore, policy IdempotencyPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case clientKey == "" && policy.Required:
				fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case clientKey == "" || store == nil:
				next.ServeHTTP(w, r)
				return
			case len(clientKey) > maxIdempotencyKey:
				fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			hash := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(strings.Join([]string{UIDFromContext(ctx), r.Method, r.URL.Path}, "|"), clientKey)

			marker, _ := json.Marshal(storedResponse{Pending: true, RequestHash: hash})
			reserved, err := store.SetNX(ctx, key, string(marker), idempotencyInFlight)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
				return
			}
			if !reserved {
				replay(w, r, store, key, hash, fail)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil {
					logg.Error(ctx, "idempotency.release_failed", err)
				}
				return
			}
			done, _ := json.Marshal(storedResponse{
				RequestHash: hash,
				Status:      capture.statusCode(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(ctx, key, string(done), policy.TTL); err != nil {
				logg.Error(ctx, "idempotency.persist_failed", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, hash string, fail func(error)) {
	raw, err := store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) {
		// reservation expired between SetNX and Get
		fail(pkgerrors.New(pkgerrors.CodeIdempotency, "request with this Idempotency-Key is still in progress"))
		return
	}
	if err != nil {
		fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
		return
	}

	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		fail(pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt idempotency record"))
		return
	}
	switch {
	case prior.RequestHash != hash:
		fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case prior.Pending:
		fail(pkgerrors.New(pkgerrors.CodeIdempotency, "request with this Idempotency-Key is still in progress"))
	default:
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(prior.Status)
		_, _ = w.Write(prior.Body)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
