// Package writer streams analytics event rows into BigQuery.
package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/wecr8/damp-backend/internal/analytics"
	"github.com/wecr8/damp-backend/pkg/bigquery"
)

const (
	defaultBatchSize   = 1
	defaultMaxAttempts = 4
	defaultBaseDelay   = 250 * time.Millisecond
	defaultMaxDelay    = 4 * time.Second
)

type Config struct {
	Table     string
	BatchSize int
	Retry     RetryPolicy
}

// RetryPolicy bounds the exponential backoff around a single insert call.
// MaxAttempts counts the first try.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = max(defaultMaxDelay, p.BaseDelay)
	}
	return p
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	b = retry.WithCappedDuration(p.MaxDelay, b)
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)
}

// Inserter is the slice of the BigQuery client the writer needs.
type Inserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter buffers rows until BatchSize is reached. Calls are
// serialized, so one writer can be shared by concurrent handlers.
type BigQueryWriter struct {
	client    Inserter
	table     string
	batchSize int
	policy    RetryPolicy

	mu      sync.Mutex
	pending []analytics.EventRow
}

func New(client Inserter, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("writer: inserter is required")
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		return nil, errors.New("writer: table is required")
	}
	size := cfg.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	return &BigQueryWriter{
		client:    client,
		table:     table,
		batchSize: size,
		policy:    cfg.Retry.withDefaults(),
	}, nil
}

func (w *BigQueryWriter) Insert(ctx context.Context, row analytics.EventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, row)
	if len(w.pending) < w.batchSize {
		return nil
	}
	return w.drain(ctx)
}

// Flush writes whatever is buffered, ignoring BatchSize.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drain(ctx)
}

// drain empties the buffer whether or not the insert succeeds; a failed
// batch comes back through Pub/Sub redelivery.
func (w *BigQueryWriter) drain(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	rows := make([]any, 0, len(w.pending))
	for i := range w.pending {
		rows = append(rows, &w.pending[i])
	}
	defer func() { w.pending = w.pending[:0] }()

	attempts := 0
	err := retry.Do(ctx, w.policy.backoff(), func(ctx context.Context) error {
		attempts++
		err := w.client.InsertRows(ctx, w.table, rows)
		if bigquery.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("writer: insert %d rows into %s after %d attempts: %w", len(rows), w.table, attempts, err)
	}
	return nil
}
