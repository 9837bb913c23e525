// Package bigquery wraps the BigQuery client around the single domain events
// table the analytics worker streams into.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/gcp"
	"github.com/wecr8/damp-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var errNilClient = errors.New("bigquery: client not initialized")

type Client struct {
	bq     *bigquery.Client
	events *bigquery.Table
}

// NewClient fails fast when the dataset or events table is missing; the
// worker never creates schema on its own.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	project := strings.TrimSpace(gcpCfg.ProjectID)
	dataset := strings.TrimSpace(cfg.Dataset)
	table := strings.TrimSpace(cfg.EventsTable)
	switch {
	case project == "":
		return nil, errors.New("bigquery: gcp project id is required")
	case dataset == "" || table == "":
		return nil, errors.New("bigquery: dataset and events table are required")
	}

	bq, err := bigquery.NewClient(ctx, project, append(gcp.ClientOptions(gcpCfg), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: new client: %w", err)
	}
	c := &Client{bq: bq, events: bq.Dataset(dataset).Table(table)}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	logg.Info(logg.WithField(ctx, "table", c.FullTableName()), "bigquery ready")
	return c, nil
}

// EventsTable is the bare table id, e.g. "domain_events".
func (c *Client) EventsTable() string {
	if c == nil || c.events == nil {
		return ""
	}
	return c.events.TableID
}

// FullTableName is the backtick-free project.dataset.table form used in SQL.
func (c *Client) FullTableName() string {
	if c == nil || c.events == nil {
		return ""
	}
	return c.events.ProjectID + "." + c.events.DatasetID + "." + c.events.TableID
}

// Ping reads the events table metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.events == nil {
		return errNilClient
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.events.Metadata(ctx); err != nil {
		if gcp.IsNotFound(err) {
			return fmt.Errorf("bigquery: table %s does not exist", c.FullTableName())
		}
		return fmt.Errorf("bigquery: read %s metadata: %w", c.FullTableName(), err)
	}
	return nil
}

// InsertRows streams rows into table, or into the events table when table
// is empty. Rows should implement bigquery.ValueSaver to carry insert ids.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.bq == nil {
		return errNilClient
	}
	if len(rows) == 0 {
		return nil
	}
	target := c.events
	if table = strings.TrimSpace(table); table != "" && table != target.TableID {
		target = c.bq.DatasetInProject(target.ProjectID, target.DatasetID).Table(table)
	}
	return target.Inserter().Put(ctx, rows)
}

// EventCountsSince groups events by type for a quick pipeline sanity check.
func (c *Client) EventCountsSince(ctx context.Context, since time.Time) (map[string]int64, error) {
	if c == nil || c.bq == nil {
		return nil, errNilClient
	}
	q := c.bq.Query("SELECT event_type, COUNT(*) AS n FROM `" + c.FullTableName() + "`" +
		" WHERE occurred_at >= @since GROUP BY event_type")
	q.Parameters = []bigquery.QueryParameter{{Name: "since", Value: since.UTC()}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: count events: %w", err)
	}
	counts := make(map[string]int64)
	for {
		var row struct {
			EventType string `bigquery:"event_type"`
			N         int64  `bigquery:"n"`
		}
		switch err := it.Next(&row); {
		case errors.Is(err, iterator.Done):
			return counts, nil
		case err != nil:
			return nil, fmt.Errorf("bigquery: read counts: %w", err)
		}
		counts[row.EventType] = row.N
	}
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}
