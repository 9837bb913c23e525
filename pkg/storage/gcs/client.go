// Package gcs stores small JSON documents in one Cloud Storage bucket with
// generation preconditions, which is all the blob-backed waitlist needs.
package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/gcp"
	"github.com/wecr8/damp-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

var (
	ErrObjectNotExist     = errors.New("gcs: object does not exist")
	ErrPreconditionFailed = errors.New("gcs: generation precondition failed")

	errNilClient = errors.New("gcs: client not initialized")
)

type Client struct {
	objects *storage.ObjectsService
	bucket  string
}

// NewClient authenticates with the shared GCP credentials and checks that
// objects in the bucket can be listed. Extra options are appended last.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcpCfg config.GCPConfig, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errors.New("gcs: bucket name is required")
	}

	all := append(gcp.ClientOptions(gcpCfg), option.WithScopes(storage.DevstorageReadWriteScope))
	svc, err := storage.NewService(ctx, append(all, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create service: %w", err)
	}
	c := &Client{objects: svc.Objects, bucket: bucket}

	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	logg.Info(logg.WithField(ctx, "bucket", bucket), "gcs client initialized")
	return c, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Close is a no-op; the REST service holds no connections of its own.
func (c *Client) Close() error { return nil }

// Ping needs storage.objects.list on the bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.objects == nil {
		return errNilClient
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.objects.List(c.bucket).MaxResults(1).Fields("items/name").Context(ctx).Do(); err != nil {
		return fmt.Errorf("gcs: list gs://%s: %w", c.bucket, err)
	}
	return nil
}

// ReadJSON decodes the object into dst and returns the generation it read.
func (c *Client) ReadJSON(ctx context.Context, object string, dst any) (int64, error) {
	if c == nil || c.objects == nil {
		return 0, errNilClient
	}
	resp, err := c.objects.Get(c.bucket, object).Context(ctx).Download()
	if err != nil {
		if hasCode(err, http.StatusNotFound) {
			return 0, ErrObjectNotExist
		}
		return 0, fmt.Errorf("gcs: read %s: %w", object, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var generation int64
	if _, err := fmt.Sscan(resp.Header.Get("X-Goog-Generation"), &generation); err != nil {
		return 0, fmt.Errorf("gcs: read %s: generation header: %w", object, err)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return 0, fmt.Errorf("gcs: decode %s: %w", object, err)
	}
	return generation, nil
}

// WriteJSON replaces the object only while its live generation equals
// ifGenerationMatch; zero means the object must not exist yet. It returns
// the generation written.
func (c *Client) WriteJSON(ctx context.Context, object string, src any, ifGenerationMatch int64) (int64, error) {
	if c == nil || c.objects == nil {
		return 0, errNilClient
	}
	body, err := json.Marshal(src)
	if err != nil {
		return 0, fmt.Errorf("gcs: encode %s: %w", object, err)
	}

	obj, err := c.objects.Insert(c.bucket, &storage.Object{Name: object, ContentType: "application/json"}).
		Media(bytes.NewReader(body), googleapi.ContentType("application/json")).
		IfGenerationMatch(ifGenerationMatch).
		Context(ctx).
		Do()
	switch {
	case hasCode(err, http.StatusPreconditionFailed):
		return 0, ErrPreconditionFailed
	case err != nil:
		return 0, fmt.Errorf("gcs: write %s: %w", object, err)
	}
	return obj.Generation, nil
}

func hasCode(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
