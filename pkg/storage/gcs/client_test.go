package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wecr8/damp-backend/pkg/config"
)

// fakeBucket speaks just enough of the JSON API: list, media download and
// multipart upload with ifGenerationMatch.
type fakeBucket struct {
	mu          sync.Mutex
	objects     map[string][]byte
	generations map[string]int64
	next        int64
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, generations: map[string]int64{}, next: 1000}
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/o"):
		_, _ = io.WriteString(w, `{"kind":"storage#objects"}`)
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/o/"):
		name := r.URL.Path[strings.Index(r.URL.Path, "/o/")+3:]
		body, ok := f.objects[name]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"No such object"}}`, http.StatusNotFound)
			return
		}
		w.Header().Set("X-Goog-Generation", strconv.FormatInt(f.generations[name], 10))
		_, _ = w.Write(body)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/upload/"):
		f.upload(w, r)
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusTeapot)
	}
}

func (f *fakeBucket) upload(w http.ResponseWriter, r *http.Request) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	parts := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := parts.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var meta struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mediaPart, err := parts.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body, _ := io.ReadAll(mediaPart)

	want, _ := strconv.ParseInt(r.URL.Query().Get("ifGenerationMatch"), 10, 64)
	if f.generations[meta.Name] != want {
		http.Error(w, `{"error":{"code":412,"message":"conditionNotMet"}}`, http.StatusPreconditionFailed)
		return
	}
	f.next++
	f.objects[meta.Name] = body
	f.generations[meta.Name] = f.next
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"name":"`+meta.Name+`","generation":"`+strconv.FormatInt(f.next, 10)+`"}`)
}

func testClient(t *testing.T, h http.Handler, bucket string) (*Client, error) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(context.Background(), config.GCSConfig{BucketName: bucket}, config.GCPConfig{}, nil,
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
}

type waitlistDoc struct {
	Emails []string `json:"emails"`
}

func TestReadWriteJSONWithGenerations(t *testing.T) {
	client, err := testClient(t, newFakeBucket(), "damp-bucket")
	require.NoError(t, err)
	ctx := context.Background()
	const object = "damp-emails/waitlist.json"

	var doc waitlistDoc
	_, err = client.ReadJSON(ctx, object, &doc)
	require.ErrorIs(t, err, ErrObjectNotExist)

	gen, err := client.WriteJSON(ctx, object, waitlistDoc{Emails: []string{"fan@example.com"}}, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1001, gen)

	readGen, err := client.ReadJSON(ctx, object, &doc)
	require.NoError(t, err)
	assert.Equal(t, gen, readGen)
	assert.Equal(t, []string{"fan@example.com"}, doc.Emails)

	_, err = client.WriteJSON(ctx, object, waitlistDoc{}, 0)
	assert.ErrorIs(t, err, ErrPreconditionFailed, "object exists, so generation 0 must lose")

	next, err := client.WriteJSON(ctx, object, waitlistDoc{Emails: []string{"fan@example.com", "b@example.com"}}, gen)
	require.NoError(t, err)
	assert.Greater(t, next, gen)
}

func TestNewClientValidates(t *testing.T) {
	_, err := testClient(t, newFakeBucket(), " ")
	assert.ErrorContains(t, err, "bucket name")

	_, err = testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}), "damp-bucket")
	var apiErr *googleapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
}

func TestReadJSONSurfacesServerErrors(t *testing.T) {
	var fail atomic.Bool
	bucket := newFakeBucket()
	client, err := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, `{"error":{"code":500,"message":"backend exploded"}}`, http.StatusInternalServerError)
			return
		}
		bucket.ServeHTTP(w, r)
	}), "damp-bucket")
	require.NoError(t, err)

	fail.Store(true)
	var doc waitlistDoc
	_, err = client.ReadJSON(context.Background(), "x.json", &doc)
	var apiErr *googleapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Code)
	assert.False(t, errors.Is(err, ErrObjectNotExist))
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.Ping(context.Background()), errNilClient)
	_, err := c.WriteJSON(context.Background(), "x", nil, 0)
	assert.ErrorIs(t, err, errNilClient)
	assert.Empty(t, c.Bucket())
}
