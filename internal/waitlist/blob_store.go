package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wecr8/damp-backend/pkg/storage/gcs"
)

const (
	DefaultObjectName = "waitlist.json"
	maxWriteAttempts  = 5
)

// ErrContention is returned when every compare-and-set attempt lost a race.
var ErrContention = errors.New("waitlist: blob write contention")

// JSONObjects reads and conditionally writes JSON objects; *gcs.Client satisfies it.
type JSONObjects interface {
	ReadJSON(ctx context.Context, object string, dst any) (int64, error)
	WriteJSON(ctx context.Context, object string, src any, ifGenerationMatch int64) (int64, error)
}

type document struct {
	Emails      []Entry   `json:"emails"`
	Count       int64     `json:"count"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// BlobStore keeps the whole waitlist in one JSON object guarded by generation preconditions.
type BlobStore struct {
	objects JSONObjects
	object  string
	now     func() time.Time
}

func NewBlobStore(objects JSONObjects, object string) *BlobStore {
	if object == "" {
		object = DefaultObjectName
	}
	return &BlobStore{objects: objects, object: object, now: time.Now}
}

func (b *BlobStore) Insert(ctx context.Context, entry Entry) (bool, int64, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		doc, generation, err := b.read(ctx)
		if err != nil {
			return false, 0, err
		}
		for _, existing := range doc.Emails {
			if existing.Email == entry.Email {
				return false, doc.count(), nil
			}
		}

		doc.Emails = append(doc.Emails, entry)
		doc.Count = int64(len(doc.Emails))
		doc.LastUpdated = b.now().UTC()

		_, err = b.objects.WriteJSON(ctx, b.object, doc, generation)
		if errors.Is(err, gcs.ErrPreconditionFailed) {
			continue
		}
		if err != nil {
			return false, 0, fmt.Errorf("write waitlist object: %w", err)
		}
		return true, doc.Count, nil
	}
	return false, 0, ErrContention
}

func (b *BlobStore) Count(ctx context.Context) (int64, error) {
	doc, _, err := b.read(ctx)
	if err != nil {
		return 0, err
	}
	return doc.count(), nil
}

// read returns generation 0 for a missing object so the first write only succeeds if it is still absent.
func (b *BlobStore) read(ctx context.Context) (document, int64, error) {
	var doc document
	generation, err := b.objects.ReadJSON(ctx, b.object, &doc)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return document{}, 0, nil
	}
	if err != nil {
		return document{}, 0, fmt.Errorf("read waitlist object: %w", err)
	}
	return doc, generation, nil
}

func (d document) count() int64 {
	if d.Count > 0 {
		return d.Count
	}
	return int64(len(d.Emails))
}
