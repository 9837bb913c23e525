package votes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wecr8/damp-backend/pkg/enums"
	pkgmongo "github.com/wecr8/damp-backend/pkg/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName holds one document per voter.
const CollectionName = "votes"

type voteDocument struct {
	VoterID   string    `bson:"voter_id"`
	Option    string    `bson:"option"`
	VoteType  string    `bson:"vote_type"`
	UserAgent string    `bson:"user_agent,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoStore relies on a unique index over voter_id for atomicity; call
// EnsureIndexes before serving.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// EnsureIndexes creates the unique voter index. It is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "voter_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("votes_voter_id_key"),
	})
	if err != nil {
		return fmt.Errorf("create votes index: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertIfAbsent(ctx context.Context, rec Record) (bool, *Record, error) {
	_, err := s.coll.InsertOne(ctx, voteDocument{
		VoterID:   rec.VoterID,
		Option:    string(rec.Option),
		VoteType:  string(rec.VoteType),
		UserAgent: rec.UserAgent,
		CreatedAt: rec.CreatedAt.UTC(),
	})
	if err == nil {
		return true, nil, nil
	}
	if !pkgmongo.IsDuplicateKey(err) {
		return false, nil, fmt.Errorf("insert vote: %w", err)
	}
	existing, findErr := s.Find(ctx, rec.VoterID)
	if findErr != nil {
		return false, nil, fmt.Errorf("load existing vote: %w", findErr)
	}
	return false, existing, nil
}

func (s *MongoStore) Find(ctx context.Context, voterID string) (*Record, error) {
	var doc voteDocument
	err := s.coll.FindOne(ctx, bson.M{"voter_id": voterID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoVote
		}
		return nil, err
	}
	return &Record{
		VoterID:   doc.VoterID,
		Option:    enums.VoteOption(doc.Option),
		VoteType:  enums.VoteType(doc.VoteType),
		UserAgent: doc.UserAgent,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *MongoStore) Counts(ctx context.Context) (map[enums.VoteOption]int64, error) {
	cursor, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$option"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	counts := map[enums.VoteOption]int64{}
	for cursor.Next(ctx) {
		var row struct {
			Option string `bson:"_id"`
			Total  int64  `bson:"total"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[enums.VoteOption(row.Option)] = row.Total
	}
	return counts, cursor.Err()
}
