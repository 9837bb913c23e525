package votes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wecr8/damp-backend/pkg/db/models"
	"github.com/wecr8/damp-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps votes in the votes table; votes_voter_id_key enforces one vote per voter.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) InsertIfAbsent(ctx context.Context, rec Record) (bool, *Record, error) {
	var (
		inserted bool
		existing *Record
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Vote{
			ID:        uuid.New(),
			VoterID:   rec.VoterID,
			Option:    rec.Option,
			VoteType:  rec.VoteType,
			UserAgent: rec.UserAgent,
			CreatedAt: rec.CreatedAt,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "voter_id"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("insert vote: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			inserted = true
			return nil
		}

		var stored models.Vote
		if err := tx.Where("voter_id = ?", rec.VoterID).Take(&stored).Error; err != nil {
			return fmt.Errorf("load existing vote: %w", err)
		}
		existing = fromModel(stored)
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return inserted, existing, nil
}

func (s *SQLStore) Find(ctx context.Context, voterID string) (*Record, error) {
	var stored models.Vote
	err := s.db.WithContext(ctx).Where("voter_id = ?", voterID).Take(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoVote
		}
		return nil, err
	}
	return fromModel(stored), nil
}

func (s *SQLStore) Counts(ctx context.Context) (map[enums.VoteOption]int64, error) {
	var rows []struct {
		Option enums.VoteOption
		Total  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("option, COUNT(*) AS total").
		Group("option").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.VoteOption]int64, len(rows))
	for _, row := range rows {
		counts[row.Option] = row.Total
	}
	return counts, nil
}

func fromModel(v models.Vote) *Record {
	return &Record{
		VoterID:   v.VoterID,
		Option:    v.Option,
		VoteType:  v.VoteType,
		UserAgent: v.UserAgent,
		CreatedAt: v.CreatedAt,
	}
}
