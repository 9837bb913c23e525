package waitlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wecr8/damp-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps entries in waitlist_entries; waitlist_entries_email_key enforces uniqueness.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, entry Entry) (bool, int64, error) {
	var (
		inserted bool
		count    int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.WaitlistEntry{
			ID:        uuid.New(),
			Email:     entry.Email,
			Name:      optional(entry.Name),
			Source:    entry.Source,
			IP:        optional(entry.IP),
			CreatedAt: entry.Timestamp,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("insert waitlist entry: %w", res.Error)
		}
		inserted = res.RowsAffected == 1

		if err := tx.Model(&models.WaitlistEntry{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count waitlist entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return inserted, count, nil
}

func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
