package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wecr8/damp-backend/pkg/enums"
)

// Vote is the single, final product-preference choice for one voter identity.
type Vote struct {
	ID        uuid.UUID        `gorm:"column:id;type:text;primaryKey"`
	VoterID   string           `gorm:"column:voter_id;not null;uniqueIndex:votes_voter_id_key"`
	Option    enums.VoteOption `gorm:"column:option;not null;index:idx_votes_option"`
	VoteType  enums.VoteType   `gorm:"column:vote_type;not null"`
	UserAgent string           `gorm:"column:user_agent"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table name used by migrations.
func (Vote) TableName() string { return "votes" }
