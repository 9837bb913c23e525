package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wecr8/damp-backend/pkg/enums"
)

// WaitlistEntry is one email captured for launch notifications. Email is stored lowercased.
type WaitlistEntry struct {
	ID        uuid.UUID            `gorm:"column:id;type:text;primaryKey"`
	Email     string               `gorm:"column:email;not null;uniqueIndex:waitlist_entries_email_key"`
	Name      *string              `gorm:"column:name"`
	Source    enums.WaitlistSource `gorm:"column:source;not null"`
	IP        *string              `gorm:"column:ip"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table name used by migrations.
func (WaitlistEntry) TableName() string { return "waitlist_entries" }
