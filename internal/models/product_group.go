package models

import "time"

// ProductGroup is a line of merchandise a mentee is taking through the
// procurement pipeline.
type ProductGroup struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	MenteeID    uint   `gorm:"not null;index;uniqueIndex:idx_mentee_group_name"`
	Name        string `gorm:"size:200;not null;uniqueIndex:idx_mentee_group_name"`
	Description string `gorm:"type:text"`
	Images      string `gorm:"type:text"` // JSON array of image paths
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
