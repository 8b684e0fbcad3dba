package models

import "time"

// WeeklyReport is a mentee's report for one week against one product group.
type WeeklyReport struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement"`
	MenteeID            uint      `gorm:"not null;index"`
	ProductGroupID      *uint     `gorm:"index"`
	ProductGroupName    string    `gorm:"size:200;not null;index"`
	PlanningStage       string    `gorm:"size:64;not null"`
	ProgressItems       string    `gorm:"type:text"`
	ActionsTaken        string    `gorm:"type:text"`
	InsightsConcerns    string    `gorm:"type:text"`
	SelfEvaluation      int       `gorm:"not null"`
	AdditionalResponses string    `gorm:"type:text"` // JSON object keyed by prompt
	WeekStart           time.Time `gorm:"not null;index"`
	ReportDate          time.Time `gorm:"not null;index"`
	CreatedAt           time.Time

	Comments []MentorComment `gorm:"foreignKey:ReportID"`
}

// MentorComment is feedback left by a mentor on a weekly report.
type MentorComment struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ReportID  uint   `gorm:"not null;index"`
	MentorID  uint   `gorm:"not null"`
	Body      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}
