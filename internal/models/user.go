package models

import "time"

// User roles.
const (
	RoleAdmin  = "admin"
	RoleMentor = "mentor"
	RoleMentee = "mentee"
)

// User is an account in MentorTrack. Mentees may be assigned a mentor.
type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:100;not null"`
	Email     string `gorm:"size:120;not null;uniqueIndex"`
	Role      string `gorm:"size:16;default:mentee;index"`
	MentorID  *uint  `gorm:"index"`
	CreatedAt time.Time

	Mentor *User `gorm:"foreignKey:MentorID"`
}
