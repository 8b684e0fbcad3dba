package db

import (
	"errors"
	"fmt"

	"github.com/zulandar/mentortrack/internal/config"
	"github.com/zulandar/mentortrack/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sample mentee identity used by the "try it out" flow.
const (
	SampleMenteeName  = "Sample Mentee"
	SampleMenteeEmail = "sample@example.com"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.ProductGroup{},
		&models.WeeklyReport{},
		&models.MentorComment{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedAccounts upserts users from configuration, keyed by email, then links
// mentees to their configured mentor.
func SeedAccounts(db *gorm.DB, accounts []config.AccountConfig) error {
	if len(accounts) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, a := range accounts {
			u := models.User{Name: a.Name, Email: a.Email, Role: a.Role}
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "email"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "role"}),
			}).Create(&u)
			if result.Error != nil {
				return fmt.Errorf("db: seed account %q: %w", a.Email, result.Error)
			}
		}

		for _, a := range accounts {
			if a.Mentor == "" {
				continue
			}
			var mentor models.User
			if err := tx.Where("email = ?", a.Mentor).First(&mentor).Error; err != nil {
				return fmt.Errorf("db: resolve mentor %q for %q: %w", a.Mentor, a.Email, err)
			}
			if err := tx.Model(&models.User{}).Where("email = ?", a.Email).
				Update("mentor_id", mentor.ID).Error; err != nil {
				return fmt.Errorf("db: assign mentor for %q: %w", a.Email, err)
			}
		}
		return nil
	})
}

// EnsureSampleMentee returns the sample mentee, creating it if needed.
// The boolean reports whether a new row was created.
func EnsureSampleMentee(db *gorm.DB) (*models.User, bool, error) {
	var u models.User
	err := db.Where("email = ?", SampleMenteeEmail).First(&u).Error
	if err == nil {
		return &u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("db: look up sample mentee: %w", err)
	}

	u = models.User{Name: SampleMenteeName, Email: SampleMenteeEmail, Role: models.RoleMentee}
	if err := db.Create(&u).Error; err != nil {
		return nil, false, fmt.Errorf("db: create sample mentee: %w", err)
	}
	return &u, true, nil
}
