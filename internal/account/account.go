// Package account manages MentorTrack users.
package account

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/zulandar/mentortrack/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("account: not found")
	// ErrInvalidInput is returned when user fields fail validation.
	ErrInvalidInput = errors.New("account: invalid input")
)

// CreateOpts holds parameters for creating a user.
type CreateOpts struct {
	Name     string
	Email    string
	Role     string // admin, mentor, mentee
	MentorID uint   // mentees only; 0 for none
}

// ValidRole reports whether role is a known user role.
func ValidRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleMentor, models.RoleMentee:
		return true
	}
	return false
}

// Create validates and inserts a new user.
func Create(db *gorm.DB, opts CreateOpts) (*models.User, error) {
	opts.Name = strings.TrimSpace(opts.Name)
	opts.Email = strings.ToLower(strings.TrimSpace(opts.Email))
	if opts.Role == "" {
		opts.Role = models.RoleMentee
	}

	if opts.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(opts.Email); err != nil {
		return nil, fmt.Errorf("%w: email %q is not valid", ErrInvalidInput, opts.Email)
	}
	if !ValidRole(opts.Role) {
		return nil, fmt.Errorf("%w: role %q must be admin, mentor or mentee", ErrInvalidInput, opts.Role)
	}

	u := models.User{Name: opts.Name, Email: opts.Email, Role: opts.Role}

	if opts.MentorID != 0 {
		if opts.Role != models.RoleMentee {
			return nil, fmt.Errorf("%w: only mentees can have a mentor", ErrInvalidInput)
		}
		mentor, err := Get(db, opts.MentorID)
		if err != nil {
			return nil, err
		}
		if mentor.Role == models.RoleMentee {
			return nil, fmt.Errorf("%w: user %d is not a mentor", ErrInvalidInput, opts.MentorID)
		}
		u.MentorID = &mentor.ID
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", opts.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("account: check email: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: email %q already registered", ErrInvalidInput, opts.Email)
	}

	if err := db.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("account: create: %w", err)
	}
	return &u, nil
}

// Get retrieves a user by ID.
func Get(db *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := db.Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("account: get %d: %w", id, err)
	}
	return &u, nil
}

// List returns users, optionally filtered by role, ordered by name.
func List(db *gorm.DB, role string) ([]models.User, error) {
	q := db.Model(&models.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Order("name ASC, id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("account: list: %w", err)
	}
	return users, nil
}

// RequireRole loads a user and checks it holds one of roles.
func RequireRole(db *gorm.DB, id uint, roles ...string) (*models.User, error) {
	u, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if u.Role == r {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %d has role %q, want one of %v", ErrInvalidInput, id, u.Role, roles)
}
