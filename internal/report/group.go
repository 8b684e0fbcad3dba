package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/mentortrack/internal/account"
	"github.com/zulandar/mentortrack/internal/models"
	"gorm.io/gorm"
)

// GroupOpts holds parameters for creating a product group.
type GroupOpts struct {
	MenteeID    uint
	Name        string
	Description string
	Images      []string
}

// CreateGroup registers a product group for a mentee. Names are unique per mentee.
func CreateGroup(db *gorm.DB, opts GroupOpts) (*models.ProductGroup, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: product group name is required", ErrInvalidInput)
	}
	if _, err := account.RequireRole(db, opts.MenteeID, models.RoleMentee); err != nil {
		return nil, translateAccountErr(err)
	}
	if err := checkNameFree(db, opts.MenteeID, name, 0); err != nil {
		return nil, err
	}

	images := opts.Images
	if images == nil {
		images = []string{}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("report: encode images: %w", err)
	}

	g := models.ProductGroup{
		MenteeID:    opts.MenteeID,
		Name:        name,
		Description: strings.TrimSpace(opts.Description),
		Images:      string(encoded),
	}
	if err := db.Create(&g).Error; err != nil {
		return nil, fmt.Errorf("report: create product group: %w", err)
	}
	return &g, nil
}

// GetGroup retrieves a product group by ID.
func GetGroup(db *gorm.DB, id uint) (*models.ProductGroup, error) {
	var g models.ProductGroup
	if err := db.Where("id = ?", id).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product group %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("report: get product group %d: %w", id, err)
	}
	return &g, nil
}

// ListGroups returns a mentee's registered product groups, oldest first.
func ListGroups(db *gorm.DB, menteeID uint) ([]models.ProductGroup, error) {
	var groups []models.ProductGroup
	if err := db.Where("mentee_id = ?", menteeID).Order("created_at ASC, id ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("report: list product groups: %w", err)
	}
	return groups, nil
}

// RenameGroup changes a group's display name. Historical reports keep their
// association: legacy rows filed under the old name gain the group ID, and
// the cached name on every linked report is refreshed.
func RenameGroup(db *gorm.DB, id uint, newName string) (*models.ProductGroup, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("%w: product group name is required", ErrInvalidInput)
	}

	g, err := GetGroup(db, id)
	if err != nil {
		return nil, err
	}
	if g.Name == newName {
		return g, nil
	}
	if err := checkNameFree(db, g.MenteeID, newName, g.ID); err != nil {
		return nil, err
	}

	oldName := g.Name
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.WeeklyReport{}).
			Where("mentee_id = ? AND product_group_id IS NULL AND product_group_name = ?", g.MenteeID, oldName).
			Update("product_group_id", g.ID).Error; err != nil {
			return fmt.Errorf("backfill legacy reports: %w", err)
		}
		if err := tx.Model(&models.WeeklyReport{}).
			Where("product_group_id = ?", g.ID).
			Update("product_group_name", newName).Error; err != nil {
			return fmt.Errorf("refresh report names: %w", err)
		}
		if err := tx.Model(g).Update("name", newName).Error; err != nil {
			return fmt.Errorf("update group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("report: rename product group %d: %w", id, err)
	}
	g.Name = newName
	return g, nil
}

// DeleteGroup removes a product group from the registry. Its reports are
// kept but no longer appear in progress summaries.
func DeleteGroup(db *gorm.DB, id uint) error {
	result := db.Delete(&models.ProductGroup{}, id)
	if result.Error != nil {
		return fmt.Errorf("report: delete product group %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: product group %d", ErrNotFound, id)
	}
	return nil
}

// GroupImages decodes the stored image list of a group. Malformed data
// yields an empty list.
func GroupImages(g *models.ProductGroup) []string {
	images := []string{}
	if g.Images == "" {
		return images
	}
	if err := json.Unmarshal([]byte(g.Images), &images); err != nil || images == nil {
		return []string{}
	}
	return images
}

func checkNameFree(db *gorm.DB, menteeID uint, name string, exceptID uint) error {
	var count int64
	q := db.Model(&models.ProductGroup{}).Where("mentee_id = ? AND name = ?", menteeID, name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("report: check product group name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: product group %q already exists", ErrInvalidInput, name)
	}
	return nil
}
