package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/khangtgr/assessly/internal/model"
)

type BlueprintRepository interface {
	Create(blueprint *model.Blueprint) error
	FindByID(id uuid.UUID) (*model.Blueprint, error)
	FindByIDWithSections(id uuid.UUID) (*model.Blueprint, error)
	FindAllWithItemCount() ([]BlueprintSummary, error)
	Update(blueprint *model.Blueprint) error
	UpdateStatus(id uuid.UUID, status string) error
}

// BlueprintSummary is the list-view projection: metadata plus item count,
// without loading every section.
type BlueprintSummary struct {
	model.Blueprint
	ItemCount int
}

type blueprintRepository struct {
	db *gorm.DB
}

func NewBlueprintRepository(db *gorm.DB) BlueprintRepository {
	return &blueprintRepository{db: db}
}

func (r *blueprintRepository) Create(blueprint *model.Blueprint) error {
	// Create with associations persists sections and items in one pass.
	return r.db.Create(blueprint).Error
}

func (r *blueprintRepository) FindByID(id uuid.UUID) (*model.Blueprint, error) {
	var blueprint model.Blueprint
	if err := r.db.First(&blueprint, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, model.ErrBlueprintNotFound)
	}
	return &blueprint, nil
}

func (r *blueprintRepository) FindByIDWithSections(id uuid.UUID) (*model.Blueprint, error) {
	var blueprint model.Blueprint
	err := r.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.position ASC")
		}).
		Preload("Sections.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("items.position ASC")
		}).
		First(&blueprint, "id = ?", id).Error
	if err != nil {
		return nil, mapNotFound(err, model.ErrBlueprintNotFound)
	}
	return &blueprint, nil
}

func (r *blueprintRepository) FindAllWithItemCount() ([]BlueprintSummary, error) {
	var results []BlueprintSummary
	err := r.db.Model(&model.Blueprint{}).
		Select("blueprints.*, (SELECT COUNT(*) FROM items JOIN sections ON items.section_id = sections.id WHERE sections.blueprint_id = blueprints.id AND items.deleted_at IS NULL) as item_count").
		Order("blueprints.created_at DESC").
		Scan(&results).Error
	return results, err
}

func (r *blueprintRepository) Update(blueprint *model.Blueprint) error {
	return r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(blueprint).Error
}

func (r *blueprintRepository) UpdateStatus(id uuid.UUID, status string) error {
	result := r.db.Model(&model.Blueprint{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrBlueprintNotFound
	}
	return nil
}

func mapNotFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
