package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/khangtgr/assessly/internal/model"
)

type AttemptRepository interface {
	Create(attempt *model.Attempt) error
	FindByID(id uuid.UUID) (*model.Attempt, error)
	FindByIDWithBlueprint(id uuid.UUID) (*model.Attempt, error)
	SaveResponse(attemptID uuid.UUID, itemID string, response model.StoredResponse) error
	RecordIntegrityEvent(event *model.IntegrityEvent) error
	Submit(attemptID uuid.UUID, submittedAt time.Time, timeSpentSeconds int, fullscreenExits, tabSwitches int, evaluate func(*model.Attempt) *model.Evaluation) (*model.Evaluation, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.Attempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) FindByID(id uuid.UUID) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.First(&attempt, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, model.ErrAttemptNotFound)
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDWithBlueprint(id uuid.UUID) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.
		Preload("Blueprint").
		Preload("Blueprint.Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.position ASC")
		}).
		Preload("Blueprint.Sections.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("items.position ASC")
		}).
		First(&attempt, "id = ?", id).Error
	if err != nil {
		return nil, mapNotFound(err, model.ErrAttemptNotFound)
	}
	return &attempt, nil
}

// SaveResponse upserts one answer under last-write-wins semantics. The
// attempt row is locked for the duration so concurrent saves for the same
// item serialize; a stored sequence number at or above the incoming one
// means the incoming save is stale and is silently ignored.
func (r *attemptRepository) SaveResponse(attemptID uuid.UUID, itemID string, response model.StoredResponse) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var attempt model.Attempt
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&attempt, "id = ?", attemptID).Error
		if err != nil {
			return mapNotFound(err, model.ErrAttemptNotFound)
		}
		if attempt.Status == model.AttemptSubmitted {
			return model.ErrStaleAttempt
		}
		if attempt.Responses == nil {
			attempt.Responses = model.ResponseMap{}
		}
		if existing, ok := attempt.Responses[itemID]; ok && existing.Seq >= response.Seq {
			return nil
		}
		attempt.Responses[itemID] = response
		return tx.Model(&attempt).Update("responses", attempt.Responses).Error
	})
}

// RecordIntegrityEvent appends the event row and bumps the matching counter
// on the attempt in one transaction. Events against a submitted attempt are
// dropped without error; late signals carry no weight after finalization.
func (r *attemptRepository) RecordIntegrityEvent(event *model.IntegrityEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var attempt model.Attempt
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&attempt, "id = ?", event.AttemptID).Error
		if err != nil {
			return mapNotFound(err, model.ErrAttemptNotFound)
		}
		if attempt.Status == model.AttemptSubmitted {
			return nil
		}
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		var column string
		switch event.Type {
		case model.EventFullscreenExit:
			column = "fullscreen_exits"
		case model.EventTabSwitch:
			column = "tab_switches"
		default:
			return nil
		}
		return tx.Model(&attempt).Update(column, gorm.Expr(column+" + 1")).Error
	})
}

// Submit finalizes the attempt and persists the evaluation produced by
// evaluate in the same transaction: a failed insert rolls the status flip
// back, so the attempt stays open and a retry scores it again. Submitting
// an already-submitted attempt returns model.ErrStaleAttempt so callers can
// treat the retry as converged.
func (r *attemptRepository) Submit(attemptID uuid.UUID, submittedAt time.Time, timeSpentSeconds int, fullscreenExits, tabSwitches int, evaluate func(*model.Attempt) *model.Evaluation) (*model.Evaluation, error) {
	var evaluation *model.Evaluation
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var attempt model.Attempt
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&attempt, "id = ?", attemptID).Error
		if err != nil {
			return mapNotFound(err, model.ErrAttemptNotFound)
		}
		if attempt.Status == model.AttemptSubmitted {
			return model.ErrStaleAttempt
		}
		err = tx.
			Preload("Sections", func(db *gorm.DB) *gorm.DB {
				return db.Order("sections.position ASC")
			}).
			Preload("Sections.Items", func(db *gorm.DB) *gorm.DB {
				return db.Order("items.position ASC")
			}).
			First(&attempt.Blueprint, "id = ?", attempt.BlueprintID).Error
		if err != nil {
			return mapNotFound(err, model.ErrBlueprintNotFound)
		}
		// Client counters can only add signals the event channel dropped.
		if fullscreenExits < attempt.FullscreenExits {
			fullscreenExits = attempt.FullscreenExits
		}
		if tabSwitches < attempt.TabSwitches {
			tabSwitches = attempt.TabSwitches
		}
		if err := tx.Model(&attempt).Updates(map[string]any{
			"status":             model.AttemptSubmitted,
			"submitted_at":       submittedAt,
			"time_spent_seconds": timeSpentSeconds,
			"fullscreen_exits":   fullscreenExits,
			"tab_switches":       tabSwitches,
		}).Error; err != nil {
			return err
		}
		attempt.Status = model.AttemptSubmitted
		attempt.SubmittedAt = &submittedAt
		attempt.TimeSpentSeconds = &timeSpentSeconds
		attempt.FullscreenExits = fullscreenExits
		attempt.TabSwitches = tabSwitches
		evaluation = evaluate(&attempt)
		return tx.Create(evaluation).Error
	})
	if err != nil {
		return nil, err
	}
	return evaluation, nil
}
