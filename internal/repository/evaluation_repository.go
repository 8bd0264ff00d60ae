package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/khangtgr/assessly/internal/model"
)

type EvaluationRepository interface {
	CreateBatch(evaluations []*model.Evaluation) error
	FindByID(id uuid.UUID) (*model.Evaluation, error)
	FindByBatch(batchID uuid.UUID) ([]model.Evaluation, error)
	FindLatestBySubject(kind model.SubjectKind, subjectID string) (*model.Evaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) CreateBatch(evaluations []*model.Evaluation) error {
	if len(evaluations) == 0 {
		return nil
	}
	return r.db.Create(evaluations).Error
}

func (r *evaluationRepository) FindByID(id uuid.UUID) (*model.Evaluation, error) {
	var evaluation model.Evaluation
	if err := r.db.First(&evaluation, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, model.ErrEvaluationNotFound)
	}
	return &evaluation, nil
}

func (r *evaluationRepository) FindByBatch(batchID uuid.UUID) ([]model.Evaluation, error) {
	var evaluations []model.Evaluation
	err := r.db.Where("batch_id = ?", batchID).Order("rank ASC").Find(&evaluations).Error
	return evaluations, err
}

// FindLatestBySubject returns the most recent evaluation for a subject.
// Re-scoring appends rows, so latest-by-created-at is the current verdict.
func (r *evaluationRepository) FindLatestBySubject(kind model.SubjectKind, subjectID string) (*model.Evaluation, error) {
	var evaluation model.Evaluation
	err := r.db.
		Where("subject_kind = ? AND subject_id = ?", kind, subjectID).
		Order("created_at DESC").
		First(&evaluation).Error
	if err != nil {
		return nil, mapNotFound(err, model.ErrEvaluationNotFound)
	}
	return &evaluation, nil
}
