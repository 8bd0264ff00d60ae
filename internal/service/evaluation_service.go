package service

import (
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"github.com/khangtgr/assessly/internal/dto"
	"github.com/khangtgr/assessly/internal/model"
	"github.com/khangtgr/assessly/internal/repository"
	"github.com/khangtgr/assessly/internal/scoring"
)

type EvaluationService interface {
	EvaluateProfiles(req dto.EvaluateProfilesRequest) (*dto.EvaluationBatchResponse, error)
	GetBatch(batchID uuid.UUID) (*dto.EvaluationBatchResponse, error)
	GetLatestForAttempt(attemptID uuid.UUID) (*dto.EvaluationResponse, error)
}

type evaluationService struct {
	evaluationRepo repository.EvaluationRepository
	scorer         *scoring.ProfileScorer
}

func NewEvaluationService(evaluationRepo repository.EvaluationRepository) EvaluationService {
	return &evaluationService{
		evaluationRepo: evaluationRepo,
		scorer:         scoring.NewProfileScorer(),
	}
}

// EvaluateProfiles scores a batch against one rubric and persists the
// ranked results as a new batch. Existing evaluations are never mutated.
func (s *evaluationService) EvaluateProfiles(req dto.EvaluateProfilesRequest) (*dto.EvaluationBatchResponse, error) {
	evaluations := s.scorer.EvaluateBatch(req.Profiles, req.Rubric)
	if err := s.evaluationRepo.CreateBatch(evaluations); err != nil {
		log.Error().Err(err).Int("profiles", len(req.Profiles)).Msg("failed to persist evaluation batch")
		return nil, err
	}

	resp := &dto.EvaluationBatchResponse{
		Evaluations: make([]dto.EvaluationResponse, 0, len(evaluations)),
	}
	if len(evaluations) > 0 {
		resp.BatchID = evaluations[0].BatchID
	}
	for _, evaluation := range evaluations {
		resp.Evaluations = append(resp.Evaluations, evaluationResponse(evaluation))
	}
	return resp, nil
}

func (s *evaluationService) GetBatch(batchID uuid.UUID) (*dto.EvaluationBatchResponse, error) {
	evaluations, err := s.evaluationRepo.FindByBatch(batchID)
	if err != nil {
		return nil, err
	}
	if len(evaluations) == 0 {
		return nil, model.ErrEvaluationNotFound
	}
	resp := &dto.EvaluationBatchResponse{
		BatchID:     batchID,
		Evaluations: make([]dto.EvaluationResponse, 0, len(evaluations)),
	}
	for i := range evaluations {
		resp.Evaluations = append(resp.Evaluations, evaluationResponse(&evaluations[i]))
	}
	return resp, nil
}

func (s *evaluationService) GetLatestForAttempt(attemptID uuid.UUID) (*dto.EvaluationResponse, error) {
	evaluation, err := s.evaluationRepo.FindLatestBySubject(model.SubjectAttempt, attemptID.String())
	if err != nil {
		return nil, err
	}
	resp := evaluationResponse(evaluation)
	return &resp, nil
}

func evaluationResponse(evaluation *model.Evaluation) dto.EvaluationResponse {
	var resp dto.EvaluationResponse
	copier.Copy(&resp, evaluation)
	return resp
}
