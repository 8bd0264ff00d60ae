package service

import (
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/khangtgr/assessly/internal/answer"
	"github.com/khangtgr/assessly/internal/dto"
	"github.com/khangtgr/assessly/internal/model"
	"github.com/khangtgr/assessly/internal/repository"
	"github.com/khangtgr/assessly/internal/scoring"
	"github.com/khangtgr/assessly/internal/timer"
)

type AttemptService interface {
	StartAttempt(req dto.StartAttemptRequest) (*dto.AttemptResponse, error)
	GetAttempt(id uuid.UUID) (*dto.AttemptResponse, error)
	GetQuestions(id uuid.UUID) (*dto.AttemptQuestionsResponse, error)
	SaveResponse(attemptID uuid.UUID, itemID uuid.UUID, req dto.SaveResponseRequest) error
	RecordIntegrityEvent(attemptID uuid.UUID, req dto.IntegrityEventRequest) error
	SubmitAttempt(attemptID uuid.UUID, req dto.SubmitAttemptRequest) (*dto.SubmitAttemptResponse, error)
}

type attemptService struct {
	attemptRepo   repository.AttemptRepository
	blueprintRepo repository.BlueprintRepository
	now           func() time.Time
}

func NewAttemptService(attemptRepo repository.AttemptRepository, blueprintRepo repository.BlueprintRepository) AttemptService {
	return &attemptService{
		attemptRepo:   attemptRepo,
		blueprintRepo: blueprintRepo,
		now:           time.Now,
	}
}

// StartAttempt opens a run against an active blueprint. StartedAt is
// server-assigned; the client clock never feeds the timer.
func (s *attemptService) StartAttempt(req dto.StartAttemptRequest) (*dto.AttemptResponse, error) {
	bp, err := s.blueprintRepo.FindByID(req.BlueprintID)
	if err != nil {
		return nil, err
	}
	if bp.Status != model.BlueprintStatusActive {
		return nil, model.ErrBlueprintNotActive
	}

	attempt := &model.Attempt{
		ID:          uuid.New(),
		BlueprintID: bp.ID,
		CandidateID: req.CandidateID,
		StartedAt:   s.now().UTC(),
		Status:      model.AttemptInProgress,
		Responses:   model.ResponseMap{},
	}
	if err := s.attemptRepo.Create(attempt); err != nil {
		log.Error().Err(err).Str("blueprint_id", bp.ID.String()).Msg("failed to create attempt")
		return nil, err
	}
	return s.attemptResponse(attempt, bp), nil
}

func (s *attemptService) GetAttempt(id uuid.UUID) (*dto.AttemptResponse, error) {
	attempt, err := s.attemptRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	bp, err := s.blueprintRepo.FindByID(attempt.BlueprintID)
	if err != nil {
		return nil, err
	}
	return s.attemptResponse(attempt, bp), nil
}

// GetQuestions returns the delivery payload: sections and items with answer
// keys stripped, plus previously saved responses so an interrupted session
// can rehydrate. Item order is shuffled per attempt when the blueprint asks
// for it, stable across refetches.
func (s *attemptService) GetQuestions(id uuid.UUID) (*dto.AttemptQuestionsResponse, error) {
	attempt, err := s.attemptRepo.FindByIDWithBlueprint(id)
	if err != nil {
		return nil, err
	}
	bp := &attempt.Blueprint

	resp := &dto.AttemptQuestionsResponse{
		AttemptID: attempt.ID,
		Sections:  make([]dto.DeliverySectionResponse, 0, len(bp.Sections)),
		Responses: make(map[string]dto.SavedResponse, len(attempt.Responses)),
	}
	for _, sec := range bp.Sections {
		secResp := dto.DeliverySectionResponse{
			ID:          sec.ID,
			Type:        string(sec.Type),
			Title:       sec.Title,
			TimeMinutes: sec.TimeMinutes,
			Position:    sec.Position,
			Items:       make([]dto.DeliveryItemResponse, 0, len(sec.Items)),
		}
		for _, item := range sec.Items {
			secResp.Items = append(secResp.Items, dto.DeliveryItemResponse{
				ID:          item.ID,
				Format:      string(item.Format),
				Stem:        item.Stem,
				Options:     item.Options,
				MaxPoints:   item.MaxPoints,
				TimeSeconds: item.TimeSeconds,
				Position:    item.Position,
			})
		}
		if bp.AntiCheat.Shuffle {
			shuffleItems(attempt.ID, sec.ID, secResp.Items)
		}
		resp.Sections = append(resp.Sections, secResp)
	}
	for itemID, stored := range attempt.Responses {
		resp.Responses[itemID] = dto.SavedResponse{Seq: stored.Seq, Value: stored.Value}
	}
	return resp, nil
}

// SaveResponse validates the answer shape against the item format, then
// persists it under last-write-wins semantics.
func (s *attemptService) SaveResponse(attemptID uuid.UUID, itemID uuid.UUID, req dto.SaveResponseRequest) error {
	attempt, err := s.attemptRepo.FindByIDWithBlueprint(attemptID)
	if err != nil {
		return err
	}
	item, ok := attempt.Blueprint.ItemByID(itemID)
	if !ok {
		return model.ErrItemNotFound
	}
	if _, err := answer.Decode(item.Format, json.RawMessage(req.Value), item.Options); err != nil {
		return err
	}
	return s.attemptRepo.SaveResponse(attemptID, itemID.String(), model.StoredResponse{
		Seq:   req.Seq,
		Value: req.Value,
	})
}

func (s *attemptService) RecordIntegrityEvent(attemptID uuid.UUID, req dto.IntegrityEventRequest) error {
	return s.attemptRepo.RecordIntegrityEvent(&model.IntegrityEvent{
		ID:         uuid.New(),
		AttemptID:  attemptID,
		Type:       model.IntegrityEventType(req.Type),
		OccurredAt: req.OccurredAt,
	})
}

// SubmitAttempt finalizes the attempt and scores it in the same call. The
// status flip and the evaluation insert commit together, so a failed insert
// leaves the attempt open for a retry. Submitting an already-submitted
// attempt is rejected with ErrStaleAttempt; at most one evaluation is ever
// produced per attempt submission.
func (s *attemptService) SubmitAttempt(attemptID uuid.UUID, req dto.SubmitAttemptRequest) (*dto.SubmitAttemptResponse, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	bp, err := s.blueprintRepo.FindByID(attempt.BlueprintID)
	if err != nil {
		return nil, err
	}

	submittedAt := s.now().UTC()
	// Elapsed time comes from the server clock, clamped to the window.
	timeSpent := timer.Elapsed(bp.DurationMinutes, attempt.StartedAt, submittedAt)

	evaluation, err := s.attemptRepo.Submit(attemptID, submittedAt, timeSpent, req.FullscreenExits, req.TabSwitches,
		func(final *model.Attempt) *model.Evaluation {
			eval := scoring.EvaluateAttempt(final, &final.Blueprint)
			eval.BatchID = uuid.New()
			eval.Rank = 1
			return eval
		})
	if err != nil {
		if !errors.Is(err, model.ErrStaleAttempt) {
			log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("failed to finalize attempt")
		}
		return nil, err
	}

	return &dto.SubmitAttemptResponse{
		AttemptID:    attemptID,
		Status:       string(model.AttemptSubmitted),
		SubmittedAt:  &submittedAt,
		EvaluationID: evaluation.ID,
	}, nil
}

func (s *attemptService) attemptResponse(attempt *model.Attempt, bp *model.Blueprint) *dto.AttemptResponse {
	return &dto.AttemptResponse{
		ID:               attempt.ID,
		BlueprintID:      attempt.BlueprintID,
		CandidateID:      attempt.CandidateID,
		StartedAt:        attempt.StartedAt,
		Status:           string(attempt.Status),
		DurationMinutes:  bp.DurationMinutes,
		RemainingSeconds: timer.Remaining(bp.DurationMinutes, attempt.StartedAt, s.now()),
		FullscreenExits:  attempt.FullscreenExits,
		TabSwitches:      attempt.TabSwitches,
		SubmittedAt:      attempt.SubmittedAt,
	}
}

// shuffleItems reorders in place, seeded by attempt and section so every
// refetch of the same attempt sees the same order.
func shuffleItems(attemptID, sectionID uuid.UUID, items []dto.DeliveryItemResponse) {
	seed := int64(0)
	for _, b := range attemptID[:8] {
		seed = seed<<8 | int64(b)
	}
	for _, b := range sectionID[:4] {
		seed ^= int64(b)
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
