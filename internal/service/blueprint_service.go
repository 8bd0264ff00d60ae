package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"github.com/khangtgr/assessly/internal/blueprint"
	"github.com/khangtgr/assessly/internal/dto"
	"github.com/khangtgr/assessly/internal/model"
	"github.com/khangtgr/assessly/internal/repository"
)

// ValidationError carries every violation found in one validation pass.
type ValidationError struct {
	Violations []blueprint.Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("blueprint validation failed: %s", strings.Join(msgs, "; "))
}

type BlueprintService interface {
	CreateBlueprint(req dto.CreateBlueprintRequest) (*dto.BlueprintResponse, error)
	GetBlueprint(id uuid.UUID) (*dto.BlueprintResponse, error)
	GetAllBlueprints() ([]dto.BlueprintSummaryResponse, error)
	UpdateBlueprint(id uuid.UUID, req dto.CreateBlueprintRequest) (*dto.BlueprintResponse, error)
	ActivateBlueprint(id uuid.UUID) (*dto.BlueprintResponse, error)
}

type blueprintService struct {
	blueprintRepo repository.BlueprintRepository
}

func NewBlueprintService(blueprintRepo repository.BlueprintRepository) BlueprintService {
	return &blueprintService{blueprintRepo: blueprintRepo}
}

func (s *blueprintService) CreateBlueprint(req dto.CreateBlueprintRequest) (*dto.BlueprintResponse, error) {
	bp := blueprintFromRequest(req)
	if violations := blueprint.Validate(bp); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	if err := s.blueprintRepo.Create(bp); err != nil {
		log.Error().Err(err).Str("title", bp.Title).Msg("failed to persist blueprint")
		return nil, err
	}
	return blueprintResponse(bp), nil
}

func (s *blueprintService) GetBlueprint(id uuid.UUID) (*dto.BlueprintResponse, error) {
	bp, err := s.blueprintRepo.FindByIDWithSections(id)
	if err != nil {
		return nil, err
	}
	return blueprintResponse(bp), nil
}

func (s *blueprintService) GetAllBlueprints() ([]dto.BlueprintSummaryResponse, error) {
	summaries, err := s.blueprintRepo.FindAllWithItemCount()
	if err != nil {
		return nil, err
	}
	resp := make([]dto.BlueprintSummaryResponse, 0, len(summaries))
	for _, sm := range summaries {
		resp = append(resp, dto.BlueprintSummaryResponse{
			ID:              sm.ID,
			Title:           sm.Title,
			Status:          sm.Status,
			DurationMinutes: sm.DurationMinutes,
			ItemCount:       sm.ItemCount,
			CreatedAt:       sm.CreatedAt,
		})
	}
	return resp, nil
}

// UpdateBlueprint replaces the definition of a draft. Active blueprints are
// immutable; attempts already delivered must stay comparable.
func (s *blueprintService) UpdateBlueprint(id uuid.UUID, req dto.CreateBlueprintRequest) (*dto.BlueprintResponse, error) {
	existing, err := s.blueprintRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if existing.Status == model.BlueprintStatusActive {
		return nil, model.ErrImmutableBlueprint
	}

	bp := blueprintFromRequest(req)
	bp.ID = existing.ID
	bp.Status = existing.Status
	bp.CreatedAt = existing.CreatedAt
	if violations := blueprint.Validate(bp); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	if err := s.blueprintRepo.Update(bp); err != nil {
		log.Error().Err(err).Str("blueprint_id", id.String()).Msg("failed to update blueprint")
		return nil, err
	}
	return blueprintResponse(bp), nil
}

// ActivateBlueprint revalidates and flips a draft to active. Activation is
// idempotent; activating an active blueprint is a no-op.
func (s *blueprintService) ActivateBlueprint(id uuid.UUID) (*dto.BlueprintResponse, error) {
	bp, err := s.blueprintRepo.FindByIDWithSections(id)
	if err != nil {
		return nil, err
	}
	if bp.Status != model.BlueprintStatusActive {
		if violations := blueprint.Validate(bp); len(violations) > 0 {
			return nil, &ValidationError{Violations: violations}
		}
		if err := s.blueprintRepo.UpdateStatus(id, model.BlueprintStatusActive); err != nil {
			return nil, err
		}
		bp.Status = model.BlueprintStatusActive
	}
	return blueprintResponse(bp), nil
}

func blueprintFromRequest(req dto.CreateBlueprintRequest) *model.Blueprint {
	bp := &model.Blueprint{
		ID:              uuid.New(),
		Title:           req.Title,
		Status:          model.BlueprintStatusDraft,
		DurationMinutes: req.DurationMinutes,
		Weights: model.WeightSet{
			Skills:    req.Weights.Skills,
			Aptitude:  req.Weights.Aptitude,
			WorkStyle: req.Weights.WorkStyle,
		},
		CutScores: model.CutScoreSet{
			Overall:   req.CutScores.Overall,
			Skills:    req.CutScores.Skills,
			Aptitude:  req.CutScores.Aptitude,
			WorkStyle: req.CutScores.WorkStyle,
		},
		AntiCheat: model.AntiCheatConfig{
			Shuffle:           req.AntiCheat.Shuffle,
			FullscreenMonitor: req.AntiCheat.FullscreenMonitor,
			Webcam:            model.WebcamMode(req.AntiCheat.Webcam),
			IPLogging:         req.AntiCheat.IPLogging,
		},
	}
	if req.AntiCheat.Webcam == "" {
		bp.AntiCheat.Webcam = model.WebcamOff
	}
	for si, secReq := range req.Sections {
		section := model.Section{
			ID:          uuid.New(),
			BlueprintID: bp.ID,
			Type:        model.SectionType(secReq.Type),
			Title:       secReq.Title,
			TimeMinutes: secReq.TimeMinutes,
			Weight:      secReq.Weight,
			Position:    si + 1,
		}
		for ii, itemReq := range secReq.Items {
			section.Items = append(section.Items, model.Item{
				ID:            uuid.New(),
				SectionID:     section.ID,
				Format:        model.ItemFormat(itemReq.Format),
				Stem:          itemReq.Stem,
				Options:       itemReq.Options,
				CorrectAnswer: model.RawDocument(itemReq.CorrectAnswer),
				Competencies:  itemReq.Competencies,
				Difficulty:    model.Difficulty(itemReq.Difficulty),
				MaxPoints:     itemReq.MaxPoints,
				TimeSeconds:   itemReq.TimeSeconds,
				Position:      ii + 1,
			})
		}
		bp.Sections = append(bp.Sections, section)
	}
	return bp
}

func blueprintResponse(bp *model.Blueprint) *dto.BlueprintResponse {
	var resp dto.BlueprintResponse
	copier.Copy(&resp, bp)
	return &resp
}
