package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/khangtgr/assessly/internal/dto"
	"github.com/khangtgr/assessly/internal/model"
	"github.com/khangtgr/assessly/internal/service"
)

type EvaluationController struct {
	evaluationService service.EvaluationService
}

func NewEvaluationController(evaluationService service.EvaluationService) *EvaluationController {
	return &EvaluationController{evaluationService: evaluationService}
}

// EvaluateProfiles godoc
// @Summary (Admin) Score a batch of candidate profiles
// @Description Scores every profile against one rubric and returns them ranked. Knocked-out candidates keep their full scores.
// @Tags Admin - Evaluations
// @Accept json
// @Produce json
// @Param batch body dto.EvaluateProfilesRequest true "Rubric and profiles"
// @Success 201 {object} dto.EvaluationBatchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/evaluations [post]
func (c *EvaluationController) EvaluateProfiles(ctx *gin.Context) {
	var req dto.EvaluateProfilesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("EvaluateProfiles: failed to bind request")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := c.evaluationService.EvaluateProfiles(req)
	if err != nil {
		log.Error().Err(err).Msg("failed to evaluate profile batch")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to evaluate profiles"})
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetBatch godoc
// @Summary (Admin) Get a ranked evaluation batch
// @Tags Admin - Evaluations
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Success 200 {object} dto.EvaluationBatchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/evaluations/{batch_id} [get]
func (c *EvaluationController) GetBatch(ctx *gin.Context) {
	batchID, ok := parseID(ctx, "batch_id")
	if !ok {
		return
	}
	resp, err := c.evaluationService.GetBatch(batchID)
	if err != nil {
		if errors.Is(err, model.ErrEvaluationNotFound) {
			ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
			return
		}
		log.Error().Err(err).Str("batch_id", batchID.String()).Msg("failed to get evaluation batch")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to retrieve evaluation batch"})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetAttemptEvaluation godoc
// @Summary (Admin) Get the latest evaluation of an attempt
// @Tags Admin - Evaluations
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} dto.EvaluationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/attempts/{attempt_id}/evaluation [get]
func (c *EvaluationController) GetAttemptEvaluation(ctx *gin.Context) {
	attemptID, ok := parseID(ctx, "attempt_id")
	if !ok {
		return
	}
	resp, err := c.evaluationService.GetLatestForAttempt(attemptID)
	if err != nil {
		if errors.Is(err, model.ErrEvaluationNotFound) {
			ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
			return
		}
		log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("failed to get attempt evaluation")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to retrieve evaluation"})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
