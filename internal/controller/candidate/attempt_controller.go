package candidate

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/khangtgr/assessly/internal/answer"
	"github.com/khangtgr/assessly/internal/dto"
	"github.com/khangtgr/assessly/internal/model"
	"github.com/khangtgr/assessly/internal/service"
)

type AttemptController struct {
	attemptService service.AttemptService
}

func NewAttemptController(attemptService service.AttemptService) *AttemptController {
	return &AttemptController{attemptService: attemptService}
}

// StartAttempt godoc
// @Summary Start an attempt against an active blueprint
// @Description Opens a timed run. StartedAt is assigned by the server.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param request body dto.StartAttemptRequest true "Blueprint and candidate"
// @Success 201 {object} dto.AttemptResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Blueprint not found"
// @Failure 409 {object} dto.ErrorResponse "Blueprint is not active"
// @Router /attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	var req dto.StartAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("StartAttempt: failed to bind request")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	resp, err := c.attemptService.StartAttempt(req)
	if err != nil {
		respondAttemptError(ctx, err, "failed to start attempt")
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetAttempt godoc
// @Summary Get attempt state
// @Description Returns status and server-computed remaining time.
// @Tags Attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} dto.AttemptResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.attemptService.GetAttempt(id)
	if err != nil {
		respondAttemptError(ctx, err, "failed to get attempt")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetQuestions godoc
// @Summary Get the delivery payload for an attempt
// @Description Sections and items with answer keys stripped, plus previously saved responses for rehydration.
// @Tags Attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} dto.AttemptQuestionsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{id}/questions [get]
func (c *AttemptController) GetQuestions(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.attemptService.GetQuestions(id)
	if err != nil {
		respondAttemptError(ctx, err, "failed to get questions")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SaveResponse godoc
// @Summary Save one answer
// @Description Last write wins per item, ordered by the client-assigned sequence number. Stale writes are ignored, not errors.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param item_id path string true "Item ID"
// @Param response body dto.SaveResponseRequest true "Sequence number and answer value"
// @Success 204 "Saved or superseded"
// @Failure 400 {object} dto.ErrorResponse "Answer shape does not match the item format"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Attempt already submitted"
// @Router /attempts/{id}/responses/{item_id} [put]
func (c *AttemptController) SaveResponse(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	itemID, ok := parseID(ctx, "item_id")
	if !ok {
		return
	}
	var req dto.SaveResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err := c.attemptService.SaveResponse(id, itemID, req); err != nil {
		respondAttemptError(ctx, err, "failed to save response")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// RecordIntegrityEvent godoc
// @Summary Record a proctoring event
// @Description Appends a fullscreen-exit or tab-switch event and bumps the attempt counter. Events after submission are dropped.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param event body dto.IntegrityEventRequest true "Event type and timestamp"
// @Success 204 "Recorded"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{id}/events [post]
func (c *AttemptController) RecordIntegrityEvent(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req dto.IntegrityEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err := c.attemptService.RecordIntegrityEvent(id, req); err != nil {
		respondAttemptError(ctx, err, "failed to record integrity event")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SubmitAttempt godoc
// @Summary Submit an attempt
// @Description Finalizes and scores the attempt. Resubmitting an already-submitted attempt responds 409.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param submission body dto.SubmitAttemptRequest true "Client counters"
// @Success 200 {object} dto.SubmitAttemptResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Attempt already submitted"
// @Router /attempts/{id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req dto.SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	resp, err := c.attemptService.SubmitAttempt(id, req)
	if err != nil {
		respondAttemptError(ctx, err, "failed to submit attempt")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func parseID(ctx *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(param))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid " + param + " format"})
		return uuid.Nil, false
	}
	return id, true
}

func respondAttemptError(ctx *gin.Context, err error, msg string) {
	var formatErr *answer.InvalidFormatError
	switch {
	case errors.As(err, &formatErr):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrAttemptNotFound),
		errors.Is(err, model.ErrBlueprintNotFound),
		errors.Is(err, model.ErrItemNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrBlueprintNotActive),
		errors.Is(err, model.ErrStaleAttempt):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Msg(msg)
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msg})
	}
}
