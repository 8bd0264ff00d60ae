package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/khangtgr/assessly/internal/dto"
	"github.com/khangtgr/assessly/internal/model"
	"github.com/khangtgr/assessly/internal/service"
)

type BlueprintController struct {
	blueprintService service.BlueprintService
	generatorService service.BlueprintGeneratorService
}

func NewBlueprintController(blueprintService service.BlueprintService, generatorService service.BlueprintGeneratorService) *BlueprintController {
	return &BlueprintController{
		blueprintService: blueprintService,
		generatorService: generatorService,
	}
}

// CreateBlueprint godoc
// @Summary (Admin) Create a test blueprint
// @Description Validates and saves a complete test definition as a draft. All validation violations are returned in one pass.
// @Tags Admin - Blueprints
// @Accept json
// @Produce json
// @Param blueprint body dto.CreateBlueprintRequest true "Blueprint definition"
// @Success 201 {object} dto.BlueprintResponse
// @Failure 400 {object} dto.ErrorResponse "Malformed request body"
// @Failure 422 {object} dto.ValidationErrorResponse "Blueprint failed validation"
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/blueprints [post]
func (c *BlueprintController) CreateBlueprint(ctx *gin.Context) {
	var req dto.CreateBlueprintRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("CreateBlueprint: failed to bind request")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := c.blueprintService.CreateBlueprint(req)
	if err != nil {
		respondBlueprintError(ctx, err, "failed to create blueprint")
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetBlueprint godoc
// @Summary (Admin) Get a blueprint with sections and items
// @Tags Admin - Blueprints
// @Produce json
// @Param id path string true "Blueprint ID"
// @Success 200 {object} dto.BlueprintResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid ID format"
// @Failure 404 {object} dto.ErrorResponse "Blueprint not found"
// @Router /admin/blueprints/{id} [get]
func (c *BlueprintController) GetBlueprint(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.blueprintService.GetBlueprint(id)
	if err != nil {
		respondBlueprintError(ctx, err, "failed to get blueprint")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetAllBlueprints godoc
// @Summary (Admin) List blueprints
// @Tags Admin - Blueprints
// @Produce json
// @Success 200 {array} dto.BlueprintSummaryResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/blueprints [get]
func (c *BlueprintController) GetAllBlueprints(ctx *gin.Context) {
	resp, err := c.blueprintService.GetAllBlueprints()
	if err != nil {
		log.Error().Err(err).Msg("failed to list blueprints")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to retrieve blueprints"})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// UpdateBlueprint godoc
// @Summary (Admin) Replace a draft blueprint definition
// @Description Active blueprints are immutable and respond 409.
// @Tags Admin - Blueprints
// @Accept json
// @Produce json
// @Param id path string true "Blueprint ID"
// @Param blueprint body dto.CreateBlueprintRequest true "Replacement definition"
// @Success 200 {object} dto.BlueprintResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Blueprint is active and immutable"
// @Failure 422 {object} dto.ValidationErrorResponse
// @Router /admin/blueprints/{id} [patch]
func (c *BlueprintController) UpdateBlueprint(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req dto.CreateBlueprintRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	resp, err := c.blueprintService.UpdateBlueprint(id, req)
	if err != nil {
		respondBlueprintError(ctx, err, "failed to update blueprint")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ActivateBlueprint godoc
// @Summary (Admin) Activate a blueprint
// @Description Revalidates and flips a draft to active. Activation is idempotent.
// @Tags Admin - Blueprints
// @Produce json
// @Param id path string true "Blueprint ID"
// @Success 200 {object} dto.BlueprintResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ValidationErrorResponse "Draft no longer passes validation"
// @Router /admin/blueprints/{id}/activate [post]
func (c *BlueprintController) ActivateBlueprint(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.blueprintService.ActivateBlueprint(id)
	if err != nil {
		respondBlueprintError(ctx, err, "failed to activate blueprint")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GenerateBlueprint godoc
// @Summary (Admin) Draft a blueprint with the LLM
// @Description Generates a blueprint draft from a role description. The draft is returned for review; it is not saved.
// @Tags Admin - Blueprints
// @Accept json
// @Produce json
// @Param request body dto.GenerateBlueprintRequest true "Role description"
// @Success 200 {object} dto.CreateBlueprintRequest "Draft ready for review and POST /admin/blueprints"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse "Generation service unavailable or returned garbage"
// @Router /admin/blueprints/generate [post]
func (c *BlueprintController) GenerateBlueprint(ctx *gin.Context) {
	var req dto.GenerateBlueprintRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	draft, err := c.generatorService.GenerateBlueprint(req)
	if err != nil {
		log.Error().Err(err).Str("role", req.Role).Msg("blueprint generation failed")
		ctx.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: "blueprint generation failed: " + err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, draft)
}

func parseID(ctx *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(param))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid " + param + " format"})
		return uuid.Nil, false
	}
	return id, true
}

func respondBlueprintError(ctx *gin.Context, err error, msg string) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		resp := dto.ValidationErrorResponse{Error: "blueprint validation failed"}
		for _, v := range validationErr.Violations {
			resp.Violations = append(resp.Violations, dto.ViolationResponse{
				Kind:    string(v.Kind),
				Field:   v.Field,
				Message: v.Message,
			})
		}
		ctx.JSON(http.StatusUnprocessableEntity, resp)
	case errors.Is(err, model.ErrBlueprintNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrImmutableBlueprint):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Msg(msg)
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msg})
	}
}
