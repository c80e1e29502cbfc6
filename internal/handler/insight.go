package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ugcstudio/api/internal/model"
	"github.com/ugcstudio/api/internal/service"
	"github.com/ugcstudio/api/pkg/response"
)

// InsightHandler serves the pure scoring and progression helpers.
type InsightHandler struct {
	validator *validator.Validate
}

func NewInsightHandler(v *validator.Validate) *InsightHandler {
	return &InsightHandler{validator: v}
}

// Score handles POST /api/score
// @Summary      Score a brief
// @Tags         Insight
// @Accept       json
// @Produce      json
// @Param        request body model.Brief true "Brief"
// @Success      200 {object} model.ScoreResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /api/score [post]
func (h *InsightHandler) Score(c *fiber.Ctx) error {
	var brief model.Brief
	if err := c.BodyParser(&brief); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	// drafts are scored as typed, so nothing is required here
	return response.OK(c, service.ScoreBrief(&brief))
}

// Progress handles POST /api/progress
// @Summary      Level and badges for some stats
// @Tags         Insight
// @Accept       json
// @Produce      json
// @Param        request body model.UserStats true "Stats"
// @Success      200 {object} model.ProgressResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /api/progress [post]
func (h *InsightHandler) Progress(c *fiber.Ctx) error {
	var stats model.UserStats
	if err := c.BodyParser(&stats); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&stats); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	return response.OK(c, service.Progress(&stats))
}
