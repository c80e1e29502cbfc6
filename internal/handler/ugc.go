package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/client"
	"github.com/ugcstudio/api/internal/middleware"
	"github.com/ugcstudio/api/internal/model"
	"github.com/ugcstudio/api/internal/service"
	"github.com/ugcstudio/api/pkg/response"
)

type UGCHandler struct {
	service   *service.UGCService
	validator *validator.Validate
	log       *zap.Logger
}

func NewUGCHandler(svc *service.UGCService, v *validator.Validate, log *zap.Logger) *UGCHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UGCHandler{
		service:   svc,
		validator: v,
		log:       log,
	}
}

// Handle handles POST /api/ugc
// @Summary      UGC proxy
// @Description  Validate a password, start a video job or poll its status
// @Tags         UGC
// @Accept       json
// @Produce      json
// @Param        request body model.UGCRequest true "Action request"
// @Success      200 {object} model.JobStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Router       /api/ugc [post]
func (h *UGCHandler) Handle(c *fiber.Ctx) error {
	var req model.UGCRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	switch req.Action {
	case model.ActionValidate:
		return h.validate(c, &req)
	case model.ActionStart:
		return h.start(c, &req)
	case model.ActionStatus:
		return h.status(c, &req)
	default:
		return response.ValidationError(c, "Unknown action", fiber.Map{"action": req.Action})
	}
}

func (h *UGCHandler) validate(c *fiber.Ctx, req *model.UGCRequest) error {
	result, err := h.service.Validate(c.UserContext(), req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, result)
}

func (h *UGCHandler) start(c *fiber.Ctx, req *model.UGCRequest) error {
	if err := h.validator.Struct(&req.Brief); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	p, err := h.service.Authorize(req.Password, middleware.GetSession(c))
	if err != nil {
		if req.Password == "" && middleware.SessionRejected(c) {
			return response.Unauthorized(c, middleware.InvalidTokenMessage)
		}
		return h.fail(c, err)
	}

	result, err := h.service.Start(c.UserContext(), p, &req.Brief)
	if err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, result)
}

func (h *UGCHandler) status(c *fiber.Ctx, req *model.UGCRequest) error {
	result, err := h.service.Status(c.UserContext(), req.JobID)
	if err != nil {
		return h.fail(c, err)
	}
	return response.OK(c, result)
}

// fail maps service errors onto the response envelope
func (h *UGCHandler) fail(c *fiber.Ctx, err error) error {
	var upErr *client.UpstreamError
	switch {
	case errors.Is(err, client.ErrWebhookNotConfigured):
		return response.ServiceError(c, err.Error())
	case errors.Is(err, model.ErrAuthorization):
		return response.Unauthorized(c, "Wrong password")
	case errors.Is(err, model.ErrValidation):
		return response.ValidationError(c, err.Error(), nil)
	case errors.Is(err, model.ErrQuotaExceeded):
		return response.QuotaExceeded(c, "Daily video quota reached")
	case errors.Is(err, model.ErrMalformedResponse):
		return response.MalformedResponse(c, err.Error())
	case errors.As(err, &upErr):
		return response.UpstreamUnavailable(c, upErr.Message)
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return response.UpstreamUnavailable(c, "Failed to reach n8n webhook")
	default:
		h.log.Error("ugc.unexpected_error", zap.Error(err))
		return response.ServiceError(c, "Internal Server Error")
	}
}
