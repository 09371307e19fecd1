package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edulive/classroom-api/internal/dto"
	"github.com/edulive/classroom-api/internal/middleware"
	"github.com/edulive/classroom-api/internal/service"
	"github.com/edulive/classroom-api/internal/utils"
)

// SessionHandler wires the session lifecycle HTTP routes.
type SessionHandler struct {
	service service.SessionService
	logger  zerolog.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service service.SessionService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register attaches session endpoints to the router group. The group is
// expected to already carry the JWT middleware; per-route role gates are
// applied here.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireRole(service.RoleAdmin), h.schedule)
	router.Get("/:id", h.get)
	router.Post("/:id/start", middleware.RequireRole(service.RoleTeacher, service.RoleAdmin), h.start)
	router.Post("/:id/join", h.join)
	router.Post("/:id/leave", middleware.RequireRole(service.RoleLearner), h.leave)
	router.Post("/:id/end", middleware.RequireRole(service.RoleTeacher, service.RoleAdmin), h.end)
	router.Post("/:id/cancel", middleware.RequireRole(service.RoleAdmin), h.cancel)
}

func (h *SessionHandler) schedule(c *fiber.Ctx) error {
	var payload dto.ScheduleSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.Schedule(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session scheduled", session)
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	session, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session retrieved", session)
}

func (h *SessionHandler) start(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	descriptor, err := h.service.Start(c.Context(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session started", descriptor)
}

func (h *SessionHandler) join(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	descriptor, err := h.service.Join(c.Context(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session joined", descriptor)
}

func (h *SessionHandler) leave(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Leave(c.Context(), actorFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session left", nil)
}

func (h *SessionHandler) end(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.End(c.Context(), actorFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session completed", nil)
}

func (h *SessionHandler) cancel(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Cancel(c.Context(), actorFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session cancelled", nil)
}

func (h *SessionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrClassroomNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "classroom not found")
	case errors.Is(err, service.ErrEnrollmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "enrollment not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "action not permitted")
	case errors.Is(err, service.ErrTooEarly):
		return utils.SendError(c, fiber.StatusBadRequest, "session cannot be started yet")
	case errors.Is(err, service.ErrInvalidSchedule):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMeetingNotStarted):
		return utils.SendError(c, fiber.StatusBadRequest, "meeting has not been started")
	case errors.Is(err, service.ErrInvalidStateTransition):
		return utils.SendError(c, fiber.StatusBadRequest, "action not valid in current session state")
	case errors.Is(err, service.ErrProviderUnavailable):
		return utils.SendError(c, fiber.StatusBadGateway, "meeting provider unavailable")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
