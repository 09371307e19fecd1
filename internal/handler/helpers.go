package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edulive/classroom-api/internal/middleware"
	"github.com/edulive/classroom-api/internal/service"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	actor := service.Actor{}

	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			actor.ID = id
		}
	}
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			actor.Role = role
		}
	}

	return actor
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}
