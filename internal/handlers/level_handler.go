package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/safemeet/safemeet-backend/internal/authctx"
	"github.com/safemeet/safemeet-backend/internal/dto"
	"github.com/safemeet/safemeet-backend/internal/services"
	"github.com/safemeet/safemeet-backend/internal/store"
)

type LevelHandler struct {
	gate  *services.LevelGate
	store store.Store
}

func NewLevelHandler(gate *services.LevelGate, st store.Store) *LevelHandler {
	return &LevelHandler{gate: gate, store: st}
}

// Check evaluates a progression request without changing the stored level.
func (h *LevelHandler) Check(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.LevelCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	conn, err := h.store.GetConnection(c.Context(), userID, req.TargetUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "Connection not found")
		}
		return internalError(c, "Failed to check progression")
	}

	resp, err := h.gate.CheckProgression(c.Context(), userID, req.TargetUserID, conn.TrustLevel, req.TargetLevel)
	if err != nil {
		return h.gateError(c, err)
	}
	return c.JSON(resp)
}

// Escalate performs the progression when the check passes.
func (h *LevelHandler) Escalate(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.gate.Escalate(c.Context(), userID, req.TargetUserID, req.TargetLevel)
	if err != nil {
		return h.gateError(c, err)
	}
	return c.JSON(resp)
}

func (h *LevelHandler) gateError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		return badRequest(c, "Steps cannot be skipped")
	case errors.Is(err, services.ErrInvalidLevel):
		return badRequest(c, "Unknown step")
	case errors.Is(err, store.ErrNotFound):
		return notFound(c, "Connection not found")
	}
	return internalError(c, "Failed to process progression")
}
