package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/safemeet/safemeet-backend/internal/authctx"
	"github.com/safemeet/safemeet-backend/internal/services"
	"github.com/safemeet/safemeet-backend/internal/store"
)

type TrustHandler struct {
	scorer *services.AuthenticityScorer
	store  store.Store
}

func NewTrustHandler(scorer *services.AuthenticityScorer, st store.Store) *TrustHandler {
	return &TrustHandler{scorer: scorer, store: st}
}

// ComputeScore recomputes and persists the caller's authenticity rating.
func (h *TrustHandler) ComputeScore(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	score, err := h.scorer.ComputeScore(c.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to compute score")
	}
	return c.JSON(score)
}

// Me returns the caller's persisted trust profile.
func (h *TrustHandler) Me(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	user, err := h.store.GetUser(c.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to load profile")
	}
	return c.JSON(user)
}
