package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/models"
	"github.com/safemeet/safemeet-backend/internal/services"
	"github.com/safemeet/safemeet-backend/internal/store"
)

// AdminHandler serves the moderation surface: fraud analysis runs and the
// safety-alert queue.
type AdminHandler struct {
	analyzer *services.NetworkFraudAnalyzer
	store    store.Store
}

func NewAdminHandler(analyzer *services.NetworkFraudAnalyzer, st store.Store) *AdminHandler {
	return &AdminHandler{analyzer: analyzer, store: st}
}

// AnalyzeFraud runs all fraud detectors for a user and persists the
// adjusted network trust score.
func (h *AdminHandler) AnalyzeFraud(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}

	report, err := h.analyzer.CalculateNetworkTrustScore(c.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to analyze network")
	}
	return c.JSON(report)
}

func (h *AdminHandler) ListAlerts(c *fiber.Ctx) error {
	status := c.Query("status", "")
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	if limit > 100 {
		limit = 100
	}

	alerts, total, err := h.store.ListSafetyAlerts(c.Context(), status, limit, offset)
	if err != nil {
		return internalError(c, "Failed to fetch alerts")
	}

	return c.JSON(fiber.Map{
		"alerts": alerts,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *AdminHandler) ActionAlert(c *fiber.Ctx) error {
	alertID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid alert ID")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Status != models.AlertAcknowledged && req.Status != models.AlertDismissed {
		return badRequest(c, "Invalid status: must be acknowledged or dismissed")
	}

	if err := h.store.UpdateSafetyAlertStatus(c.Context(), alertID, req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "Alert not found")
		}
		return internalError(c, "Failed to update alert")
	}
	return c.JSON(fiber.Map{"message": "Alert updated successfully"})
}
