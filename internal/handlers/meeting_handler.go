package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/authctx"
	"github.com/safemeet/safemeet-backend/internal/dto"
	"github.com/safemeet/safemeet-backend/internal/models"
	"github.com/safemeet/safemeet-backend/internal/services"
	"github.com/safemeet/safemeet-backend/internal/store"
)

type MeetingHandler struct {
	orchestrator *services.MeetingSafetyOrchestrator
}

func NewMeetingHandler(orchestrator *services.MeetingSafetyOrchestrator) *MeetingHandler {
	return &MeetingHandler{orchestrator: orchestrator}
}

func (h *MeetingHandler) ProposeVerification(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ProposeVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	mv, err := h.orchestrator.ProposeVerification(c.Context(), userID, req.PartnerID, req.Location, req.ScheduledAt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to propose verification")
	}
	return c.Status(fiber.StatusCreated).JSON(mv)
}

func (h *MeetingHandler) SubmitAnswers(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	verificationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid verification ID")
	}

	var req dto.SubmitAnswersRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	outcome, err := h.orchestrator.SubmitAnswers(c.Context(), verificationID, userID, models.MeetingAnswers{
		Location:    req.Location,
		MeetingTime: req.MeetingTime,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return notFound(c, "Verification not found")
		case errors.Is(err, services.ErrNotAParty):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "You are not part of this verification",
			})
		case errors.Is(err, services.ErrAlreadySubmitted):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "Answers already submitted",
			})
		case errors.Is(err, services.ErrVerificationClosed):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "This verification is already decided",
			})
		case errors.Is(err, services.ErrVerificationExpired):
			return c.JSON(services.SubmitOutcome{Status: "expired"})
		}
		return internalError(c, "Failed to submit answers")
	}
	return c.JSON(outcome)
}

func (h *MeetingHandler) CreateDeposit(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid meeting ID")
	}

	var req dto.CreateDepositRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	deposit, err := h.orchestrator.CreateTrustDeposit(c.Context(), userID, req.PartnerID, meetingID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return notFound(c, "User not found")
		case errors.Is(err, store.ErrDepositExists):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "A deposit already exists for this meeting",
			})
		}
		return internalError(c, "Failed to create deposit")
	}
	return c.Status(fiber.StatusCreated).JSON(deposit)
}

func (h *MeetingHandler) ResolveReport(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid meeting ID")
	}

	var req dto.ResolveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	deposit, err := h.orchestrator.ResolveReport(
		c.Context(), meetingID, userID, req.ReportedID,
		services.ReportType(req.ReportType), req.Details,
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownReportType):
			return badRequest(c, "Unknown report type")
		case errors.Is(err, services.ErrDuplicateReport):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "This meeting was already reported",
			})
		case errors.Is(err, services.ErrNoDeposit), errors.Is(err, store.ErrNotFound):
			return notFound(c, "Meeting not found")
		}
		return internalError(c, "Failed to process report")
	}
	return c.JSON(deposit)
}

func (h *MeetingHandler) FirstMeetingCheck(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.FirstMeetingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.orchestrator.ValidateFirstMeeting(c.Context(), userID, req.PartnerID, services.FirstMeetingDetails{
		Location:        req.Location,
		ScheduledAt:     req.ScheduledAt,
		LocationSharing: req.LocationSharing,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "Connection not found")
		}
		return internalError(c, "Failed to validate meeting")
	}
	return c.JSON(result)
}

func (h *MeetingHandler) ActivateSafetyNetwork(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid meeting ID")
	}

	var req dto.SafetyNetworkRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	checkIn, err := h.orchestrator.ActivateSafetyNetwork(c.Context(), meetingID, userID, req.Contacts)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return notFound(c, "User not found")
		case errors.Is(err, services.ErrNoEmergencyContacts):
			return badRequest(c, "Add emergency contacts first")
		}
		return internalError(c, "Failed to activate safety network")
	}
	return c.Status(fiber.StatusCreated).JSON(checkIn)
}
