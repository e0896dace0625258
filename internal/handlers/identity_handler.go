package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/safemeet/safemeet-backend/internal/authctx"
	"github.com/safemeet/safemeet-backend/internal/dto"
	"github.com/safemeet/safemeet-backend/internal/services"
	"github.com/safemeet/safemeet-backend/internal/store"
)

type IdentityHandler struct {
	verifier *services.IdentityVerifier
}

func NewIdentityHandler(verifier *services.IdentityVerifier) *IdentityHandler {
	return &IdentityHandler{verifier: verifier}
}

func (h *IdentityHandler) IssueCode(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.IssueCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	code, err := h.verifier.IssueOwnershipCode(c.Context(), userID, req.Platform)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownPlatform):
			return badRequest(c, "Unsupported platform")
		case errors.Is(err, store.ErrNotFound):
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to issue verification code")
	}

	return c.Status(fiber.StatusCreated).JSON(dto.IssueCodeResponse{
		Platform:  code.Platform,
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
	})
}

func (h *IdentityHandler) ConfirmOwnership(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ConfirmOwnershipRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.verifier.ConfirmOwnership(c.Context(), userID, req.Platform, req.ProfileURL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownPlatform):
			return badRequest(c, "Unsupported platform")
		case errors.Is(err, services.ErrNoActiveCode):
			return badRequest(c, "Request a verification code first")
		case errors.Is(err, services.ErrCodeExpired):
			// Expiry is a normal retryable outcome.
			return c.JSON(dto.VerificationOutcomeResponse{
				Verified: false,
				Message:  "Your code expired. Please request a new one.",
			})
		case errors.Is(err, store.ErrNotFound):
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to confirm ownership")
	}

	return c.JSON(dto.VerificationOutcomeResponse{Verified: result.Verified, Message: result.Message})
}

// Analyze runs the account-age and activity heuristics for every verified
// platform.
func (h *IdentityHandler) Analyze(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	ageScore, ageFlags, err := h.verifier.AnalyzeAccountAge(c.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to analyze account history")
	}
	activityScore, activityFlags, err := h.verifier.AnalyzeActivity(c.Context(), userID)
	if err != nil {
		return internalError(c, "Failed to analyze activity")
	}

	return c.JSON(dto.AnalysisResponse{
		AccountAgeScore: ageScore,
		ActivityScore:   activityScore,
		Flags:           append(ageFlags, activityFlags...),
	})
}

func (h *IdentityHandler) IssueChallenge(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	ch, err := h.verifier.RunLiveChallenge(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyVideoVerified):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "Video verification already completed",
			})
		case errors.Is(err, store.ErrNotFound):
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to issue challenge")
	}

	var challenges []string
	if err := json.Unmarshal(ch.Challenges, &challenges); err != nil {
		return internalError(c, "Failed to issue challenge")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ChallengeResponse{
		Challenges: challenges,
		ExpiresAt:  ch.ExpiresAt,
	})
}

func (h *IdentityHandler) SubmitChallenge(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.SubmitChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.verifier.SubmitChallenge(c.Context(), userID, req.VideoRef)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoActiveChallenge):
			return badRequest(c, "Request a challenge first")
		case errors.Is(err, services.ErrChallengeExpired):
			return c.JSON(dto.VerificationOutcomeResponse{
				Verified: false,
				Message:  "Your challenge expired. Please request a new one.",
			})
		case errors.Is(err, store.ErrNotFound):
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to verify recording")
	}

	return c.JSON(dto.VerificationOutcomeResponse{Verified: result.Verified, Message: result.Message})
}

func (h *IdentityHandler) Score(c *fiber.Ctx) error {
	userID, err := authctx.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	score, err := h.verifier.ComprehensiveScore(c.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to compute verification score")
	}
	return c.JSON(score)
}
