package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/safemeet/safemeet-backend/internal/config"
	"github.com/safemeet/safemeet-backend/internal/handlers"
	"github.com/safemeet/safemeet-backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	trustHandler *handlers.TrustHandler,
	identityHandler *handlers.IdentityHandler,
	levelHandler *handlers.LevelHandler,
	meetingHandler *handlers.MeetingHandler,
	adminHandler *handlers.AdminHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health (public)
	api.Get("/health", healthHandler.Check)

	// Everything below requires a valid token from the auth service.
	protected := api.Group("", middleware.JWTProtected(cfg))

	// Authenticity scoring
	protected.Post("/trust/score", trustHandler.ComputeScore)
	protected.Get("/trust/me", trustHandler.Me)

	// Identity verification gets a stricter limit, these call external providers
	identity := protected.Group("/identity")
	identity.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	identity.Post("/codes", identityHandler.IssueCode)
	identity.Post("/confirm", identityHandler.ConfirmOwnership)
	identity.Post("/analyze", identityHandler.Analyze)
	identity.Post("/challenge", identityHandler.IssueChallenge)
	identity.Post("/challenge/submit", identityHandler.SubmitChallenge)
	identity.Get("/score", identityHandler.Score)

	// Escalation gating
	protected.Post("/levels/check", levelHandler.Check)
	protected.Post("/levels/escalate", levelHandler.Escalate)

	// Meeting safety protocol
	meetings := protected.Group("/meetings")
	meetings.Post("/verifications", meetingHandler.ProposeVerification)
	meetings.Post("/verifications/:id/answers", meetingHandler.SubmitAnswers)
	meetings.Post("/first-check", meetingHandler.FirstMeetingCheck)
	meetings.Post("/:id/deposit", meetingHandler.CreateDeposit)
	meetings.Post("/:id/report", meetingHandler.ResolveReport)
	meetings.Post("/:id/safety-network", meetingHandler.ActivateSafetyNetwork)

	// Moderation surface (protected + admin required)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(cfg))
	admin.Post("/fraud/:user_id/analyze", adminHandler.AnalyzeFraud)
	admin.Get("/alerts", adminHandler.ListAlerts)
	admin.Put("/alerts/:id", adminHandler.ActionAlert)
}
