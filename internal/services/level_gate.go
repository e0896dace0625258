package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/config"
	"github.com/safemeet/safemeet-backend/internal/dto"
	"github.com/safemeet/safemeet-backend/internal/models"
	"github.com/safemeet/safemeet-backend/internal/store"
)

var (
	ErrInvalidTransition = errors.New("invalid level transition")
	ErrInvalidLevel      = errors.New("level out of range")
)

// Fixed user-facing vocabulary. Messages never carry the underlying
// constants, only derived remainders.
const (
	msgAlreadyUnlocked   = "This step is already available."
	msgAccountTooNew     = "Your account needs a little more history before this step."
	msgConnectionTooNew  = "This connection needs a little more time before this step."
	msgMoreCallsNeeded   = "Keep talking at the current step to unlock the next one."
	msgNeedContacts      = "Add emergency contacts before planning a meeting."
	msgUnlocked          = "The next step is unlocked."
	msgEscalated         = "Trust level updated."
	msgLevelRace         = "The trust level just changed. Please retry."
	msgAccountRestricted = "This action is not available for this account."
)

// LevelGate enforces the ordered escalation of communication levels per
// connection. It consumes raw account and connection metadata, never the
// trust scores.
type LevelGate struct {
	store store.Store
	cfg   *config.Thresholds
	now   func() time.Time
}

func NewLevelGate(st store.Store, cfg *config.Thresholds) *LevelGate {
	return &LevelGate{store: st, cfg: cfg, now: time.Now}
}

// CheckProgression evaluates whether userID may move the connection with
// targetUserID from currentLevel to targetLevel. Wait durations are
// recomputed on every call.
func (g *LevelGate) CheckProgression(ctx context.Context, userID, targetUserID uuid.UUID, currentLevel, targetLevel int) (*dto.GateResponse, error) {
	if targetLevel < models.LevelText || targetLevel > models.LevelMeeting ||
		currentLevel < models.LevelText || currentLevel > models.LevelMeeting {
		return nil, ErrInvalidLevel
	}
	if targetLevel <= currentLevel {
		return &dto.GateResponse{Allowed: true, Message: msgAlreadyUnlocked}, nil
	}
	if targetLevel > currentLevel+1 {
		return nil, ErrInvalidTransition
	}

	user, err := g.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Banned() {
		return &dto.GateResponse{Allowed: false, Message: msgAccountRestricted}, nil
	}

	conn, err := g.store.GetConnection(ctx, userID, targetUserID)
	if err != nil {
		return nil, err
	}

	switch targetLevel {
	case models.LevelVoice:
		return g.checkVoice(user, conn)
	case models.LevelVideo:
		return g.checkVideo(ctx, user, conn, targetUserID)
	case models.LevelMeeting:
		return g.checkMeeting(ctx, user, conn, targetUserID)
	}
	return nil, ErrInvalidLevel
}

// Escalate runs the progression check and, when allowed, advances the
// stored level with a compare-and-set write. A concurrent writer surfaces
// as a retryable conflict, never a double increment.
func (g *LevelGate) Escalate(ctx context.Context, userID, targetUserID uuid.UUID, targetLevel int) (*dto.GateResponse, error) {
	conn, err := g.store.GetConnection(ctx, userID, targetUserID)
	if err != nil {
		return nil, err
	}

	resp, err := g.CheckProgression(ctx, userID, targetUserID, conn.TrustLevel, targetLevel)
	if err != nil {
		return nil, err
	}
	if !resp.Allowed || targetLevel <= conn.TrustLevel {
		return resp, nil
	}

	err = g.store.AdvanceConnectionLevel(ctx, conn.ID, conn.TrustLevel, targetLevel)
	if errors.Is(err, store.ErrLevelConflict) {
		return &dto.GateResponse{Allowed: false, Message: msgLevelRace}, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto.GateResponse{Allowed: true, Message: msgEscalated}, nil
}

func (g *LevelGate) checkVoice(user *models.User, conn *models.Connection) (*dto.GateResponse, error) {
	if resp := g.accountAgeGate(user, g.cfg.VoiceMinAccountAgeDays); resp != nil {
		return resp, nil
	}
	if resp := g.connectionAgeGate(conn, g.cfg.VoiceMinConnectionAge); resp != nil {
		return resp, nil
	}
	return &dto.GateResponse{Allowed: true, Message: msgUnlocked}, nil
}

func (g *LevelGate) checkVideo(ctx context.Context, user *models.User, conn *models.Connection, targetUserID uuid.UUID) (*dto.GateResponse, error) {
	if resp := g.accountAgeGate(user, g.cfg.VideoMinAccountAgeDays); resp != nil {
		return resp, nil
	}

	voiceCalls, err := g.store.CountCompletedCalls(ctx, user.ID, targetUserID, models.CallVoice)
	if err != nil {
		return nil, err
	}
	if voiceCalls < g.cfg.VideoMinVoiceCalls {
		remaining := g.cfg.VideoMinVoiceCalls - voiceCalls
		return &dto.GateResponse{
			Allowed:             false,
			Message:             msgMoreCallsNeeded,
			RequirementsMissing: fmt.Sprintf("%d more voice call(s)", remaining),
		}, nil
	}

	if resp := g.connectionAgeGate(conn, g.cfg.VideoMinConnectionAge); resp != nil {
		return resp, nil
	}
	return &dto.GateResponse{Allowed: true, Message: msgUnlocked}, nil
}

func (g *LevelGate) checkMeeting(ctx context.Context, user *models.User, conn *models.Connection, targetUserID uuid.UUID) (*dto.GateResponse, error) {
	if resp := g.accountAgeGate(user, g.cfg.MeetingMinAccountAgeDays); resp != nil {
		return resp, nil
	}

	videoCalls, err := g.store.CountCompletedCalls(ctx, user.ID, targetUserID, models.CallVideo)
	if err != nil {
		return nil, err
	}
	if videoCalls < g.cfg.MeetingMinVideoCalls {
		remaining := g.cfg.MeetingMinVideoCalls - videoCalls
		return &dto.GateResponse{
			Allowed:             false,
			Message:             msgMoreCallsNeeded,
			RequirementsMissing: fmt.Sprintf("%d more video call(s)", remaining),
		}, nil
	}

	if resp := g.connectionAgeGate(conn, g.cfg.MeetingMinConnectionAge); resp != nil {
		return resp, nil
	}

	// A hard block, not a waiting state: contacts have to be configured.
	if !user.HasEmergencyContacts() {
		return &dto.GateResponse{
			Allowed:             false,
			Message:             msgNeedContacts,
			RequirementsMissing: "emergency_contacts_configured",
		}, nil
	}
	return &dto.GateResponse{Allowed: true, Message: msgUnlocked}, nil
}

// accountAgeGate returns a waiting response when the requester's account is
// younger than minDays, nil otherwise.
func (g *LevelGate) accountAgeGate(user *models.User, minDays int) *dto.GateResponse {
	required := time.Duration(minDays) * 24 * time.Hour
	age := g.now().Sub(user.CreatedAt)
	if age >= required {
		return nil
	}
	return &dto.GateResponse{
		Allowed:           false,
		Message:           msgAccountTooNew,
		WaitingRequired:   true,
		WaitDurationHours: remainingHours(required - age),
	}
}

func (g *LevelGate) connectionAgeGate(conn *models.Connection, required time.Duration) *dto.GateResponse {
	age := g.now().Sub(conn.CreatedAt)
	if age >= required {
		return nil
	}
	return &dto.GateResponse{
		Allowed:           false,
		Message:           msgConnectionTooNew,
		WaitingRequired:   true,
		WaitDurationHours: remainingHours(required - age),
	}
}

func remainingHours(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours()))
}
