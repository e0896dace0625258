package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrLevelConflict   = errors.New("trust level changed since read")
	ErrDepositExists   = errors.New("active deposit already exists for meeting")
	ErrDepositResolved = errors.New("deposit already resolved")
)

// Store is the signal-store surface the escalation engine runs on. All
// scoring reads are plain queries; the conditional writes
// (AdvanceConnectionLevel, RecordPartyAnswers, ClaimVerificationEvaluation,
// ResolveReport) carry the engine's atomicity requirements.
type Store interface {
	// Users
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error

	// Connections
	GetConnection(ctx context.Context, a, b uuid.UUID) (*models.Connection, error)
	ListAcceptedConnections(ctx context.Context, userID uuid.UUID) ([]models.Connection, error)
	CountAcceptedConnections(ctx context.Context, userID uuid.UUID) (int, error)
	// AdvanceConnectionLevel is a compare-and-set on the stored trust
	// level; it returns ErrLevelConflict when the level no longer equals
	// from.
	AdvanceConnectionLevel(ctx context.Context, connectionID uuid.UUID, from, to int) error

	// Interactions
	CountCompletedCalls(ctx context.Context, a, b uuid.UUID, callType string) (int, error)
	CountRecentMessages(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)

	// Community feedback
	CountReportsAgainst(ctx context.Context, userID uuid.UUID) (int, error)
	CountBlocksAgainst(ctx context.Context, userID uuid.UUID) (int, error)

	// Ratings
	GetRatingsFor(ctx context.Context, userID uuid.UUID) ([]models.RatingEdge, error)
	GetRatingsBy(ctx context.Context, userID uuid.UUID) ([]models.RatingEdge, error)

	// Devices
	GetDeviceFingerprints(ctx context.Context, userID uuid.UUID, windowDays int) ([]models.DeviceFingerprintLog, error)

	// Ownership codes
	ActiveVerificationCode(ctx context.Context, userID uuid.UUID, platform string) (*models.VerificationCode, error)
	SaveVerificationCode(ctx context.Context, code *models.VerificationCode) error
	SupersedeVerificationCodes(ctx context.Context, userID uuid.UUID, platform string) error

	// Video challenges
	ActiveVideoChallenge(ctx context.Context, userID uuid.UUID) (*models.VideoChallenge, error)
	SaveVideoChallenge(ctx context.Context, ch *models.VideoChallenge) error
	SupersedeVideoChallenges(ctx context.Context, userID uuid.UUID) error

	// Meeting verifications
	CreateMeetingVerification(ctx context.Context, mv *models.MeetingVerification) error
	GetMeetingVerification(ctx context.Context, id uuid.UUID) (*models.MeetingVerification, error)
	SaveMeetingVerification(ctx context.Context, mv *models.MeetingVerification) error
	// RecordPartyAnswers marks one party's submission with a column-scoped
	// conditional update, so concurrent submissions can never overwrite each
	// other. False means that party already submitted or the verification
	// left the pending state.
	RecordPartyAnswers(ctx context.Context, id uuid.UUID, asUserA bool, answers models.MeetingAnswers) (bool, error)
	// ClaimVerificationEvaluation atomically moves a verification from
	// pending to evaluating. Exactly one caller observes true.
	ClaimVerificationEvaluation(ctx context.Context, id uuid.UUID) (bool, error)
	HasPriorMeeting(ctx context.Context, a, b uuid.UUID) (bool, error)

	// Trust deposits
	CreateTrustDeposit(ctx context.Context, d *models.TrustDeposit) error
	GetTrustDeposit(ctx context.Context, meetingID uuid.UUID) (*models.TrustDeposit, error)
	// ResolveReport applies a misconduct report in one transaction: the
	// conditional active->resolved deposit update (the exactly-once guard),
	// the penalized user record, and the audit alert. A second resolution
	// returns ErrDepositResolved and a failed transaction leaves the
	// deposit active so the report can be retried.
	ResolveReport(ctx context.Context, meetingID uuid.UUID, penalty float64, reported *models.User, alert *models.SafetyAlert) (*models.TrustDeposit, error)

	// Safety
	CreateSafetyAlert(ctx context.Context, alert *models.SafetyAlert) error
	ListSafetyAlerts(ctx context.Context, status string, limit, offset int) ([]models.SafetyAlert, int64, error)
	UpdateSafetyAlertStatus(ctx context.Context, id uuid.UUID, status string) error
	CreateSafetyCheckIn(ctx context.Context, checkIn *models.SafetyCheckIn) error
	CreateNotification(ctx context.Context, n *models.Notification) error
}
