package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormStore implements Store on a GORM Postgres connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) SaveUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// pairScope matches a connection in either direction.
func pairScope(a, b uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			a, b, b, a,
		)
	}
}

func (s *GormStore) GetConnection(ctx context.Context, a, b uuid.UUID) (*models.Connection, error) {
	var conn models.Connection
	err := s.db.WithContext(ctx).Scopes(pairScope(a, b)).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	return &conn, nil
}

func (s *GormStore) ListAcceptedConnections(ctx context.Context, userID uuid.UUID) ([]models.Connection, error) {
	var conns []models.Connection
	err := s.db.WithContext(ctx).
		Where("status = ? AND (sender_id = ? OR receiver_id = ?)", models.ConnectionAccepted, userID, userID).
		Find(&conns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return conns, nil
}

func (s *GormStore) CountAcceptedConnections(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Connection{}).
		Where("status = ? AND (sender_id = ? OR receiver_id = ?)", models.ConnectionAccepted, userID, userID).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) AdvanceConnectionLevel(ctx context.Context, connectionID uuid.UUID, from, to int) error {
	result := s.db.WithContext(ctx).Model(&models.Connection{}).
		Where("id = ? AND trust_level = ?", connectionID, from).
		Update("trust_level", to)
	if result.Error != nil {
		return fmt.Errorf("failed to advance trust level: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLevelConflict
	}
	return nil
}

func (s *GormStore) CountCompletedCalls(ctx context.Context, a, b uuid.UUID, callType string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.InteractionRecord{}).
		Where("call_type = ? AND status = ?", callType, models.CallCompleted).
		Where(
			"(caller_id = ? AND callee_id = ?) OR (caller_id = ? AND callee_id = ?)",
			a, b, b, a,
		).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) CountRecentMessages(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.InteractionRecord{}).
		Where("call_type = ? AND (caller_id = ? OR callee_id = ?) AND created_at >= ?",
			models.CallMessage, userID, userID, since).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) CountReportsAgainst(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("reported_id = ?", userID).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) CountBlocksAgainst(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocked_id = ?", userID).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) GetRatingsFor(ctx context.Context, userID uuid.UUID) ([]models.RatingEdge, error) {
	var edges []models.RatingEdge
	err := s.db.WithContext(ctx).Where("rated_id = ?", userID).Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load received ratings: %w", err)
	}
	return edges, nil
}

func (s *GormStore) GetRatingsBy(ctx context.Context, userID uuid.UUID) ([]models.RatingEdge, error) {
	var edges []models.RatingEdge
	err := s.db.WithContext(ctx).Where("rater_id = ?", userID).Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load given ratings: %w", err)
	}
	return edges, nil
}

func (s *GormStore) GetDeviceFingerprints(ctx context.Context, userID uuid.UUID, windowDays int) ([]models.DeviceFingerprintLog, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)
	var logs []models.DeviceFingerprintLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND seen_at >= ?", userID, cutoff).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}
	return logs, nil
}

func (s *GormStore) ActiveVerificationCode(ctx context.Context, userID uuid.UUID, platform string) (*models.VerificationCode, error) {
	var code models.VerificationCode
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND platform = ? AND status = ?", userID, platform, models.VerificationPending).
		Order("created_at DESC").
		First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load verification code: %w", err)
	}
	return &code, nil
}

func (s *GormStore) SaveVerificationCode(ctx context.Context, code *models.VerificationCode) error {
	if err := s.db.WithContext(ctx).Save(code).Error; err != nil {
		return fmt.Errorf("failed to save verification code: %w", err)
	}
	return nil
}

func (s *GormStore) SupersedeVerificationCodes(ctx context.Context, userID uuid.UUID, platform string) error {
	return s.db.WithContext(ctx).Model(&models.VerificationCode{}).
		Where("user_id = ? AND platform = ? AND status = ?", userID, platform, models.VerificationPending).
		Update("status", models.VerificationExpired).Error
}

func (s *GormStore) ActiveVideoChallenge(ctx context.Context, userID uuid.UUID) (*models.VideoChallenge, error) {
	var ch models.VideoChallenge
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.ChallengePending).
		Order("created_at DESC").
		First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load video challenge: %w", err)
	}
	return &ch, nil
}

func (s *GormStore) SaveVideoChallenge(ctx context.Context, ch *models.VideoChallenge) error {
	if err := s.db.WithContext(ctx).Save(ch).Error; err != nil {
		return fmt.Errorf("failed to save video challenge: %w", err)
	}
	return nil
}

func (s *GormStore) SupersedeVideoChallenges(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.VideoChallenge{}).
		Where("user_id = ? AND status = ?", userID, models.ChallengePending).
		Update("status", models.ChallengeExpired).Error
}

func (s *GormStore) CreateMeetingVerification(ctx context.Context, mv *models.MeetingVerification) error {
	if err := s.db.WithContext(ctx).Create(mv).Error; err != nil {
		return fmt.Errorf("failed to create meeting verification: %w", err)
	}
	return nil
}

func (s *GormStore) GetMeetingVerification(ctx context.Context, id uuid.UUID) (*models.MeetingVerification, error) {
	var mv models.MeetingVerification
	err := s.db.WithContext(ctx).First(&mv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting verification: %w", err)
	}
	return &mv, nil
}

func (s *GormStore) SaveMeetingVerification(ctx context.Context, mv *models.MeetingVerification) error {
	if err := s.db.WithContext(ctx).Save(mv).Error; err != nil {
		return fmt.Errorf("failed to save meeting verification: %w", err)
	}
	return nil
}

func (s *GormStore) RecordPartyAnswers(ctx context.Context, id uuid.UUID, asUserA bool, answers models.MeetingAnswers) (bool, error) {
	flagCol, answersCol := "user_b_submitted", "user_b_answers"
	if asUserA {
		flagCol, answersCol = "user_a_submitted", "user_a_answers"
	}
	result := s.db.WithContext(ctx).Model(&models.MeetingVerification{}).
		Where("id = ? AND status = ? AND "+flagCol+" = ?", id, models.MeetingVerificationPending, false).
		Updates(map[string]interface{}{
			flagCol:    true,
			answersCol: datatypes.NewJSONType(answers),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to record answers: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *GormStore) ClaimVerificationEvaluation(ctx context.Context, id uuid.UUID) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.MeetingVerification{}).
		Where("id = ? AND status = ?", id, models.MeetingVerificationPending).
		Update("status", models.MeetingVerificationEvaluating)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim evaluation: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *GormStore) HasPriorMeeting(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.MeetingVerification{}).
		Where(
			"(user_a_id = ? AND user_b_id = ?) OR (user_a_id = ? AND user_b_id = ?)",
			a, b, b, a,
		).
		Where("status IN ?", []string{
			models.MeetingVerificationPending,
			models.MeetingVerificationEvaluating,
			models.MeetingVerificationVerified,
		}).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CreateTrustDeposit(ctx context.Context, d *models.TrustDeposit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.TrustDeposit{}).
			Where("meeting_id = ? AND status = ?", d.MeetingID, models.DepositActive).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check deposits: %w", err)
		}
		if count > 0 {
			return ErrDepositExists
		}
		if err := tx.Create(d).Error; err != nil {
			return fmt.Errorf("failed to create deposit: %w", err)
		}
		return nil
	})
}

func (s *GormStore) GetTrustDeposit(ctx context.Context, meetingID uuid.UUID) (*models.TrustDeposit, error) {
	var d models.TrustDeposit
	err := s.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("created_at DESC").
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deposit: %w", err)
	}
	return &d, nil
}

func (s *GormStore) ResolveReport(ctx context.Context, meetingID uuid.UUID, penalty float64, reported *models.User, alert *models.SafetyAlert) (*models.TrustDeposit, error) {
	var deposit models.TrustDeposit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.TrustDeposit{}).
			Where("meeting_id = ? AND status = ?", meetingID, models.DepositActive).
			Updates(map[string]interface{}{
				"status":         models.DepositResolved,
				"penalty_amount": penalty,
				"resolved_at":    time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to resolve deposit: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Distinguish "never existed" from "already resolved".
			var count int64
			if err := tx.Model(&models.TrustDeposit{}).Where("meeting_id = ?", meetingID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to look up deposit: %w", err)
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrDepositResolved
		}
		if err := tx.Save(reported).Error; err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		if err := tx.Create(alert).Error; err != nil {
			return fmt.Errorf("failed to create safety alert: %w", err)
		}
		if err := tx.Where("meeting_id = ?", meetingID).First(&deposit).Error; err != nil {
			return fmt.Errorf("failed to get deposit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}

func (s *GormStore) CreateSafetyAlert(ctx context.Context, alert *models.SafetyAlert) error {
	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create safety alert: %w", err)
	}
	return nil
}

func (s *GormStore) ListSafetyAlerts(ctx context.Context, status string, limit, offset int) ([]models.SafetyAlert, int64, error) {
	var alerts []models.SafetyAlert
	var total int64

	query := s.db.WithContext(ctx).Model(&models.SafetyAlert{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query.Count(&total)

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&alerts).Error; err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (s *GormStore) UpdateSafetyAlertStatus(ctx context.Context, id uuid.UUID, status string) error {
	result := s.db.WithContext(ctx).Model(&models.SafetyAlert{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateSafetyCheckIn(ctx context.Context, checkIn *models.SafetyCheckIn) error {
	if err := s.db.WithContext(ctx).Create(checkIn).Error; err != nil {
		return fmt.Errorf("failed to create safety check-in: %w", err)
	}
	return nil
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}
