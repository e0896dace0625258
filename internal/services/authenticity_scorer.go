package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/models"
	"github.com/safemeet/safemeet-backend/internal/store"
	"gorm.io/datatypes"
)

// Component maxima of the authenticity score. The six components sum to the
// 10.0 ceiling.
const (
	maxProfileCompleteness    = 2.0
	maxInteractionConsistency = 2.0
	maxResponsePattern        = 1.5
	maxSentiment              = 1.5
	maxCommunityFeedback      = 1.5
	maxTimeInSystem           = 1.5

	reportDeduction = 0.3
	blockDeduction  = 0.2

	// Fixed baselines until richer response/sentiment signals land.
	responsePatternBaseline = 1.0
	sentimentBaseline       = 1.0
)

// TrustScore is the persisted breakdown of a user's authenticity rating.
type TrustScore struct {
	ProfileCompleteness    float64 `json:"profile_completeness"`
	InteractionConsistency float64 `json:"interaction_consistency"`
	ResponsePattern        float64 `json:"response_pattern"`
	Sentiment              float64 `json:"sentiment"`
	CommunityFeedback      float64 `json:"community_feedback"`
	TimeInSystem           float64 `json:"time_in_system"`
	Total                  float64 `json:"total"`
}

// AuthenticityScorer computes the 0-10 composite authenticity rating from
// profile, behavioral and community signals. Pure store reads; the only
// side effect is persisting the breakdown onto the user record.
type AuthenticityScorer struct {
	store store.Store
	now   func() time.Time
}

func NewAuthenticityScorer(st store.Store) *AuthenticityScorer {
	return &AuthenticityScorer{store: st, now: time.Now}
}

// ComputeScore recalculates and persists the user's authenticity rating.
func (s *AuthenticityScorer) ComputeScore(ctx context.Context, userID uuid.UUID) (*TrustScore, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	score := &TrustScore{
		ProfileCompleteness: s.profileCompleteness(user),
		ResponsePattern:     responsePatternBaseline,
		Sentiment:           sentimentBaseline,
		TimeInSystem:        s.timeInSystem(user.CreatedAt),
	}
	score.InteractionConsistency = s.interactionConsistency(ctx, userID)
	score.CommunityFeedback = s.communityFeedback(ctx, userID)

	score.Total = clampScore(score.ProfileCompleteness +
		score.InteractionConsistency +
		score.ResponsePattern +
		score.Sentiment +
		score.CommunityFeedback +
		score.TimeInSystem)

	breakdown, err := json.Marshal(score)
	if err != nil {
		return nil, fmt.Errorf("failed to encode score breakdown: %w", err)
	}
	user.AuthenticityRating = score.Total
	user.ScoreBreakdown = datatypes.JSON(breakdown)
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return score, nil
}

func (s *AuthenticityScorer) profileCompleteness(user *models.User) float64 {
	var score float64
	if user.DisplayName != "" && user.Email != "" {
		score += 0.4
	}
	if user.AvatarURL != "" {
		score += 0.4
	}
	if user.Bio != "" && len(user.Interests) > 2 { // "[]" is empty
		score += 0.4
	}
	if user.PhoneVerified && user.EmailVerified {
		score += 0.4
	}
	if user.GovIDVerified {
		score += 0.4
	}
	if score > maxProfileCompleteness {
		score = maxProfileCompleteness
	}
	return score
}

// interactionConsistency tiers recent message volume and active connection
// count independently, 1.0 max each.
func (s *AuthenticityScorer) interactionConsistency(ctx context.Context, userID uuid.UUID) float64 {
	var score float64

	since := s.now().AddDate(0, 0, -30)
	messages, err := s.store.CountRecentMessages(ctx, userID, since)
	if err == nil {
		switch {
		case messages >= 50:
			score += 1.0
		case messages >= 20:
			score += 0.7
		case messages >= 5:
			score += 0.4
		default:
			score += 0.1
		}
	}

	connections, err := s.store.CountAcceptedConnections(ctx, userID)
	if err == nil {
		switch {
		case connections >= 10:
			score += 1.0
		case connections >= 5:
			score += 0.7
		case connections >= 2:
			score += 0.4
		default:
			score += 0.1
		}
	}

	if score > maxInteractionConsistency {
		score = maxInteractionConsistency
	}
	return score
}

// communityFeedback starts at full score and deducts per report and block
// against the user, floored at zero.
func (s *AuthenticityScorer) communityFeedback(ctx context.Context, userID uuid.UUID) float64 {
	score := maxCommunityFeedback

	reports, err := s.store.CountReportsAgainst(ctx, userID)
	if err == nil {
		score -= float64(reports) * reportDeduction
	}
	blocks, err := s.store.CountBlocksAgainst(ctx, userID)
	if err == nil {
		score -= float64(blocks) * blockDeduction
	}

	if score < 0 {
		score = 0
	}
	return score
}

func (s *AuthenticityScorer) timeInSystem(createdAt time.Time) float64 {
	days := int(s.now().Sub(createdAt).Hours() / 24)
	switch {
	case days >= 90:
		return maxTimeInSystem
	case days >= 30:
		return 1.0
	case days >= 7:
		return 0.6
	default:
		return 0.3
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
