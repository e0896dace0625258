package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/config"
	"github.com/safemeet/safemeet-backend/internal/models"
	"github.com/safemeet/safemeet-backend/internal/store"
	"github.com/safemeet/safemeet-backend/internal/verify"
	"gorm.io/datatypes"
)

var (
	ErrUnknownPlatform      = errors.New("unsupported platform")
	ErrCodeExpired          = errors.New("verification code expired")
	ErrNoActiveCode         = errors.New("no active verification code")
	ErrChallengeExpired     = errors.New("video challenge expired")
	ErrNoActiveChallenge    = errors.New("no active video challenge")
	ErrAlreadyVideoVerified = errors.New("video verification already completed")
)

const (
	PlatformLinkedIn  = "linkedin"
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
)

// Sub-score caps of the identity verification score.
const (
	maxOwnershipScore  = 4.0
	maxAccountAgeScore = 2.0
	maxActivityScore   = 2.0
	videoBonus         = 2.0
	maxIdentityScore   = 10.0
)

// Challenge pool for live video verification. Four are sampled per run.
var challengePool = []string{
	"turn your head slowly to the left",
	"turn your head slowly to the right",
	"raise your right hand",
	"raise your left hand",
	"say today's day of the week out loud",
	"say your display name out loud",
	"smile for three seconds",
	"blink twice",
	"touch your nose",
	"hold up three fingers",
}

const challengesPerRun = 4

// OwnershipResult reports the outcome of a proof confirmation. A false
// Verified with a message is a normal result, not an error; provider
// outages surface the same way so unavailability can never mark a user
// verified.
type OwnershipResult struct {
	Verified bool
	Message  string
}

// IdentityScore is the roll-up of the four identity sub-scores. Flags say
// what is missing, never how much it is worth.
type IdentityScore struct {
	OwnershipScore  float64  `json:"ownership_score"`
	AccountAgeScore float64  `json:"account_age_score"`
	ActivityScore   float64  `json:"activity_score"`
	VideoScore      float64  `json:"video_score"`
	Total           float64  `json:"total"`
	Flags           []string `json:"flags"`
}

// IdentityVerifier manages social-platform ownership proofs, account
// age/activity heuristics and live-challenge video verification.
type IdentityVerifier struct {
	store     store.Store
	providers verify.Providers
	cfg       *config.Thresholds
	now       func() time.Time
}

func NewIdentityVerifier(st store.Store, providers verify.Providers, cfg *config.Thresholds) *IdentityVerifier {
	return &IdentityVerifier{store: st, providers: providers, cfg: cfg, now: time.Now}
}

func platformBonus(platform string) (float64, error) {
	switch platform {
	case PlatformLinkedIn:
		return 2.0, nil
	case PlatformInstagram, PlatformFacebook:
		return 1.0, nil
	default:
		return 0, ErrUnknownPlatform
	}
}

// IssueOwnershipCode generates a short unique token for the given platform,
// superseding any previously active code for the same pair.
func (v *IdentityVerifier) IssueOwnershipCode(ctx context.Context, userID uuid.UUID, platform string) (*models.VerificationCode, error) {
	if _, err := platformBonus(platform); err != nil {
		return nil, err
	}
	if _, err := v.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	if err := v.store.SupersedeVerificationCodes(ctx, userID, platform); err != nil {
		return nil, fmt.Errorf("failed to supersede codes: %w", err)
	}

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	code := &models.VerificationCode{
		ID:        uuid.New(),
		UserID:    userID,
		Platform:  platform,
		Code:      "sm-" + hex.EncodeToString(buf),
		Status:    models.VerificationPending,
		ExpiresAt: v.now().Add(v.cfg.OwnershipCodeTTL),
		CreatedAt: v.now(),
	}
	if err := v.store.SaveVerificationCode(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

// ConfirmOwnership checks the profile URL for the active code through the
// external proof checker and, on success, applies the per-platform bonus to
// the ownership sub-score.
func (v *IdentityVerifier) ConfirmOwnership(ctx context.Context, userID uuid.UUID, platform, profileURL string) (*OwnershipResult, error) {
	bonus, err := platformBonus(platform)
	if err != nil {
		return nil, err
	}
	user, err := v.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	code, err := v.store.ActiveVerificationCode(ctx, userID, platform)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoActiveCode
	}
	if err != nil {
		return nil, err
	}
	if v.now().After(code.ExpiresAt) {
		code.Status = models.VerificationExpired
		if err := v.store.SaveVerificationCode(ctx, code); err != nil {
			return nil, err
		}
		return nil, ErrCodeExpired
	}

	ok, err := v.providers.Ownership.CheckProof(ctx, profileURL, code.Code)
	if err != nil {
		// Provider outage never counts as verified.
		slog.Warn("ownership proof check unavailable", "platform", platform, "error", err)
		return &OwnershipResult{Verified: false, Message: "Verification is temporarily unavailable. Please try again later."}, nil
	}
	if !ok {
		return &OwnershipResult{Verified: false, Message: "We could not confirm the code on your profile."}, nil
	}

	code.Status = models.VerificationVerified
	if err := v.store.SaveVerificationCode(ctx, code); err != nil {
		return nil, err
	}

	now := v.now()
	platforms := user.VerifiedPlatforms.Data()
	proof := models.PlatformProof{Verified: true, VerifiedAt: &now, ProfileURL: profileURL}
	switch platform {
	case PlatformLinkedIn:
		platforms.LinkedIn = proof
	case PlatformInstagram:
		platforms.Instagram = proof
	case PlatformFacebook:
		platforms.Facebook = proof
	}
	user.VerifiedPlatforms = datatypes.NewJSONType(platforms)

	user.OwnershipScore += bonus
	if user.OwnershipScore > maxOwnershipScore {
		user.OwnershipScore = maxOwnershipScore
	}
	v.rollUp(user)
	if err := v.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return &OwnershipResult{Verified: true, Message: "Platform ownership confirmed."}, nil
}

type platformSlot struct {
	name  string
	proof *models.PlatformProof
}

func platformSlots(p *models.VerifiedPlatforms) []platformSlot {
	return []platformSlot{
		{PlatformLinkedIn, &p.LinkedIn},
		{PlatformInstagram, &p.Instagram},
		{PlatformFacebook, &p.Facebook},
	}
}

// AnalyzeAccountAge queries the age provider for every verified platform
// and scores tiers by account age. Persists the sub-score and
// human-readable flags.
func (v *IdentityVerifier) AnalyzeAccountAge(ctx context.Context, userID uuid.UUID) (float64, []string, error) {
	user, err := v.store.GetUser(ctx, userID)
	if err != nil {
		return 0, nil, err
	}

	platforms := user.VerifiedPlatforms.Data()
	var score float64
	var flags []string
	for _, slot := range platformSlots(&platforms) {
		if !slot.proof.Verified {
			continue
		}
		days, err := v.providers.Age.AccountAgeDays(ctx, slot.proof.ProfileURL)
		if err != nil {
			slog.Warn("account age lookup unavailable", "platform", slot.name, "error", err)
			flags = append(flags, slot.name+" account age could not be checked")
			continue
		}
		slot.proof.AccountAgeDays = days
		switch {
		case days >= 365:
			score += 1.0
			flags = append(flags, slot.name+" account is well established")
		case days >= 180:
			score += 0.5
			flags = append(flags, slot.name+" account is moderately established")
		default:
			flags = append(flags, slot.name+" account is recently created")
		}
	}
	if score > maxAccountAgeScore {
		score = maxAccountAgeScore
	}

	user.VerifiedPlatforms = datatypes.NewJSONType(platforms)
	user.AccountAgeScore = score
	v.mergeFlags(user, flags)
	v.rollUp(user)
	if err := v.store.SaveUser(ctx, user); err != nil {
		return 0, nil, err
	}
	return score, flags, nil
}

// AnalyzeActivity queries the activity provider for every verified platform
// and scores post/connection volume.
func (v *IdentityVerifier) AnalyzeActivity(ctx context.Context, userID uuid.UUID) (float64, []string, error) {
	user, err := v.store.GetUser(ctx, userID)
	if err != nil {
		return 0, nil, err
	}

	platforms := user.VerifiedPlatforms.Data()
	var score float64
	var flags []string
	for _, slot := range platformSlots(&platforms) {
		if !slot.proof.Verified {
			continue
		}
		metrics, err := v.providers.Activity.Activity(ctx, slot.proof.ProfileURL)
		if err != nil {
			slog.Warn("activity lookup unavailable", "platform", slot.name, "error", err)
			flags = append(flags, slot.name+" activity could not be checked")
			continue
		}
		postsOK := metrics.Posts >= 50
		connsOK := metrics.Connections >= 100
		switch {
		case postsOK && connsOK:
			score += 1.0
			flags = append(flags, slot.name+" profile looks actively used")
		case postsOK || connsOK:
			score += 0.5
			flags = append(flags, slot.name+" profile shows some activity")
		default:
			flags = append(flags, slot.name+" profile shows little activity")
		}
	}
	if score > maxActivityScore {
		score = maxActivityScore
	}

	user.ActivityScore = score
	v.mergeFlags(user, flags)
	v.rollUp(user)
	if err := v.store.SaveUser(ctx, user); err != nil {
		return 0, nil, err
	}
	return score, flags, nil
}

// RunLiveChallenge issues four randomly sampled challenges, superseding any
// active set.
func (v *IdentityVerifier) RunLiveChallenge(ctx context.Context, userID uuid.UUID) (*models.VideoChallenge, error) {
	user, err := v.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.VideoVerified {
		return nil, ErrAlreadyVideoVerified
	}
	if err := v.store.SupersedeVideoChallenges(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to supersede challenges: %w", err)
	}

	picked, err := sampleChallenges(challengesPerRun)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(picked)
	if err != nil {
		return nil, fmt.Errorf("failed to encode challenges: %w", err)
	}
	ch := &models.VideoChallenge{
		ID:         uuid.New(),
		UserID:     userID,
		Challenges: datatypes.JSON(encoded),
		Status:     models.ChallengePending,
		ExpiresAt:  v.now().Add(v.cfg.VideoChallengeTTL),
		CreatedAt:  v.now(),
	}
	if err := v.store.SaveVideoChallenge(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// SubmitChallenge delegates the recorded video to the external liveness
// verifier; success awards the fixed video bonus.
func (v *IdentityVerifier) SubmitChallenge(ctx context.Context, userID uuid.UUID, videoRef string) (*OwnershipResult, error) {
	user, err := v.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ch, err := v.store.ActiveVideoChallenge(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoActiveChallenge
	}
	if err != nil {
		return nil, err
	}
	if v.now().After(ch.ExpiresAt) {
		ch.Status = models.ChallengeExpired
		if err := v.store.SaveVideoChallenge(ctx, ch); err != nil {
			return nil, err
		}
		return nil, ErrChallengeExpired
	}

	var challenges []string
	if err := json.Unmarshal(ch.Challenges, &challenges); err != nil {
		return nil, fmt.Errorf("failed to decode challenges: %w", err)
	}

	result, err := v.providers.Liveness.Verify(ctx, videoRef, challenges)
	if err != nil {
		slog.Warn("liveness verification unavailable", "user_id", userID, "error", err)
		return &OwnershipResult{Verified: false, Message: "Verification is temporarily unavailable. Please try again later."}, nil
	}
	if !result.Passed {
		ch.Status = models.ChallengeFailed
		if err := v.store.SaveVideoChallenge(ctx, ch); err != nil {
			return nil, err
		}
		return &OwnershipResult{Verified: false, Message: "We could not verify the recording. Please request a new challenge."}, nil
	}

	ch.Status = models.ChallengeCompleted
	if err := v.store.SaveVideoChallenge(ctx, ch); err != nil {
		return nil, err
	}

	user.VideoVerified = true
	user.VideoScore = videoBonus
	v.rollUp(user)
	if err := v.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return &OwnershipResult{Verified: true, Message: "Video verification completed."}, nil
}

// ComprehensiveScore sums the four sub-scores, capped at 10, with flags
// explaining what is still missing.
func (v *IdentityVerifier) ComprehensiveScore(ctx context.Context, userID uuid.UUID) (*IdentityScore, error) {
	user, err := v.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	score := &IdentityScore{
		OwnershipScore:  user.OwnershipScore,
		AccountAgeScore: user.AccountAgeScore,
		ActivityScore:   user.ActivityScore,
		VideoScore:      user.VideoScore,
	}
	score.Total = score.OwnershipScore + score.AccountAgeScore + score.ActivityScore + score.VideoScore
	if score.Total > maxIdentityScore {
		score.Total = maxIdentityScore
	}

	if user.OwnershipScore == 0 {
		score.Flags = append(score.Flags, "no social platform ownership confirmed yet")
	}
	if user.AccountAgeScore == 0 {
		score.Flags = append(score.Flags, "platform account history not analyzed yet")
	}
	if user.ActivityScore == 0 {
		score.Flags = append(score.Flags, "platform activity not analyzed yet")
	}
	if !user.VideoVerified {
		score.Flags = append(score.Flags, "live video verification not completed")
	}

	user.AIVerificationScore = score.Total
	if err := v.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return score, nil
}

func (v *IdentityVerifier) rollUp(user *models.User) {
	total := user.OwnershipScore + user.AccountAgeScore + user.ActivityScore + user.VideoScore
	if total > maxIdentityScore {
		total = maxIdentityScore
	}
	user.AIVerificationScore = total
}

func (v *IdentityVerifier) mergeFlags(user *models.User, flags []string) {
	if len(flags) == 0 {
		return
	}
	var existing []string
	_ = json.Unmarshal(user.VerificationFlags, &existing)
	existing = append(existing, flags...)
	if encoded, err := json.Marshal(existing); err == nil {
		user.VerificationFlags = datatypes.JSON(encoded)
	}
}

func sampleChallenges(n int) ([]string, error) {
	pool := make([]string, len(challengePool))
	copy(pool, challengePool)
	picked := make([]string, 0, n)
	for i := 0; i < n && len(pool) > 0; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
		if err != nil {
			return nil, fmt.Errorf("failed to sample challenge: %w", err)
		}
		j := int(idx.Int64())
		picked = append(picked, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}
	return picked, nil
}
