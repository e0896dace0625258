package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/safemeet/safemeet-backend/internal/config"
	"github.com/safemeet/safemeet-backend/internal/models"
	"github.com/safemeet/safemeet-backend/internal/verify"
)

type stubOwnership struct {
	ok  bool
	err error
}

func (s stubOwnership) CheckProof(_ context.Context, _, _ string) (bool, error) {
	return s.ok, s.err
}

type stubAge struct {
	days int
	err  error
}

func (s stubAge) AccountAgeDays(_ context.Context, _ string) (int, error) {
	return s.days, s.err
}

type stubActivity struct {
	metrics verify.ActivityMetrics
	err     error
}

func (s stubActivity) Activity(_ context.Context, _ string) (verify.ActivityMetrics, error) {
	return s.metrics, s.err
}

type stubLiveness struct {
	passed bool
	err    error
}

func (s stubLiveness) Verify(_ context.Context, _ string, _ []string) (verify.LivenessResult, error) {
	return verify.LivenessResult{Passed: s.passed, Score: 1.0}, s.err
}

func newVerifierFixture(providers verify.Providers) (*fakeStore, *IdentityVerifier, *models.User) {
	fs := newFakeStore()
	user := fs.addUser(&models.User{
		DisplayName: "Nora",
		Email:       "nora@example.com",
		CreatedAt:   fixedNow().AddDate(0, 0, -100),
	})
	v := NewIdentityVerifier(fs, providers, config.DefaultThresholds())
	v.now = fixedNow
	return fs, v, user
}

func TestIssueOwnershipCodeSupersedesPrevious(t *testing.T) {
	fs, v, user := newVerifierFixture(verify.DefaultProviders())

	first, err := v.IssueOwnershipCode(context.Background(), user.ID, PlatformLinkedIn)
	if err != nil {
		t.Fatalf("IssueOwnershipCode: %v", err)
	}
	if !strings.HasPrefix(first.Code, "sm-") {
		t.Errorf("code = %q, want sm- prefix", first.Code)
	}

	second, err := v.IssueOwnershipCode(context.Background(), user.ID, PlatformLinkedIn)
	if err != nil {
		t.Fatalf("IssueOwnershipCode: %v", err)
	}
	if first.Code == second.Code {
		t.Error("reissued code should differ")
	}
	if first.Status != models.VerificationExpired {
		t.Errorf("first code status = %q, want expired", first.Status)
	}

	active, err := fs.ActiveVerificationCode(context.Background(), user.ID, PlatformLinkedIn)
	if err != nil {
		t.Fatalf("ActiveVerificationCode: %v", err)
	}
	if active.ID != second.ID {
		t.Error("second code should be the active one")
	}
}

func TestIssueOwnershipCodeUnknownPlatform(t *testing.T) {
	_, v, user := newVerifierFixture(verify.DefaultProviders())

	if _, err := v.IssueOwnershipCode(context.Background(), user.ID, "myspace"); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("err = %v, want ErrUnknownPlatform", err)
	}
}

func TestConfirmOwnershipAwardsPlatformBonus(t *testing.T) {
	fs, v, user := newVerifierFixture(verify.DefaultProviders())

	if _, err := v.IssueOwnershipCode(context.Background(), user.ID, PlatformLinkedIn); err != nil {
		t.Fatalf("IssueOwnershipCode: %v", err)
	}
	result, err := v.ConfirmOwnership(context.Background(), user.ID, PlatformLinkedIn, "https://linkedin.com/in/nora")
	if err != nil {
		t.Fatalf("ConfirmOwnership: %v", err)
	}
	if !result.Verified {
		t.Fatalf("expected verified, got %+v", result)
	}

	saved := fs.users[user.ID]
	if !almostEqual(saved.OwnershipScore, 2.0) {
		t.Errorf("ownership score = %v, want 2.0", saved.OwnershipScore)
	}
	if !almostEqual(saved.AIVerificationScore, 2.0) {
		t.Errorf("rolled up score = %v, want 2.0", saved.AIVerificationScore)
	}
	if !saved.VerifiedPlatforms.Data().LinkedIn.Verified {
		t.Error("linkedin slot not marked verified")
	}
}

func TestConfirmOwnershipWithoutCode(t *testing.T) {
	_, v, user := newVerifierFixture(verify.DefaultProviders())

	if _, err := v.ConfirmOwnership(context.Background(), user.ID, PlatformLinkedIn, "https://linkedin.com/in/nora"); !errors.Is(err, ErrNoActiveCode) {
		t.Fatalf("err = %v, want ErrNoActiveCode", err)
	}
}

func TestConfirmOwnershipExpiredCode(t *testing.T) {
	_, v, user := newVerifierFixture(verify.DefaultProviders())

	if _, err := v.IssueOwnershipCode(context.Background(), user.ID, PlatformInstagram); err != nil {
		t.Fatalf("IssueOwnershipCode: %v", err)
	}
	v.now = func() time.Time { return fixedNow().Add(25 * time.Hour) }

	if _, err := v.ConfirmOwnership(context.Background(), user.ID, PlatformInstagram, "https://instagram.com/nora"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("err = %v, want ErrCodeExpired", err)
	}
}

func TestConfirmOwnershipProviderOutageNeverVerifies(t *testing.T) {
	providers := verify.DefaultProviders()
	providers.Ownership = stubOwnership{err: errors.New("scraper down")}
	fs, v, user := newVerifierFixture(providers)

	if _, err := v.IssueOwnershipCode(context.Background(), user.ID, PlatformLinkedIn); err != nil {
		t.Fatalf("IssueOwnershipCode: %v", err)
	}
	result, err := v.ConfirmOwnership(context.Background(), user.ID, PlatformLinkedIn, "https://linkedin.com/in/nora")
	if err != nil {
		t.Fatalf("outage must be a normal result, got error %v", err)
	}
	if result.Verified {
		t.Fatal("provider outage counted as verified")
	}
	if fs.users[user.ID].OwnershipScore != 0 {
		t.Errorf("ownership score = %v, want 0", fs.users[user.ID].OwnershipScore)
	}
}

func TestOwnershipScoreCapsAcrossPlatforms(t *testing.T) {
	fs, v, user := newVerifierFixture(verify.DefaultProviders())

	for _, platform := range []string{PlatformLinkedIn, PlatformInstagram, PlatformFacebook} {
		if _, err := v.IssueOwnershipCode(context.Background(), user.ID, platform); err != nil {
			t.Fatalf("IssueOwnershipCode(%s): %v", platform, err)
		}
		if _, err := v.ConfirmOwnership(context.Background(), user.ID, platform, "https://"+platform+".com/nora"); err != nil {
			t.Fatalf("ConfirmOwnership(%s): %v", platform, err)
		}
	}

	if got := fs.users[user.ID].OwnershipScore; !almostEqual(got, 4.0) {
		t.Errorf("ownership score = %v, want capped 4.0", got)
	}
}

func TestAnalyzeAccountAgeTiers(t *testing.T) {
	tests := []struct {
		name string
		days int
		want float64
	}{
		{"established", 400, 1.0},
		{"moderate", 200, 0.5},
		{"recent", 30, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers := verify.DefaultProviders()
			providers.Age = stubAge{days: tt.days}
			_, v, user := newVerifierFixture(providers)

			if _, err := v.IssueOwnershipCode(context.Background(), user.ID, PlatformLinkedIn); err != nil {
				t.Fatalf("IssueOwnershipCode: %v", err)
			}
			if _, err := v.ConfirmOwnership(context.Background(), user.ID, PlatformLinkedIn, "https://linkedin.com/in/nora"); err != nil {
				t.Fatalf("ConfirmOwnership: %v", err)
			}

			score, _, err := v.AnalyzeAccountAge(context.Background(), user.ID)
			if err != nil {
				t.Fatalf("AnalyzeAccountAge: %v", err)
			}
			if !almostEqual(score, tt.want) {
				t.Errorf("score = %v, want %v", score, tt.want)
			}
		})
	}
}

func TestAnalyzeActivityScoring(t *testing.T) {
	providers := verify.DefaultProviders()
	providers.Activity = stubActivity{metrics: verify.ActivityMetrics{Posts: 60, Connections: 10}}
	_, v, user := newVerifierFixture(providers)

	if _, err := v.IssueOwnershipCode(context.Background(), user.ID, PlatformLinkedIn); err != nil {
		t.Fatalf("IssueOwnershipCode: %v", err)
	}
	if _, err := v.ConfirmOwnership(context.Background(), user.ID, PlatformLinkedIn, "https://linkedin.com/in/nora"); err != nil {
		t.Fatalf("ConfirmOwnership: %v", err)
	}

	// Posts pass, connections do not: half credit.
	score, _, err := v.AnalyzeActivity(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("AnalyzeActivity: %v", err)
	}
	if !almostEqual(score, 0.5) {
		t.Errorf("score = %v, want 0.5", score)
	}
}

func TestVideoChallengeLifecycle(t *testing.T) {
	fs, v, user := newVerifierFixture(verify.DefaultProviders())

	ch, err := v.RunLiveChallenge(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("RunLiveChallenge: %v", err)
	}
	var challenges []string
	if err := json.Unmarshal(ch.Challenges, &challenges); err != nil {
		t.Fatalf("challenges not valid JSON: %v", err)
	}
	if len(challenges) != challengesPerRun {
		t.Fatalf("issued %d challenges, want %d", len(challenges), challengesPerRun)
	}
	seen := make(map[string]bool)
	for _, c := range challenges {
		if seen[c] {
			t.Errorf("duplicate challenge %q", c)
		}
		seen[c] = true
	}

	result, err := v.SubmitChallenge(context.Background(), user.ID, "video-ref-1")
	if err != nil {
		t.Fatalf("SubmitChallenge: %v", err)
	}
	if !result.Verified {
		t.Fatalf("expected verified, got %+v", result)
	}

	saved := fs.users[user.ID]
	if !saved.VideoVerified {
		t.Error("user not marked video verified")
	}
	if !almostEqual(saved.VideoScore, 2.0) {
		t.Errorf("video score = %v, want 2.0", saved.VideoScore)
	}

	if _, err := v.RunLiveChallenge(context.Background(), user.ID); !errors.Is(err, ErrAlreadyVideoVerified) {
		t.Fatalf("err = %v, want ErrAlreadyVideoVerified", err)
	}
}

func TestSubmitChallengeWithoutActive(t *testing.T) {
	_, v, user := newVerifierFixture(verify.DefaultProviders())

	if _, err := v.SubmitChallenge(context.Background(), user.ID, "video-ref-1"); !errors.Is(err, ErrNoActiveChallenge) {
		t.Fatalf("err = %v, want ErrNoActiveChallenge", err)
	}
}

func TestSubmitChallengeExpired(t *testing.T) {
	_, v, user := newVerifierFixture(verify.DefaultProviders())

	if _, err := v.RunLiveChallenge(context.Background(), user.ID); err != nil {
		t.Fatalf("RunLiveChallenge: %v", err)
	}
	v.now = func() time.Time { return fixedNow().Add(11 * time.Minute) }

	if _, err := v.SubmitChallenge(context.Background(), user.ID, "video-ref-1"); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("err = %v, want ErrChallengeExpired", err)
	}
}

func TestSubmitChallengeLivenessOutage(t *testing.T) {
	providers := verify.DefaultProviders()
	providers.Liveness = stubLiveness{err: errors.New("verifier down")}
	fs, v, user := newVerifierFixture(providers)

	if _, err := v.RunLiveChallenge(context.Background(), user.ID); err != nil {
		t.Fatalf("RunLiveChallenge: %v", err)
	}
	result, err := v.SubmitChallenge(context.Background(), user.ID, "video-ref-1")
	if err != nil {
		t.Fatalf("outage must be a normal result, got error %v", err)
	}
	if result.Verified {
		t.Fatal("verifier outage counted as verified")
	}
	if fs.users[user.ID].VideoVerified {
		t.Error("user marked video verified during outage")
	}
}

func TestComprehensiveScoreFlagsMissingSteps(t *testing.T) {
	_, v, user := newVerifierFixture(verify.DefaultProviders())

	score, err := v.ComprehensiveScore(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ComprehensiveScore: %v", err)
	}
	if score.Total != 0 {
		t.Errorf("total = %v, want 0", score.Total)
	}
	if len(score.Flags) != 4 {
		t.Errorf("flags = %v, want all four missing steps", score.Flags)
	}
}
