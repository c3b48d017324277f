package trust

import (
	"context"
	"errors"
	"time"

	"teamfit-platform/pkg/errutil"
	"teamfit-platform/pkg/rediskey"
	"teamfit-platform/services/organization"
	"teamfit-platform/services/quota"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Score thresholds for the verification gate.
const (
	phoneThreshold = 0.40
	emailThreshold = 0.60
)

// Additive score adjustments, clamped to [0, 1] after summing.
const (
	newOrgPenalty     = 0.30 // age < 1 day
	youngOrgPenalty   = 0.20 // age < 7 days
	noTeamsPenalty    = 0.25
	soloMemberPenalty = 0.25
	paidPlanBonus     = 0.15
	matureOrgBonus    = 0.10 // age > 30 days
)

// Service derives a [0, 1] trust score from live tenant signals and caches
// the resulting verification gate on the quota record. No other component
// recomputes trust.
type Service struct {
	orgs  *organization.Service
	quota *quota.Service
	redis *redis.Client
}

type ServiceParams struct {
	fx.In
	Orgs  *organization.Service
	Quota *quota.Service
	Redis *redis.Client `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		orgs:  p.Orgs,
		quota: p.Quota,
		redis: p.Redis,
	}
}

// ScoreFromSignals computes the trust score as a pure function of the signal
// snapshot. Age penalties are mutually exclusive; the two structure penalties
// stack.
func ScoreFromSignals(sig organization.TrustSignals) float64 {
	score := 1.00

	if sig.AgeDays < 1 {
		score -= newOrgPenalty
	} else if sig.AgeDays < 7 {
		score -= youngOrgPenalty
	}

	if sig.TeamCount == 0 {
		score -= noTeamsPenalty
	}
	if sig.MemberCount <= 1 {
		score -= soloMemberPenalty
	}

	if sig.HasPayment {
		score += paidPlanBonus
	}
	if sig.AgeDays > 30 {
		score += matureOrgBonus
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// GateForScore maps a score onto the verification gate.
func GateForScore(score float64) (bool, quota.VerificationType) {
	switch {
	case score < phoneThreshold:
		return true, quota.VerificationPhone
	case score < emailThreshold:
		return true, quota.VerificationEmail
	default:
		return false, quota.VerificationNone
	}
}

// CalculateScore re-derives the organization's trust score from its current
// signals. The result is not persisted here; callers that want the gate
// cached go through UpdateTrustScore.
func (s *Service) CalculateScore(ctx context.Context, orgID string) (float64, error) {
	sig, err := s.orgs.GetTrustSignals(ctx, orgID)
	if err != nil {
		return 0, err
	}

	score := ScoreFromSignals(*sig)

	zap.L().Info("trust score calculated",
		zap.String("organization_id", orgID),
		zap.Float64("score", score),
		zap.Int("age_days", sig.AgeDays),
		zap.Int64("team_count", sig.TeamCount),
		zap.Int64("member_count", sig.MemberCount),
		zap.Bool("has_payment", sig.HasPayment),
	)

	return score, nil
}

// trustScoreCacheTTL bounds how stale a redis-served score may be before the
// signals are re-read.
const trustScoreCacheTTL = 5 * time.Minute

// UpdateTrustScore returns the organization's current trust score, serving
// from the redis cache when a fresh value exists and recomputing otherwise.
// The cache is only populated after the derived gate has been persisted, so a
// cache hit always reflects a gate already on the quota record.
func (s *Service) UpdateTrustScore(ctx context.Context, orgID string) (float64, error) {
	if score, ok := s.cachedScore(ctx, orgID); ok {
		return score, nil
	}
	return s.refreshTrustScore(ctx, orgID)
}

// refreshTrustScore recomputes the score and persists the derived gate onto
// the organization's quota record, creating the record when absent.
func (s *Service) refreshTrustScore(ctx context.Context, orgID string) (float64, error) {
	score, err := s.CalculateScore(ctx, orgID)
	if err != nil {
		return 0, err
	}

	requires, vtype := GateForScore(score)

	if _, err := s.quota.UpsertTrust(ctx, orgID, score, requires, vtype); err != nil {
		return 0, err
	}

	s.cacheScore(ctx, orgID, score)

	return score, nil
}

func (s *Service) cachedScore(ctx context.Context, orgID string) (float64, bool) {
	if s.redis == nil {
		return 0, false
	}

	score, err := s.redis.Get(ctx, rediskey.BuildTrustScoreKey(orgID)).Float64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("failed read cached trust score", zap.String("organization_id", orgID), zap.Error(err))
		}
		return 0, false
	}

	return score, true
}

func (s *Service) cacheScore(ctx context.Context, orgID string, score float64) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Set(ctx, rediskey.BuildTrustScoreKey(orgID), score, trustScoreCacheTTL).Err(); err != nil {
		zap.L().Warn("failed cache trust score", zap.String("organization_id", orgID), zap.Error(err))
	}
}

// CheckVerificationRequired reads the cached gate from the quota record.
// When no record exists yet, the score is computed lazily and the record
// bootstrapped before re-reading.
func (s *Service) CheckVerificationRequired(ctx context.Context, orgID string) (bool, quota.VerificationType, error) {
	record, err := s.quota.GetStatus(ctx, orgID)
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) && be.Status() == errutil.StatusNotFound {
			// Bypass the score cache: the record must actually be created.
			if _, err := s.refreshTrustScore(ctx, orgID); err != nil {
				return false, quota.VerificationNone, err
			}
			record, err = s.quota.GetStatus(ctx, orgID)
			if err != nil {
				return false, quota.VerificationNone, err
			}
		} else {
			return false, quota.VerificationNone, err
		}
	}

	vtype := record.VerificationType
	if record.RequiresVerification && vtype == quota.VerificationNone {
		vtype = quota.VerificationEmail
	}

	return record.RequiresVerification, vtype, nil
}
