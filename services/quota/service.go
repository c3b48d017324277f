package quota

import (
	"context"
	"time"

	"teamfit-platform/pkg/config"
	"teamfit-platform/pkg/db/option"
	"teamfit-platform/pkg/errutil"
	"teamfit-platform/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the quota ledger. It is the only component allowed to mutate
// QuotaRecord rows.
type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	cfg  *config.Config

	records repository.Repository[QuotaRecord]

	now func() time.Time
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		cfg:     p.Config,
		records: repository.ProvideStore[QuotaRecord](p.DB),
		now:     time.Now,
	}
}

func columnFor(kind Kind) string {
	if kind == KindCustom {
		return "custom_generations_used"
	}
	return "public_customizations_used"
}

// CheckAvailable reports whether the organization still has budget for the
// given kind. Observing an expired period triggers a whole-tenant reset of
// both counters before evaluation; there is no scheduled reset job.
//
// This is deliberately NOT atomic with Increment: callers run the expensive
// AI work between the two so quota is only consumed on verified success. Two
// concurrent requests can both pass the check before either increments,
// letting usage exceed the limit by up to (concurrency - 1).
func (s *Service) CheckAvailable(ctx context.Context, orgID string, kind Kind) (bool, *QuotaRecord, error) {
	record, err := s.records.FindOne(ctx, &QuotaRecord{OrganizationID: orgID})
	if err != nil {
		zap.L().Error("failed query quota record", zap.String("organization_id", orgID), zap.Error(err))
		return false, nil, err
	}
	if record == nil {
		return false, nil, errutil.NotFound("quota record not found")
	}

	if s.now().After(record.QuotaPeriodEnd) {
		record, err = s.resetPeriod(ctx, record)
		if err != nil {
			return false, nil, err
		}
	}

	return record.Used(kind) < record.Limit(kind), record, nil
}

// Increment bumps the counter for kind by one. The read and write run in one
// transaction holding the row lock so two Increments never lose an update;
// the admission-level race lives between CheckAvailable and this call, not
// inside it.
func (s *Service) Increment(ctx context.Context, orgID string, kind Kind) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.records.WithTrx(tx.Scopes(option.LockingUpdate)).
			FindOne(ctx, &QuotaRecord{OrganizationID: orgID})
		if err != nil {
			return err
		}
		if record == nil {
			return errutil.NotFound("quota record not found")
		}

		if err := tx.Model(&QuotaRecord{}).
			Where("organization_id = ?", orgID).
			Update(columnFor(kind), record.Used(kind)+1).Error; err != nil {
			zap.L().Error("failed increment quota counter",
				zap.String("organization_id", orgID),
				zap.String("kind", kind.String()),
				zap.Error(err),
			)
			return err
		}

		return nil
	})
}

// IncrementIfBelow is the atomic compare-and-increment hardening variant. It
// consumes one unit only while the counter is strictly below its limit and
// reports whether it did. The default admission path uses the
// CheckAvailable/Increment split instead, matching the documented best-effort
// behavior.
func (s *Service) IncrementIfBelow(ctx context.Context, orgID string, kind Kind) (bool, error) {
	column := columnFor(kind)
	limitColumn := "public_customizations_limit"
	if kind == KindCustom {
		limitColumn = "custom_generations_limit"
	}

	res := s.db.WithContext(ctx).Model(&QuotaRecord{}).
		Where("organization_id = ? AND "+column+" < "+limitColumn, orgID).
		Update(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// GetStatus returns the current quota record without side effects.
func (s *Service) GetStatus(ctx context.Context, orgID string) (*QuotaRecord, error) {
	record, err := s.records.FindOne(ctx, &QuotaRecord{OrganizationID: orgID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errutil.NotFound("quota record not found")
	}
	return record, nil
}

// UpsertTrust persists a freshly computed trust gate onto the organization's
// quota record, creating the record with configured default limits when none
// exists yet (first-use bootstrap).
func (s *Service) UpsertTrust(ctx context.Context, orgID string, score float64, requires bool, vtype VerificationType) (*QuotaRecord, error) {
	record, err := s.records.FindOne(ctx, &QuotaRecord{OrganizationID: orgID})
	if err != nil {
		return nil, err
	}

	if record == nil {
		record = &QuotaRecord{
			ID:                        s.node.Generate().String(),
			OrganizationID:            orgID,
			PublicCustomizationsLimit: s.cfg.Quota.FreeTierMonthlyLimit,
			CustomGenerationsLimit:    s.cfg.Quota.PaidTierCustomLimit,
			QuotaPeriodEnd:            s.now().AddDate(0, 1, 0),
			TrustScore:                score,
			RequiresVerification:      requires,
			VerificationType:          vtype,
		}
		if err := s.records.Create(ctx, record); err != nil {
			zap.L().Error("failed create quota record", zap.String("organization_id", orgID), zap.Error(err))
			return nil, err
		}
		return record, nil
	}

	if err := s.records.Update(ctx, record.ID, map[string]any{
		"trust_score":           score,
		"requires_verification": requires,
		"verification_type":     vtype,
	}); err != nil {
		zap.L().Error("failed update trust on quota record", zap.String("organization_id", orgID), zap.Error(err))
		return nil, err
	}

	return s.records.FindOne(ctx, &QuotaRecord{OrganizationID: orgID})
}

// resetPeriod zeroes both counters together and advances the period end one
// month from now, regardless of how long ago the previous period lapsed.
// Skipped periods do not compound.
func (s *Service) resetPeriod(ctx context.Context, record *QuotaRecord) (*QuotaRecord, error) {
	newEnd := s.now().AddDate(0, 1, 0)

	if err := s.records.Update(ctx, record.ID, map[string]any{
		"public_customizations_used": 0,
		"custom_generations_used":    0,
		"quota_period_end":           newEnd,
	}); err != nil {
		zap.L().Error("failed reset quota period", zap.String("organization_id", record.OrganizationID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("quota period reset",
		zap.String("organization_id", record.OrganizationID),
		zap.Time("previous_period_end", record.QuotaPeriodEnd),
		zap.Time("new_period_end", newEnd),
	)

	return s.records.FindOne(ctx, &QuotaRecord{OrganizationID: record.OrganizationID})
}
