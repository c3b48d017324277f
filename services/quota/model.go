package quota

import (
	"time"
)

// Kind selects one of the two independently metered AI feature classes.
type Kind string

var (
	// KindPublic meters lightweight, synchronous public customizations.
	KindPublic Kind = "public"
	// KindCustom meters heavyweight, asynchronous custom generations.
	KindCustom Kind = "custom"
)

func (k Kind) String() string {
	switch k {
	case KindPublic, KindCustom:
		return string(k)
	default:
		return ""
	}
}

type VerificationType string

var (
	VerificationNone  VerificationType = ""
	VerificationEmail VerificationType = "email"
	VerificationPhone VerificationType = "phone"
)

// QuotaRecord tracks both monthly counters plus the cached trust gate for one
// organization. used <= limit is not enforced here; the check-before-increment
// protocol enforces it best-effort. Counters only move up, except on period
// reset.
type QuotaRecord struct {
	ID                        string           `gorm:"column:id;primaryKey"`
	CreatedAt                 time.Time        `gorm:"column:created_at"`
	UpdatedAt                 time.Time        `gorm:"column:updated_at"`
	OrganizationID            string           `gorm:"column:organization_id;uniqueIndex;not null"`
	PublicCustomizationsUsed  int              `gorm:"column:public_customizations_used;default:0"`
	PublicCustomizationsLimit int              `gorm:"column:public_customizations_limit"`
	CustomGenerationsUsed     int              `gorm:"column:custom_generations_used;default:0"`
	CustomGenerationsLimit    int              `gorm:"column:custom_generations_limit"`
	QuotaPeriodEnd            time.Time        `gorm:"column:quota_period_end"`
	TrustScore                float64          `gorm:"column:trust_score;default:0"`
	RequiresVerification      bool             `gorm:"column:requires_verification;default:false"`
	VerificationType          VerificationType `gorm:"column:verification_type;type:varchar(10)"`
}

// Used returns the counter for the given kind.
func (q *QuotaRecord) Used(kind Kind) int {
	if kind == KindCustom {
		return q.CustomGenerationsUsed
	}
	return q.PublicCustomizationsUsed
}

// Limit returns the configured cap for the given kind.
func (q *QuotaRecord) Limit(kind Kind) int {
	if kind == KindCustom {
		return q.CustomGenerationsLimit
	}
	return q.PublicCustomizationsLimit
}
