package quota

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"teamfit-platform/pkg/config"
	"teamfit-platform/pkg/errutil"
	"teamfit-platform/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &QuotaRecord{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Quota.FreeTierMonthlyLimit = 5
	cfg.Quota.PaidTierCustomLimit = 10

	return NewService(ServiceParams{DB: db, Node: node, Config: cfg})
}

func seedRecord(t *testing.T, svc *Service, record *QuotaRecord) {
	t.Helper()
	if record.ID == "" {
		record.ID = svc.node.Generate().String()
	}
	require.NoError(t, svc.records.Create(context.Background(), record))
}

func TestCheckAvailableNoRecord(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.CheckAvailable(context.Background(), "org-missing", KindPublic)
	require.Error(t, err)

	be, ok := err.(errutil.BaseError)
	require.True(t, ok)
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestCheckAvailableWithinLimit(t *testing.T) {
	svc := newTestService(t)
	seedRecord(t, svc, &QuotaRecord{
		OrganizationID:            "org-1",
		PublicCustomizationsUsed:  4,
		PublicCustomizationsLimit: 5,
		CustomGenerationsUsed:     10,
		CustomGenerationsLimit:    10,
		QuotaPeriodEnd:            time.Now().AddDate(0, 1, 0),
	})

	available, record, err := svc.CheckAvailable(context.Background(), "org-1", KindPublic)
	require.NoError(t, err)
	require.True(t, available)
	require.Equal(t, 4, record.Used(KindPublic))

	available, _, err = svc.CheckAvailable(context.Background(), "org-1", KindCustom)
	require.NoError(t, err)
	require.False(t, available)
}

func TestIncrementBumpsOnlyRequestedKind(t *testing.T) {
	svc := newTestService(t)
	seedRecord(t, svc, &QuotaRecord{
		OrganizationID:            "org-1",
		PublicCustomizationsLimit: 5,
		CustomGenerationsLimit:    10,
		QuotaPeriodEnd:            time.Now().AddDate(0, 1, 0),
	})

	require.NoError(t, svc.Increment(context.Background(), "org-1", KindCustom))

	record, err := svc.GetStatus(context.Background(), "org-1")
	require.NoError(t, err)
	require.Equal(t, 1, record.CustomGenerationsUsed)
	require.Equal(t, 0, record.PublicCustomizationsUsed)
}

func TestIncrementNoRecord(t *testing.T) {
	svc := newTestService(t)

	err := svc.Increment(context.Background(), "org-missing", KindPublic)
	require.Error(t, err)
}

func TestCheckAvailableResetsExpiredPeriod(t *testing.T) {
	svc := newTestService(t)

	periodEnd := time.Now().AddDate(0, 0, -45)
	seedRecord(t, svc, &QuotaRecord{
		OrganizationID:            "org-1",
		PublicCustomizationsUsed:  5,
		PublicCustomizationsLimit: 5,
		CustomGenerationsUsed:     7,
		CustomGenerationsLimit:    10,
		QuotaPeriodEnd:            periodEnd,
	})

	available, record, err := svc.CheckAvailable(context.Background(), "org-1", KindPublic)
	require.NoError(t, err)
	require.True(t, available)

	// Both counters reset together even though only one kind was checked.
	require.Equal(t, 0, record.PublicCustomizationsUsed)
	require.Equal(t, 0, record.CustomGenerationsUsed)

	// The new period anchors on now, not on the lapsed period end. Skipped
	// months do not compound.
	require.True(t, record.QuotaPeriodEnd.After(time.Now().AddDate(0, 0, 27)))
}

func TestCheckAvailableResetIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	seedRecord(t, svc, &QuotaRecord{
		OrganizationID:            "org-1",
		PublicCustomizationsUsed:  3,
		PublicCustomizationsLimit: 5,
		CustomGenerationsLimit:    10,
		QuotaPeriodEnd:            time.Now().AddDate(0, 0, -1),
	})

	_, first, err := svc.CheckAvailable(context.Background(), "org-1", KindPublic)
	require.NoError(t, err)

	_, second, err := svc.CheckAvailable(context.Background(), "org-1", KindPublic)
	require.NoError(t, err)

	require.Equal(t, 0, second.PublicCustomizationsUsed)
	require.WithinDuration(t, first.QuotaPeriodEnd, second.QuotaPeriodEnd, 5*time.Second)
}

func TestIncrementIfBelow(t *testing.T) {
	svc := newTestService(t)
	seedRecord(t, svc, &QuotaRecord{
		OrganizationID:            "org-1",
		PublicCustomizationsLimit: 5,
		CustomGenerationsUsed:     9,
		CustomGenerationsLimit:    10,
		QuotaPeriodEnd:            time.Now().AddDate(0, 1, 0),
	})

	ok, err := svc.IncrementIfBelow(context.Background(), "org-1", KindCustom)
	require.NoError(t, err)
	require.True(t, ok)

	// At the limit now; a second consume must refuse.
	ok, err = svc.IncrementIfBelow(context.Background(), "org-1", KindCustom)
	require.NoError(t, err)
	require.False(t, ok)

	record, err := svc.GetStatus(context.Background(), "org-1")
	require.NoError(t, err)
	require.Equal(t, 10, record.CustomGenerationsUsed)
}

func TestUpsertTrustBootstrapsRecord(t *testing.T) {
	svc := newTestService(t)

	record, err := svc.UpsertTrust(context.Background(), "org-1", 0.45, true, VerificationEmail)
	require.NoError(t, err)

	require.Equal(t, "org-1", record.OrganizationID)
	require.Equal(t, 5, record.PublicCustomizationsLimit)
	require.Equal(t, 10, record.CustomGenerationsLimit)
	require.Equal(t, 0.45, record.TrustScore)
	require.True(t, record.RequiresVerification)
	require.Equal(t, VerificationEmail, record.VerificationType)
	require.True(t, record.QuotaPeriodEnd.After(time.Now()))
}

func TestUpsertTrustUpdatesExistingRecord(t *testing.T) {
	svc := newTestService(t)
	seedRecord(t, svc, &QuotaRecord{
		OrganizationID:            "org-1",
		PublicCustomizationsUsed:  2,
		PublicCustomizationsLimit: 5,
		CustomGenerationsLimit:    10,
		QuotaPeriodEnd:            time.Now().AddDate(0, 1, 0),
		TrustScore:                0.45,
		RequiresVerification:      true,
		VerificationType:          VerificationEmail,
	})

	record, err := svc.UpsertTrust(context.Background(), "org-1", 0.85, false, VerificationNone)
	require.NoError(t, err)

	require.Equal(t, 0.85, record.TrustScore)
	require.False(t, record.RequiresVerification)

	// Usage counters are untouched by trust refreshes.
	require.Equal(t, 2, record.PublicCustomizationsUsed)
}
