package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"teamfit-platform/pkg/ai"
	"teamfit-platform/pkg/config"
	"teamfit-platform/pkg/db/pagination"
	"teamfit-platform/pkg/errutil"
	"teamfit-platform/services/organization"
	"teamfit-platform/services/quota"
	"teamfit-platform/services/testutil"
	"teamfit-platform/services/trust"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeAI struct {
	customizeFn func(ctx context.Context, source ai.SourceActivity, team ai.TeamContext, durationMinutes int, paidTier bool) (*ai.GeneratedContent, error)
	generateFn  func(ctx context.Context, team ai.TeamContext, materialsText, requirements string, seq int, priorTitles []string) (*ai.GeneratedContent, error)
}

func (f *fakeAI) Customize(ctx context.Context, source ai.SourceActivity, team ai.TeamContext, durationMinutes int, paidTier bool) (*ai.GeneratedContent, error) {
	if f.customizeFn != nil {
		return f.customizeFn(ctx, source, team, durationMinutes, paidTier)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeAI) GenerateVariant(ctx context.Context, team ai.TeamContext, materialsText, requirements string, seq int, priorTitles []string) (*ai.GeneratedContent, error) {
	if f.generateFn != nil {
		return f.generateFn(ctx, team, materialsText, requirements, seq, priorTitles)
	}
	return nil, errors.New("not implemented")
}

type fixture struct {
	svc    *Service
	quotas *quota.Service
	db     *gorm.DB
	ai     *fakeAI
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&organization.Organization{},
		&organization.Team{},
		&organization.TeamMember{},
		&organization.Subscription{},
		&organization.TeamProfile{},
		&organization.UploadedMaterial{},
		&quota.QuotaRecord{},
		&GeneratedActivity{},
		&PublicActivity{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Quota.FreeTierMonthlyLimit = 5
	cfg.Quota.PaidTierCustomLimit = 10

	orgs := organization.NewService(organization.ServiceParams{DB: db, Node: node})
	quotas := quota.NewService(quota.ServiceParams{DB: db, Node: node, Config: cfg})
	trusts := trust.NewService(trust.ServiceParams{Orgs: orgs, Quota: quotas})
	fake := &fakeAI{}

	svc := NewService(ServiceParams{
		DB:    db,
		Node:  node,
		AI:    fake,
		Orgs:  orgs,
		Trust: trusts,
		Quota: quotas,
	})

	return &fixture{svc: svc, quotas: quotas, db: db, ai: fake}
}

// seedTenant creates a trusted organization with a team profile and a
// catalog activity to customize.
func (f *fixture) seedTenant(t *testing.T) {
	t.Helper()

	require.NoError(t, f.db.Create(&organization.Organization{
		ID:        "org-1",
		CreatedAt: time.Now().AddDate(0, 0, -90),
		Name:      "Acme",
	}).Error)
	require.NoError(t, f.db.Create(&organization.Team{ID: "team-1", OrganizationID: "org-1"}).Error)
	for _, userID := range []string{"u1", "u2", "u3"} {
		require.NoError(t, f.db.Create(&organization.TeamMember{
			ID:             "m-" + userID,
			OrganizationID: "org-1",
			TeamID:         "team-1",
			UserID:         userID,
		}).Error)
	}
	require.NoError(t, f.db.Create(&organization.TeamProfile{
		ID:             "profile-1",
		OrganizationID: "org-1",
		TeamID:         "team-1",
		TeamRole:       "Engineering",
	}).Error)
	require.NoError(t, f.db.Create(&PublicActivity{
		ID:           "pub-1",
		Title:        "Two Truths and a Lie",
		Description:  "Classic icebreaker",
		Category:     "icebreaker",
		Instructions: "Take turns guessing.",
	}).Error)
}

func sampleContent(title string) *ai.GeneratedContent {
	return &ai.GeneratedContent{
		Title:           title,
		Description:     "desc",
		Category:        "icebreaker",
		DurationMinutes: 30,
		Complexity:      "easy",
		RequiredTools:   []string{"none"},
		Instructions:    "do the thing",
		TokensUsed:      321,
		ModelUsed:       "gpt-4o-mini",
	}
}

func TestCustomizePublic(t *testing.T) {
	f := newFixture(t)
	f.seedTenant(t)
	ctx := context.Background()

	f.ai.customizeFn = func(_ context.Context, source ai.SourceActivity, team ai.TeamContext, durationMinutes int, paidTier bool) (*ai.GeneratedContent, error) {
		require.Equal(t, "Two Truths and a Lie", source.Title)
		require.Equal(t, "Engineering", team.TeamRole)
		require.Equal(t, 45, durationMinutes)
		require.False(t, paidTier)
		return sampleContent("Two Truths, Remixed"), nil
	}

	row, record, err := f.svc.CustomizePublic(ctx, CustomizeRequest{
		OrganizationID:   "org-1",
		TeamID:           "team-1",
		PublicActivityID: "pub-1",
		DurationMinutes:  45,
	})
	require.NoError(t, err)

	require.Equal(t, PublicCustomized, row.Origin)
	require.Equal(t, StatusSuggested, row.Status)
	require.Equal(t, "pub-1", row.SourcePublicActivityID)
	require.Empty(t, row.JobID)
	require.Equal(t, 321, row.TokensUsed)
	require.WithinDuration(t, time.Now().Add(ExpiryWindow), row.ExpiresAt, time.Minute)

	// Exactly one unit consumed, custom counter untouched.
	require.Equal(t, 1, record.PublicCustomizationsUsed)
	require.Equal(t, 0, record.CustomGenerationsUsed)
}

func TestCustomizePublicQuotaExhausted(t *testing.T) {
	f := newFixture(t)
	f.seedTenant(t)
	ctx := context.Background()

	// Bootstrap the quota record, then exhaust the public counter.
	_, _, err := f.svc.trust.CheckVerificationRequired(ctx, "org-1")
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&quota.QuotaRecord{}).
		Where("organization_id = ?", "org-1").
		Update("public_customizations_used", 5).Error)

	_, _, err = f.svc.CustomizePublic(ctx, CustomizeRequest{
		OrganizationID:   "org-1",
		TeamID:           "team-1",
		PublicActivityID: "pub-1",
		DurationMinutes:  30,
	})
	require.Error(t, err)

	be, ok := err.(errutil.BaseError)
	require.True(t, ok)
	require.Equal(t, errutil.StatusTooManyRequests, be.Status())
}

func TestCustomizePublicBlockedByTrustGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Brand new solo org scores 0.20, below the phone threshold.
	require.NoError(t, f.db.Create(&organization.Organization{
		ID:        "org-new",
		CreatedAt: time.Now(),
		Name:      "Sketchy",
	}).Error)

	_, _, err := f.svc.CustomizePublic(ctx, CustomizeRequest{
		OrganizationID:   "org-new",
		TeamID:           "team-1",
		PublicActivityID: "pub-1",
		DurationMinutes:  30,
	})
	require.Error(t, err)

	be, ok := err.(errutil.BaseError)
	require.True(t, ok)
	require.Equal(t, errutil.StatusForbidden, be.Status())
	require.Equal(t, "phone", be.Details[0].Message)
}

func TestCustomizePublicAIFailureConsumesNoQuota(t *testing.T) {
	f := newFixture(t)
	f.seedTenant(t)
	ctx := context.Background()

	f.ai.customizeFn = func(context.Context, ai.SourceActivity, ai.TeamContext, int, bool) (*ai.GeneratedContent, error) {
		return nil, errutil.GenerationFailed("model timeout", nil)
	}

	_, _, err := f.svc.CustomizePublic(ctx, CustomizeRequest{
		OrganizationID:   "org-1",
		TeamID:           "team-1",
		PublicActivityID: "pub-1",
		DurationMinutes:  30,
	})
	require.Error(t, err)

	record, err := f.quotas.GetStatus(ctx, "org-1")
	require.NoError(t, err)
	require.Equal(t, 0, record.PublicCustomizationsUsed)

	var count int64
	require.NoError(t, f.db.Model(&GeneratedActivity{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCustomizePublicUnknownCatalogEntry(t *testing.T) {
	f := newFixture(t)
	f.seedTenant(t)

	_, _, err := f.svc.CustomizePublic(context.Background(), CustomizeRequest{
		OrganizationID:   "org-1",
		TeamID:           "team-1",
		PublicActivityID: "pub-missing",
		DurationMinutes:  30,
	})
	require.Error(t, err)

	be, ok := err.(errutil.BaseError)
	require.True(t, ok)
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestUpdateStatusAliases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	row := f.svc.newRow("org-1", "team-1", PublicCustomized, sampleContent("Generated"))
	require.NoError(t, f.db.Create(row).Error)

	tests := []struct {
		input string
		want  Status
	}{
		{"ready", StatusSaved},
		{"in_use", StatusScheduled},
		{"archived", StatusExpired},
		{"saved", StatusSaved},
	}

	for _, tt := range tests {
		updated, err := f.svc.UpdateStatus(ctx, row.ID, tt.input)
		require.NoError(t, err, "status %q", tt.input)
		require.Equal(t, tt.want, updated.Status)
	}
}

func TestUpdateStatusRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	row := f.svc.newRow("org-1", "team-1", PublicCustomized, sampleContent("Generated"))
	require.NoError(t, f.db.Create(row).Error)

	_, err := f.svc.UpdateStatus(ctx, row.ID, "bogus")
	require.Error(t, err)

	// suggested is the creation state, not a settable target.
	_, err = f.svc.UpdateStatus(ctx, row.ID, "suggested")
	require.Error(t, err)
}

func TestUpdateStatusNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), "missing", "saved")
	require.Error(t, err)
}

func TestListByTeamNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, title := range []string{"first", "second", "third"} {
		row := f.svc.newRow("org-1", "team-1", CustomGenerated, sampleContent(title))
		row.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.db.Create(row).Error)
	}

	rows, info, err := f.svc.ListByTeam(ctx, "team-1", pagination.Pagination{Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "third", rows[0].Title)
	require.Equal(t, "second", rows[1].Title)
	require.True(t, info.HasMore)
}

func TestListByTeamCursorWalksAllPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, title := range []string{"a", "b", "c", "d", "e"} {
		row := f.svc.newRow("org-1", "team-1", CustomGenerated, sampleContent(title))
		row.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.db.Create(row).Error)
	}

	page1, info, err := f.svc.ListByTeam(ctx, "team-1", pagination.Pagination{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Equal(t, "e", page1[0].Title)
	require.Equal(t, "d", page1[1].Title)
	require.True(t, info.HasMore)
	require.NotEmpty(t, info.NextCursor)

	page2, info, err := f.svc.ListByTeam(ctx, "team-1", pagination.Pagination{Limit: 2, Cursor: info.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.Equal(t, "c", page2[0].Title)
	require.Equal(t, "b", page2[1].Title)
	require.True(t, info.HasMore)

	page3, info, err := f.svc.ListByTeam(ctx, "team-1", pagination.Pagination{Limit: 2, Cursor: info.NextCursor})
	require.NoError(t, err)
	require.Len(t, page3, 1)
	require.Equal(t, "a", page3[0].Title)
	require.False(t, info.HasMore)
}

func TestListByTeamRejectsGarbageCursor(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.ListByTeam(context.Background(), "team-1", pagination.Pagination{Limit: 2, Cursor: "not-base64!"})
	require.Error(t, err)
}
