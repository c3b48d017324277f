package activity

import (
	"context"
	"encoding/json"
	"time"

	"teamfit-platform/pkg/ai"
	"teamfit-platform/pkg/db/option"
	"teamfit-platform/pkg/db/pagination"
	"teamfit-platform/pkg/errutil"
	"teamfit-platform/pkg/repository"
	"teamfit-platform/services/organization"
	"teamfit-platform/services/quota"
	"teamfit-platform/services/trust"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	ai   ai.Client

	orgs  *organization.Service
	trust *trust.Service
	quota *quota.Service

	activities repository.Repository[GeneratedActivity]
	catalog    repository.Repository[PublicActivity]
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	AI    ai.Client
	Orgs  *organization.Service
	Trust *trust.Service
	Quota *quota.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		node:  p.Node,
		ai:    p.AI,
		orgs:  p.Orgs,
		trust: p.Trust,
		quota: p.Quota,

		activities: repository.ProvideStore[GeneratedActivity](p.DB),
		catalog:    repository.ProvideStore[PublicActivity](p.DB),
	}
}

type CustomizeRequest struct {
	OrganizationID   string `json:"organization_id" binding:"required"`
	TeamID           string `json:"team_id" binding:"required"`
	PublicActivityID string `json:"public_activity_id" binding:"required"`
	DurationMinutes  int    `json:"duration_minutes" binding:"required"`
}

// CustomizePublic runs the synchronous generation path: trust gate, quota
// check, inline AI call, persist, then a single quota increment. Quota is
// consumed only after the AI call succeeds, which is why the check and the
// increment are separate calls.
func (s *Service) CustomizePublic(ctx context.Context, req CustomizeRequest) (*GeneratedActivity, *quota.QuotaRecord, error) {
	zapLog := zap.L().With(
		zap.String("organization_id", req.OrganizationID),
		zap.String("team_id", req.TeamID),
		zap.String("public_activity_id", req.PublicActivityID),
	)

	requires, vtype, err := s.trust.CheckVerificationRequired(ctx, req.OrganizationID)
	if err != nil {
		return nil, nil, err
	}
	if requires {
		zapLog.Warn("customization blocked by trust gate", zap.String("verification_type", string(vtype)))
		return nil, nil, errutil.VerificationRequired(string(vtype))
	}

	available, record, err := s.quota.CheckAvailable(ctx, req.OrganizationID, quota.KindPublic)
	if err != nil {
		return nil, nil, err
	}
	if !available {
		zapLog.Warn("customization blocked by quota", zap.Int("limit", record.Limit(quota.KindPublic)))
		return nil, nil, errutil.QuotaExceeded("customization", record.Limit(quota.KindPublic))
	}

	source, err := s.catalog.FindOne(ctx, &PublicActivity{ID: req.PublicActivityID})
	if err != nil {
		return nil, nil, err
	}
	if source == nil {
		return nil, nil, errutil.NotFound("public activity not found")
	}

	profile, err := s.orgs.GetTeamProfile(ctx, req.TeamID)
	if err != nil {
		return nil, nil, err
	}

	paidTier, err := s.orgs.IsPaidTier(ctx, req.OrganizationID)
	if err != nil {
		return nil, nil, err
	}

	content, err := s.ai.Customize(ctx,
		ai.SourceActivity{
			Title:        source.Title,
			Description:  source.Description,
			Category:     source.Category,
			Instructions: source.Instructions,
		},
		TeamContextFromProfile(profile),
		req.DurationMinutes,
		paidTier,
	)
	if err != nil {
		zapLog.Error("inline customization failed", zap.Error(err))
		return nil, nil, err
	}

	row := s.newRow(req.OrganizationID, req.TeamID, PublicCustomized, content)
	row.SourcePublicActivityID = req.PublicActivityID

	if err := s.activities.Create(ctx, row); err != nil {
		zapLog.Error("failed persist customized activity", zap.Error(err))
		return nil, nil, err
	}

	if err := s.quota.Increment(ctx, req.OrganizationID, quota.KindPublic); err != nil {
		return nil, nil, err
	}

	updated, err := s.quota.GetStatus(ctx, req.OrganizationID)
	if err != nil {
		return nil, nil, err
	}

	zapLog.Info("activity customized", zap.String("activity_id", row.ID))

	return row, updated, nil
}

// PersistVariant stores one variant of an asynchronous generation batch.
func (s *Service) PersistVariant(ctx context.Context, orgID, teamID, jobID, batchID string, seq int, content *ai.GeneratedContent) (*GeneratedActivity, error) {
	row := s.newRow(orgID, teamID, CustomGenerated, content)
	row.JobID = jobID
	row.GenerationBatchID = batchID
	row.SuggestionNumber = seq

	if err := s.activities.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Service) newRow(orgID, teamID string, origin OriginTag, content *ai.GeneratedContent) *GeneratedActivity {
	tools, _ := json.Marshal(content.RequiredTools)
	now := time.Now()

	return &GeneratedActivity{
		ID:                 s.node.Generate().String(),
		OrganizationID:     orgID,
		TeamID:             teamID,
		Origin:             origin,
		Status:             StatusSuggested,
		Title:              content.Title,
		Description:        content.Description,
		Category:           content.Category,
		DurationMinutes:    content.DurationMinutes,
		Complexity:         content.Complexity,
		RequiredTools:      tools,
		Instructions:       content.Instructions,
		CustomizationNotes: content.CustomizationNotes,
		TokensUsed:         content.TokensUsed,
		ExpiresAt:          now.Add(ExpiryWindow),
	}
}

// statusAliases maps client-facing status names onto the stored lifecycle.
var statusAliases = map[string]Status{
	"ready":    StatusSaved,
	"archived": StatusExpired,
	"in_use":   StatusScheduled,
}

// UpdateStatus moves an activity through its lifecycle. Aliases used by
// older clients are accepted and mapped.
func (s *Service) UpdateStatus(ctx context.Context, activityID, status string) (*GeneratedActivity, error) {
	target, ok := statusAliases[status]
	if !ok {
		target = Status(status)
	}
	if target.String() == "" || target == StatusSuggested {
		return nil, errutil.ValidationFailed("invalid activity status",
			errutil.WithDetails(errutil.Detail{Field: "status", Message: status}))
	}

	existing, err := s.activities.FindOne(ctx, &GeneratedActivity{ID: activityID})
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errutil.NotFound("activity not found")
	}

	if err := s.activities.Update(ctx, activityID, map[string]any{"status": target}); err != nil {
		return nil, err
	}

	return s.activities.FindOne(ctx, &GeneratedActivity{ID: activityID})
}

// ListByTeam pages through a team's activities newest first. The returned
// PageInfo carries an opaque cursor; rows created at the exact cursor
// timestamp fall into the previous page.
func (s *Service) ListByTeam(ctx context.Context, teamID string, p pagination.Pagination) ([]*GeneratedActivity, *pagination.PageInfo, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
	}

	if p.Cursor != "" {
		cursor, err := pagination.DecodeCursor(p.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid pagination cursor")
		}
		before, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid pagination cursor")
		}
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.LT,
			Value:    before,
		}))
	}

	// Fetch one extra row to detect whether another page exists.
	opts = append(opts, option.ApplyPagination(pagination.Pagination{Limit: limit + 1}))

	rows, err := s.activities.Find(ctx, &GeneratedActivity{TeamID: teamID}, opts...)
	if err != nil {
		return nil, nil, err
	}

	info := pagination.BuildCursorPageInfo(rows, limit, func(a *GeneratedActivity) string {
		c, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        a.ID,
			CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return c
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	return rows, info, nil
}

// GetByIDs resolves activity rows referenced by a job result snapshot.
func (s *Service) GetByIDs(ctx context.Context, ids []string) ([]*GeneratedActivity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.activities.Find(ctx, &GeneratedActivity{},
		option.ApplyOperator(option.Condition{
			Field:    "id",
			Operator: option.IN,
			Value:    ids,
		}),
	)
}

// TeamContextFromProfile projects the stored profile onto the AI prompt
// context.
func TeamContextFromProfile(p *organization.TeamProfile) ai.TeamContext {
	return ai.TeamContext{
		TeamRole:         p.TeamRole,
		Responsibilities: p.Responsibilities,
		PastActivities:   p.PastActivities,
		IndustrySector:   p.IndustrySector,
	}
}
