package job

import (
	"context"
	"encoding/json"
	"time"

	"teamfit-platform/pkg/db/option"
	"teamfit-platform/pkg/db/pagination"
	"teamfit-platform/pkg/errutil"
	"teamfit-platform/pkg/repository"
	"teamfit-platform/pkg/task"
	"teamfit-platform/services/activity"
	"teamfit-platform/services/organization"
	"teamfit-platform/services/quota"
	"teamfit-platform/services/trust"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	asynq task.Enqueuer

	orgs       *organization.Service
	trust      *trust.Service
	quota      *quota.Service
	activities *activity.Service

	jobs repository.Repository[Job]
}

type ServiceParams struct {
	fx.In
	DB         *gorm.DB
	Node       *snowflake.Node
	Asynq      task.Enqueuer
	Orgs       *organization.Service
	Trust      *trust.Service
	Quota      *quota.Service
	Activities *activity.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		node:       p.Node,
		asynq:      p.Asynq,
		orgs:       p.Orgs,
		trust:      p.Trust,
		quota:      p.Quota,
		activities: p.Activities,

		jobs: repository.ProvideStore[Job](p.DB),
	}
}

type CreateRequest struct {
	OrganizationID string `json:"organization_id" binding:"required"`
	TeamID         string `json:"team_id" binding:"required"`
	Requirements   string `json:"requirements"`
}

// CreateCustomGeneration is the asynchronous admission path: paid-plan gate,
// trust gate, quota check, input snapshot, job insert, enqueue. Admission
// errors are returned immediately with no side effects. Quota is NOT
// consumed here; the worker increments it once the batch succeeds.
func (s *Service) CreateCustomGeneration(ctx context.Context, req CreateRequest) (*Job, error) {
	zapLog := zap.L().With(
		zap.String("organization_id", req.OrganizationID),
		zap.String("team_id", req.TeamID),
	)

	paidTier, err := s.orgs.IsPaidTier(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	if !paidTier {
		zapLog.Warn("custom generation requested without paid subscription")
		return nil, errutil.Forbidden("custom activity generation requires paid subscription")
	}

	requires, vtype, err := s.trust.CheckVerificationRequired(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	if requires {
		zapLog.Warn("custom generation blocked by trust gate", zap.String("verification_type", string(vtype)))
		return nil, errutil.VerificationRequired(string(vtype))
	}

	available, record, err := s.quota.CheckAvailable(ctx, req.OrganizationID, quota.KindCustom)
	if err != nil {
		return nil, err
	}
	if !available {
		zapLog.Warn("custom generation blocked by quota", zap.Int("limit", record.Limit(quota.KindCustom)))
		return nil, errutil.QuotaExceeded("custom", record.Limit(quota.KindCustom))
	}

	materials, err := s.orgs.ListMaterials(ctx, req.TeamID)
	if err != nil {
		return nil, err
	}
	if len(materials) == 0 {
		return nil, errutil.BadRequest("no materials uploaded for this team")
	}

	profile, err := s.orgs.GetTeamProfile(ctx, req.TeamID)
	if err != nil {
		return nil, err
	}

	snapshot := InputSnapshot{
		TeamProfile:    activity.TeamContextFromProfile(profile),
		Requirements:   req.Requirements,
		MaterialsCount: len(materials),
	}
	input, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	j := &Job{
		ID:             s.node.Generate().String(),
		OrganizationID: req.OrganizationID,
		TeamID:         req.TeamID,
		JobType:        TypeCustomGeneration,
		Status:         StatePending,
		InputContext:   input,
	}

	if err := s.jobs.Create(ctx, j); err != nil {
		zapLog.Error("failed create job record", zap.Error(err))
		return nil, err
	}

	if _, err := s.asynq.Enqueue(ctx, NewCustomGenerationTask(CustomGenerationPayload{
		JobID:          j.ID,
		TeamID:         req.TeamID,
		OrganizationID: req.OrganizationID,
	})); err != nil {
		zapLog.Error("failed enqueue generation task", zap.String("job_id", j.ID), zap.Error(err))
		return nil, err
	}

	zapLog.Info("generation job enqueued", zap.String("job_id", j.ID))

	return j, nil
}

// JobStatus is the polling view of a job. Activities are resolved from the
// result snapshot only once the job completed; Error is set only for failed
// jobs.
type JobStatus struct {
	Job        *Job
	State      State
	Activities []*activity.GeneratedActivity
	Error      string
}

func (s *Service) GetStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	j, err := s.jobs.FindOne(ctx, &Job{ID: jobID})
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, errutil.NotFound("job not found")
	}

	status := &JobStatus{
		Job:   j,
		State: j.Status,
	}

	if j.Status == StateCompleted && len(j.ResultData) > 0 {
		var result ResultSnapshot
		if err := json.Unmarshal(j.ResultData, &result); err != nil {
			zap.L().Error("failed decode job result snapshot", zap.String("job_id", jobID), zap.Error(err))
			return nil, errutil.Internal("corrupt job result data", errutil.WithErr(err))
		}

		rows, err := s.activities.GetByIDs(ctx, result.ActivityIDs)
		if err != nil {
			return nil, err
		}
		status.Activities = rows
	}

	if j.Status == StateFailed {
		status.Error = j.ErrorMessage
	}

	return status, nil
}

// ListByTeam pages through a team's jobs newest first using the same opaque
// cursor scheme as the activity listing.
func (s *Service) ListByTeam(ctx context.Context, teamID string, p pagination.Pagination) ([]*Job, *pagination.PageInfo, error) {
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

	opts = append(opts, option.ApplyPagination(pagination.Pagination{Limit: limit + 1}))

	rows, err := s.jobs.Find(ctx, &Job{TeamID: teamID}, opts...)
	if err != nil {
		return nil, nil, err
	}

	info := pagination.BuildCursorPageInfo(rows, limit, func(j *Job) string {
		c, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        j.ID,
			CreatedAt: j.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return c
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	return rows, info, nil
}

// Transition moves a job along one forward edge, guarded at the database so
// a stale transition from a concurrent dispatcher is a no-op error rather
// than a backward move.
func (s *Service) Transition(ctx context.Context, jobID string, from, to State, updates map[string]any) error {
	if !CanTransition(from, to) {
		return errutil.Conflict("illegal job state transition",
			errutil.WithDetails(
				errutil.Detail{Field: "from", Message: from.String()},
				errutil.Detail{Field: "to", Message: to.String()},
			))
	}

	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	if to.Terminal() {
		now := time.Now()
		values["completed_at"] = &now
	}

	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", jobID, from).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.Conflict("job not in expected state",
			errutil.WithDetails(errutil.Detail{Field: "expected", Message: from.String()}))
	}

	return nil
}

// Get returns the raw job row.
func (s *Service) Get(ctx context.Context, jobID string) (*Job, error) {
	j, err := s.jobs.FindOne(ctx, &Job{ID: jobID})
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, errutil.NotFound("job not found")
	}
	return j, nil
}
