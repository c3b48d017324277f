package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"teamfit-platform/pkg/ai"
	"teamfit-platform/services/activity"
	"teamfit-platform/services/job"
	"teamfit-platform/services/organization"
	"teamfit-platform/services/quota"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// VariantsPerBatch is how many content variants one job produces.
const VariantsPerBatch = 3

// Worker drains generation jobs from the queue, one job fully processed per
// invocation. A crash mid-processing leaves the job in processing with no
// lease or timeout to recover it; that gap is deliberate.
type Worker struct {
	node *snowflake.Node
	ai   ai.Client

	jobs       *job.Service
	orgs       *organization.Service
	activities *activity.Service
	quota      *quota.Service
}

type WorkerParams struct {
	fx.In
	Node       *snowflake.Node
	AI         ai.Client
	Jobs       *job.Service
	Orgs       *organization.Service
	Activities *activity.Service
	Quota      *quota.Service
}

func NewWorker(p WorkerParams) *Worker {
	return &Worker{
		node:       p.Node,
		ai:         p.AI,
		jobs:       p.Jobs,
		orgs:       p.Orgs,
		activities: p.Activities,
		quota:      p.Quota,
	}
}

// HandleCustomGenerationTask processes one generation job end to end.
// Failures after the claim are recorded on the job and do not propagate to
// the consumer loop; the only way a caller observes them is by polling.
func (w *Worker) HandleCustomGenerationTask(ctx context.Context, t *asynq.Task) error {
	var payload job.CustomGenerationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("job_id", payload.JobID),
		zap.String("organization_id", payload.OrganizationID),
		zap.String("team_id", payload.TeamID),
	)
	zapLog.Info("start custom generation job")

	// Claim. The queue is at-least-once; a redelivered job is no longer
	// pending and the claim surfaces that instead of reprocessing.
	if err := w.jobs.Transition(ctx, payload.JobID, job.StatePending, job.StateProcessing, nil); err != nil {
		zapLog.Warn("failed to claim job", zap.Error(err))
		return err
	}

	if err := w.process(ctx, zapLog, payload); err != nil {
		w.markFailed(ctx, zapLog, payload.JobID, err)
		return nil
	}

	zapLog.Info("custom generation job completed")
	return nil
}

func (w *Worker) process(ctx context.Context, zapLog *zap.Logger, payload job.CustomGenerationPayload) error {
	j, err := w.jobs.Get(ctx, payload.JobID)
	if err != nil {
		return err
	}

	// The snapshot is the sole source of truth for profile and
	// requirements. Material content is fetched fresh: it can be large and
	// is deliberately outside the snapshot.
	var snapshot job.InputSnapshot
	if err := json.Unmarshal(j.InputContext, &snapshot); err != nil {
		return fmt.Errorf("corrupt input snapshot: %w", err)
	}

	materials, err := w.orgs.ListMaterials(ctx, payload.TeamID)
	if err != nil {
		return err
	}
	materialsText := organization.CombineMaterialsText(materials)

	batchID := w.node.Generate().String()
	activityIDs := make([]string, 0, VariantsPerBatch)
	priorTitles := make([]string, 0, VariantsPerBatch)
	totalTokens := 0

	for seq := 1; seq <= VariantsPerBatch; seq++ {
		content, err := w.ai.GenerateVariant(ctx, snapshot.TeamProfile, materialsText, snapshot.Requirements, seq, priorTitles)
		if err != nil {
			// Variants persisted before this point stay behind as
			// orphaned rows; there is no batch rollback.
			return fmt.Errorf("variant %d: %w", seq, err)
		}

		row, err := w.activities.PersistVariant(ctx, payload.OrganizationID, payload.TeamID, payload.JobID, batchID, seq, content)
		if err != nil {
			return fmt.Errorf("persist variant %d: %w", seq, err)
		}

		activityIDs = append(activityIDs, row.ID)
		priorTitles = append(priorTitles, content.Title)
		totalTokens += content.TokensUsed
	}

	result, err := json.Marshal(job.ResultSnapshot{
		ActivityIDs:         activityIDs,
		GenerationBatchID:   batchID,
		TotalTokensUsed:     totalTokens,
		ActivitiesGenerated: len(activityIDs),
	})
	if err != nil {
		return err
	}

	if err := w.jobs.Transition(ctx, payload.JobID, job.StateProcessing, job.StateCompleted, map[string]any{
		"result_data": result,
		"tokens_used": totalTokens,
	}); err != nil {
		return err
	}

	// One increment for the whole batch, and only after verified success.
	if err := w.quota.Increment(ctx, payload.OrganizationID, quota.KindCustom); err != nil {
		zapLog.Error("failed increment custom quota after completion", zap.Error(err))
		return nil
	}

	zapLog.Info("batch persisted",
		zap.String("batch_id", batchID),
		zap.Int("activities", len(activityIDs)),
		zap.Int("total_tokens", totalTokens),
	)

	return nil
}

func (w *Worker) markFailed(ctx context.Context, zapLog *zap.Logger, jobID string, cause error) {
	zapLog.Error("custom generation job failed", zap.Error(cause))

	if err := w.jobs.Transition(ctx, jobID, job.StateProcessing, job.StateFailed, map[string]any{
		"error_message": cause.Error(),
	}); err != nil {
		// The terminal write itself failed; the job stays stuck in
		// processing with no compensating transaction.
		zapLog.Error("failed to record job failure", zap.Error(err))
	}
}
