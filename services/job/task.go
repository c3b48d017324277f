package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TaskCustomGeneration is the queue task type carrying one job id to a
// worker. Delivery is at-least-once; the worker detects duplicate dispatch
// by job state.
const TaskCustomGeneration = "generation:custom"

const QueueGeneration = "generation"

type CustomGenerationPayload struct {
	JobID          string `json:"job_id"`
	TeamID         string `json:"team_id"`
	OrganizationID string `json:"organization_id"`
}

func NewCustomGenerationTask(p CustomGenerationPayload) *asynq.Task {
	payload, _ := json.Marshal(p)
	return asynq.NewTask(TaskCustomGeneration, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(QueueGeneration),
	)
}
