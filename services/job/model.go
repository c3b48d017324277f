package job

import (
	"time"

	"teamfit-platform/pkg/ai"

	"gorm.io/datatypes"
)

// State is a job's lifecycle position. Progression is strictly forward:
//
//	pending -> processing -> completed | failed
//
// Terminal states are immutable; there is no cancelled state and no retry in
// place. Retrying means creating a fresh job.
type State string

var (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

func (s State) String() string {
	switch s {
	case StatePending, StateProcessing, StateCompleted, StateFailed:
		return string(s)
	default:
		return ""
	}
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether from -> to is a legal forward edge.
func CanTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateProcessing
	case StateProcessing:
		return to == StateCompleted || to == StateFailed
	default:
		return false
	}
}

// TypeCustomGeneration is currently the only job type.
const TypeCustomGeneration = "custom_generation"

// InputSnapshot is the worker's sole source of truth, frozen at enqueue
// time. The worker must not re-derive these inputs from live rows; material
// content is the one exception, fetched fresh because of its size.
type InputSnapshot struct {
	TeamProfile    ai.TeamContext `json:"team_profile"`
	Requirements   string         `json:"requirements"`
	MaterialsCount int            `json:"materials_count"`
}

// ResultSnapshot is attached exactly once, on the completed transition.
type ResultSnapshot struct {
	ActivityIDs         []string `json:"activity_ids"`
	GenerationBatchID   string   `json:"generation_batch_id"`
	TotalTokensUsed     int      `json:"total_tokens_used"`
	ActivitiesGenerated int      `json:"activities_generated"`
}

// Job is the durable record of one asynchronous generation request. Exactly
// one of ResultData / ErrorMessage is populated once the job is terminal;
// neither is populated before.
type Job struct {
	ID             string         `gorm:"column:id;primaryKey"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
	OrganizationID string         `gorm:"column:organization_id;index;not null"`
	TeamID         string         `gorm:"column:team_id;index;not null"`
	JobType        string         `gorm:"column:job_type;type:varchar(30);not null"`
	Status         State          `gorm:"column:status;type:varchar(20);default:'pending'"`
	InputContext   datatypes.JSON `gorm:"column:input_context;type:jsonb"`
	ResultData     datatypes.JSON `gorm:"column:result_data;type:jsonb"`
	ErrorMessage   string         `gorm:"column:error_message;type:text"`
	TokensUsed     int            `gorm:"column:tokens_used"`
	CompletedAt    *time.Time     `gorm:"column:completed_at"`
}
