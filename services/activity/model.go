package activity

import (
	"time"

	"gorm.io/datatypes"
)

// OriginTag records which pipeline produced an activity.
type OriginTag string

var (
	PublicCustomized OriginTag = "public_customized"
	CustomGenerated  OriginTag = "custom_generated"
)

func (o OriginTag) String() string {
	switch o {
	case PublicCustomized, CustomGenerated:
		return string(o)
	default:
		return ""
	}
}

type Status string

var (
	StatusSuggested Status = "suggested"
	StatusSaved     Status = "saved"
	StatusScheduled Status = "scheduled"
	StatusExpired   Status = "expired"
)

func (s Status) String() string {
	switch s {
	case StatusSuggested, StatusSaved, StatusScheduled, StatusExpired:
		return string(s)
	default:
		return ""
	}
}

// ExpiryWindow is how long a suggestion stays fresh. Advisory only: nothing
// reaps expired rows.
const ExpiryWindow = 30 * 24 * time.Hour

// GeneratedActivity is one AI-produced content row. JobID is empty for the
// synchronous public-customization path. Rows are mutated only through
// explicit status updates and never deleted automatically.
type GeneratedActivity struct {
	ID                     string         `gorm:"column:id;primaryKey"`
	CreatedAt              time.Time      `gorm:"column:created_at"`
	UpdatedAt              time.Time      `gorm:"column:updated_at"`
	OrganizationID         string         `gorm:"column:organization_id;index;not null"`
	TeamID                 string         `gorm:"column:team_id;index;not null"`
	JobID                  string         `gorm:"column:job_id;index"`
	Origin                 OriginTag      `gorm:"column:customization_type;type:varchar(30);not null"`
	SourcePublicActivityID string         `gorm:"column:source_public_activity_id"`
	GenerationBatchID      string         `gorm:"column:generation_batch_id;index"`
	SuggestionNumber       int            `gorm:"column:suggestion_number"`
	Status                 Status         `gorm:"column:status;type:varchar(20);default:'suggested'"`
	Title                  string         `gorm:"column:title;not null"`
	Description            string         `gorm:"column:description;type:text"`
	Category               string         `gorm:"column:category"`
	DurationMinutes        int            `gorm:"column:duration_minutes"`
	Complexity             string         `gorm:"column:complexity"`
	RequiredTools          datatypes.JSON `gorm:"column:required_tools;type:jsonb"`
	Instructions           string         `gorm:"column:instructions;type:text"`
	CustomizationNotes     string         `gorm:"column:customization_notes;type:text"`
	TokensUsed             int            `gorm:"column:tokens_used"`
	ExpiresAt              time.Time      `gorm:"column:expires_at"`
}

// PublicActivity is a catalog entry used as customization source material.
type PublicActivity struct {
	ID           string    `gorm:"column:id;primaryKey"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	Title        string    `gorm:"column:title;not null"`
	Description  string    `gorm:"column:description;type:text"`
	Category     string    `gorm:"column:category"`
	Instructions string    `gorm:"column:instructions;type:text"`
}
