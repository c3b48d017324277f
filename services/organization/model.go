package organization

import (
	"time"

	"gorm.io/datatypes"
)

type PlanType string

var (
	PlanFree PlanType = "free"
	PlanPaid PlanType = "paid"
)

func (p PlanType) String() string {
	switch p {
	case PlanFree, PlanPaid:
		return string(p)
	default:
		return ""
	}
}

type SubscriptionStatus string

var (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Organization is the tenant: the billing unit owning teams, quota and trust
// state.
type Organization struct {
	ID        string         `gorm:"column:id;primaryKey"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	Name      string         `gorm:"column:name"`
	Settings  datatypes.JSON `gorm:"column:settings;type:jsonb"`
}

type Team struct {
	ID             string    `gorm:"column:id;primaryKey"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
	OrganizationID string    `gorm:"column:organization_id;index;not null"`
	Name           string    `gorm:"column:name"`
}

type TeamMember struct {
	ID             string    `gorm:"column:id;primaryKey"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	OrganizationID string    `gorm:"column:organization_id;index;not null"`
	TeamID         string    `gorm:"column:team_id;index;not null"`
	UserID         string    `gorm:"column:user_id;index;not null"`
	Role           string    `gorm:"column:role"`
}

type Subscription struct {
	ID             string             `gorm:"column:id;primaryKey"`
	CreatedAt      time.Time          `gorm:"column:created_at"`
	UpdatedAt      time.Time          `gorm:"column:updated_at"`
	OrganizationID string             `gorm:"column:organization_id;uniqueIndex;not null"`
	PlanType       PlanType           `gorm:"column:plan_type;type:varchar(20);default:'free'"`
	Status         SubscriptionStatus `gorm:"column:status;type:varchar(20);default:'active'"`
}

// TeamProfile feeds the AI collaborator. Captured into the job input snapshot
// at enqueue time; the live row may change afterwards without affecting
// in-flight jobs.
type TeamProfile struct {
	ID               string    `gorm:"column:id;primaryKey"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
	OrganizationID   string    `gorm:"column:organization_id;index;not null"`
	TeamID           string    `gorm:"column:team_id;uniqueIndex;not null"`
	TeamRole         string    `gorm:"column:team_role_description;type:text"`
	Responsibilities string    `gorm:"column:member_responsibilities;type:text"`
	PastActivities   string    `gorm:"column:past_activities_summary;type:text"`
	IndustrySector   string    `gorm:"column:industry_sector"`
	TeamSize         int       `gorm:"column:team_size"`
}

// UploadedMaterial holds extracted document text. Fetched fresh by the worker
// because it may be large; deliberately not part of the job input snapshot.
type UploadedMaterial struct {
	ID             string    `gorm:"column:id;primaryKey"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	OrganizationID string    `gorm:"column:organization_id;index;not null"`
	TeamID         string    `gorm:"column:team_id;index;not null"`
	FileName       string    `gorm:"column:file_name"`
	ContentSummary string    `gorm:"column:content_summary;type:text"`
	ExtractedText  string    `gorm:"column:extracted_text;type:text"`
}
