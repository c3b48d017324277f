package ai

import (
	"context"

	"teamfit-platform/pkg/errutil"
)

// TeamContext is the frozen team profile passed to every generation call.
type TeamContext struct {
	TeamRole         string `json:"team_role_description"`
	Responsibilities string `json:"member_responsibilities"`
	PastActivities   string `json:"past_activities_summary"`
	IndustrySector   string `json:"industry_sector"`
}

// SourceActivity is a public catalog activity used as customization input.
type SourceActivity struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Instructions string `json:"instructions"`
}

// GeneratedContent is the validated shape of one model output. Responses
// missing required fields are rejected at this boundary; partial payloads
// never propagate into storage.
type GeneratedContent struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Category           string   `json:"category"`
	DurationMinutes    int      `json:"duration_minutes"`
	Complexity         string   `json:"complexity"`
	RequiredTools      []string `json:"required_tools"`
	Instructions       string   `json:"instructions"`
	CustomizationNotes string   `json:"customization_notes"`
	TokensUsed         int      `json:"tokens_used"`
	ModelUsed          string   `json:"model_used"`
}

func (g *GeneratedContent) Validate() error {
	missing := make([]errutil.Detail, 0)
	if g.Title == "" {
		missing = append(missing, errutil.Detail{Field: "title", Message: "required"})
	}
	if g.Description == "" {
		missing = append(missing, errutil.Detail{Field: "description", Message: "required"})
	}
	if g.Category == "" {
		missing = append(missing, errutil.Detail{Field: "category", Message: "required"})
	}
	if g.Instructions == "" {
		missing = append(missing, errutil.Detail{Field: "instructions", Message: "required"})
	}
	if g.DurationMinutes <= 0 {
		missing = append(missing, errutil.Detail{Field: "duration_minutes", Message: "must be positive"})
	}

	if len(missing) > 0 {
		return errutil.New(errutil.StatusBadGateway, "model output missing required fields", errutil.WithDetails(missing...))
	}
	return nil
}

// Client is the AI collaborator consumed by the generation pipeline. The
// model is opaque to callers: it either returns validated structured content
// or an error.
type Client interface {
	// Customize adapts a public activity to a team (synchronous path).
	Customize(ctx context.Context, source SourceActivity, team TeamContext, durationMinutes int, paidTier bool) (*GeneratedContent, error)

	// GenerateVariant produces variant seq (1-based) of a custom batch.
	// priorTitles carries titles already generated in this batch so the model
	// is discouraged from repeating itself; uniqueness is best-effort only.
	GenerateVariant(ctx context.Context, team TeamContext, materialsText, requirements string, seq int, priorTitles []string) (*GeneratedContent, error)
}
