package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildCustomizationPrompt(t *testing.T) {
	prompt := buildCustomizationPrompt(
		SourceActivity{Title: "Two Truths", Category: "icebreaker", Description: "classic", Instructions: "take turns"},
		TeamContext{TeamRole: "Engineering", IndustrySector: "fintech"},
		45,
	)

	require.Contains(t, prompt, "Title: Two Truths")
	require.Contains(t, prompt, "Industry Sector: fintech")
	require.Contains(t, prompt, "45-minute timeframe")

	// Missing profile fields fall back to neutral defaults.
	require.Contains(t, prompt, "Various responsibilities")
	require.Contains(t, prompt, "No past activities recorded")
}

func TestBuildGenerationPromptPriorTitles(t *testing.T) {
	team := TeamContext{TeamRole: "Engineering"}

	first := buildGenerationPrompt(team, "materials", "outdoor", 1, nil)
	require.Contains(t, first, "Activity #1 of 3")
	require.Contains(t, first, "**Previous Activities Generated:** None")

	third := buildGenerationPrompt(team, "materials", "outdoor", 3, []string{"Alpha", "Beta"})
	require.Contains(t, third, "Activity #3 of 3")
	require.Contains(t, third, "**Previous Activities Generated:** Alpha, Beta")
}

func TestBuildGenerationPromptTruncatesMaterials(t *testing.T) {
	long := strings.Repeat("x", materialsContextLimit+500)
	prompt := buildGenerationPrompt(TeamContext{}, long, "", 1, nil)

	require.Contains(t, prompt, strings.Repeat("x", materialsContextLimit))
	require.NotContains(t, prompt, strings.Repeat("x", materialsContextLimit+1))
}

func TestGeneratedContentValidate(t *testing.T) {
	content := &GeneratedContent{
		Title:           "Variant",
		Description:     "desc",
		Category:        "communication",
		DurationMinutes: 30,
		Instructions:    "steps",
	}
	require.NoError(t, content.Validate())

	content.Title = ""
	content.DurationMinutes = 0
	require.Error(t, content.Validate())
}
