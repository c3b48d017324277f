package ai

import (
	"fmt"
	"strings"
)

const customizationPrompt = `You are an expert team-building facilitator. Customize the following team-building activity to be more relevant and engaging for this specific team.

**Original Activity:**
- Title: %s
- Category: %s
- Description: %s
- Instructions: %s

**Team Context:**
- Team Role: %s
- Member Responsibilities: %s
- Past Activities: %s
- Industry Sector: %s
- Target Duration: %d minutes

**Your Task:**
Adapt this activity to fit the team's context, ensuring it:
1. Aligns with their work responsibilities and sector
2. Fits within the %d-minute timeframe
3. Uses relevant examples and scenarios from their industry
4. Maintains the core benefits of the original activity

**Output Format (JSON):**
{
  "title": "Customized activity title",
  "description": "Brief description explaining the customization",
  "category": "Same category as original",
  "duration_minutes": %d,
  "complexity": "easy|medium|hard",
  "required_tools": ["tool1", "tool2"],
  "instructions": "Step-by-step instructions adapted for this team",
  "customization_notes": "What was changed and why"
}

Respond ONLY with valid JSON, no additional text.`

const customGenerationPrompt = `You are an expert team-building activity designer. Create a unique, engaging team-building activity for this specific team.

**Activity #%d of 3** (Make each unique)

**Team Context:**
- Team Role: %s
- Member Responsibilities: %s
- Uploaded Materials Summary: %s
- Additional Requirements: %s

**Previous Activities Generated:** %s
(Make sure this activity is different from the above)

**Your Task:**
Design a completely original team-building activity that:
1. Is specifically tailored to this team's work and responsibilities
2. Incorporates relevant concepts from their uploaded materials
3. Takes 30-45 minutes to complete
4. Promotes collaboration, communication, or problem-solving
5. Is practical for remote/hybrid teams
6. Is different from any previously generated activities

**Output Format (JSON):**
{
  "title": "Creative activity title",
  "description": "Engaging description that explains the value",
  "category": "communication|collaboration|problem_solving|creativity|trust_building",
  "duration_minutes": 30-45,
  "complexity": "easy|medium|hard",
  "required_tools": ["tool1", "tool2"],
  "instructions": "Detailed step-by-step instructions",
  "customization_notes": "Why this activity is perfect for this team"
}

Respond ONLY with valid JSON, no additional text.`

const materialsContextLimit = 2000

func buildCustomizationPrompt(source SourceActivity, team TeamContext, duration int) string {
	return fmt.Sprintf(customizationPrompt,
		source.Title,
		source.Category,
		source.Description,
		source.Instructions,
		orDefault(team.TeamRole, "General team"),
		orDefault(team.Responsibilities, "Various responsibilities"),
		orDefault(team.PastActivities, "No past activities recorded"),
		orDefault(team.IndustrySector, "general"),
		duration,
		duration,
		duration,
	)
}

func buildGenerationPrompt(team TeamContext, materialsText, requirements string, seq int, priorTitles []string) string {
	previous := "None"
	if len(priorTitles) > 0 {
		previous = strings.Join(priorTitles, ", ")
	}

	return fmt.Sprintf(customGenerationPrompt,
		seq,
		orDefault(team.TeamRole, "General team"),
		orDefault(team.Responsibilities, "Various responsibilities"),
		truncate(materialsText, materialsContextLimit),
		orDefault(requirements, "No specific requirements"),
		previous,
	)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
