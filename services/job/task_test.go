package job

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCustomGenerationTask(t *testing.T) {
	payload := CustomGenerationPayload{
		JobID:          "job-1",
		TeamID:         "team-1",
		OrganizationID: "org-1",
	}

	task := NewCustomGenerationTask(payload)

	require.Equal(t, TaskCustomGeneration, task.Type())

	var decoded CustomGenerationPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, payload, decoded)
}
