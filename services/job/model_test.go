package job

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StatePending, StateProcessing, true},
		{StateProcessing, StateCompleted, true},
		{StateProcessing, StateFailed, true},

		{StatePending, StateCompleted, false},
		{StatePending, StateFailed, false},
		{StateProcessing, StatePending, false},
		{StateCompleted, StateProcessing, false},
		{StateCompleted, StateFailed, false},
		{StateFailed, StateProcessing, false},
		{StateFailed, StatePending, false},
		{StateCompleted, StatePending, false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminal(t *testing.T) {
	require.False(t, StatePending.Terminal())
	require.False(t, StateProcessing.Terminal())
	require.True(t, StateCompleted.Terminal())
	require.True(t, StateFailed.Terminal())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "pending", StatePending.String())
	require.Empty(t, State("cancelled").String())
}
