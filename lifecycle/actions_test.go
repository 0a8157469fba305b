package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mayo-dayo/manage/instance"
)

func TestAvailableActions(t *testing.T) {
	tests := []struct {
		state instance.State
		want  []Action
	}{
		{
			state: instance.StateRunning,
			want:  []Action{ActionUpdate, ActionViewLogs, ActionManageInvites, ActionRestart, ActionStop, ActionDelete},
		},
		{state: instance.StateExited, want: []Action{ActionUpdate, ActionViewLogs, ActionStart, ActionDelete}},
		{state: instance.StateCreated, want: []Action{ActionUpdate, ActionViewLogs, ActionStart, ActionDelete}},
		{state: instance.StateDead, want: []Action{ActionUpdate, ActionViewLogs, ActionStart, ActionDelete}},
		{state: instance.StatePaused, want: []Action{ActionUpdate, ActionViewLogs, ActionStart, ActionDelete}},
		{state: instance.StateRestarting, want: []Action{ActionUpdate, ActionViewLogs, ActionDelete}},
		{state: instance.StateUnknown, want: []Action{ActionUpdate, ActionViewLogs, ActionDelete}},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, AvailableActions(tt.state))
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "View logs", ActionViewLogs.String())
	assert.Equal(t, "Manage invites", ActionManageInvites.String())
	assert.Equal(t, "Unknown", Action(99).String())
}
