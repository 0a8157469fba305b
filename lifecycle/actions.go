package lifecycle

import (
	"github.com/mayo-dayo/manage/instance"
)

// Action is an operation an operator can apply to an instance.
type Action int

const (
	ActionUpdate Action = iota
	ActionViewLogs
	ActionManageInvites
	ActionRestart
	ActionStop
	ActionStart
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionUpdate:
		return "Update"
	case ActionViewLogs:
		return "View logs"
	case ActionManageInvites:
		return "Manage invites"
	case ActionRestart:
		return "Restart"
	case ActionStop:
		return "Stop"
	case ActionStart:
		return "Start"
	case ActionDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// AvailableActions lists the actions that apply to an instance in state, in menu order.
func AvailableActions(state instance.State) []Action {
	actions := []Action{ActionUpdate, ActionViewLogs}

	switch state {
	case instance.StateRunning:
		actions = append(actions, ActionManageInvites, ActionRestart, ActionStop)
	case instance.StateExited, instance.StateCreated, instance.StateDead, instance.StatePaused:
		actions = append(actions, ActionStart)
	}

	return append(actions, ActionDelete)
}
