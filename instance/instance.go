// Package instance models managed application containers and the metadata stored on them.
package instance

import (
	"fmt"
	"slices"
	"strings"
)

// State is the engine-reported state of a container.
type State string

const (
	StateCreated    State = "created"
	StateRunning    State = "running"
	StatePaused     State = "paused"
	StateRestarting State = "restarting"
	StateRemoving   State = "removing"
	StateExited     State = "exited"
	StateDead       State = "dead"
	StateUnknown    State = "unknown"
)

// ParseState maps an engine state string onto State. Empty values are StateUnknown.
func ParseState(s string) State {
	if s == "" {
		return StateUnknown
	}
	return State(strings.ToLower(s))
}

func (s State) String() string {
	return string(s)
}

// Instance is one managed container.
type Instance struct {
	ID         string
	State      State
	Parameters Parameters
}

// Name returns the instance name.
func (i Instance) Name() string {
	return i.Parameters.Name
}

// Equal reports whether both values describe the same container.
func (i Instance) Equal(other Instance) bool {
	return i.ID == other.ID
}

// Compare orders instances by name.
func Compare(a, b Instance) int {
	return strings.Compare(a.Parameters.Name, b.Parameters.Name)
}

// Sort orders instances by name in place.
func Sort(instances []Instance) {
	slices.SortStableFunc(instances, Compare)
}

// Naming derives engine resource names from instance names.
type Naming struct {
	Prefix string
}

// DefaultNaming uses the "mayo" prefix.
func DefaultNaming() Naming {
	return Naming{Prefix: "mayo"}
}

// ContainerName returns e.g. "mayo-focused_turing".
func (n Naming) ContainerName(name string) string {
	return fmt.Sprintf("%s-%s", n.Prefix, name)
}

// VolumeName returns e.g. "mayo-focused_turing-volume".
func (n Naming) VolumeName(name string) string {
	return fmt.Sprintf("%s-%s-volume", n.Prefix, name)
}
