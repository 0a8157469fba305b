package lifecycle

import (
	"errors"
	"fmt"

	"github.com/mayo-dayo/manage/instance"
)

var (
	// ErrPartialRemoval matches a PartialRemovalError.
	ErrPartialRemoval = errors.New("partial removal")

	// ErrInstanceAbsent matches an UpdateError: the old container is gone and no
	// replacement exists.
	ErrInstanceAbsent = errors.New("instance absent after interrupted update")
)

// PartialRemovalError reports a container that was removed while its volume was not.
type PartialRemovalError struct {
	ContainerID string
	Volume      string
	Err         error
}

func (e *PartialRemovalError) Error() string {
	return fmt.Sprintf("container %s removed but volume %s was not: %v", e.ContainerID, e.Volume, e.Err)
}

func (e *PartialRemovalError) Unwrap() []error {
	return []error{ErrPartialRemoval, e.Err}
}

// UpdateError reports an update that removed the old container but could not create the
// replacement. Parameters holds what is needed to create it again; the volume is intact.
type UpdateError struct {
	Parameters instance.Parameters
	Phase      string
	Err        error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update of %s removed the container but failed to %s: %v", e.Parameters.Name, e.Phase, e.Err)
}

func (e *UpdateError) Unwrap() []error {
	return []error{ErrInstanceAbsent, e.Err}
}
