package engine

import (
	"context"
	"errors"
	"io"
)

// ErrEngineUnavailable is returned when the container engine cannot be reached.
var ErrEngineUnavailable = errors.New("container engine unavailable")

// Engine defines the container engine operations the manager relies on.
type Engine interface {
	// ListContainers returns every container, stopped ones included, that carries labelKey.
	ListContainers(ctx context.Context, labelKey string) ([]ContainerSummary, error)

	// InspectContainer reads the live state of one container.
	InspectContainer(ctx context.Context, containerID string) (ContainerInfo, error)

	// InspectImage returns the repository tags of an image.
	InspectImage(ctx context.Context, imageID string) (ImageInfo, error)

	// FindImage looks up a locally indexed image by exact reference.
	FindImage(ctx context.Context, reference string) (imageID string, found bool, err error)

	// PullImage pulls reference and calls onEvent for every progress message.
	// It returns when the progress stream closes.
	PullImage(ctx context.Context, reference string, onEvent func(PullEvent)) error

	CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string) error
	RestartContainer(ctx context.Context, containerID string) error

	// RemoveContainer force-removes a container.
	RemoveContainer(ctx context.Context, containerID string) error

	// RemoveVolume force-removes a named volume.
	RemoveVolume(ctx context.Context, volumeName string) error

	// ContainerLogs returns the complete, non-following stdout/stderr history as a
	// multiplexed stream (see DrainOutput).
	ContainerLogs(ctx context.Context, containerID string) (io.ReadCloser, error)

	// Exec runs a command inside a running container.
	Exec(ctx context.Context, containerID string, req ExecRequest) (*ExecSession, error)

	Close() error
}

// ContainerSummary is one entry of a container listing.
type ContainerSummary struct {
	ID      string
	State   string
	ImageID string
	Labels  map[string]string
}

// ContainerInfo is the subset of a container inspection the manager reads.
type ContainerInfo struct {
	ID      string
	Status  string // empty when the engine omits state information
	ImageID string
}

// ImageInfo is the subset of an image inspection the manager reads.
type ImageInfo struct {
	ID       string
	RepoTags []string
}

// PullEvent is one progress message of an image pull.
type PullEvent struct {
	LayerID string
	Status  string
	Current int64
	Total   int64
}

// VolumeMount mounts a named volume into a container.
type VolumeMount struct {
	Volume   string
	Target   string
	ReadOnly bool
}

// RestartPolicy names the engine restart policy.
type RestartPolicy string

const (
	RestartNo            RestartPolicy = "no"
	RestartUnlessStopped RestartPolicy = "unless-stopped"
)

// ContainerSpec describes a container to create.
type ContainerSpec struct {
	Name          string
	Image         string
	Env           []string
	Labels        map[string]string
	Mounts        []VolumeMount
	NetworkMode   string
	RestartPolicy RestartPolicy
}

// ExecRequest is a command to run inside a container. Stdout and stderr are always attached.
type ExecRequest struct {
	Cmd []string
	Env []string
}

// ExecSession is the outcome of starting an exec. A detached session has no Output.
type ExecSession struct {
	Detached bool
	Output   io.ReadCloser
}
