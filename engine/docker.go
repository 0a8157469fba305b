package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
)

// DockerClient implements Engine for the Docker daemon
type DockerClient struct {
	cli *client.Client
}

var _ Engine = (*DockerClient)(nil)

// NewDockerClient connects to the Docker daemon. An empty host uses DOCKER_HOST and the
// platform default socket.
func NewDockerClient(ctx context.Context, host string) (*DockerClient, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Docker client: %w", ErrEngineUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = cli.Ping(pingCtx)
	cancel()
	if err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	return &DockerClient{cli: cli}, nil
}

// wrap marks daemon connection failures as ErrEngineUnavailable.
func wrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if client.IsErrConnectionFailed(err) {
		return fmt.Errorf("%w: %s: %w", ErrEngineUnavailable, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (d *DockerClient) ListContainers(ctx context.Context, labelKey string) ([]ContainerSummary, error) {
	list, err := d.cli.ContainerList(ctx, containertypes.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", labelKey)),
	})
	if err != nil {
		return nil, wrap(err, "failed to list containers")
	}

	out := make([]ContainerSummary, 0, len(list))
	for _, c := range list {
		out = append(out, ContainerSummary{
			ID:      c.ID,
			State:   string(c.State),
			ImageID: c.ImageID,
			Labels:  c.Labels,
		})
	}
	return out, nil
}

func (d *DockerClient) InspectContainer(ctx context.Context, containerID string) (ContainerInfo, error) {
	resp, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return ContainerInfo{}, wrap(err, "failed to inspect container %s", containerID)
	}

	info := ContainerInfo{ID: containerID}
	if resp.ContainerJSONBase == nil {
		return info, nil
	}
	info.ID = resp.ID
	info.ImageID = resp.Image
	if resp.State != nil {
		info.Status = string(resp.State.Status)
	}
	return info, nil
}

func (d *DockerClient) InspectImage(ctx context.Context, imageID string) (ImageInfo, error) {
	resp, err := d.cli.ImageInspect(ctx, imageID)
	if err != nil {
		return ImageInfo{}, wrap(err, "failed to inspect image %s", imageID)
	}
	return ImageInfo{ID: resp.ID, RepoTags: resp.RepoTags}, nil
}

func (d *DockerClient) FindImage(ctx context.Context, reference string) (string, bool, error) {
	images, err := d.cli.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", reference)),
	})
	if err != nil {
		return "", false, wrap(err, "failed to list images matching %s", reference)
	}
	if len(images) == 0 {
		return "", false, nil
	}
	return images[0].ID, true, nil
}

func (d *DockerClient) PullImage(ctx context.Context, reference string, onEvent func(PullEvent)) error {
	stream, err := d.cli.ImagePull(ctx, reference, image.PullOptions{})
	if err != nil {
		return wrap(err, "failed to pull %s", reference)
	}
	defer func() { _ = stream.Close() }()

	decoder := json.NewDecoder(stream)
	for {
		var msg jsonmessage.JSONMessage
		if err := decoder.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read pull progress of %s: %w", reference, err)
		}
		if msg.Error != nil {
			return fmt.Errorf("failed to pull %s: %w", reference, msg.Error)
		}

		event := PullEvent{LayerID: msg.ID, Status: msg.Status}
		if msg.Progress != nil {
			event.Current = msg.Progress.Current
			event.Total = msg.Progress.Total
		}
		if onEvent != nil {
			onEvent(event)
		}
	}
}

func (d *DockerClient) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	config := &containertypes.Config{
		Image:  spec.Image,
		Env:    spec.Env,
		Labels: spec.Labels,
	}

	hostConfig := &containertypes.HostConfig{
		NetworkMode: containertypes.NetworkMode(spec.NetworkMode),
		RestartPolicy: containertypes.RestartPolicy{
			Name: containertypes.RestartPolicyMode(spec.RestartPolicy),
		},
	}
	for _, m := range spec.Mounts {
		hostConfig.Mounts = append(hostConfig.Mounts, mount.Mount{
			Type:     mount.TypeVolume,
			Source:   m.Volume,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	resp, err := d.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return "", wrap(err, "failed to create container %s", spec.Name)
	}
	return resp.ID, nil
}

func (d *DockerClient) StartContainer(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerStart(ctx, containerID, containertypes.StartOptions{}); err != nil {
		return wrap(err, "failed to start container %s", containerID)
	}
	return nil
}

func (d *DockerClient) StopContainer(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerStop(ctx, containerID, containertypes.StopOptions{}); err != nil {
		return wrap(err, "failed to stop container %s", containerID)
	}
	return nil
}

func (d *DockerClient) RestartContainer(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerRestart(ctx, containerID, containertypes.StopOptions{}); err != nil {
		return wrap(err, "failed to restart container %s", containerID)
	}
	return nil
}

func (d *DockerClient) RemoveContainer(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerRemove(ctx, containerID, containertypes.RemoveOptions{Force: true}); err != nil {
		return wrap(err, "failed to remove container %s", containerID)
	}
	return nil
}

func (d *DockerClient) RemoveVolume(ctx context.Context, volumeName string) error {
	if err := d.cli.VolumeRemove(ctx, volumeName, true); err != nil {
		return wrap(err, "failed to remove volume %s", volumeName)
	}
	return nil
}

func (d *DockerClient) ContainerLogs(ctx context.Context, containerID string) (io.ReadCloser, error) {
	stream, err := d.cli.ContainerLogs(ctx, containerID, containertypes.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "all",
	})
	if err != nil {
		return nil, wrap(err, "failed to read logs of container %s", containerID)
	}
	return stream, nil
}

func (d *DockerClient) Exec(ctx context.Context, containerID string, req ExecRequest) (*ExecSession, error) {
	created, err := d.cli.ContainerExecCreate(ctx, containerID, containertypes.ExecOptions{
		Cmd:          req.Cmd,
		Env:          req.Env,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, wrap(err, "failed to create exec in container %s", containerID)
	}

	hijacked, err := d.cli.ContainerExecAttach(ctx, created.ID, containertypes.ExecAttachOptions{})
	if err != nil {
		return nil, wrap(err, "failed to attach to exec %s", created.ID)
	}

	// Attaching always yields the output stream; Docker never reports a detached session here.
	return &ExecSession{Output: &hijackedOutput{resp: hijacked}}, nil
}

// Close closes the Docker client
func (d *DockerClient) Close() error {
	if d.cli != nil {
		return d.cli.Close()
	}
	return nil
}

// hijackedOutput exposes an attached exec stream as an io.ReadCloser.
type hijackedOutput struct {
	resp types.HijackedResponse
}

func (h *hijackedOutput) Read(p []byte) (int, error) {
	return h.resp.Reader.Read(p)
}

func (h *hijackedOutput) Close() error {
	h.resp.Close()
	return nil
}
