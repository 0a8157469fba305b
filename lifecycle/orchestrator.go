// Package lifecycle creates, updates, removes and transitions managed instances.
package lifecycle

import (
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/mayo-dayo/manage/engine"
	"github.com/mayo-dayo/manage/instance"
	"github.com/mayo-dayo/manage/resolver"
	"github.com/mayo-dayo/manage/versioning"
)

// DefaultDataPath is where the instance volume is mounted inside the container.
const DefaultDataPath = "/mayo/.data"

// Environment variables understood by the workload image.
const (
	EnvPort           = "BUN_PORT"
	EnvDataPath       = "MAYO_DATA_PATH"
	EnvTLSCertificate = "MAYO_TLS_CRT"
	EnvTLSKey         = "MAYO_TLS_KEY"
	EnvAuthentication = "MAYO_AUTHENTICATION"
)

// Resolver resolves and fetches workload images.
type Resolver interface {
	Contract() versioning.Contract
	LatestCompatibleWorkloadVersion(ctx context.Context) (*semver.Version, error)
	ResolveImage(v *semver.Version) string
	EnsureImagePresent(ctx context.Context, reference string) (resolver.ImageID, error)
}

// Settings are the fixed container settings applied to every instance.
type Settings struct {
	Naming      instance.Naming
	DataPath    string
	ToolVersion string
}

// DefaultSettings returns the settings of this build.
func DefaultSettings() Settings {
	return Settings{
		Naming:      instance.DefaultNaming(),
		DataPath:    DefaultDataPath,
		ToolVersion: versioning.ToolVersion,
	}
}

// Orchestrator drives instance lifecycles on the engine.
type Orchestrator struct {
	engine   engine.Engine
	resolver Resolver
	settings Settings
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(e engine.Engine, r Resolver, settings Settings) *Orchestrator {
	return &Orchestrator{engine: e, resolver: r, settings: settings}
}

// Create pulls the image for params.WorkloadVersion if needed, creates the container with
// its volume and starts it.
func (o *Orchestrator) Create(ctx context.Context, params instance.Parameters) (instance.Instance, error) {
	if err := o.checkParameters(params); err != nil {
		return instance.Instance{}, err
	}

	logger := zerolog.Ctx(ctx).With().Str("instance", params.Name).Logger()

	reference := o.resolver.ResolveImage(params.WorkloadVersion)
	imageID, err := o.resolver.EnsureImagePresent(ctx, reference)
	if err != nil {
		return instance.Instance{}, fmt.Errorf("failed to fetch image %s: %w", reference, err)
	}

	spec, err := o.containerSpec(params, imageID)
	if err != nil {
		return instance.Instance{}, err
	}

	logger.Debug().Str("image", reference).Str("container", spec.Name).Msg("Creating container")
	id, err := o.engine.CreateContainer(ctx, spec)
	if err != nil {
		return instance.Instance{}, fmt.Errorf("failed to create container for %s: %w", params.Name, err)
	}

	if err := o.engine.StartContainer(ctx, id); err != nil {
		return instance.Instance{}, fmt.Errorf("failed to start container for %s: %w", params.Name, err)
	}
	logger.Info().Str("id", id).Str("version", params.WorkloadVersion.String()).Msg("Instance created")

	return instance.Instance{
		ID:         id,
		State:      instance.StateRunning,
		Parameters: params,
	}, nil
}

// checkParameters reports whether params can be used to create a container.
func (o *Orchestrator) checkParameters(params instance.Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if !o.resolver.Contract().WorkloadCompatible(params.WorkloadVersion) {
		return fmt.Errorf("%w: workload version %s is not supported by this build (%s)",
			instance.ErrInvalidParameters, params.WorkloadVersion, o.resolver.Contract())
	}
	return nil
}

func (o *Orchestrator) containerSpec(params instance.Parameters, imageID resolver.ImageID) (engine.ContainerSpec, error) {
	labels, err := params.Labels(o.settings.ToolVersion)
	if err != nil {
		return engine.ContainerSpec{}, err
	}

	env := []string{
		EnvPort + "=" + strconv.FormatUint(uint64(params.Port), 10),
		EnvDataPath + "=" + o.settings.DataPath,
	}
	if params.TLS != nil {
		env = append(env,
			EnvTLSCertificate+"="+params.TLS.Certificate,
			EnvTLSKey+"="+params.TLS.Key,
		)
	}
	if params.AuthenticationRequired {
		env = append(env, EnvAuthentication+"=required")
	}

	return engine.ContainerSpec{
		Name:   o.settings.Naming.ContainerName(params.Name),
		Image:  string(imageID),
		Env:    env,
		Labels: labels,
		Mounts: []engine.VolumeMount{{
			Volume: o.settings.Naming.VolumeName(params.Name),
			Target: o.settings.DataPath,
		}},
		NetworkMode:   "host",
		RestartPolicy: engine.RestartUnlessStopped,
	}, nil
}

// Update replaces the container of inst with one running the latest compatible workload
// version. Name, port, authentication and TLS material carry over and the volume is kept.
//
// The replacement parameters are checked and the latest version is resolved before
// anything is removed. The old container is then removed before the new one exists: if
// anything fails after the removal the returned error is an *UpdateError and the
// instance no longer exists.
func (o *Orchestrator) Update(ctx context.Context, inst instance.Instance) (instance.Instance, error) {
	logger := zerolog.Ctx(ctx).With().Str("instance", inst.Name()).Logger()

	latest, err := o.resolver.LatestCompatibleWorkloadVersion(ctx)
	if err != nil {
		return instance.Instance{}, fmt.Errorf("failed to resolve the latest version for %s: %w", inst.Name(), err)
	}

	params := inst.Parameters
	params.WorkloadVersion = latest
	if err := o.checkParameters(params); err != nil {
		return instance.Instance{}, fmt.Errorf("cannot update %s: %w", inst.Name(), err)
	}

	logger.Debug().Str("id", inst.ID).Msg("Removing container for update")
	if err := o.engine.RemoveContainer(ctx, inst.ID); err != nil {
		return instance.Instance{}, fmt.Errorf("failed to remove container of %s: %w", inst.Name(), err)
	}

	updated, err := o.Create(ctx, params)
	if err != nil {
		return instance.Instance{}, &UpdateError{Parameters: inst.Parameters, Phase: "recreate the container", Err: err}
	}

	logger.Info().
		Str("from", inst.Parameters.WorkloadVersion.String()).
		Str("to", latest.String()).
		Msg("Instance updated")
	return updated, nil
}

// Remove force-removes the container and then its volume.
func (o *Orchestrator) Remove(ctx context.Context, inst instance.Instance) error {
	if err := o.engine.RemoveContainer(ctx, inst.ID); err != nil {
		return fmt.Errorf("failed to remove container of %s: %w", inst.Name(), err)
	}

	volume := o.settings.Naming.VolumeName(inst.Name())
	if err := o.engine.RemoveVolume(ctx, volume); err != nil {
		return &PartialRemovalError{ContainerID: inst.ID, Volume: volume, Err: err}
	}

	zerolog.Ctx(ctx).Info().Str("instance", inst.Name()).Msg("Instance removed")
	return nil
}

// Status reads the current engine state. Missing state information yields StateUnknown.
func (o *Orchestrator) Status(ctx context.Context, id string) (instance.State, error) {
	info, err := o.engine.InspectContainer(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to read status of %s: %w", id, err)
	}
	return instance.ParseState(info.Status), nil
}

// Logs returns the container's complete stdout and stderr history.
func (o *Orchestrator) Logs(ctx context.Context, id string) (string, error) {
	stream, err := o.engine.ContainerLogs(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to read logs of %s: %w", id, err)
	}
	defer func() { _ = stream.Close() }()

	out, err := engine.DrainOutput(stream)
	if err != nil {
		return "", fmt.Errorf("failed to read logs of %s: %w", id, err)
	}
	return string(out), nil
}

func (o *Orchestrator) Start(ctx context.Context, id string) error {
	return o.engine.StartContainer(ctx, id)
}

func (o *Orchestrator) Stop(ctx context.Context, id string) error {
	return o.engine.StopContainer(ctx, id)
}

func (o *Orchestrator) Restart(ctx context.Context, id string) error {
	return o.engine.RestartContainer(ctx, id)
}

// DatabasePath returns the path of the instance's embedded database inside the container.
func (s Settings) DatabasePath() string {
	return path.Join(s.DataPath, "db.sqlite")
}
