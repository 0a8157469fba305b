package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayo-dayo/manage/discovery"
	"github.com/mayo-dayo/manage/engine"
	"github.com/mayo-dayo/manage/engine/enginetest"
	"github.com/mayo-dayo/manage/instance"
	"github.com/mayo-dayo/manage/instance/instancetest"
	"github.com/mayo-dayo/manage/registry"
	"github.com/mayo-dayo/manage/resolver"
	"github.com/mayo-dayo/manage/versioning"
)

type staticTags []string

func (s staticTags) ListTags(context.Context) ([]string, error) {
	return s, nil
}

func newOrchestrator(t *testing.T, fake *enginetest.Fake, tags ...string) *Orchestrator {
	t.Helper()
	contract, err := versioning.NewContract("^0.1", "^0.3")
	require.NoError(t, err)

	r := resolver.New(contract, registry.DefaultCoordinates(), staticTags(tags), fake)
	return NewOrchestrator(fake, r, Settings{
		Naming:      instance.DefaultNaming(),
		DataPath:    DefaultDataPath,
		ToolVersion: "0.1.1",
	})
}

func params(name, version string) instance.Parameters {
	return instance.Parameters{
		Name:            name,
		WorkloadVersion: semver.MustParse(version),
		Port:            8080,
	}
}

func TestCreate(t *testing.T) {
	cert, key := instancetest.Certificate(t, instancetest.SEC1)

	fake := enginetest.New()
	o := newOrchestrator(t, fake)

	p := params("focused_turing", "0.3.1")
	p.Port = 3443
	p.AuthenticationRequired = true
	p.TLS = &instance.TLSMaterial{Certificate: cert, Key: key}

	inst, err := o.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, instance.StateRunning, inst.State)
	assert.Equal(t, "focused_turing", inst.Name())

	c, ok := fake.Container(inst.ID)
	require.True(t, ok)
	assert.Equal(t, "running", c.State)
	assert.Equal(t, "mayo-focused_turing", c.Spec.Name)
	assert.Equal(t, "host", c.Spec.NetworkMode)
	assert.Equal(t, engine.RestartUnlessStopped, c.Spec.RestartPolicy)
	assert.Equal(t, []engine.VolumeMount{{Volume: "mayo-focused_turing-volume", Target: "/mayo/.data"}}, c.Spec.Mounts)
	assert.Equal(t, []string{
		"BUN_PORT=3443",
		"MAYO_DATA_PATH=/mayo/.data",
		"MAYO_TLS_CRT=" + cert,
		"MAYO_TLS_KEY=" + key,
		"MAYO_AUTHENTICATION=required",
	}, c.Spec.Env)

	assert.Equal(t, "0.1.1", c.Labels[instance.LabelToolVersion])
	decoded, err := instance.FromLabels(c.Labels)
	require.NoError(t, err)
	assert.Equal(t, p.TLS, decoded.TLS)

	assert.Equal(t, []string{"ghcr.io/mayo-dayo/app:0.3.1"}, fake.Pulls)
	assert.True(t, fake.HasVolume("mayo-focused_turing-volume"))
}

func TestCreate_MinimalEnvironment(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake)

	inst, err := o.Create(context.Background(), params("plain", "0.3.0"))
	require.NoError(t, err)

	c, _ := fake.Container(inst.ID)
	assert.Equal(t, []string{"BUN_PORT=8080", "MAYO_DATA_PATH=/mayo/.data"}, c.Spec.Env)
}

func TestCreate_UsesImageID(t *testing.T) {
	fake := enginetest.New()
	imageID := fake.AddImage("ghcr.io/mayo-dayo/app:0.3.1")
	o := newOrchestrator(t, fake)

	inst, err := o.Create(context.Background(), params("a", "0.3.1"))
	require.NoError(t, err)

	c, _ := fake.Container(inst.ID)
	assert.Equal(t, imageID, c.Spec.Image)
	assert.Zero(t, fake.PullCount())
}

func TestCreate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		params instance.Parameters
	}{
		{name: "Incompatible workload version", params: params("a", "0.4.0")},
		{name: "Missing name", params: params("", "0.3.0")},
		{name: "Partial TLS", params: func() instance.Parameters {
			p := params("a", "0.3.0")
			p.TLS = &instance.TLSMaterial{Key: "k"}
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := enginetest.New()
			_, err := newOrchestrator(t, fake).Create(context.Background(), tt.params)
			assert.ErrorIs(t, err, instance.ErrInvalidParameters)
			assert.Zero(t, fake.ContainerCount())
			assert.Zero(t, fake.PullCount())
		})
	}
}

func TestCreate_StartFailure(t *testing.T) {
	fake := enginetest.New()
	fake.Errors["StartContainer"] = errors.New("port is already allocated")

	_, err := newOrchestrator(t, fake).Create(context.Background(), params("a", "0.3.0"))
	assert.ErrorContains(t, err, "failed to start container for a")
}

func TestUpdate(t *testing.T) {
	cert, key := instancetest.Certificate(t, instancetest.PKCS8)

	fake := enginetest.New()
	o := newOrchestrator(t, fake, "0.3.0", "0.3.4", "0.2.0", "1.0.0")

	p := params("eager_hopper", "0.3.0")
	p.Port = 9000
	p.TLS = &instance.TLSMaterial{Certificate: cert, Key: key}

	old, err := o.Create(context.Background(), p)
	require.NoError(t, err)

	updated, err := o.Update(context.Background(), old)
	require.NoError(t, err)

	assert.False(t, updated.Equal(old))
	assert.Equal(t, "0.3.4", updated.Parameters.WorkloadVersion.String())
	assert.Equal(t, "eager_hopper", updated.Name())
	assert.Equal(t, uint16(9000), updated.Parameters.Port)
	assert.Equal(t, p.TLS, updated.Parameters.TLS)

	_, stillThere := fake.Container(old.ID)
	assert.False(t, stillThere)
	assert.Equal(t, 1, fake.ContainerCount())
	assert.True(t, fake.HasVolume("mayo-eager_hopper-volume"))

	c, _ := fake.Container(updated.ID)
	assert.Equal(t, "mayo-eager_hopper", c.Spec.Name)
	assert.Equal(t, "mayo-eager_hopper-volume", c.Spec.Mounts[0].Volume)
}

func TestUpdate_InterruptedAfterRemoval(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake, "0.3.5")

	old, err := o.Create(context.Background(), params("a", "0.3.0"))
	require.NoError(t, err)

	fake.Errors["PullImage"] = errors.New("network is unreachable")

	_, err = o.Update(context.Background(), old)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInstanceAbsent)
	assert.ErrorIs(t, err, resolver.ErrImageResolutionExhausted)

	var updateErr *UpdateError
	require.ErrorAs(t, err, &updateErr)
	assert.Equal(t, "a", updateErr.Parameters.Name)
	assert.Zero(t, fake.ContainerCount())
	assert.True(t, fake.HasVolume("mayo-a-volume"))
}

func TestUpdate_RemovalFails(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake, "0.3.5")

	old, err := o.Create(context.Background(), params("a", "0.3.0"))
	require.NoError(t, err)

	fake.Errors["RemoveContainer"] = errors.New("removal already in progress")

	_, err = o.Update(context.Background(), old)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInstanceAbsent)
	assert.Equal(t, 1, fake.ContainerCount())
}

func TestUpdate_InvalidStoredParametersKeepContainer(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake, "0.3.0", "0.3.2")

	stored := params("legacy", "0.3.0")
	stored.Port = 0
	labels, err := stored.Labels("0.1.1")
	require.NoError(t, err)

	imageID := fake.AddImage("ghcr.io/mayo-dayo/app:0.3.0")
	fake.AddContainer(enginetest.Container{
		Name:    "mayo-legacy",
		State:   "running",
		ImageID: imageID,
		Labels:  labels,
	})

	listed, err := discovery.New(fake, o.resolver.Contract()).ListManagedInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = o.Update(context.Background(), listed[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, instance.ErrInvalidParameters)
	assert.NotErrorIs(t, err, ErrInstanceAbsent)
	assert.Equal(t, 1, fake.ContainerCount())
	assert.Zero(t, fake.PullCount())
}

func TestUpdate_RegistryFailureKeepsContainer(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake, "0.3.0")

	old, err := o.Create(context.Background(), params("a", "0.3.0"))
	require.NoError(t, err)

	o.resolver = resolver.New(o.resolver.Contract(), registry.DefaultCoordinates(), failingTags{}, fake)

	_, err = o.Update(context.Background(), old)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrRegistryUnavailable)
	assert.NotErrorIs(t, err, ErrInstanceAbsent)
	assert.Equal(t, 1, fake.ContainerCount())
}

type failingTags struct{}

func (failingTags) ListTags(context.Context) ([]string, error) {
	return nil, registry.ErrRegistryUnavailable
}

func TestRemove(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake)

	inst, err := o.Create(context.Background(), params("a", "0.3.0"))
	require.NoError(t, err)

	require.NoError(t, o.Remove(context.Background(), inst))
	assert.Zero(t, fake.ContainerCount())
	assert.False(t, fake.HasVolume("mayo-a-volume"))
}

func TestRemove_PartialRemoval(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake)

	inst, err := o.Create(context.Background(), params("a", "0.3.0"))
	require.NoError(t, err)

	volumeErr := errors.New("volume is in use")
	fake.Errors["RemoveVolume"] = volumeErr

	err = o.Remove(context.Background(), inst)
	assert.ErrorIs(t, err, ErrPartialRemoval)
	assert.ErrorIs(t, err, volumeErr)

	var partial *PartialRemovalError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, inst.ID, partial.ContainerID)
	assert.Equal(t, "mayo-a-volume", partial.Volume)

	assert.Zero(t, fake.ContainerCount(), "the container removal is not rolled back")
}

func TestRemove_ContainerFailureKeepsVolume(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake)

	inst, err := o.Create(context.Background(), params("a", "0.3.0"))
	require.NoError(t, err)

	fake.Errors["RemoveContainer"] = errors.New("boom")

	err = o.Remove(context.Background(), inst)
	assert.NotErrorIs(t, err, ErrPartialRemoval)
	assert.True(t, fake.HasVolume("mayo-a-volume"))
	assert.NotContains(t, fake.Calls, "RemoveVolume")
}

func TestStatus(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake)

	running := fake.AddContainer(enginetest.Container{State: "running"})
	blank := fake.AddContainer(enginetest.Container{})
	fake.SetState(blank, "")

	state, err := o.Status(context.Background(), running)
	require.NoError(t, err)
	assert.Equal(t, instance.StateRunning, state)

	state, err = o.Status(context.Background(), blank)
	require.NoError(t, err)
	assert.Equal(t, instance.StateUnknown, state)

	_, err = o.Status(context.Background(), "missing")
	assert.Error(t, err)
}

func TestTransitions(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake)
	ctx := context.Background()

	inst, err := o.Create(ctx, params("a", "0.3.0"))
	require.NoError(t, err)

	require.NoError(t, o.Stop(ctx, inst.ID))
	state, _ := o.Status(ctx, inst.ID)
	assert.Equal(t, instance.StateExited, state)

	require.NoError(t, o.Start(ctx, inst.ID))
	state, _ = o.Status(ctx, inst.ID)
	assert.Equal(t, instance.StateRunning, state)

	require.NoError(t, o.Restart(ctx, inst.ID))
	state, _ = o.Status(ctx, inst.ID)
	assert.Equal(t, instance.StateRunning, state)
}

func TestLogs(t *testing.T) {
	fake := enginetest.New()
	o := newOrchestrator(t, fake)

	id := fake.AddContainer(enginetest.Container{
		State: "running",
		Logs:  enginetest.Multiplex("server listening on :8080\n", "warn: authentication disabled\n"),
	})

	logs, err := o.Logs(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "server listening on :8080\nwarn: authentication disabled\n", logs)

	empty := fake.AddContainer(enginetest.Container{})
	logs, err = o.Logs(context.Background(), empty)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestDatabasePath(t *testing.T) {
	assert.Equal(t, "/mayo/.data/db.sqlite", DefaultSettings().DatabasePath())
}
