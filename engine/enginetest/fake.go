// Package enginetest provides an in-memory engine.Engine for tests.
package enginetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"sync"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/opencontainers/go-digest"

	"github.com/mayo-dayo/manage/engine"
)

// Container is a container held by Fake.
type Container struct {
	ID      string
	Name    string
	State   string
	ImageID string
	Labels  map[string]string
	Spec    engine.ContainerSpec
	Logs    []byte // multiplexed stream returned by ContainerLogs
}

// Image is an image held by Fake.
type Image struct {
	ID       string
	RepoTags []string
}

// ExecResult is the scripted outcome of an exec.
type ExecResult struct {
	Stdout    string
	Stderr    string
	Detached  bool
	StreamErr error // returned by the output stream after the scripted output
}

// Fake is an in-memory engine. The zero value is not usable; call New.
type Fake struct {
	mu sync.Mutex

	containers map[string]*Container
	images     map[string]*Image
	volumes    map[string]bool
	order      []string
	nextID     int

	// PullFunc, when set, replaces the default pull behaviour of registering the reference
	// as a local image.
	PullFunc func(ref string, onEvent func(engine.PullEvent)) error

	// ExecFunc, when set, scripts the outcome of Exec.
	ExecFunc func(containerID string, req engine.ExecRequest) ExecResult

	// Errors injected per operation name, e.g. "RemoveVolume".
	Errors map[string]error

	Pulls            []string
	ImageInspections map[string]int
	Execs            []engine.ExecRequest
	Calls            []string
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		containers:       make(map[string]*Container),
		images:           make(map[string]*Image),
		volumes:          make(map[string]bool),
		Errors:           make(map[string]error),
		ImageInspections: make(map[string]int),
	}
}

var _ engine.Engine = (*Fake)(nil)

func (f *Fake) fail(op string) error {
	f.Calls = append(f.Calls, op)
	return f.Errors[op]
}

// AddImage registers a local image with the given repository tags and returns its ID.
func (f *Fake) AddImage(repoTags ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addImageLocked(repoTags...)
}

func (f *Fake) addImageLocked(repoTags ...string) string {
	id := digest.FromString(fmt.Sprintf("image-%d-%v", len(f.images), repoTags)).String()
	f.images[id] = &Image{ID: id, RepoTags: repoTags}
	return id
}

// AddContainer registers a container and returns its ID.
func (f *Fake) AddContainer(c Container) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c.ID == "" {
		f.nextID++
		c.ID = fmt.Sprintf("c%04d", f.nextID)
	}
	if c.State == "" {
		c.State = "created"
	}
	f.containers[c.ID] = &c
	f.order = append(f.order, c.ID)
	return c.ID
}

// Container returns a copy of a held container.
func (f *Fake) Container(id string) (Container, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[id]
	if !ok {
		return Container{}, false
	}
	return *c, true
}

// ContainerByName returns a copy of the container with the given name.
func (f *Fake) ContainerByName(name string) (Container, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range f.order {
		if c, ok := f.containers[id]; ok && c.Name == name {
			return *c, true
		}
	}
	return Container{}, false
}

// ContainerCount returns the number of held containers.
func (f *Fake) ContainerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.containers)
}

// SetState overrides the state of a container.
func (f *Fake) SetState(id, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.containers[id]; ok {
		c.State = state
	}
}

// SetLogs replaces the log stream of a container.
func (f *Fake) SetLogs(id string, logs []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.containers[id]; ok {
		c.Logs = logs
	}
}

// AddVolume registers a named volume.
func (f *Fake) AddVolume(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes[name] = true
}

// HasVolume reports whether a named volume exists.
func (f *Fake) HasVolume(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volumes[name]
}

// ImageInspectionCount returns how often an image was inspected.
func (f *Fake) ImageInspectionCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ImageInspections[id]
}

// PullCount returns the number of pulls issued.
func (f *Fake) PullCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Pulls)
}

func (f *Fake) ListContainers(_ context.Context, labelKey string) ([]engine.ContainerSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("ListContainers"); err != nil {
		return nil, err
	}

	var out []engine.ContainerSummary
	for _, id := range f.order {
		c, ok := f.containers[id]
		if !ok {
			continue
		}
		if _, labelled := c.Labels[labelKey]; !labelled {
			continue
		}
		out = append(out, engine.ContainerSummary{
			ID:      c.ID,
			State:   c.State,
			ImageID: c.ImageID,
			Labels:  maps.Clone(c.Labels),
		})
	}
	return out, nil
}

func (f *Fake) InspectContainer(_ context.Context, id string) (engine.ContainerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("InspectContainer"); err != nil {
		return engine.ContainerInfo{}, err
	}
	c, ok := f.containers[id]
	if !ok {
		return engine.ContainerInfo{}, fmt.Errorf("no such container: %s", id)
	}
	return engine.ContainerInfo{ID: c.ID, Status: c.State, ImageID: c.ImageID}, nil
}

func (f *Fake) InspectImage(_ context.Context, id string) (engine.ImageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ImageInspections[id]++
	if err := f.fail("InspectImage"); err != nil {
		return engine.ImageInfo{}, err
	}
	img, ok := f.images[id]
	if !ok {
		return engine.ImageInfo{}, fmt.Errorf("no such image: %s", id)
	}
	return engine.ImageInfo{ID: img.ID, RepoTags: append([]string(nil), img.RepoTags...)}, nil
}

func (f *Fake) FindImage(_ context.Context, ref string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("FindImage"); err != nil {
		return "", false, err
	}
	for id, img := range f.images {
		for _, tag := range img.RepoTags {
			if tag == ref {
				return id, true, nil
			}
		}
	}
	return "", false, nil
}

func (f *Fake) PullImage(_ context.Context, ref string, onEvent func(engine.PullEvent)) error {
	f.mu.Lock()
	f.Pulls = append(f.Pulls, ref)
	if err := f.fail("PullImage"); err != nil {
		f.mu.Unlock()
		return err
	}
	pull := f.PullFunc
	f.mu.Unlock()

	if pull != nil {
		return pull(ref, onEvent)
	}

	if onEvent != nil {
		onEvent(engine.PullEvent{Status: "Pulling from " + ref})
		onEvent(engine.PullEvent{LayerID: "a1b2c3", Status: "Downloading", Current: 512, Total: 1024})
		onEvent(engine.PullEvent{LayerID: "a1b2c3", Status: "Pull complete"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.addImageLocked(ref)
	return nil
}

func (f *Fake) CreateContainer(_ context.Context, spec engine.ContainerSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("CreateContainer"); err != nil {
		return "", err
	}
	for _, c := range f.containers {
		if c.Name == spec.Name {
			return "", fmt.Errorf("conflict: container name %s is already in use", spec.Name)
		}
	}

	f.nextID++
	id := fmt.Sprintf("c%04d", f.nextID)
	f.containers[id] = &Container{
		ID:      id,
		Name:    spec.Name,
		State:   "created",
		ImageID: spec.Image,
		Labels:  maps.Clone(spec.Labels),
		Spec:    spec,
	}
	f.order = append(f.order, id)
	for _, m := range spec.Mounts {
		f.volumes[m.Volume] = true
	}
	return id, nil
}

func (f *Fake) setState(op, id, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail(op); err != nil {
		return err
	}
	c, ok := f.containers[id]
	if !ok {
		return fmt.Errorf("no such container: %s", id)
	}
	c.State = state
	return nil
}

func (f *Fake) StartContainer(_ context.Context, id string) error {
	return f.setState("StartContainer", id, "running")
}

func (f *Fake) StopContainer(_ context.Context, id string) error {
	return f.setState("StopContainer", id, "exited")
}

func (f *Fake) RestartContainer(_ context.Context, id string) error {
	return f.setState("RestartContainer", id, "running")
}

func (f *Fake) RemoveContainer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("RemoveContainer"); err != nil {
		return err
	}
	if _, ok := f.containers[id]; !ok {
		return fmt.Errorf("no such container: %s", id)
	}
	delete(f.containers, id)
	return nil
}

func (f *Fake) RemoveVolume(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("RemoveVolume"); err != nil {
		return err
	}
	delete(f.volumes, name)
	return nil
}

func (f *Fake) ContainerLogs(_ context.Context, id string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("ContainerLogs"); err != nil {
		return nil, err
	}
	c, ok := f.containers[id]
	if !ok {
		return nil, fmt.Errorf("no such container: %s", id)
	}
	return io.NopCloser(bytes.NewReader(c.Logs)), nil
}

func (f *Fake) Exec(_ context.Context, id string, req engine.ExecRequest) (*engine.ExecSession, error) {
	f.mu.Lock()
	f.Execs = append(f.Execs, req)
	if err := f.fail("Exec"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if _, ok := f.containers[id]; !ok {
		f.mu.Unlock()
		return nil, fmt.Errorf("no such container: %s", id)
	}
	exec := f.ExecFunc
	f.mu.Unlock()

	var result ExecResult
	if exec != nil {
		result = exec(id, req)
	}
	if result.Detached {
		return &engine.ExecSession{Detached: true}, nil
	}

	stream := Multiplex(result.Stdout, result.Stderr)
	var r io.Reader = bytes.NewReader(stream)
	if result.StreamErr != nil {
		r = io.MultiReader(r, &errReader{err: result.StreamErr})
	}
	return &engine.ExecSession{Output: io.NopCloser(r)}, nil
}

func (f *Fake) Close() error {
	return nil
}

// Multiplex frames stdout then stderr the way the engine does for non-TTY streams.
func Multiplex(stdout, stderr string) []byte {
	var buf bytes.Buffer
	if stdout != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(stdout))
	}
	if stderr != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(stderr))
	}
	return buf.Bytes()
}

type errReader struct {
	err error
}

func (e *errReader) Read([]byte) (int, error) {
	return 0, e.err
}
