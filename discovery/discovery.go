// Package discovery finds the containers this tool manages and filters out the ones this
// build cannot handle.
package discovery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mayo-dayo/manage/engine"
	"github.com/mayo-dayo/manage/instance"
	"github.com/mayo-dayo/manage/registry"
	"github.com/mayo-dayo/manage/versioning"
)

// Engine is the part of the engine discovery reads.
type Engine interface {
	ListContainers(ctx context.Context, labelKey string) ([]engine.ContainerSummary, error)
	InspectImage(ctx context.Context, imageID string) (engine.ImageInfo, error)
}

// Discovery lists managed instances.
type Discovery struct {
	engine   Engine
	contract versioning.Contract
}

// New creates a Discovery filtering with contract.
func New(e Engine, contract versioning.Contract) *Discovery {
	return &Discovery{engine: e, contract: contract}
}

// ListManagedInstances returns every container, stopped ones included, that carries the
// managed marker, was created by a compatible tool version, runs an image with at least one
// compatible workload tag and holds decodable parameters. Other containers are omitted
// without error. The order is unspecified.
func (d *Discovery) ListManagedInstances(ctx context.Context) ([]instance.Instance, error) {
	logger := zerolog.Ctx(ctx)

	containers, err := d.engine.ListContainers(ctx, instance.LabelToolVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to list managed containers: %w", err)
	}

	// image id -> compatible, for this call only
	compatibleImages := make(map[string]bool)

	instances := make([]instance.Instance, 0, len(containers))
	for _, c := range containers {
		log := logger.With().Str("container", c.ID).Logger()

		if !d.contract.ToolCompatibleLabel(c.Labels[instance.LabelToolVersion]) {
			log.Debug().Str("tool_version", c.Labels[instance.LabelToolVersion]).Msg("Skipping container from incompatible tool version")
			continue
		}

		compatible, seen := compatibleImages[c.ImageID]
		if !seen {
			compatible, err = d.imageCompatible(ctx, c.ImageID)
			if err != nil {
				return nil, err
			}
			compatibleImages[c.ImageID] = compatible
		}
		if !compatible {
			log.Debug().Str("image", c.ImageID).Msg("Skipping container with incompatible workload image")
			continue
		}

		params, err := instance.FromLabels(c.Labels)
		if err != nil {
			log.Debug().Err(err).Msg("Skipping container with undecodable parameters")
			continue
		}

		instances = append(instances, instance.Instance{
			ID:         c.ID,
			State:      instance.ParseState(c.State),
			Parameters: params,
		})
	}

	return instances, nil
}

// FindByName returns the managed instance with the given name.
func (d *Discovery) FindByName(ctx context.Context, name string) (instance.Instance, bool, error) {
	instances, err := d.ListManagedInstances(ctx)
	if err != nil {
		return instance.Instance{}, false, err
	}
	for _, inst := range instances {
		if inst.Name() == name {
			return inst, true, nil
		}
	}
	return instance.Instance{}, false, nil
}

func (d *Discovery) imageCompatible(ctx context.Context, imageID string) (bool, error) {
	info, err := d.engine.InspectImage(ctx, imageID)
	if err != nil {
		return false, fmt.Errorf("failed to inspect image %s: %w", imageID, err)
	}

	tags := make([]string, 0, len(info.RepoTags))
	for _, repoTag := range info.RepoTags {
		if tag, ok := registry.TagOf(repoTag); ok {
			tags = append(tags, tag)
		}
	}
	return d.contract.HasCompatibleWorkloadVersion(tags), nil
}
