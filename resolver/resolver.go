// Package resolver picks the workload version to run and makes its image available locally.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog"

	"github.com/mayo-dayo/manage/engine"
	"github.com/mayo-dayo/manage/progress"
	"github.com/mayo-dayo/manage/registry"
	"github.com/mayo-dayo/manage/versioning"
)

// ErrImageResolutionExhausted is returned when the pull loop cannot make an image locally
// visible. Callers may retry by invoking EnsureImagePresent again.
var ErrImageResolutionExhausted = errors.New("image resolution exhausted")

// TagLister lists the tags of the workload repository.
type TagLister interface {
	ListTags(ctx context.Context) ([]string, error)
}

// ImageStore is the part of the engine the resolver uses.
type ImageStore interface {
	FindImage(ctx context.Context, reference string) (string, bool, error)
	PullImage(ctx context.Context, reference string, onEvent func(engine.PullEvent)) error
}

// ImageID is a content-addressed local image identifier such as "sha256:…".
type ImageID string

// Option configures a Resolver.
type Option func(*Resolver)

// WithProgress sets the display factory used for each pull. The default discards progress.
func WithProgress(newDisplay func() progress.Display) Option {
	return func(r *Resolver) {
		r.newDisplay = newDisplay
	}
}

// Resolver implements the version and image resolution steps of create and update.
type Resolver struct {
	contract    versioning.Contract
	coordinates registry.Coordinates
	tags        TagLister
	images      ImageStore
	newDisplay  func() progress.Display
}

// New creates a resolver for the repository at coordinates.
func New(contract versioning.Contract, coordinates registry.Coordinates, tags TagLister, images ImageStore, opts ...Option) *Resolver {
	r := &Resolver{
		contract:    contract,
		coordinates: coordinates,
		tags:        tags,
		images:      images,
		newDisplay:  func() progress.Display { return progress.Discard{} },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Contract returns the compatibility contract the resolver filters with.
func (r *Resolver) Contract() versioning.Contract {
	return r.contract
}

// LatestCompatibleWorkloadVersion returns the highest published workload version that
// satisfies the contract. The registry always publishes at least one compatible version, so
// an empty result panics.
func (r *Resolver) LatestCompatibleWorkloadVersion(ctx context.Context) (*semver.Version, error) {
	tags, err := r.tags.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	versions := slices.Collect(r.contract.CompatibleWorkloadVersions(tags))
	if len(versions) == 0 {
		panic(fmt.Sprintf("no workload version in %s satisfies %s", r.coordinates.Path(), r.contract))
	}

	slices.SortFunc(versions, func(a, b *semver.Version) int {
		return a.Compare(b)
	})

	latest := versions[len(versions)-1]
	zerolog.Ctx(ctx).Debug().
		Str("version", latest.String()).
		Int("tags", len(tags)).
		Int("compatible", len(versions)).
		Msg("Resolved latest compatible workload version")
	return latest, nil
}

// ResolveImage formats the image reference of a workload version.
func (r *Resolver) ResolveImage(v *semver.Version) string {
	return r.coordinates.ImageReference(v)
}

// EnsureImagePresent returns the local image id for reference, pulling it first if needed.
// A pull that completes without the image becoming visible is followed by another lookup
// and, if still missing, another pull.
func (r *Resolver) EnsureImagePresent(ctx context.Context, reference string) (ImageID, error) {
	logger := zerolog.Ctx(ctx)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrImageResolutionExhausted, reference, err)
		}

		id, found, err := r.images.FindImage(ctx, reference)
		if err != nil {
			return "", fmt.Errorf("failed to look up image %s: %w", reference, err)
		}
		if found {
			parsed, err := digest.Parse(id)
			if err != nil {
				return "", fmt.Errorf("engine returned invalid image id %q for %s: %w", id, reference, err)
			}
			logger.Debug().Str("image", reference).Str("id", parsed.String()).Msg("Image present")
			return ImageID(parsed.String()), nil
		}

		if attempt > 1 {
			logger.Warn().Str("image", reference).Int("attempt", attempt).Msg("Pulled image is not indexed yet, pulling again")
		} else {
			logger.Info().Str("image", reference).Msg("Pulling image")
		}

		if err := r.pull(ctx, reference); err != nil {
			return "", fmt.Errorf("%w: %w", ErrImageResolutionExhausted, err)
		}
	}
}

func (r *Resolver) pull(ctx context.Context, reference string) error {
	reporter := progress.NewReporter(r.newDisplay())
	defer reporter.Close()

	return r.images.PullImage(ctx, reference, func(e engine.PullEvent) {
		reporter.Report(progress.Event{
			LayerID: e.LayerID,
			Status:  e.Status,
			Current: e.Current,
			Total:   e.Total,
		})
	})
}
