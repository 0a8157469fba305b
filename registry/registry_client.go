package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// ErrRegistryUnavailable is returned when the tag listing cannot be retrieved.
var ErrRegistryUnavailable = errors.New("registry unavailable")

const (
	DefaultHost       = "ghcr.io"
	DefaultNamespace  = "mayo-dayo"
	DefaultRepository = "app"
)

// Coordinates locate the workload image repository.
type Coordinates struct {
	Host       string
	Namespace  string
	Repository string
}

// DefaultCoordinates returns the repository this build pulls from.
func DefaultCoordinates() Coordinates {
	return Coordinates{
		Host:       DefaultHost,
		Namespace:  DefaultNamespace,
		Repository: DefaultRepository,
	}
}

// Path returns the repository path without a tag, e.g. "ghcr.io/mayo-dayo/app".
func (c Coordinates) Path() string {
	return fmt.Sprintf("%s/%s/%s", c.Host, c.Namespace, c.Repository)
}

// ImageReference formats the reference for a workload version,
// e.g. "ghcr.io/mayo-dayo/app:0.3.1".
func (c Coordinates) ImageReference(version *semver.Version) string {
	return fmt.Sprintf("%s:%s", c.Path(), version.String())
}

// Option configures a Client.
type Option func(*Client)

// WithInsecure talks plain HTTP to the registry. Used against local registries.
func WithInsecure() Option {
	return func(c *Client) {
		c.nameOptions = append(c.nameOptions, name.Insecure)
	}
}

// WithTransport replaces the HTTP transport used for registry calls.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// Client handles OCI registry operations
type Client struct {
	coordinates Coordinates
	nameOptions []name.Option
	transport   http.RoundTripper
}

// NewClient creates a new registry client
func NewClient(coordinates Coordinates, opts ...Option) *Client {
	c := &Client{
		coordinates: coordinates,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Coordinates returns the repository this client lists.
func (c *Client) Coordinates() Coordinates {
	return c.coordinates
}

// ListTags lists all tags of the workload repository. The registry's bearer token for
// anonymous pull access is negotiated by the transport.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	repo, err := name.NewRepository(c.coordinates.Path(), c.nameOptions...)
	if err != nil {
		return nil, fmt.Errorf("invalid repository %q: %w", c.coordinates.Path(), err)
	}

	options := []remote.Option{
		remote.WithContext(ctx),
		remote.WithAuth(authn.Anonymous),
	}
	if c.transport != nil {
		options = append(options, remote.WithTransport(c.transport))
	}

	tags, err := remote.List(repo, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list tags of %s: %w", ErrRegistryUnavailable, repo, err)
	}

	return tags, nil
}

// TagOf extracts the tag from a repository tag such as "ghcr.io/mayo-dayo/app:0.3.1".
// Repository tags that fail to parse (e.g. "<none>:<none>") report false.
func TagOf(repoTag string) (string, bool) {
	tag, err := name.NewTag(repoTag)
	if err != nil {
		return "", false
	}
	return tag.TagStr(), true
}
