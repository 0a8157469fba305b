package registry

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-containerregistry/pkg/name"
	ggcrregistry "github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/random"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startRegistry serves an in-memory OCI registry and pushes one random image per tag.
func startRegistry(t *testing.T, tags ...string) (*httptest.Server, Coordinates) {
	t.Helper()

	server := httptest.NewServer(ggcrregistry.New(ggcrregistry.Logger(log.New(io.Discard, "", 0))))
	t.Cleanup(server.Close)

	coordinates := Coordinates{
		Host:       strings.TrimPrefix(server.URL, "http://"),
		Namespace:  "mayo-dayo",
		Repository: "app",
	}

	img, err := random.Image(128, 1)
	require.NoError(t, err)

	for _, tag := range tags {
		ref, err := name.NewTag(coordinates.Path()+":"+tag, name.Insecure)
		require.NoError(t, err)
		require.NoError(t, remote.Write(ref, img))
	}

	return server, coordinates
}

func TestListTags(t *testing.T) {
	_, coordinates := startRegistry(t, "0.2.9", "0.3.0", "0.3.1", "latest")

	client := NewClient(coordinates, WithInsecure())
	tags, err := client.ListTags(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"0.2.9", "0.3.0", "0.3.1", "latest"}, tags)
}

func TestListTags_Unavailable(t *testing.T) {
	server, coordinates := startRegistry(t)
	server.Close()

	client := NewClient(coordinates, WithInsecure())
	_, err := client.ListTags(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
}

func TestListTags_InvalidRepository(t *testing.T) {
	client := NewClient(Coordinates{Host: "ghcr.io", Namespace: "Not Valid", Repository: "app"})
	_, err := client.ListTags(context.Background())
	assert.ErrorContains(t, err, "invalid repository")
}

func TestImageReference(t *testing.T) {
	tests := []struct {
		name        string
		coordinates Coordinates
		version     string
		want        string
	}{
		{
			name:        "Default coordinates",
			coordinates: DefaultCoordinates(),
			version:     "0.3.1",
			want:        "ghcr.io/mayo-dayo/app:0.3.1",
		},
		{
			name:        "Registry with port",
			coordinates: Coordinates{Host: "localhost:5000", Namespace: "team", Repository: "server"},
			version:     "1.2.3-rc.1",
			want:        "localhost:5000/team/server:1.2.3-rc.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := semver.MustParse(tt.version)
			assert.Equal(t, tt.want, tt.coordinates.ImageReference(v))
		})
	}
}

func TestTagOf(t *testing.T) {
	tests := []struct {
		name    string
		repoTag string
		want    string
		wantOK  bool
	}{
		{name: "Fully qualified", repoTag: "ghcr.io/mayo-dayo/app:0.3.1", want: "0.3.1", wantOK: true},
		{name: "Registry with port", repoTag: "localhost:5000/app:0.3.2", want: "0.3.2", wantOK: true},
		{name: "Docker Hub short form", repoTag: "nginx:1.27", want: "1.27", wantOK: true},
		{name: "Dangling image", repoTag: "<none>:<none>", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TagOf(tt.repoTag)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
