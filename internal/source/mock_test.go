package source

import (
	"context"

	"github.com/havenpaws/prospect-cli/pkg/places"
	"github.com/havenpaws/prospect-cli/pkg/serpapi"
)

// mockSearchClient implements serpapi.Client for testing.
type mockSearchClient struct {
	searchFunc func(ctx context.Context, query string, num, start int) ([]serpapi.OrganicResult, error)
	calls      int
}

func (m *mockSearchClient) Search(ctx context.Context, query string, num, start int) ([]serpapi.OrganicResult, error) {
	m.calls++
	return m.searchFunc(ctx, query, num, start)
}

// mockPlacesClient implements places.Client for testing.
type mockPlacesClient struct {
	nearbyFunc func(ctx context.Context, req places.NearbyRequest) ([]places.Place, error)
	calls      int
}

func (m *mockPlacesClient) SearchNearby(ctx context.Context, req places.NearbyRequest) ([]places.Place, error) {
	m.calls++
	return m.nearbyFunc(ctx, req)
}

// Ensure interface compliance.
var (
	_ serpapi.Client = (*mockSearchClient)(nil)
	_ places.Client  = (*mockPlacesClient)(nil)

	_ Provider = (*Seed)(nil)
	_ Provider = (*SearchEngine)(nil)
	_ Provider = (*GeoTiledPlaces)(nil)
	_ Provider = (*FeedImport)(nil)
)
