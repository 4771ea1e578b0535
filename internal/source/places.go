package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/deadline"
	"github.com/havenpaws/prospect-cli/internal/geo"
	"github.com/havenpaws/prospect-cli/internal/resilience"
	"github.com/havenpaws/prospect-cli/pkg/places"
)

// PlacesOptions tunes the geo-tiled nearby-search stage.
type PlacesOptions struct {
	// StageBudget bounds the whole tile scan's wall time.
	StageBudget time.Duration
	// MaxTileErrors is how many tile fetch errors the scan tolerates.
	MaxTileErrors int
	// TileWorkers is how many tiles are fetched in parallel.
	TileWorkers int
}

// GeoTiledPlaces scans a radius around a geocoded origin by tiling nearby
// searches across it. Needs an origin; without one the provider yields
// nothing. Place ids dedupe within the run and the scan stops at a
// candidate target derived from the run's collection budget.
type GeoTiledPlaces struct {
	client places.Client
	opts   PlacesOptions
	log    *zap.Logger
}

// NewGeoTiledPlaces builds the nearby-search provider.
func NewGeoTiledPlaces(client places.Client, opts PlacesOptions) *GeoTiledPlaces {
	if opts.StageBudget <= 0 {
		opts.StageBudget = 180 * time.Second
	}
	if opts.MaxTileErrors < 1 {
		opts.MaxTileErrors = 5
	}
	if opts.TileWorkers < 1 {
		opts.TileWorkers = 1
	}
	return &GeoTiledPlaces{
		client: client,
		opts:   opts,
		log:    zap.L().With(zap.String("component", "source.places")),
	}
}

func (g *GeoTiledPlaces) Name() string { return "google_places" }

func (g *GeoTiledPlaces) Collect(ctx context.Context, req Request) (Result, error) {
	var res Result
	if g.client == nil || req.Origin == nil || req.RadiusMiles <= 0 {
		return res, nil
	}

	radiusMeters := req.RadiusMiles * geo.MetersPerMile
	if radiusMeters < 100 {
		radiusMeters = 100
	}

	tiles := geo.GenerateTiles(
		req.Origin.Latitude, req.Origin.Longitude,
		radiusMeters, geo.TileRadiusFor(radiusMeters),
	)
	target := placesTarget(req.CollectTarget)

	g.log.Info("scanning nearby-search tiles",
		zap.Int("tiles", len(tiles)),
		zap.Float64("radius_miles", req.RadiusMiles),
		zap.Int("target", target),
	)
	req.emit(Progress{TilesTotal: len(tiles)})

	stage := req.Deadline.Budget(g.opts.StageBudget)
	scanCtx, cancel := stage.Context(ctx)
	defer cancel()

	scan := &tileScan{
		provider: g,
		req:      req,
		stage:    stage,
		target:   target,
		total:    len(tiles),
		seen:     make(map[string]bool),
		errors:   resilience.NewFailureBudget(g.opts.MaxTileErrors),
		cancel:   cancel,
	}

	grp, grpCtx := errgroup.WithContext(scanCtx)
	grp.SetLimit(g.opts.TileWorkers)
	for _, tile := range tiles {
		grp.Go(func() error {
			scan.runTile(grpCtx, tile)
			return nil
		})
	}
	_ = grp.Wait()

	res.Candidates = scan.out
	if scan.stopReason != "" {
		res.StopReasons = append(res.StopReasons, scan.stopReason)
		if BudgetStop(scan.stopReason) {
			g.log.Info("tile scan stopped early",
				zap.String("stop_reason", scan.stopReason),
				zap.Int("tiles_done", scan.done),
				zap.Int("candidates", len(scan.out)),
			)
		}
	}
	return res, nil
}

// placesTarget sizes the stage's candidate budget from the run's overall
// collection target.
func placesTarget(collectTarget int) int {
	if collectTarget < 1 {
		collectTarget = 100
	}
	if collectTarget > 1000 {
		collectTarget = 1000
	}
	target := collectTarget * 4
	if target < 80 {
		target = 80
	}
	if target > 4000 {
		target = 4000
	}
	return target
}

// tileScan is the shared state of one parallel tile sweep.
type tileScan struct {
	provider *GeoTiledPlaces
	req      Request
	stage    deadline.Deadline
	target   int
	total    int
	errors   *resilience.FailureBudget
	cancel   context.CancelFunc

	mu         sync.Mutex
	out        []candidate.Organization
	seen       map[string]bool
	done       int
	stopReason string
}

func (s *tileScan) runTile(ctx context.Context, tile geo.Tile) {
	if !s.admit() {
		return
	}

	found, err := s.provider.client.SearchNearby(ctx, places.NearbyRequest{
		Latitude:       tile.Lat,
		Longitude:      tile.Lng,
		RadiusMeters:   tile.RadiusMeters,
		MaxResults:     20,
		RankPreference: "DISTANCE",
	})
	if err != nil {
		// In-flight fetches cancelled by the scan winding down are not
		// provider failures.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		s.provider.log.Warn("tile fetch failed",
			zap.Float64("lat", tile.Lat),
			zap.Float64("lng", tile.Lng),
			zap.Error(err),
		)
		if s.errors.Fail() {
			s.stop(StopTileErrors)
		}
		return
	}

	s.record(found)
}

// admit decides whether a tile may run, recording the stop reason that
// blocks it. Checked before every tile so an exhausted budget halts the
// remaining sweep.
func (s *tileScan) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopReason != "" {
		return false
	}
	if s.req.Deadline.Expired() {
		s.stopLocked(StopGlobalDeadline)
		return false
	}
	if s.stage.Expired() {
		s.stopLocked(StopPlacesDeadline)
		return false
	}
	if len(s.out) >= s.target {
		s.stopLocked(StopTargetReached)
		return false
	}
	return true
}

func (s *tileScan) record(found []places.Place) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range found {
		if len(s.out) >= s.target {
			break
		}
		if p.ID == "" || s.seen[p.ID] {
			continue
		}
		s.seen[p.ID] = true
		s.out = append(s.out, candidate.FromPlace(placeCandidate(p)))
	}

	s.done++
	s.req.emit(Progress{TilesTotal: s.total, TilesDone: s.done, Candidates: len(s.out)})
}

func (s *tileScan) stop(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(reason)
}

func (s *tileScan) stopLocked(reason string) {
	if s.stopReason != "" {
		return
	}
	s.stopReason = reason
	s.cancel()
}

// placeCandidate maps an API place onto the normalizer's raw shape.
func placeCandidate(p places.Place) candidate.Place {
	var lat, lng *float64
	if p.Location != nil {
		la, ln := p.Location.Latitude, p.Location.Longitude
		lat, lng = &la, &ln
	}
	return candidate.Place{
		ID:             p.ID,
		Name:           p.DisplayName.Text,
		Address:        p.FormattedAddress,
		Website:        p.WebsiteURI,
		Phone:          p.NationalPhoneNumber,
		Latitude:       lat,
		Longitude:      lng,
		Types:          p.Types,
		PrimaryType:    p.PrimaryType,
		BusinessStatus: p.BusinessStatus,
	}
}
