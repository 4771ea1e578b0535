package main

import (
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/havenpaws/prospect-cli/internal/contacts"
	"github.com/havenpaws/prospect-cli/internal/discovery"
	"github.com/havenpaws/prospect-cli/internal/fetcher"
	"github.com/havenpaws/prospect-cli/internal/planner"
	"github.com/havenpaws/prospect-cli/internal/source"
	"github.com/havenpaws/prospect-cli/internal/store"
	"github.com/havenpaws/prospect-cli/pkg/anthropic"
	"github.com/havenpaws/prospect-cli/pkg/geocode"
	"github.com/havenpaws/prospect-cli/pkg/peoplesearch"
	"github.com/havenpaws/prospect-cli/pkg/places"
	"github.com/havenpaws/prospect-cli/pkg/render"
	"github.com/havenpaws/prospect-cli/pkg/serpapi"
)

// initDiscovery assembles the discovery orchestrator from configuration.
// Providers without credentials are left out; the orchestrator degrades
// those stages to empty output instead of failing the run. st may be nil
// for store-less dry runs.
func initDiscovery(st store.Store) (*discovery.Orchestrator, error) {
	seed, err := source.NewSeed(cfg.Discovery.SeedsFile)
	if err != nil {
		return nil, eris.Wrap(err, "load seed list")
	}

	sources := discovery.Sources{
		Seed: seed,
		Feed: source.NewFeedImport(source.FeedOptions{
			URL:        cfg.Feed.URL,
			MaxEntries: cfg.Feed.MaxEntries,
		}),
	}

	if cfg.SerpAPI.Key != "" {
		client := serpapi.NewClient(cfg.SerpAPI.Key,
			serpapi.WithBaseURL(cfg.SerpAPI.BaseURL),
			serpapi.WithHTTPClient(&http.Client{Timeout: cfg.SerpAPI.Timeout}),
		)
		sources.Search = source.NewSearchEngine(client, source.SearchOptions{
			PerPage:       cfg.SerpAPI.ResultsPerPage,
			StageBudget:   cfg.SerpAPI.StageBudget,
			FailureBudget: cfg.SerpAPI.FailureBudget,
		})
	}

	if cfg.Places.Key != "" {
		client := places.NewClient(cfg.Places.Key,
			places.WithBaseURL(cfg.Places.BaseURL),
		)
		sources.Places = source.NewGeoTiledPlaces(client, source.PlacesOptions{
			StageBudget:   cfg.Places.StageBudget,
			MaxTileErrors: cfg.Places.MaxTileErrors,
			TileWorkers:   cfg.Places.TileWorkers,
		})
	}

	var pl *planner.Planner
	if cfg.Anthropic.Key != "" {
		pl = planner.New(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Anthropic.Timeout).
			WithJustifications(cfg.Anthropic.Justifications)
	}

	gc := geocode.NewClient(
		geocode.WithNominatimURL(cfg.Geocode.NominatimURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithGoogleAPIKey(cfg.Geocode.GoogleKey),
		geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocode.Timeout}),
	)

	return discovery.New(sources, pl, gc, st, initExtractor(), discovery.Options{
		DefaultLimit:    cfg.Discovery.DefaultLimit,
		DefaultRadius:   cfg.Discovery.DefaultRadius,
		DefaultMinScore: cfg.Discovery.DefaultMinScore,
		MaxRuntime:      cfg.Discovery.MaxRuntime,
	}), nil
}

func initExtractor() *contacts.Extractor {
	opts := contacts.Options{
		MaxSubpages: cfg.Contacts.MaxSubpages,
		MaxStaff:    cfg.Contacts.MaxStaff,
		Workers:     cfg.Contacts.Workers,
	}

	if cfg.PeopleSearch.Key != "" {
		opts.People = peoplesearch.NewClient(cfg.PeopleSearch.Key,
			peoplesearch.WithBaseURL(cfg.PeopleSearch.BaseURL),
			peoplesearch.WithHTTPClient(&http.Client{Timeout: cfg.PeopleSearch.Timeout}),
		)
	}
	if cfg.Render.Enabled {
		opts.Render = render.NewClient("",
			render.WithBaseURL(cfg.Render.BaseURL),
			render.WithHTTPClient(&http.Client{Timeout: cfg.Render.Timeout}),
		)
	}

	pf := fetcher.New(fetcher.Options{
		UserAgent: cfg.Contacts.UserAgent,
		Timeout:   cfg.Contacts.FetchTimeout,
		MinDelay:  cfg.Contacts.MinFetchWait,
		MaxDelay:  cfg.Contacts.MaxFetchWait,
	})
	return contacts.NewExtractor(pf, opts)
}
