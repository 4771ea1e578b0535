package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/discovery"
	"github.com/havenpaws/prospect-cli/internal/jobs"
	"github.com/havenpaws/prospect-cli/internal/store"
)

// api holds the serve dependencies. Each may be nil in tests; the affected
// endpoints answer 503.
type api struct {
	// ctx is the server lifetime context. Submitted jobs run on it so they
	// survive the request that created them.
	ctx    context.Context
	runner *jobs.Runner
	orch   *discovery.Orchestrator
	store  store.Store
}

// buildRouter wires the discovery job API and the organization endpoints
// the review UI reads from.
func buildRouter(ctx context.Context, runner *jobs.Runner, orch *discovery.Orchestrator, st store.Store) http.Handler {
	a := &api{ctx: ctx, runner: runner, orch: orch, store: st}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/discovery", func(r chi.Router) {
			r.Post("/jobs", a.submitJob)
			r.Get("/jobs/{id}", a.getJob)
			r.Post("/run", a.runDiscovery)
			r.Post("/import", a.importReviewed)
		})
		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", a.listOrganizations)
			r.Get("/{id}", a.getOrganization)
			r.Delete("/{id}", a.deleteOrganization)
			r.Get("/{id}/contacts", a.listContacts)
		})
	})

	return r
}

func (a *api) submitJob(w http.ResponseWriter, r *http.Request) {
	if a.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "job runner is not configured")
		return
	}

	p, ok := decodeParams(w, r)
	if !ok {
		return
	}

	id, err := a.runner.Submit(a.ctx, p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     id,
		"status_url": "/api/discovery/jobs/" + id,
	})
}

func (a *api) getJob(w http.ResponseWriter, r *http.Request) {
	if a.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "job runner is not configured")
		return
	}

	job, ok := a.runner.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *api) runDiscovery(w http.ResponseWriter, r *http.Request) {
	if a.orch == nil {
		writeError(w, http.StatusServiceUnavailable, "discovery is not configured")
		return
	}

	p, ok := decodeParams(w, r)
	if !ok {
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.orch.Run(r.Context(), p, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) importReviewed(w http.ResponseWriter, r *http.Request) {
	if a.orch == nil {
		writeError(w, http.StatusServiceUnavailable, "discovery is not configured")
		return
	}

	var payload importPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := a.orch.ImportReviewed(r.Context(), payload.params(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) listOrganizations(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store is not configured")
		return
	}

	q := r.URL.Query()
	filter := store.OrgFilter{
		IDs:      splitList(q.Get("ids")),
		MinScore: queryInt(q.Get("min_score")),
		Category: q.Get("category"),
		State:    q.Get("state"),
		Search:   q.Get("search"),
		Limit:    queryInt(q.Get("limit")),
		Offset:   queryInt(q.Get("offset")),
	}

	orgs, err := a.store.ListOrganizations(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"organizations": orgs,
		"count":         len(orgs),
	})
}

func (a *api) getOrganization(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store is not configured")
		return
	}

	org, err := a.store.GetOrganization(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if org == nil {
		writeError(w, http.StatusNotFound, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *api) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	org, err := a.store.GetOrganization(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if org == nil {
		writeError(w, http.StatusNotFound, "organization not found")
		return
	}

	if err := a.store.DeleteOrganization(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (a *api) listContacts(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store is not configured")
		return
	}

	list, err := a.store.ListContacts(r.Context(), store.ContactFilter{
		OrgID:  chi.URLParam(r, "id"),
		Limit:  queryInt(r.URL.Query().Get("limit")),
		Offset: queryInt(r.URL.Query().Get("offset")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contacts": list,
		"count":    len(list),
	})
}

// decodeParams reads run parameters from the body. An empty body means
// default parameters; a malformed one ends the request with a 400.
func decodeParams(w http.ResponseWriter, r *http.Request) (discovery.Params, bool) {
	var p discovery.Params
	err := json.NewDecoder(r.Body).Decode(&p)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return discovery.Params{}, false
	}
	return p, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
