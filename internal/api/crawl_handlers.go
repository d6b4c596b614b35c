package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

func (s *Server) registerCrawlRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "crawlStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/crawl/stats",
		Summary:     "Current crawl statistics",
		Description: "Counters of the running crawl, or of the last one when idle",
		Tags:        []string{"Crawl"},
	}, s.handleCrawlStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRuns",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs",
		Summary:     "List runs",
		Description: "Stored crawl run summaries, newest first",
		Tags:        []string{"Crawl"},
	}, s.handleListRuns)

	// The event stream is plain chi: Huma does not model long-lived responses.
	if s.sseHandler != nil {
		s.router.Get("/api/v1/crawl/events", s.sseHandler.ServeHTTP)
	}
}

// === DTOs ===

// CrawlStatsResponse reports crawl progress.
type CrawlStatsResponse struct {
	Active   bool       `json:"active" doc:"Whether a crawl is running"`
	Run      domain.Run `json:"run" doc:"Counters of the current or last run"`
	Elapsed  string     `json:"elapsed,omitempty" doc:"Time since the run started"`
	Watchers int        `json:"watchers" doc:"Connected event stream clients"`
}

// CrawlStatsOutput wraps crawl stats for Huma.
type CrawlStatsOutput struct {
	Body CrawlStatsResponse
}

// ListRunsInput limits the run history.
type ListRunsInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"500" default:"20" doc:"Max runs"`
}

// RunListResponse holds run summaries.
type RunListResponse struct {
	Runs []domain.Run `json:"runs" doc:"Run summaries, newest first"`
}

// RunListOutput wraps the run list for Huma.
type RunListOutput struct {
	Body RunListResponse
}

// === Handlers ===

func (s *Server) handleCrawlStats(_ context.Context, _ *struct{}) (*CrawlStatsOutput, error) {
	var resp CrawlStatsResponse
	if s.crawl != nil {
		resp.Active = s.crawl.Active()
		resp.Run = s.crawl.Snapshot()
		switch {
		case !resp.Run.FinishedAt.IsZero():
			resp.Elapsed = resp.Run.Duration().String()
		case !resp.Run.StartedAt.IsZero():
			resp.Elapsed = time.Since(resp.Run.StartedAt).Round(time.Second).String()
		}
	}
	if resp.Run.Seeds == nil {
		resp.Run.Seeds = []string{}
	}
	if s.sseManager != nil {
		resp.Watchers = s.sseManager.ClientCount()
	}
	return &CrawlStatsOutput{Body: resp}, nil
}

func (s *Server) handleListRuns(ctx context.Context, input *ListRunsInput) (*RunListOutput, error) {
	if s.store == nil {
		return nil, errStoreDisabled
	}

	runs, err := s.store.ListRuns(ctx, input.Limit)
	if err != nil {
		return nil, toAPIError(err)
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	return &RunListOutput{Body: RunListResponse{Runs: runs}}, nil
}
