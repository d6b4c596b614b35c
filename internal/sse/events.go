// Package sse streams crawl progress to HTTP clients as Server-Sent Events.
package sse

import (
	"time"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventRunStarted is sent once when a crawl run begins.
	EventRunStarted EventType = "run.started"
	// EventRunFinished carries the final run summary.
	EventRunFinished EventType = "run.finished"

	// EventCategoryDone is sent when a category reaches a terminal state.
	EventCategoryDone EventType = "category.done"

	// EventProductIngested is sent for every emitted product.
	EventProductIngested EventType = "product.ingested"

	// EventRateLimited is sent when upstream answers 429 and dispatch pauses.
	EventRateLimited EventType = "crawl.rate_limited"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// RunStartedEventData is the data payload for run start events.
type RunStartedEventData struct {
	StartedAt time.Time `json:"started_at"`
	RunID     string    `json:"run_id"`
	Seeds     []string  `json:"seeds"`
}

// RunFinishedEventData is the data payload for run finish events.
type RunFinishedEventData struct {
	Run domain.Run `json:"run"`
}

// CategoryDoneEventData is the data payload for category events.
type CategoryDoneEventData struct {
	Slug     string `json:"slug"`
	State    string `json:"state"`
	Total    int    `json:"total"`
	Products int    `json:"products"`
}

// ProductIngestedEventData is a trimmed product view, enough to render a feed.
type ProductIngestedEventData struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Price   float64 `json:"price"`
	SaleTag string  `json:"sale_tag,omitempty"`
	InStock bool    `json:"in_stock"`
}

// RateLimitedEventData is the data payload for rate limit events.
type RateLimitedEventData struct {
	URL        string  `json:"url"`
	RetryAfter float64 `json:"retry_after_seconds"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewRunStartedEvent creates a run.started event.
func NewRunStartedEvent(runID string, seeds []string, startedAt time.Time) Event {
	return Event{
		Type: EventRunStarted,
		Data: RunStartedEventData{
			RunID:     runID,
			Seeds:     seeds,
			StartedAt: startedAt,
		},
		Timestamp: time.Now(),
	}
}

// NewRunFinishedEvent creates a run.finished event.
func NewRunFinishedEvent(run domain.Run) Event {
	return Event{
		Type:      EventRunFinished,
		Data:      RunFinishedEventData{Run: run},
		Timestamp: time.Now(),
	}
}

// NewCategoryDoneEvent creates a category.done event.
func NewCategoryDoneEvent(slug, state string, total, products int) Event {
	return Event{
		Type: EventCategoryDone,
		Data: CategoryDoneEventData{
			Slug:     slug,
			State:    state,
			Total:    total,
			Products: products,
		},
		Timestamp: time.Now(),
	}
}

// NewProductIngestedEvent creates a product.ingested event.
func NewProductIngestedEvent(p *domain.Product) Event {
	return Event{
		Type: EventProductIngested,
		Data: ProductIngestedEventData{
			ID:      p.ID,
			Title:   p.Title,
			URL:     p.URL,
			Price:   p.Price.Current,
			SaleTag: p.Price.SaleTag,
			InStock: p.Stock.InStock,
		},
		Timestamp: time.Now(),
	}
}

// NewRateLimitedEvent creates a crawl.rate_limited event.
func NewRateLimitedEvent(url string, wait time.Duration) Event {
	return Event{
		Type: EventRateLimited,
		Data: RateLimitedEventData{
			URL:        url,
			RetryAfter: wait.Seconds(),
		},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
