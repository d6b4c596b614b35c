package crawler

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkoparser/catalog-ingest/internal/domain"
	"github.com/alkoparser/catalog-ingest/internal/id"
	"github.com/alkoparser/catalog-ingest/internal/sse"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.(sse.Event))
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func TestMonitor_Lifecycle(t *testing.T) {
	emitter := &recordingEmitter{}
	m := NewMonitor(emitter, testLogger(), 0)

	run, ok := m.begin([]string{"https://alkoteka.com/catalog/vino"})
	require.True(t, ok)
	assert.True(t, id.HasPrefix(run.ID, id.PrefixRun))
	assert.True(t, m.Active())

	_, again := m.begin(nil)
	assert.False(t, again)

	p := domain.Product{ID: "p-1"}
	m.product(&p)
	m.RateLimited("https://alkoteka.test/p-1", time.Second)
	m.categoryDone("vino", StateEmpty, 0, 0)
	m.failure()
	m.skipped(3)
	m.skipped(0)

	final := m.finish(domain.RunReasonFinished)

	assert.False(t, m.Active())
	assert.Equal(t, run.ID, final.ID)
	assert.Equal(t, domain.RunReasonFinished, final.Reason)
	assert.Equal(t, 1, final.Products)
	assert.Equal(t, 1, final.RateLimited)
	assert.Equal(t, 1, final.Categories)
	assert.Equal(t, 1, final.Empty)
	assert.Equal(t, 1, final.Failures)
	assert.Equal(t, 3, final.Skipped)
	assert.Equal(t, final, m.Snapshot())

	assert.Equal(t, []sse.EventType{
		sse.EventRunStarted,
		sse.EventProductIngested,
		sse.EventRateLimited,
		sse.EventCategoryDone,
		sse.EventRunFinished,
	}, emitter.types())
}

func TestMonitor_TalliesOutsideRunAreDropped(t *testing.T) {
	m := NewMonitor(nil, testLogger(), 0)

	m.failure()
	m.RateLimited("u", time.Second)

	assert.Equal(t, domain.Run{Seeds: nil}, m.Snapshot())
	assert.Equal(t, domain.Run{}, m.finish(domain.RunReasonFinished))
}

func TestMonitor_LogsProgress(t *testing.T) {
	var buf bytes.Buffer
	m := NewMonitor(nil, slog.New(slog.NewJSONHandler(&buf, nil)), 2)

	m.begin(nil)
	for range 5 {
		m.product(&domain.Product{})
	}
	m.finish(domain.RunReasonFinished)

	assert.Equal(t, 2, strings.Count(buf.String(), `"msg":"products processed"`))
	assert.Contains(t, buf.String(), `"count":4`)
}
