package sse

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startManager(t *testing.T) *Manager {
	t.Helper()

	m := NewManager(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = m.Shutdown(context.Background())
	})
	return m
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestManager_BroadcastsToAllClients(t *testing.T) {
	m := startManager(t)

	a, err := m.Connect()
	require.NoError(t, err)
	b, err := m.Connect()
	require.NoError(t, err)
	assert.Equal(t, 2, m.ClientCount())

	m.Emit(NewCategoryDoneEvent("vino", "done", 3, 3))

	for _, c := range []*Client{a, b} {
		e := receive(t, c)
		assert.Equal(t, EventCategoryDone, e.Type)
		assert.Equal(t, "vino", e.Data.(CategoryDoneEventData).Slug)
	}
}

func TestManager_TracksCrawlState(t *testing.T) {
	m := startManager(t)
	c, err := m.Connect()
	require.NoError(t, err)

	m.Emit(NewRunStartedEvent("run-1", []string{"vino"}, time.Now()))
	receive(t, c)
	assert.True(t, m.IsCrawling())

	m.Emit(NewRunFinishedEvent(domain.Run{ID: "run-1"}))
	receive(t, c)
	assert.False(t, m.IsCrawling())
}

func TestManager_IgnoresForeignEvents(t *testing.T) {
	m := startManager(t)
	c, err := m.Connect()
	require.NoError(t, err)

	m.Emit("not an event")
	m.Emit(NewHeartbeatEvent())

	assert.Equal(t, EventHeartbeat, receive(t, c).Type)
}

func TestManager_EmitAfterShutdownIsDropped(t *testing.T) {
	m := NewManager(testLogger())
	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.NotPanics(t, func() { m.Emit(NewHeartbeatEvent()) })
}

func TestManager_Disconnect(t *testing.T) {
	m := NewManager(testLogger())
	c, err := m.Connect()
	require.NoError(t, err)

	m.Disconnect(c.ID)
	m.Disconnect(c.ID)

	assert.Equal(t, 0, m.ClientCount())
	_, open := <-c.EventChan
	assert.False(t, open)
}

func TestHandler_StreamsEvents(t *testing.T) {
	m := startManager(t)
	server := httptest.NewServer(NewHandler(m, testLogger()))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readFrame := func() (string, string) {
		var event, data string
		for lines.Scan() {
			line := lines.Text()
			switch {
			case line == "":
				return event, data
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
		return event, data
	}

	event, data := readFrame()
	assert.Equal(t, "connected", event)
	assert.Contains(t, data, `"crawling":false`)

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	m.Emit(NewRateLimitedEvent("https://alkoteka.test/x", 2*time.Second))

	event, data = readFrame()
	assert.Equal(t, string(EventRateLimited), event)
	assert.Contains(t, data, `"retry_after_seconds":2`)
}

func TestHandler_RejectsPost(t *testing.T) {
	h := NewHandler(NewManager(testLogger()), testLogger())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/crawl/events", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
