package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrice_OnSale(t *testing.T) {
	tests := []struct {
		name  string
		price Price
		want  bool
	}{
		{"discounted", Price{Current: 80, Original: 100}, true},
		{"same price", Price{Current: 100, Original: 100}, false},
		{"zero current", Price{Current: 0, Original: 100}, false},
		{"original lower", Price{Current: 120, Original: 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.price.OnSale())
		})
	}
}

func TestRun_Duration(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	r := Run{StartedAt: start}
	assert.Zero(t, r.Duration())

	r.FinishedAt = start.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, r.Duration())
}
