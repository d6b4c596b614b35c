package fetch

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// parseRetryAfter reads a Retry-After header value, either delta-seconds or
// an HTTP date. Missing, negative or unparseable values yield fallback.
func parseRetryAfter(v string, now time.Time, fallback time.Duration) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}

	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(v); err == nil {
		return max(at.Sub(now), 0)
	}

	return fallback
}
