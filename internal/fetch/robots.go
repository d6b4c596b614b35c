package fetch

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// robotsRules is the disallow list that applies to our user agent on one host.
type robotsRules struct {
	disallow []string // Path prefixes
}

func (r *robotsRules) allows(path string) bool {
	if r == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	for _, prefix := range r.disallow {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// robotsCache fetches robots.txt once per scheme+host for the life of the fetcher.
type robotsCache struct {
	mu    sync.Mutex
	rules map[string]*robotsRules
	group singleflight.Group
}

func newRobotsCache() *robotsCache {
	return &robotsCache{rules: make(map[string]*robotsRules)}
}

// allowed reports whether target may be fetched. load retrieves robots.txt;
// any failure to get a 200 means everything is allowed.
func (c *robotsCache) allowed(ctx context.Context, target *url.URL, userAgent string, load func(context.Context, string) (*Response, error)) (bool, error) {
	base := target.Scheme + "://" + target.Host

	c.mu.Lock()
	rules, ok := c.rules[base]
	c.mu.Unlock()
	if ok {
		return rules.allows(target.EscapedPath()), nil
	}

	v, err, _ := c.group.Do(base, func() (any, error) {
		resp, err := load(ctx, base+"/robots.txt")
		if err != nil {
			return nil, err
		}

		rules := &robotsRules{}
		if resp.Status == http.StatusOK {
			rules = parseRobots(string(resp.Body), userAgent)
		}

		c.mu.Lock()
		c.rules[base] = rules
		c.mu.Unlock()
		return rules, nil
	})
	if err != nil {
		// Transport trouble on robots.txt is not cached so the next call retries.
		return false, err
	}

	return v.(*robotsRules).allows(target.EscapedPath()), nil
}

// parseRobots extracts Disallow prefixes for userAgent, falling back to the
// "*" group when no group names it. Agent tokens match by case-insensitive
// prefix, so "catalog-ingest" matches "catalog-ingest/1.0".
func parseRobots(body, userAgent string) *robotsRules {
	userAgent = strings.ToLower(userAgent)

	var wildcard, specific robotsRules
	var matchedSpecific bool
	var agents []string
	var last string

	for line := range strings.SplitSeq(body, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if last == "user-agent" {
				agents = append(agents, strings.ToLower(value))
			} else {
				agents = []string{strings.ToLower(value)}
			}
		case "disallow":
			// An empty Disallow still claims the group for its agents.
			for _, agent := range agents {
				switch {
				case agent == "*":
					if value != "" {
						wildcard.disallow = append(wildcard.disallow, value)
					}
				case strings.HasPrefix(userAgent, agent):
					if value != "" {
						specific.disallow = append(specific.disallow, value)
					}
					matchedSpecific = true
				}
			}
		}
		last = key
	}

	if matchedSpecific {
		return &specific
	}
	return &wildcard
}
