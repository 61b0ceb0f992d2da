package cmd

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/renderstack/maestro/pkg/report"
)

// NewHistory builds the execution history store for a history URL. An empty
// URL or "memory" selects the bounded in-memory ring; "redis://..." selects
// the Redis-backed list.
func NewHistory(historyURL string) (report.History, error) {
	switch {
	case historyURL == "" || historyURL == "memory":
		return report.NewRing(report.DefaultHistorySize), nil
	case strings.HasPrefix(historyURL, "redis://"):
		opts, err := redis.ParseURL(historyURL)
		if err != nil {
			return nil, fmt.Errorf("parsing history url: %w", err)
		}

		return report.NewRedisHistory(redis.NewClient(opts), report.DefaultHistorySize), nil
	default:
		return nil, fmt.Errorf("unsupported history url: %s", historyURL)
	}
}
