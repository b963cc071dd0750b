package collector

import (
	"fmt"

	"github.com/qepting91/review-scraper/internal/config"
	"github.com/qepting91/review-scraper/internal/domain"
)

// NewFetcher selects the correct implementation based on the collector mode
func NewFetcher(cfg *config.Config) (domain.PageFetcher, error) {
	switch cfg.CollectorMode {
	case "public":
		if cfg.UserAgent == "" {
			return nil, fmt.Errorf("REVIEWS_USER_AGENT is required for public mode")
		}
		return NewPublicClient(ClientOptions{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.RequestTimeout,
			Interval:  cfg.RequestInterval,
		})
	case "mock":
		mc := NewMockClient()
		mc.Latency = cfg.MockLatency
		return mc, nil
	default:
		return nil, fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'public' or 'mock')", cfg.CollectorMode)
	}
}
