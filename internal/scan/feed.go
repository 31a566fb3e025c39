package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cardwatch/cardwatch-data/internal/config"
	"github.com/cardwatch/cardwatch-data/internal/listing"
)

// FeedSource fetches candidate records from an HTTP endpoint that returns a
// JSON array of raw listing objects. Requests are rate limited per source.
type FeedSource struct {
	name            string
	url             string
	defaultRetailer string
	httpClient      *http.Client
	limiter         *rate.Limiter
	logger          *slog.Logger
}

// NewFeedSource builds a feed source from a sources.yaml definition.
func NewFeedSource(def config.SourceDef, logger *slog.Logger) *FeedSource {
	if logger == nil {
		logger = slog.Default()
	}
	rpm := def.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	return &FeedSource{
		name:            def.Name,
		url:             def.URL,
		defaultRetailer: def.Retailer,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		limiter:         rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		logger:          logger,
	}
}

func (s *FeedSource) Name() string { return s.name }

func (s *FeedSource) Search(ctx context.Context) ([]listing.Raw, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned %d: %s", s.name, resp.StatusCode, truncate(body, 200))
	}

	var raws []listing.Raw
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decode feed %s: %w", s.name, err)
	}

	// A feed scoped to one retailer may omit the field per record.
	for i := range raws {
		if raws[i].Retailer == "" {
			raws[i].Retailer = s.defaultRetailer
		}
	}
	return raws, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
