package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/qepting91/review-scraper/internal/domain"
	apperrors "github.com/qepting91/review-scraper/internal/errors"
	"github.com/qepting91/review-scraper/internal/metrics"
	"golang.org/x/time/rate"
)

// PageSize is the upstream per-request maximum.
const PageSize = 100

// ClientOptions configures a PublicClient.
type ClientOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Interval is the minimum spacing between requests. Zero disables limiting.
	Interval time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// PublicClient fetches review pages from the public, unauthenticated JSON endpoint.
type PublicClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	userAgent  string
}

type reviewsEnvelope struct {
	Success      int `json:"success"`
	QuerySummary struct {
		NumReviews int `json:"num_reviews"`
	} `json:"query_summary"`
	Reviews []domain.Review `json:"reviews"`
	Cursor  string          `json:"cursor"`
}

func NewPublicClient(opts ClientOptions) (*PublicClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}

	return &PublicClient{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
	}, nil
}

// pageURL encodes the cursor and the fixed filters: every language, every
// review type and purchase type, most recent first.
func (pc *PublicClient) pageURL(appID int, cursor string) string {
	q := url.Values{}
	q.Set("json", "1")
	q.Set("cursor", cursor)
	q.Set("filter", "recent")
	q.Set("language", "all")
	q.Set("review_type", "all")
	q.Set("purchase_type", "all")
	q.Set("num_per_page", strconv.Itoa(PageSize))
	return fmt.Sprintf("%s/%d?%s", pc.baseURL, appID, q.Encode())
}

func (pc *PublicClient) FetchPage(ctx context.Context, appID int, cursor string) (*domain.Page, error) {
	if appID <= 0 {
		return nil, apperrors.NewInvalidInputError("app id must be a positive integer, got %d", appID)
	}
	if cursor == "" {
		cursor = domain.InitialCursor
	}

	if err := pc.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.pageURL(appID, cursor), nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("build request", err)
	}
	req.Header.Set("User-Agent", pc.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := pc.httpClient.Do(req)
	metrics.RecordFetchDuration(start)
	if err != nil {
		return nil, apperrors.NewNetworkError("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperrors.NewNetworkError(fmt.Sprintf("reviews endpoint status: %d", resp.StatusCode), nil)
	}

	var env reviewsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, apperrors.NewMalformedResponseError("decode reviews envelope", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}

	return &domain.Page{Reviews: env.Reviews, NextCursor: env.Cursor}, nil
}

func (env *reviewsEnvelope) validate() error {
	if env.Success != 1 {
		return apperrors.NewMalformedResponseError(fmt.Sprintf("success flag is %d", env.Success), nil)
	}
	if env.Reviews == nil {
		return apperrors.NewMalformedResponseError("reviews array missing", nil)
	}
	for i, r := range env.Reviews {
		if r.RecommendationID == "" {
			return apperrors.NewMalformedResponseError(fmt.Sprintf("review %d has no recommendationid", i), nil)
		}
	}
	return nil
}
