package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/qepting91/review-scraper/internal/domain"
	apperrors "github.com/qepting91/review-scraper/internal/errors"
	"github.com/qepting91/review-scraper/internal/metrics"
)

// Stop reasons recorded on a CollectionResult.
const (
	StopTargetReached  = "target reached"
	StopEndOfData      = "end of data"
	StopCursorStalled  = "cursor stagnated"
	StopCursorCycle    = "cursor repeated"
	StopPastStartDate  = "page older than start date"
	StopFetchExhausted = "fetch retries exhausted"
	StopZeroTarget     = "zero target"
)

// Options tunes the page retry policy.
type Options struct {
	// RetryAttempts is the number of tries per page, including the first.
	RetryAttempts int
	// RetryBackoff is the wait before the first retry; later waits grow exponentially.
	RetryBackoff time.Duration
	Logger       *slog.Logger
}

// Orchestrator drives a PageFetcher through cursor order until the query is satisfied.
// It holds no per-run state, so one Orchestrator can serve consecutive runs.
type Orchestrator struct {
	fetcher domain.PageFetcher
	opts    Options
	logger  *slog.Logger
}

func NewOrchestrator(fetcher domain.PageFetcher, opts Options) *Orchestrator {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{fetcher: fetcher, opts: opts, logger: logger}
}

// Collect pages through the reviews for q.AppID, keeping at most q.TargetCount
// unique reviews inside the date window. Only invalid input is returned as an
// error; fetch failures end the run with StatusPartial and whatever was gathered.
func (o *Orchestrator) Collect(ctx context.Context, q domain.Query) (*domain.CollectionResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	result := &domain.CollectionResult{
		RunID:     uuid.NewString(),
		AppID:     q.AppID,
		Franchise: q.Franchise,
		Game:      q.Game,
		Status:    domain.StatusComplete,
		Reviews:   []domain.Review{},
	}
	log := o.logger.With("run_id", result.RunID, "app_id", q.AppID)

	if q.TargetCount <= 0 {
		result.StopReason = StopZeroTarget
		return o.finish(log, result), nil
	}

	seen := make(map[string]struct{})
	visited := map[string]struct{}{domain.InitialCursor: {}}
	cursor := domain.InitialCursor

	for {
		page, err := o.fetchWithRetry(ctx, log, q.AppID, cursor)
		if err != nil {
			log.Warn("collection stopped early", "cursor", cursor, "collected", len(result.Reviews), "err", err)
			result.Status = domain.StatusPartial
			result.StopReason = StopFetchExhausted
			result.Err = err
			break
		}
		result.Pages++
		metrics.PagesFetched.Inc()

		pastStart := o.accept(q, result, seen, page)
		log.Debug("page processed", "page", result.Pages, "received", len(page.Reviews), "collected", len(result.Reviews))

		if reason := stopReason(q, result, page, cursor, visited, pastStart); reason != "" {
			result.StopReason = reason
			break
		}
		cursor = page.NextCursor
		visited[cursor] = struct{}{}
	}

	if len(result.Reviews) > q.TargetCount {
		result.Reviews = result.Reviews[:q.TargetCount]
	}
	return o.finish(log, result), nil
}

// accept appends the in-window, unseen reviews of page to result. It reports
// whether the page was non-empty and every review on it predates the start date.
func (o *Orchestrator) accept(q domain.Query, result *domain.CollectionResult, seen map[string]struct{}, page *domain.Page) bool {
	pastStart := q.StartDate != nil && len(page.Reviews) > 0
	for _, r := range page.Reviews {
		ts := r.TimestampCreated.Time()
		if !q.BeforeWindow(ts) {
			pastStart = false
		}
		if _, dup := seen[r.RecommendationID]; dup {
			metrics.DuplicatesSkipped.Inc()
			continue
		}
		if !q.InWindow(ts) {
			continue
		}
		seen[r.RecommendationID] = struct{}{}
		result.Reviews = append(result.Reviews, r)
		metrics.ReviewsCollected.Inc()
	}
	return pastStart
}

// stopReason applies the termination checks in priority order. An empty
// string means another page should be fetched.
func stopReason(q domain.Query, result *domain.CollectionResult, page *domain.Page, cursor string, visited map[string]struct{}, pastStart bool) string {
	switch {
	case len(result.Reviews) >= q.TargetCount:
		return StopTargetReached
	case page.Done():
		return StopEndOfData
	case page.NextCursor == cursor:
		return StopCursorStalled
	}
	if _, ok := visited[page.NextCursor]; ok {
		return StopCursorCycle
	}
	if pastStart {
		return StopPastStartDate
	}
	return ""
}

func (o *Orchestrator) fetchWithRetry(ctx context.Context, log *slog.Logger, appID int, cursor string) (*domain.Page, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.opts.RetryBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.opts.RetryAttempts-1)), ctx)

	var page *domain.Page
	attempt := 0
	op := func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		p, err := o.fetcher.FetchPage(ctx, appID, cursor)
		if err != nil {
			metrics.FetchFailures.WithLabelValues(string(apperrors.CodeOf(err))).Inc()
			if !apperrors.IsRetryable(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		page = p
		return nil
	}
	notify := func(err error, wait time.Duration) {
		metrics.FetchRetries.Inc()
		log.Warn("page fetch failed, retrying", "cursor", cursor, "attempt", attempt, "wait", wait, "err", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return page, nil
}

func (o *Orchestrator) finish(log *slog.Logger, result *domain.CollectionResult) *domain.CollectionResult {
	// A zero target is a complete no-op, not an empty traversal.
	if result.Status == domain.StatusComplete && len(result.Reviews) == 0 && result.StopReason != StopZeroTarget {
		result.Status = domain.StatusEmpty
	}
	result.FinishedAt = time.Now().UTC()
	metrics.RunsTotal.WithLabelValues(string(result.Status)).Inc()

	log.Info("collection finished",
		"status", result.Status,
		"reason", result.StopReason,
		"count", len(result.Reviews),
		"pages", result.Pages,
	)
	return result
}
