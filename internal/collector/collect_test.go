package collector

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/review-scraper/internal/domain"
	apperrors "github.com/qepting91/review-scraper/internal/errors"
)

// scriptedFetcher serves pre-built pages keyed by cursor and records every call.
type scriptedFetcher struct {
	pages    map[string]*domain.Page
	failures map[string]int
	calls    []string
}

func (f *scriptedFetcher) FetchPage(_ context.Context, _ int, cursor string) (*domain.Page, error) {
	f.calls = append(f.calls, cursor)
	if f.failures[cursor] > 0 {
		f.failures[cursor]--
		return nil, apperrors.NewNetworkError("connection reset", nil)
	}
	page, ok := f.pages[cursor]
	if !ok {
		return nil, apperrors.NewMalformedResponseError("unexpected cursor "+cursor, nil)
	}
	return page, nil
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchPage(_ context.Context, appID int, cursor string) (*domain.Page, error) {
	args := m.Called(appID, cursor)
	page, _ := args.Get(0).(*domain.Page)
	return page, args.Error(1)
}

func rev(id string, created time.Time) domain.Review {
	return domain.Review{
		RecommendationID: id,
		Author:           domain.Author{SteamID: "steam-" + id},
		Review:           "review " + id,
		TimestampCreated: domain.UnixTime(created.Unix()),
		VotedUp:          true,
	}
}

// dailyReviews returns one review per day at noon, newest first, from newest back to oldest.
func dailyReviews(newest, oldest time.Time) []domain.Review {
	var out []domain.Review
	for d := newest; !d.Before(oldest); d = d.AddDate(0, 0, -1) {
		out = append(out, rev(d.Format("20060102"), d.Add(12*time.Hour)))
	}
	return out
}

// paginate lays reviews out the way the upstream does: cursors "*", "c1", "c2"...
// and a trailing empty page that repeats the last cursor.
func paginate(reviews []domain.Review, size int) map[string]*domain.Page {
	pages := make(map[string]*domain.Page)
	cursor := domain.InitialCursor
	for i, n := 0, 1; i < len(reviews); i, n = i+size, n+1 {
		next := fmt.Sprintf("c%d", n)
		pages[cursor] = &domain.Page{Reviews: reviews[i:min(i+size, len(reviews))], NextCursor: next}
		cursor = next
	}
	pages[cursor] = &domain.Page{Reviews: []domain.Review{}, NextCursor: cursor}
	return pages
}

func newTestOrchestrator(f domain.PageFetcher) *Orchestrator {
	return NewOrchestrator(f, Options{RetryAttempts: 3, RetryBackoff: time.Millisecond})
}

func datePtr(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return &d
}

func ids(reviews []domain.Review) []string {
	out := make([]string, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, r.RecommendationID)
	}
	return out
}

func TestCollect_ZeroTargetMakesNoCalls(t *testing.T) {
	for _, target := range []int{0, -5} {
		f := &scriptedFetcher{}

		res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{AppID: 10, TargetCount: target})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusComplete, res.Status)
		assert.Empty(t, res.Reviews)
		assert.Empty(t, f.calls)
	}
}

func TestCollect_InvalidInputBeforeNetwork(t *testing.T) {
	f := &scriptedFetcher{}
	o := newTestOrchestrator(f)

	_, err := o.Collect(context.Background(), domain.Query{AppID: 0, TargetCount: 10})
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = o.Collect(context.Background(), domain.Query{
		AppID:       10,
		TargetCount: 10,
		StartDate:   datePtr(t, "2023-06-02"),
		EndDate:     datePtr(t, "2023-06-01"),
	})
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.Empty(t, f.calls)
}

func TestCollect_CountIsMinOfTargetAndUpstream(t *testing.T) {
	newest := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	upstream := dailyReviews(newest, newest.AddDate(0, 0, -249))
	require.Len(t, upstream, 250)

	for _, target := range []int{1, 50, 100, 150, 250, 5000} {
		t.Run(fmt.Sprintf("target_%d", target), func(t *testing.T) {
			f := &scriptedFetcher{pages: paginate(upstream, 100)}

			res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{AppID: 10, TargetCount: target})

			require.NoError(t, err)
			want := min(target, len(upstream))
			assert.Equal(t, domain.StatusComplete, res.Status)
			assert.Equal(t, want, res.Count())
			assert.Equal(t, ids(upstream[:want]), ids(res.Reviews))
		})
	}
}

func TestCollect_TargetStopsPaging(t *testing.T) {
	newest := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	f := &scriptedFetcher{pages: paginate(dailyReviews(newest, newest.AddDate(0, 0, -499)), 100)}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{AppID: 10, TargetCount: 150})

	require.NoError(t, err)
	assert.Equal(t, 150, res.Count())
	assert.Equal(t, StopTargetReached, res.StopReason)
	assert.Equal(t, []string{"*", "c1"}, f.calls)
}

func TestCollect_DuplicateAcrossPagesKeptOnce(t *testing.T) {
	day := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	f := &scriptedFetcher{pages: map[string]*domain.Page{
		"*":  {Reviews: []domain.Review{rev("a", day), rev("b", day), rev("c", day)}, NextCursor: "c1"},
		"c1": {Reviews: []domain.Review{rev("c", day), rev("d", day)}, NextCursor: "c2"},
		"c2": {Reviews: []domain.Review{}, NextCursor: "c2"},
	}}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{AppID: 10, TargetCount: 100})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(res.Reviews))
	assert.Equal(t, StopEndOfData, res.StopReason)
}

func TestCollect_StagnantCursorTerminates(t *testing.T) {
	day := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	f := &scriptedFetcher{pages: map[string]*domain.Page{
		"*": {Reviews: []domain.Review{rev("a", day)}, NextCursor: "x"},
		"x": {Reviews: []domain.Review{rev("a", day), rev("b", day)}, NextCursor: "x"},
	}}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{AppID: 10, TargetCount: 100})

	require.NoError(t, err)
	assert.Equal(t, []string{"*", "x"}, f.calls)
	assert.Equal(t, StopCursorStalled, res.StopReason)
	assert.Equal(t, []string{"a", "b"}, ids(res.Reviews))
	assert.Equal(t, domain.StatusComplete, res.Status)
}

func TestCollect_CursorCycleTerminates(t *testing.T) {
	day := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	f := &scriptedFetcher{pages: map[string]*domain.Page{
		"*": {Reviews: []domain.Review{rev("a", day)}, NextCursor: "p"},
		"p": {Reviews: []domain.Review{rev("b", day)}, NextCursor: "q"},
		"q": {Reviews: []domain.Review{rev("c", day)}, NextCursor: "p"},
	}}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{AppID: 10, TargetCount: 100})

	require.NoError(t, err)
	assert.Equal(t, []string{"*", "p", "q"}, f.calls)
	assert.Equal(t, StopCursorCycle, res.StopReason)
	assert.Equal(t, 3, res.Count())
}

func TestCollect_DateWindowInclusive(t *testing.T) {
	upstream := dailyReviews(
		time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	f := &scriptedFetcher{pages: paginate(upstream, 100)}
	q := domain.Query{
		AppID:       10,
		TargetCount: domain.DefaultTargetCount,
		StartDate:   datePtr(t, "2023-01-01"),
		EndDate:     datePtr(t, "2023-06-29"),
	}

	res, err := newTestOrchestrator(f).Collect(context.Background(), q)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, res.Status)
	// Jan 31 + Feb 28 + Mar 31 + Apr 30 + May 31 + Jun 29
	require.Equal(t, 180, res.Count())
	assert.Equal(t, "20230629", res.Reviews[0].RecommendationID)
	assert.Equal(t, "20230101", res.Reviews[len(res.Reviews)-1].RecommendationID)
	for _, r := range res.Reviews {
		assert.True(t, q.InWindow(r.TimestampCreated.Time()), r.RecommendationID)
	}
}

func TestCollect_StopsOncePageIsOlderThanStart(t *testing.T) {
	// Index 364 is 2023-01-01 and index 365 is 2022-12-31, so page c3 straddles
	// the start date and page c4 is the first page entirely before it.
	upstream := dailyReviews(
		time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	f := &scriptedFetcher{pages: paginate(upstream, 100)}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{
		AppID:       10,
		TargetCount: domain.DefaultTargetCount,
		StartDate:   datePtr(t, "2023-01-01"),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"*", "c1", "c2", "c3", "c4"}, f.calls)
	assert.Equal(t, StopPastStartDate, res.StopReason)
	assert.Equal(t, 365, res.Count())
}

func TestCollect_NoMatchesTraversesEverything(t *testing.T) {
	upstream := dailyReviews(
		time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	f := &scriptedFetcher{pages: paginate(upstream, 100)}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{
		AppID:       10,
		TargetCount: domain.DefaultTargetCount,
		StartDate:   datePtr(t, "2019-01-01"),
		EndDate:     datePtr(t, "2019-12-31"),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusEmpty, res.Status)
	assert.Equal(t, StopEndOfData, res.StopReason)
	// 365 reviews over four full pages plus the trailing empty page.
	assert.Len(t, f.calls, 5)
}

func TestCollect_NoMatchesStopsEarlyWhenWindowIsNewer(t *testing.T) {
	upstream := dailyReviews(
		time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	f := &scriptedFetcher{pages: paginate(upstream, 100)}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{
		AppID:       10,
		TargetCount: domain.DefaultTargetCount,
		StartDate:   datePtr(t, "2030-01-01"),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusEmpty, res.Status)
	assert.Equal(t, []string{"*"}, f.calls)
}

func TestCollect_SingleDayWindow(t *testing.T) {
	upstream := dailyReviews(
		time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
	)
	f := &scriptedFetcher{pages: paginate(upstream, 10)}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{
		AppID:       10,
		TargetCount: 100,
		StartDate:   datePtr(t, "2023-03-15"),
		EndDate:     datePtr(t, "2023-03-15"),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"20230315"}, ids(res.Reviews))
}

func TestCollect_RetriesExhaustedReturnsPartial(t *testing.T) {
	day := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	page1 := &domain.Page{Reviews: []domain.Review{rev("a", day), rev("b", day)}, NextCursor: "c1"}

	m := new(mockFetcher)
	m.On("FetchPage", 42, "*").Return(page1, nil).Once()
	m.On("FetchPage", 42, "c1").Return(nil, apperrors.NewNetworkError("reviews endpoint status: 502", nil)).Times(3)

	var res *domain.CollectionResult
	var err error
	require.NotPanics(t, func() {
		res, err = newTestOrchestrator(m).Collect(context.Background(), domain.Query{AppID: 42, TargetCount: 100})
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, res.Status)
	assert.Equal(t, StopFetchExhausted, res.StopReason)
	assert.Equal(t, []string{"a", "b"}, ids(res.Reviews))
	assert.Error(t, res.Err)
	m.AssertExpectations(t)
	m.AssertNumberOfCalls(t, "FetchPage", 4)
}

func TestCollect_RetryRecovers(t *testing.T) {
	newest := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	f := &scriptedFetcher{
		pages:    paginate(dailyReviews(newest, newest.AddDate(0, 0, -149)), 100),
		failures: map[string]int{"c1": 2},
	}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{AppID: 10, TargetCount: 1000})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, 150, res.Count())
	assert.Equal(t, []string{"*", "c1", "c1", "c1", "c2"}, f.calls)
}

func TestCollect_FirstPageFailureIsPartialNotEmpty(t *testing.T) {
	f := &scriptedFetcher{pages: map[string]*domain.Page{}, failures: map[string]int{"*": 5}}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{AppID: 10, TargetCount: 10})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, res.Status)
	assert.Empty(t, res.Reviews)
	assert.Len(t, f.calls, 3)
}

func TestCollect_NonRetryableErrorIsNotRetried(t *testing.T) {
	m := new(mockFetcher)
	m.On("FetchPage", 42, "*").Return(nil, apperrors.NewInvalidInputError("bad app")).Once()

	res, err := newTestOrchestrator(m).Collect(context.Background(), domain.Query{AppID: 42, TargetCount: 10})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, res.Status)
	m.AssertNumberOfCalls(t, "FetchPage", 1)
}

func TestCollect_CanceledContextIsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &scriptedFetcher{pages: paginate([]domain.Review{rev("a", time.Now())}, 10)}

	res, err := newTestOrchestrator(f).Collect(ctx, domain.Query{AppID: 10, TargetCount: 10})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, res.Status)
	assert.Empty(t, f.calls)
}

func TestCollect_CarriesLabels(t *testing.T) {
	f := &scriptedFetcher{pages: paginate([]domain.Review{rev("a", time.Now())}, 10)}

	res, err := newTestOrchestrator(f).Collect(context.Background(), domain.Query{
		AppID: 10, Franchise: "Souls", Game: "Elden Ring", TargetCount: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, "Souls", res.Franchise)
	assert.Equal(t, "Elden Ring", res.Game)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.FinishedAt.IsZero())
}
