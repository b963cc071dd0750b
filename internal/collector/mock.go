package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qepting91/review-scraper/internal/domain"
	apperrors "github.com/qepting91/review-scraper/internal/errors"
)

// MockClient implements domain.PageFetcher over a synthetic, most-recent-first
// review history. Output is deterministic for a given configuration.
type MockClient struct {
	Total    int
	PageSize int
	// Newest is the creation time of the first review; each later one is Step older.
	Newest  time.Time
	Step    time.Duration
	Latency time.Duration
}

func NewMockClient() *MockClient {
	return &MockClient{
		Total:    250,
		PageSize: PageSize,
		Newest:   time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC),
		Step:     36 * time.Hour,
	}
}

func (mc *MockClient) FetchPage(ctx context.Context, appID int, cursor string) (*domain.Page, error) {
	if appID <= 0 {
		return nil, apperrors.NewInvalidInputError("app id must be a positive integer, got %d", appID)
	}
	if mc.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(mc.Latency):
		}
	}

	offset := 0
	if cursor != "" && cursor != domain.InitialCursor {
		n, err := strconv.Atoi(strings.TrimPrefix(cursor, "mock:"))
		if err != nil {
			return nil, apperrors.NewMalformedResponseError(fmt.Sprintf("unknown cursor %q", cursor), err)
		}
		offset = n
	}

	end := min(offset+mc.PageSize, mc.Total)
	reviews := make([]domain.Review, 0, max(end-offset, 0))
	for i := offset; i < end; i++ {
		created := mc.Newest.Add(-time.Duration(i) * mc.Step)
		reviews = append(reviews, domain.Review{
			RecommendationID: fmt.Sprintf("%d%06d", appID, i),
			Author: domain.Author{
				SteamID:          fmt.Sprintf("7656119%010d", i),
				NumReviews:       1 + i%7,
				PlaytimeForever:  60 * (i%40 + 1),
				PlaytimeAtReview: 45 * (i%40 + 1),
			},
			Language:         "english",
			Review:           fmt.Sprintf("Simulated review #%d for app %d", i, appID),
			TimestampCreated: domain.UnixTime(created.Unix()),
			TimestampUpdated: domain.UnixTime(created.Unix()),
			VotedUp:          i%4 != 0,
			VotesUp:          i % 11,
			VotesFunny:       i % 3,
			SteamPurchase:    true,
		})
	}

	return &domain.Page{Reviews: reviews, NextCursor: fmt.Sprintf("mock:%d", end)}, nil
}
