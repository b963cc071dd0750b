package domain

import (
	"context"
	"encoding/json"
	"time"
)

// InitialCursor asks the upstream API for the first page.
const InitialCursor = "*"

// Author is the reviewer block as the upstream API reports it. Playtimes are minutes.
type Author struct {
	SteamID              string   `json:"steamid"`
	NumGamesOwned        int      `json:"num_games_owned"`
	NumReviews           int      `json:"num_reviews"`
	PlaytimeForever      int      `json:"playtime_forever"`
	PlaytimeLastTwoWeeks int      `json:"playtime_last_two_weeks"`
	PlaytimeAtReview     int      `json:"playtime_at_review"`
	DeckPlaytimeAtReview int      `json:"deck_playtime_at_review,omitempty"`
	LastPlayed           UnixTime `json:"last_played"`
}

// Review is one user review. Field names mirror the upstream API so saved
// files stay diffable against raw captures.
type Review struct {
	RecommendationID         string          `json:"recommendationid"`
	Author                   Author          `json:"author"`
	Language                 string          `json:"language"`
	Review                   string          `json:"review"`
	TimestampCreated         UnixTime        `json:"timestamp_created"`
	TimestampUpdated         UnixTime        `json:"timestamp_updated"`
	VotedUp                  bool            `json:"voted_up"`
	VotesUp                  int             `json:"votes_up"`
	VotesFunny               int             `json:"votes_funny"`
	WeightedVoteScore        json.RawMessage `json:"weighted_vote_score,omitempty"`
	CommentCount             int             `json:"comment_count"`
	SteamPurchase            bool            `json:"steam_purchase"`
	ReceivedForFree          bool            `json:"received_for_free"`
	Refunded                 bool            `json:"refunded"`
	WrittenDuringEarlyAccess bool            `json:"written_during_early_access"`
	PrimarilySteamDeck       bool            `json:"primarily_steam_deck"`
	DeveloperResponse        string          `json:"developer_response,omitempty"`
	TimestampDevResponded    UnixTime        `json:"timestamp_dev_responded,omitempty"`
	HiddenInSteamChina       bool            `json:"hidden_in_steam_china"`
	SteamChinaLocation       string          `json:"steam_china_location"`
}

// Page is one batch of reviews plus the cursor for the batch after it.
type Page struct {
	Reviews    []Review
	NextCursor string
}

// Done reports whether the upstream signalled there is nothing after this page.
func (p *Page) Done() bool {
	return p.NextCursor == "" || len(p.Reviews) == 0
}

// Status is the terminal state of a collection run.
type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusEmpty    Status = "empty"
)

// CollectionResult is the finished output of one collection run.
// Reviews keep the upstream order, most recent first.
type CollectionResult struct {
	RunID      string
	AppID      int
	Franchise  string
	Game       string
	Status     Status
	StopReason string
	Pages      int
	Reviews    []Review
	FinishedAt time.Time

	// Err holds the last fetch error when Status is StatusPartial.
	Err error
}

// Count returns the number of reviews actually collected.
func (r *CollectionResult) Count() int {
	return len(r.Reviews)
}

// PageFetcher defines the interface for fetching one page of reviews
type PageFetcher interface {
	FetchPage(ctx context.Context, appID int, cursor string) (*Page, error)
}
