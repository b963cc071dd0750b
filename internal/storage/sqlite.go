package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/qepting91/review-scraper/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	app_id      INTEGER NOT NULL,
	franchise   TEXT NOT NULL DEFAULT '',
	game        TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	count       INTEGER NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
	app_id             INTEGER NOT NULL,
	recommendationid   TEXT NOT NULL,
	steamid            TEXT NOT NULL,
	language           TEXT NOT NULL DEFAULT '',
	review             TEXT NOT NULL DEFAULT '',
	timestamp_created  INTEGER NOT NULL,
	timestamp_updated  INTEGER NOT NULL,
	voted_up           INTEGER NOT NULL,
	votes_up           INTEGER NOT NULL,
	votes_funny        INTEGER NOT NULL,
	comment_count      INTEGER NOT NULL,
	playtime_at_review INTEGER NOT NULL,
	run_id             TEXT NOT NULL,
	PRIMARY KEY (app_id, recommendationid)
);

CREATE INDEX IF NOT EXISTS idx_reviews_created ON reviews(app_id, timestamp_created);
`

// SQLiteStore exports collection results into a SQLite database.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens or creates the database at path and ensures the schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// SaveResult records the run and upserts its reviews in a single transaction.
func (s *SQLiteStore) SaveResult(ctx context.Context, res *domain.CollectionResult) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, app_id, franchise, game, status, count, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.AppID, res.Franchise, res.Game, string(res.Status), len(res.Reviews),
		res.FinishedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reviews (app_id, recommendationid, steamid, language, review,
			timestamp_created, timestamp_updated, voted_up, votes_up, votes_funny,
			comment_count, playtime_at_review, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(app_id, recommendationid) DO UPDATE SET
			review = excluded.review,
			timestamp_updated = excluded.timestamp_updated,
			voted_up = excluded.voted_up,
			votes_up = excluded.votes_up,
			votes_funny = excluded.votes_funny,
			comment_count = excluded.comment_count,
			run_id = excluded.run_id`)
	if err != nil {
		return fmt.Errorf("prepare review upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range res.Reviews {
		if _, err := stmt.ExecContext(ctx,
			res.AppID, r.RecommendationID, r.Author.SteamID, r.Language, r.Review,
			int64(r.TimestampCreated), int64(r.TimestampUpdated), r.VotedUp, r.VotesUp, r.VotesFunny,
			r.CommentCount, r.Author.PlaytimeAtReview, res.RunID,
		); err != nil {
			return fmt.Errorf("upsert review %s: %w", r.RecommendationID, err)
		}
	}

	return tx.Commit()
}

// CountReviews returns how many distinct reviews are stored for appID.
func (s *SQLiteStore) CountReviews(ctx context.Context, appID int) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE app_id = ?", appID).Scan(&n)
	return n, err
}
