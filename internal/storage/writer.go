package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/qepting91/review-scraper/internal/domain"
)

// Document is the on-disk shape of a collection result. Reviews keep the
// upstream field names.
type Document struct {
	RunID     string          `json:"run_id"`
	AppID     int             `json:"app_id"`
	Franchise string          `json:"franchise"`
	Game      string          `json:"game"`
	Status    domain.Status   `json:"status"`
	Count     int             `json:"count"`
	FetchedAt time.Time       `json:"fetched_at"`
	Reviews   []domain.Review `json:"reviews"`
}

// NewDocument snapshots a result for serialization.
func NewDocument(res *domain.CollectionResult) *Document {
	reviews := res.Reviews
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return &Document{
		RunID:     res.RunID,
		AppID:     res.AppID,
		Franchise: res.Franchise,
		Game:      res.Game,
		Status:    res.Status,
		Count:     len(reviews),
		FetchedAt: res.FinishedAt,
		Reviews:   reviews,
	}
}

// JSONWriter writes one <appId>.json file per result into Dir.
type JSONWriter struct {
	Dir string
}

// Path returns where the result for appID is written.
func (w *JSONWriter) Path(appID int) string {
	return filepath.Join(w.Dir, strconv.Itoa(appID)+".json")
}

// Write serializes res, replacing any previous file for the same app in one rename.
func (w *JSONWriter) Write(res *domain.CollectionResult) (string, error) {
	path := w.Path(res.AppID)
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(w.Dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(NewDocument(res)); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename into %s: %w", path, err)
	}
	return path, nil
}

// ReadDocument loads a file previously produced by JSONWriter.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &doc, nil
}
