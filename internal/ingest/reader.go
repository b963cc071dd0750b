package ingest

import (
	"bufio"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/qepting91/review-scraper/internal/domain"
	apperrors "github.com/qepting91/review-scraper/internal/errors"
)

const (
	// TestCommand routes to the built-in scenario.
	TestCommand = "test"
	// TestAppID is the application collected by the built-in scenario.
	TestAppID = 1382330
)

// TestQuery is the built-in scenario: one app, no date window, default target.
func TestQuery() domain.Query {
	return domain.Query{AppID: TestAppID, TargetCount: domain.DefaultTargetCount}
}

// IsTestCommand reports whether an input line asks for the built-in scenario.
func IsTestCommand(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), TestCommand)
}

// ParseQuery parses "appId,franchise,game[,count[,start[,end]]]".
// Empty optional fields fall back to their defaults.
func ParseQuery(line string) (domain.Query, error) {
	if IsTestCommand(line) {
		return TestQuery(), nil
	}
	return FromFields(strings.Split(line, ","))
}

// FromFields builds a query from already-split fields in ParseQuery order.
func FromFields(fields []string) (domain.Query, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 3 || len(fields) > 6 {
		return domain.Query{}, apperrors.NewInvalidInputError(
			"expected appId,franchise,game[,count[,start[,end]]], got %d fields", len(fields))
	}

	appID, err := strconv.Atoi(fields[0])
	if err != nil || appID <= 0 {
		return domain.Query{}, apperrors.NewInvalidInputError("app id %q is not a positive integer", fields[0])
	}

	q := domain.Query{
		AppID:       appID,
		Franchise:   fields[1],
		Game:        fields[2],
		TargetCount: domain.DefaultTargetCount,
	}

	if len(fields) > 3 && fields[3] != "" {
		n, err := strconv.Atoi(fields[3])
		if err != nil {
			return domain.Query{}, apperrors.NewInvalidInputError("count %q is not an integer", fields[3])
		}
		q.TargetCount = n
	}
	if len(fields) > 4 && fields[4] != "" {
		d, err := domain.ParseDate(fields[4])
		if err != nil {
			return domain.Query{}, err
		}
		q.StartDate = &d
	}
	if len(fields) > 5 && fields[5] != "" {
		d, err := domain.ParseDate(fields[5])
		if err != nil {
			return domain.Query{}, err
		}
		q.EndDate = &d
	}

	if err := q.Validate(); err != nil {
		return domain.Query{}, err
	}
	return q, nil
}

// LoadQueries reads a batch file with a header row and one query per line.
// Rows that do not parse are skipped with a warning.
func LoadQueries(path string) ([]domain.Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Wrap in BOM stripper
	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1
	r.Comment = '#'

	var queries []domain.Query
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			slog.Warn("skipping unreadable batch row", "path", path, "line", line, "err", err)
			continue
		}
		if line == 1 {
			continue // Skip header
		}

		// Validation (Fail-Soft)
		q, err := FromFields(record)
		if err != nil {
			slog.Warn("skipping invalid batch row", "path", path, "line", line, "err", err)
			continue
		}
		queries = append(queries, q)
	}
	return queries, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		_ = br.UnreadRune()
	}
	return br
}
