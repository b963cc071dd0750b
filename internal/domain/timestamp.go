package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// UnixTime is a timestamp normalized to epoch seconds. It decodes from JSON
// numbers, numeric strings, RFC 3339 strings and yyyy-mm-dd dates, and always
// encodes back as a number.
type UnixTime int64

// Time returns t as a UTC time.Time.
func (t UnixTime) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

func (t UnixTime) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(t), 10), nil
}

func (t *UnixTime) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		*t = 0
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		return t.parseString(s)
	}
	if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		*t = UnixTime(n)
		return nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("timestamp: unsupported value %s", raw)
	}
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return fmt.Errorf("timestamp: out of range %s", raw)
	}
	*t = UnixTime(int64(f))
	return nil
}

func (t *UnixTime) parseString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*t = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*t = UnixTime(n)
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		*t = UnixTime(ts.Unix())
		return nil
	}
	if ts, err := time.Parse(DateLayout, s); err == nil {
		*t = UnixTime(ts.Unix())
		return nil
	}
	return fmt.Errorf("timestamp: unsupported value %q", s)
}
