package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// epochMillisCutoff separates epoch seconds from epoch milliseconds.
const epochMillisCutoff = 100_000_000_000

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp decodes whatever date shape the back-office sends: RFC3339,
// zone-less local datetimes (read as UTC), dates, and epoch seconds or
// milliseconds as numbers or strings. Unrecognized values decode to the zero
// time instead of failing the surrounding payload.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			t.Time = fromEpoch(n.String())
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = fromEpoch(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func fromEpoch(s string) time.Time {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return time.Time{}
	}
	if f >= epochMillisCutoff {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}
