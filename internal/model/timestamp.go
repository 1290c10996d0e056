package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Timestamp is a point in time as supplied by an upstream system. It carries
// either a resolved time or the raw ISO-8601 text; the risk engine resolves
// raw text when it scores the signals.
//
// JSON: a string is kept as Raw, a number is read as Unix milliseconds.
type Timestamp struct {
	Time time.Time `json:"-" bson:"time,omitempty"`
	Raw  string    `json:"-" bson:"raw,omitempty"`
}

// At wraps a resolved time.
func At(t time.Time) Timestamp { return Timestamp{Time: t} }

// ISO wraps raw ISO-8601 text.
func ISO(s string) Timestamp { return Timestamp{Raw: s} }

// IsZero reports whether neither a time nor raw text is present.
func (ts Timestamp) IsZero() bool {
	return ts.Time.IsZero() && strings.TrimSpace(ts.Raw) == ""
}

// UnmarshalJSON accepts a string, a number of Unix milliseconds or null.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*ts = Timestamp{Raw: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp must be a string or epoch milliseconds: %w", err)
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("timestamp %s is not a valid number", n)
	}
	*ts = Timestamp{Time: time.UnixMilli(int64(f)).UTC()}
	return nil
}

// MarshalJSON writes the resolved time as RFC 3339, else the raw text.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case !ts.Time.IsZero():
		return json.Marshal(ts.Time.Format(time.RFC3339Nano))
	case ts.Raw != "":
		return json.Marshal(ts.Raw)
	default:
		return []byte("null"), nil
	}
}
