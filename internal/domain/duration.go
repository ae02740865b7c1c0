package domain

import (
	"bytes"
	"encoding/json"
	"math"
)

// Duration is a trade duration in seconds.
// Journals written by older tools may hold non-numeric durations; those decode as invalid
// instead of failing the whole document.
type Duration struct {
	Seconds float64
	Valid   bool
}

// Seconds returns a valid Duration
func Seconds(s float64) Duration {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return Duration{}
	}
	return Duration{Seconds: s, Valid: true}
}

// MarshalJSON writes null for an invalid duration
func (d Duration) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Seconds)
}

// UnmarshalJSON accepts a number and treats anything else as invalid
func (d *Duration) UnmarshalJSON(b []byte) error {
	*d = Duration{}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	*d = Seconds(v)
	return nil
}
