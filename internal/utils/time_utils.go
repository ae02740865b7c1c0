package utils

import (
	"sync"
	"time"
)

var (
	locMu sync.RWMutex
	loc   = time.UTC
)

// SetLocation sets the timezone used for human-facing timestamps.
// An unknown name leaves the current location untouched.
func SetLocation(name string) error {
	if name == "" {
		return nil
	}
	l, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	locMu.Lock()
	loc = l
	locMu.Unlock()
	return nil
}

// GetLocation returns the configured *time.Location
func GetLocation() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return loc
}

// FormatLocal renders t in the configured timezone
func FormatLocal(t time.Time) string {
	return t.In(GetLocation()).Format("2006-01-02 15:04:05")
}

// FormatDuration renders whole seconds as 1h02m03s
func FormatDuration(seconds float64) string {
	return (time.Duration(seconds) * time.Second).Round(time.Second).String()
}
