package service

import (
	"math"
	"time"

	"github.com/SergeiKhy/shortener/internal/models"
)

const (
	defaultValidityMinutes = 30
	maxValidityMinutes     = 365 * 24 * 60
)

// ExpiryPolicy decides whether a link still redirects and turns requested
// validity windows into durations.
type ExpiryPolicy struct {
	defaultWindow time.Duration
	maxWindow     time.Duration
}

// NewExpiryPolicy falls back to 30 minutes and one year for non-positive or
// inconsistent arguments.
func NewExpiryPolicy(defaultMinutes, maxMinutes float64) ExpiryPolicy {
	if defaultMinutes <= 0 {
		defaultMinutes = defaultValidityMinutes
	}
	if maxMinutes < defaultMinutes {
		maxMinutes = math.Max(defaultMinutes, maxValidityMinutes)
	}
	return ExpiryPolicy{
		defaultWindow: minutesToDuration(defaultMinutes),
		maxWindow:     minutesToDuration(maxMinutes),
	}
}

// IsExpired reports whether now is past the link's expiry. Once true for a
// given link it stays true for every later instant.
func (p ExpiryPolicy) IsExpired(link *models.Link, now time.Time) bool {
	return now.After(link.ExpiresAt)
}

// Window validates a requested validity in minutes. nil means the default.
// Windows above the maximum are clamped to it.
func (p ExpiryPolicy) Window(minutes *float64) (time.Duration, error) {
	if minutes == nil {
		return p.defaultWindow, nil
	}

	m := *minutes
	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return 0, ErrInvalidValidity
	}

	if m >= p.maxWindow.Minutes() {
		return p.maxWindow, nil
	}

	d := minutesToDuration(m)
	if d <= 0 {
		return 0, ErrInvalidValidity
	}
	return d, nil
}

// minutesToDuration truncates to whole milliseconds, the precision links are stored with.
func minutesToDuration(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute)).Truncate(time.Millisecond)
}
