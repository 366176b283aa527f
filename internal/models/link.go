package models

import (
	"time"
)

// Link is a short code mapped to a long URL together with its click history.
type Link struct {
	ShortCode string
	LongURL   string
	CreatedAt time.Time
	ExpiresAt time.Time
	Clicks    []Click
}

// Clone returns a deep copy so callers never share the click slice with a store.
func (l *Link) Clone() *Link {
	if l == nil {
		return nil
	}
	c := *l
	if l.Clicks != nil {
		c.Clicks = make([]Click, len(l.Clicks))
		copy(c.Clicks, l.Clicks)
	}
	return &c
}

// CreateLinkInput is a creation request. Empty ShortCode asks for a generated
// code, nil ValidityMinutes for the default window.
type CreateLinkInput struct {
	LongURL         string
	ShortCode       string
	ValidityMinutes *float64
}

// LinkStatus is derived from the expiry time when a link is read.
type LinkStatus string

const (
	StatusActive  LinkStatus = "Active"
	StatusExpired LinkStatus = "Expired"
)

// LinkStats is a link as shown in the statistics view.
type LinkStats struct {
	Link       *Link
	Status     LinkStatus
	ClickCount int
}
