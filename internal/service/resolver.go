package service

import (
	"context"
	"time"

	"github.com/SergeiKhy/shortener/internal/models"
	"github.com/SergeiKhy/shortener/internal/repository"
)

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	Link  *models.Link
	Click *models.Click
}

// RedirectResolver answers where a short code leads. The checks run in a fixed
// order: existence, then expiry, then click recording. Nothing is written
// unless the link is active.
type RedirectResolver struct {
	store  repository.LinkStore
	expiry ExpiryPolicy
	clicks *ClickRecorder
	now    func() time.Time
}

// NewRedirectResolver uses time.Now when now is nil.
func NewRedirectResolver(store repository.LinkStore, expiry ExpiryPolicy, clicks *ClickRecorder, now func() time.Time) *RedirectResolver {
	if now == nil {
		now = time.Now
	}
	return &RedirectResolver{store: store, expiry: expiry, clicks: clicks, now: now}
}

// Resolve returns repository.ErrLinkNotFound for unknown codes and ErrExpired
// for links past their validity window.
func (r *RedirectResolver) Resolve(ctx context.Context, code, source, location string) (*Resolution, error) {
	if !shortCodePattern.MatchString(code) {
		return nil, repository.ErrLinkNotFound
	}

	link, err := r.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if r.expiry.IsExpired(link, r.now()) {
		return nil, ErrExpired
	}

	click, err := r.clicks.Record(ctx, code, source, location)
	if err != nil {
		return nil, err
	}
	link.Clicks = append(link.Clicks, *click)

	return &Resolution{Link: link, Click: click}, nil
}
