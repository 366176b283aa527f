package service

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortener/internal/models"
	"github.com/SergeiKhy/shortener/internal/repository"
	"github.com/google/uuid"
)

// ClickRecorder appends click events to a link's history. It does not look at
// expiry; RedirectResolver only calls it for active links.
type ClickRecorder struct {
	store repository.LinkStore
	now   func() time.Time
}

// NewClickRecorder uses time.Now when now is nil.
func NewClickRecorder(store repository.LinkStore, now func() time.Time) *ClickRecorder {
	if now == nil {
		now = time.Now
	}
	return &ClickRecorder{store: store, now: now}
}

// Record stores a click for code and returns it. Unknown codes yield
// repository.ErrLinkNotFound.
func (r *ClickRecorder) Record(ctx context.Context, code, source, location string) (*models.Click, error) {
	if source == "" {
		source = models.SourceDirect
	}
	if location == "" {
		location = models.UnknownLocation
	}

	click := models.Click{
		ID:        uuid.NewString(),
		Timestamp: r.now().UTC().Truncate(time.Millisecond),
		Source:    source,
		Location:  location,
	}

	if err := r.store.AppendClick(ctx, code, click); err != nil {
		return nil, fmt.Errorf("record click for %s: %w", code, err)
	}
	return &click, nil
}
