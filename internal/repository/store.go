package repository

import (
	"context"
	"errors"

	"github.com/SergeiKhy/shortener/internal/models"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeExists   = errors.New("short code already exists")
)

// LinkStore is the authoritative mapping from short code to link.
//
// Mutations on the same code never interleave. Operations on different codes
// do not wait on each other beyond a short index lookup. Every returned link
// is a copy owned by the caller.
type LinkStore interface {
	Put(ctx context.Context, link *models.Link) error
	Get(ctx context.Context, code string) (*models.Link, error)
	// List returns every link in creation order.
	List(ctx context.Context) ([]*models.Link, error)
	AppendClick(ctx context.Context, code string, click models.Click) error
	Exists(ctx context.Context, code string) (bool, error)
	// Ping reports whether the backend can serve requests.
	Ping(ctx context.Context) error
}
