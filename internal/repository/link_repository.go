package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortener/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// linkRow mirrors the links table.
type linkRow struct {
	ID        int64
	ShortCode string
	LongURL   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (r linkRow) toModel(clicks []models.Click) *models.Link {
	if clicks == nil {
		clicks = []models.Click{}
	}
	return &models.Link{
		ShortCode: r.ShortCode,
		LongURL:   r.LongURL,
		CreatedAt: r.CreatedAt.UTC(),
		ExpiresAt: r.ExpiresAt.UTC(),
		Clicks:    clicks,
	}
}

// PostgresStore persists links and their clicks in PostgreSQL. Appends to the
// same link are serialized by a row lock on the link.
type PostgresStore struct {
	db     *PostgresDB
	clicks *clickRepository
}

// NewPostgresStore expects the schema from the migrations package to be applied.
func NewPostgresStore(db *PostgresDB) *PostgresStore {
	return &PostgresStore{db: db, clicks: &clickRepository{db: db}}
}

func (s *PostgresStore) Put(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (short_code, long_url, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.Pool.Exec(ctx, query,
		link.ShortCode,
		link.LongURL,
		link.CreatedAt,
		link.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, code string) (*models.Link, error) {
	query := `
		SELECT id, short_code, long_url, created_at, expires_at
		FROM links
		WHERE short_code = $1
	`

	var row linkRow
	err := s.db.Pool.QueryRow(ctx, query, code).Scan(
		&row.ID,
		&row.ShortCode,
		&row.LongURL,
		&row.CreatedAt,
		&row.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	clicks, err := s.clicks.ListByLink(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	return row.toModel(clicks), nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Link, error) {
	query := `
		SELECT id, short_code, long_url, created_at, expires_at
		FROM links
		ORDER BY id
	`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var linkRows []linkRow
	for rows.Next() {
		var row linkRow
		if err := rows.Scan(&row.ID, &row.ShortCode, &row.LongURL, &row.CreatedAt, &row.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		linkRows = append(linkRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	byLink, err := s.clicks.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	links := make([]*models.Link, 0, len(linkRows))
	for _, row := range linkRows {
		links = append(links, row.toModel(byLink[row.ID]))
	}
	return links, nil
}

func (s *PostgresStore) AppendClick(ctx context.Context, code string, click models.Click) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var linkID int64
	err = tx.QueryRow(ctx, `SELECT id FROM links WHERE short_code = $1 FOR UPDATE`, code).Scan(&linkID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLinkNotFound
		}
		return fmt.Errorf("failed to lock link: %w", err)
	}

	if err := s.clicks.Insert(ctx, tx, linkID, click); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit click: %w", err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
