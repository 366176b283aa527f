package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/shortener/internal/models"
	"github.com/jackc/pgx/v5"
)

// clickRepository reads and writes the clicks table. Rows are ordered by seq,
// which follows insertion order.
type clickRepository struct {
	db *PostgresDB
}

func (r *clickRepository) Insert(ctx context.Context, tx pgx.Tx, linkID int64, click models.Click) error {
	query := `
		INSERT INTO clicks (id, link_id, source, location, clicked_at)
		VALUES ($1::uuid, $2, $3, $4, $5)
	`

	_, err := tx.Exec(ctx, query,
		click.ID,
		linkID,
		click.Source,
		click.Location,
		click.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	return nil
}

func (r *clickRepository) ListByLink(ctx context.Context, linkID int64) ([]models.Click, error) {
	query := `
		SELECT id::text, source, location, clicked_at
		FROM clicks
		WHERE link_id = $1
		ORDER BY seq
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get clicks: %w", err)
	}
	defer rows.Close()

	clicks := []models.Click{}
	for rows.Next() {
		var c models.Click
		if err := rows.Scan(&c.ID, &c.Source, &c.Location, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		clicks = append(clicks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return clicks, nil
}

// ListAll groups every click by link id.
func (r *clickRepository) ListAll(ctx context.Context) (map[int64][]models.Click, error) {
	query := `
		SELECT link_id, id::text, source, location, clicked_at
		FROM clicks
		ORDER BY link_id, seq
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get clicks: %w", err)
	}
	defer rows.Close()

	byLink := make(map[int64][]models.Click)
	for rows.Next() {
		var (
			linkID int64
			c      models.Click
		)
		if err := rows.Scan(&linkID, &c.ID, &c.Source, &c.Location, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		byLink[linkID] = append(byLink[linkID], c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return byLink, nil
}
