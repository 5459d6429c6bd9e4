package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grognard-labs/aslcat/internal/db"
	"github.com/grognard-labs/aslcat/internal/models"
)

const publisherCols = `publ_id, publ_name, publ_description, publ_url, time_created, time_updated`

func scanPublisher(sc scanner) (models.Publisher, error) {
	var p models.Publisher
	var desc, url sql.NullString
	var updated sql.NullInt64
	if err := sc.Scan(&p.ID, &p.Name, &desc, &url, &p.TimeCreated, &updated); err != nil {
		return p, err
	}
	p.Description = text(desc)
	p.URL = text(url)
	p.TimeUpdated = updated.Int64
	return p, nil
}

// Publisher returns one publisher by id.
func (s *Store) Publisher(ctx context.Context, id int64) (*models.Publisher, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+publisherCols+` FROM publisher WHERE publ_id = ?`, id)
	p, err := scanPublisher(row)
	if err != nil {
		return nil, fmt.Errorf("get publisher %d: %w", id, notFound(err))
	}
	return &p, nil
}

// Publishers returns all publishers, newest first. The rebuild path relies on
// this ordering so equally-ranked search hits surface recent content first.
func (s *Store) Publishers(ctx context.Context) ([]models.Publisher, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+publisherCols+` FROM publisher ORDER BY time_created DESC, publ_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list publishers: %w", err)
	}
	defer rows.Close()

	var out []models.Publisher
	for rows.Next() {
		p, err := scanPublisher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan publisher: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePublisher inserts a new publisher (ID == 0) or updates an existing one.
// On insert the assigned ID and creation time are written back to p.
func (s *Store) SavePublisher(ctx context.Context, p *models.Publisher) error {
	return db.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if p.ID == 0 {
			p.TimeCreated = now()
			res, err := tx.ExecContext(ctx,
				`INSERT INTO publisher (publ_name, publ_description, publ_url, time_created)
				 VALUES (?, ?, ?, ?)`,
				p.Name, nullText(p.Description), nullText(p.URL), p.TimeCreated)
			if err != nil {
				return fmt.Errorf("insert publisher: %w", err)
			}
			p.ID, err = res.LastInsertId()
			return err
		}

		p.TimeUpdated = now()
		res, err := tx.ExecContext(ctx,
			`UPDATE publisher SET publ_name = ?, publ_description = ?, publ_url = ?, time_updated = ?
			 WHERE publ_id = ?`,
			p.Name, nullText(p.Description), nullText(p.URL), p.TimeUpdated, p.ID)
		if err != nil {
			return fmt.Errorf("update publisher %d: %w", p.ID, err)
		}
		return requireRow(res)
	})
}

// DeletePublisher removes a publisher. Publications and articles under it are
// removed by the cascade; the caller must delete their index rows as well.
func (s *Store) DeletePublisher(ctx context.Context, id int64) error {
	return db.Tx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM publisher WHERE publ_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete publisher %d: %w", id, err)
		}
		return requireRow(res)
	})
}
