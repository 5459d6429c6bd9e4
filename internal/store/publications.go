package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grognard-labs/aslcat/internal/db"
	"github.com/grognard-labs/aslcat/internal/models"
)

const publicationCols = `pub_id, pub_name, pub_edition, pub_date, pub_description,
	pub_url, pub_seqno, pub_tags, publ_id, time_created, time_updated`

func scanPublication(sc scanner) (models.Publication, error) {
	var p models.Publication
	var edition, date, desc, url, tags sql.NullString
	var seqno, updated sql.NullInt64
	var publID sql.NullInt64
	err := sc.Scan(&p.ID, &p.Name, &edition, &date, &desc, &url, &seqno, &tags,
		&publID, &p.TimeCreated, &updated)
	if err != nil {
		return p, err
	}
	p.Edition = text(edition)
	p.Date = text(date)
	p.Description = text(desc)
	p.URL = text(url)
	p.Seqno = int(seqno.Int64)
	p.Tags = text(tags)
	if publID.Valid {
		p.PublisherID = &publID.Int64
	}
	p.TimeUpdated = updated.Int64
	return p, nil
}

// Publication returns one publication by id.
func (s *Store) Publication(ctx context.Context, id int64) (*models.Publication, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+publicationCols+` FROM publication WHERE pub_id = ?`, id)
	p, err := scanPublication(row)
	if err != nil {
		return nil, fmt.Errorf("get publication %d: %w", id, notFound(err))
	}
	return &p, nil
}

// Publications returns all publications, newest first.
func (s *Store) Publications(ctx context.Context) ([]models.Publication, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+publicationCols+` FROM publication ORDER BY time_created DESC, pub_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	defer rows.Close()

	var out []models.Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePublication inserts a new publication (ID == 0) or updates an existing one.
func (s *Store) SavePublication(ctx context.Context, p *models.Publication) error {
	return db.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if p.ID == 0 {
			p.TimeCreated = now()
			res, err := tx.ExecContext(ctx,
				`INSERT INTO publication (pub_name, pub_edition, pub_date, pub_description,
				 pub_url, pub_seqno, pub_tags, publ_id, time_created)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.Name, nullText(p.Edition), nullText(p.Date), nullText(p.Description),
				nullText(p.URL), p.Seqno, nullText(p.Tags), p.PublisherID, p.TimeCreated)
			if err != nil {
				return fmt.Errorf("insert publication: %w", err)
			}
			p.ID, err = res.LastInsertId()
			return err
		}

		p.TimeUpdated = now()
		res, err := tx.ExecContext(ctx,
			`UPDATE publication SET pub_name = ?, pub_edition = ?, pub_date = ?,
			 pub_description = ?, pub_url = ?, pub_seqno = ?, pub_tags = ?, publ_id = ?,
			 time_updated = ?
			 WHERE pub_id = ?`,
			p.Name, nullText(p.Edition), nullText(p.Date), nullText(p.Description),
			nullText(p.URL), p.Seqno, nullText(p.Tags), p.PublisherID, p.TimeUpdated, p.ID)
		if err != nil {
			return fmt.Errorf("update publication %d: %w", p.ID, err)
		}
		return requireRow(res)
	})
}

// DeletePublication removes a publication; its articles cascade away.
func (s *Store) DeletePublication(ctx context.Context, id int64) error {
	return db.Tx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM publication WHERE pub_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete publication %d: %w", id, err)
		}
		return requireRow(res)
	})
}
