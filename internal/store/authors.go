package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grognard-labs/aslcat/internal/models"
)

// Author returns one author by id.
func (s *Store) Author(ctx context.Context, id int64) (*models.Author, error) {
	var a models.Author
	err := s.db.QueryRowContext(ctx,
		`SELECT author_id, author_name FROM author WHERE author_id = ?`, id).
		Scan(&a.ID, &a.Name)
	if err != nil {
		return nil, fmt.Errorf("get author %d: %w", id, notFound(err))
	}
	return &a, nil
}

// AuthorByName returns the author with the given (unique) name.
func (s *Store) AuthorByName(ctx context.Context, name string) (*models.Author, error) {
	var a models.Author
	err := s.db.QueryRowContext(ctx,
		`SELECT author_id, author_name FROM author WHERE author_name = ?`, name).
		Scan(&a.ID, &a.Name)
	if err != nil {
		return nil, fmt.Errorf("get author %q: %w", name, notFound(err))
	}
	return &a, nil
}

// Authors returns all authors ordered by name.
func (s *Store) Authors(ctx context.Context) ([]models.Author, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT author_id, author_name FROM author ORDER BY author_name`)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	var out []models.Author
	for rows.Next() {
		var a models.Author
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Scenarios returns all scenarios ordered by display id then name.
func (s *Store) Scenarios(ctx context.Context) ([]models.Scenario, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scenario_id, scenario_roar_id, scenario_display_id, scenario_name
		 FROM scenario ORDER BY scenario_display_id, scenario_name`)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var out []models.Scenario
	for rows.Next() {
		var sc models.Scenario
		var roar, display sql.NullString
		if err := rows.Scan(&sc.ID, &roar, &display, &sc.Name); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		sc.RoarID = text(roar)
		sc.DisplayID = text(display)
		out = append(out, sc)
	}
	return out, rows.Err()
}
