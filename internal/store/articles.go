package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grognard-labs/aslcat/internal/db"
	"github.com/grognard-labs/aslcat/internal/models"
)

const articleCols = `article_id, article_title, article_subtitle, article_date,
	article_snippet, article_seqno, article_pageno, article_url, article_tags,
	article_rating, pub_id, publ_id, time_created, time_updated`

func scanArticle(sc scanner) (models.Article, error) {
	var a models.Article
	var subtitle, date, snippet, pageno, url, tags sql.NullString
	var seqno, rating, pubID, publID, updated sql.NullInt64
	err := sc.Scan(&a.ID, &a.Title, &subtitle, &date, &snippet, &seqno, &pageno,
		&url, &tags, &rating, &pubID, &publID, &a.TimeCreated, &updated)
	if err != nil {
		return a, err
	}
	a.Subtitle = text(subtitle)
	a.Date = text(date)
	a.Snippet = text(snippet)
	a.Seqno = int(seqno.Int64)
	a.Pageno = text(pageno)
	a.URL = text(url)
	a.Tags = text(tags)
	if rating.Valid {
		r := int(rating.Int64)
		a.Rating = &r
	}
	if pubID.Valid {
		a.PublicationID = &pubID.Int64
	}
	if publID.Valid {
		a.PublisherID = &publID.Int64
	}
	a.TimeUpdated = updated.Int64
	return a, nil
}

// Article returns one article by id, with its ordered author and scenario
// associations loaded.
func (s *Store) Article(ctx context.Context, id int64) (*models.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+articleCols+` FROM article WHERE article_id = ?`, id)
	a, err := scanArticle(row)
	if err != nil {
		return nil, fmt.Errorf("get article %d: %w", id, notFound(err))
	}
	if err := s.loadArticleAssocs(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Articles returns all articles, newest first, with associations loaded.
func (s *Store) Articles(ctx context.Context) ([]models.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleCols+` FROM article ORDER BY time_created DESC, article_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadArticleAssocs(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadArticleAssocs(ctx context.Context, a *models.Article) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT au.author_id, au.author_name
		 FROM article_author aa JOIN author au ON au.author_id = aa.author_id
		 WHERE aa.article_id = ? ORDER BY aa.seq_no`, a.ID)
	if err != nil {
		return fmt.Errorf("load article %d authors: %w", a.ID, err)
	}
	defer rows.Close()
	a.Authors = nil
	for rows.Next() {
		var au models.Author
		if err := rows.Scan(&au.ID, &au.Name); err != nil {
			return err
		}
		a.Authors = append(a.Authors, au)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	srows, err := s.db.QueryContext(ctx,
		`SELECT sc.scenario_id, sc.scenario_roar_id, sc.scenario_display_id, sc.scenario_name
		 FROM article_scenario asc2 JOIN scenario sc ON sc.scenario_id = asc2.scenario_id
		 WHERE asc2.article_id = ? ORDER BY asc2.seq_no`, a.ID)
	if err != nil {
		return fmt.Errorf("load article %d scenarios: %w", a.ID, err)
	}
	defer srows.Close()
	a.Scenarios = nil
	for srows.Next() {
		var sc models.Scenario
		var roar, display sql.NullString
		if err := srows.Scan(&sc.ID, &roar, &display, &sc.Name); err != nil {
			return err
		}
		sc.RoarID = text(roar)
		sc.DisplayID = text(display)
		a.Scenarios = append(a.Scenarios, sc)
	}
	return srows.Err()
}

// SaveArticle inserts a new article (ID == 0) or updates an existing one,
// replacing its author and scenario associations wholesale. Authors are
// resolved by name and created on demand; scenarios are resolved by their
// (roar_id, display_id, name) key. Assigned IDs are written back into a.
func (s *Store) SaveArticle(ctx context.Context, a *models.Article) error {
	return db.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if a.ID == 0 {
			a.TimeCreated = now()
			res, err := tx.ExecContext(ctx,
				`INSERT INTO article (article_title, article_subtitle, article_date,
				 article_snippet, article_seqno, article_pageno, article_url, article_tags,
				 article_rating, pub_id, publ_id, time_created)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				a.Title, nullText(a.Subtitle), nullText(a.Date), nullText(a.Snippet),
				a.Seqno, nullText(a.Pageno), nullText(a.URL), nullText(a.Tags),
				a.Rating, a.PublicationID, a.PublisherID, a.TimeCreated)
			if err != nil {
				return fmt.Errorf("insert article: %w", err)
			}
			if a.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		} else {
			a.TimeUpdated = now()
			res, err := tx.ExecContext(ctx,
				`UPDATE article SET article_title = ?, article_subtitle = ?, article_date = ?,
				 article_snippet = ?, article_seqno = ?, article_pageno = ?, article_url = ?,
				 article_tags = ?, article_rating = ?, pub_id = ?, publ_id = ?, time_updated = ?
				 WHERE article_id = ?`,
				a.Title, nullText(a.Subtitle), nullText(a.Date), nullText(a.Snippet),
				a.Seqno, nullText(a.Pageno), nullText(a.URL), nullText(a.Tags),
				a.Rating, a.PublicationID, a.PublisherID, a.TimeUpdated, a.ID)
			if err != nil {
				return fmt.Errorf("update article %d: %w", a.ID, err)
			}
			if err := requireRow(res); err != nil {
				return err
			}
		}
		return s.replaceArticleAssocs(ctx, tx, a)
	})
}

func (s *Store) replaceArticleAssocs(ctx context.Context, tx *sql.Tx, a *models.Article) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM article_author WHERE article_id = ?`, a.ID); err != nil {
		return fmt.Errorf("clear article %d authors: %w", a.ID, err)
	}
	for i := range a.Authors {
		id, err := resolveAuthor(ctx, tx, a.Authors[i].Name)
		if err != nil {
			return err
		}
		a.Authors[i].ID = id
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO article_author (seq_no, article_id, author_id) VALUES (?, ?, ?)`,
			i+1, a.ID, id); err != nil {
			return fmt.Errorf("link author %q: %w", a.Authors[i].Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM article_scenario WHERE article_id = ?`, a.ID); err != nil {
		return fmt.Errorf("clear article %d scenarios: %w", a.ID, err)
	}
	for i := range a.Scenarios {
		id, err := resolveScenario(ctx, tx, &a.Scenarios[i])
		if err != nil {
			return err
		}
		a.Scenarios[i].ID = id
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO article_scenario (seq_no, article_id, scenario_id) VALUES (?, ?, ?)`,
			i+1, a.ID, id); err != nil {
			return fmt.Errorf("link scenario %q: %w", a.Scenarios[i].Name, err)
		}
	}
	return nil
}

func resolveAuthor(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT author_id FROM author WHERE author_name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("resolve author %q: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO author (author_name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("create author %q: %w", name, err)
	}
	return res.LastInsertId()
}

func resolveScenario(ctx context.Context, tx *sql.Tx, sc *models.Scenario) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT scenario_id FROM scenario
		 WHERE ifnull(scenario_roar_id,'') = ? AND ifnull(scenario_display_id,'') = ?
		   AND scenario_name = ?`,
		sc.RoarID, sc.DisplayID, sc.Name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("resolve scenario %q: %w", sc.Name, err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO scenario (scenario_roar_id, scenario_display_id, scenario_name)
		 VALUES (?, ?, ?)`,
		nullText(sc.RoarID), nullText(sc.DisplayID), sc.Name)
	if err != nil {
		return 0, fmt.Errorf("create scenario %q: %w", sc.Name, err)
	}
	return res.LastInsertId()
}

// DeleteArticle removes an article and its associations.
func (s *Store) DeleteArticle(ctx context.Context, id int64) error {
	return db.Tx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM article WHERE article_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete article %d: %w", id, err)
		}
		return requireRow(res)
	})
}

// ArticleIDsForPublisher returns the ids of all articles reachable from a
// publisher, whether attached directly or through one of its publications.
// Used to drop their index rows when the publisher goes away.
func (s *Store) ArticleIDsForPublisher(ctx context.Context, publID int64) ([]int64, error) {
	return s.articleIDs(ctx,
		`SELECT article_id FROM article WHERE publ_id = ?1
		 OR pub_id IN (SELECT pub_id FROM publication WHERE publ_id = ?1)`, publID)
}

// ArticleIDsForPublication returns the ids of all articles in a publication.
func (s *Store) ArticleIDsForPublication(ctx context.Context, pubID int64) ([]int64, error) {
	return s.articleIDs(ctx, `SELECT article_id FROM article WHERE pub_id = ?`, pubID)
}

// PublicationIDsForPublisher returns the ids of all publications of a publisher.
func (s *Store) PublicationIDsForPublisher(ctx context.Context, publID int64) ([]int64, error) {
	return s.articleIDs(ctx, `SELECT pub_id FROM publication WHERE publ_id = ?`, publID)
}

func (s *Store) articleIDs(ctx context.Context, query string, arg int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
