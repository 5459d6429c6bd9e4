package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/grognard-labs/aslcat/internal/db"
	"github.com/grognard-labs/aslcat/internal/models"
)

// ftsTable is the denormalized full-text index. FTS5 cannot declare a
// uniqueness constraint on the owner column, so uniqueness is maintained
// entirely by the delete-before-insert protocol in Upsert.
//
// Column order matters: highlight() and bm25() address columns by position.
const (
	ftsTable     = "searchable_content"
	createFTS    = `CREATE VIRTUAL TABLE ` + ftsTable + ` USING fts5(owner, rating UNINDEXED, name, name2, description, authors, scenarios, tags)`
	createFTSIfN = `CREATE VIRTUAL TABLE IF NOT EXISTS ` + ftsTable + ` USING fts5(owner, rating UNINDEXED, name, name2, description, authors, scenarios, tags)`
)

// Record is the denormalized text projection of one domain entity. Unused
// columns stay nil and index as NULL; which fields are populated is
// entity-kind specific.
type Record struct {
	Owner       string
	Rating      *int
	Name        *string
	Name2       *string
	Description *string
	Authors     *string // newline-joined, author sequence order
	Scenarios   *string // newline-joined "display_id\tname" (bare name without a display id)
	Tags        *string // newline-joined
}

// multiSep joins the multi-valued columns at index time; the formatter splits
// highlighted output back on it.
const multiSep = "\n"

// PublisherRecord projects a publisher onto its index row.
func PublisherRecord(p *models.Publisher) Record {
	return Record{
		Owner:       MakeOwnerKey(KindPublisher, p.ID),
		Name:        &p.Name,
		Description: optional(p.Description),
	}
}

// PublicationRecord projects a publication onto its index row.
func PublicationRecord(p *models.Publication) Record {
	return Record{
		Owner:       MakeOwnerKey(KindPublication, p.ID),
		Name:        &p.Name,
		Description: optional(p.Description),
		Tags:        joined(models.DecodeTags(p.Tags)),
	}
}

// ArticleRecord projects an article onto its index row.
func ArticleRecord(a *models.Article) Record {
	authors := make([]string, len(a.Authors))
	for i, au := range a.Authors {
		authors[i] = au.Name
	}
	scenarios := make([]string, len(a.Scenarios))
	for i, sc := range a.Scenarios {
		if sc.DisplayID != "" {
			scenarios[i] = sc.DisplayID + "\t" + sc.Name
		} else {
			scenarios[i] = sc.Name
		}
	}
	return Record{
		Owner:       MakeOwnerKey(KindArticle, a.ID),
		Rating:      a.Rating,
		Name:        &a.Title,
		Name2:       optional(a.Subtitle),
		Description: optional(a.Snippet),
		Authors:     joined(authors),
		Scenarios:   joined(scenarios),
		Tags:        joined(models.DecodeTags(a.Tags)),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func joined(vals []string) *string {
	if len(vals) == 0 {
		return nil
	}
	s := strings.Join(vals, multiSep)
	return &s
}

// Index owns the full-text table. Mutations each run in their own
// transaction; a failure rolls back and propagates, never leaving a partial
// row behind.
type Index struct {
	db  *sql.DB
	log *zap.Logger
}

// NewIndex wraps the shared database handle. The logger may be nil.
func NewIndex(sdb *sql.DB, log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{db: sdb, log: log}
}

// Init creates the full-text table if it doesn't exist. Rebuild recreates it
// from scratch; Init only covers the first run against an empty file.
func (ix *Index) Init(ctx context.Context) error {
	if _, err := ix.db.ExecContext(ctx, createFTSIfN); err != nil {
		return fmt.Errorf("create fts table: %w", err)
	}
	return nil
}

const insertRecord = `INSERT INTO ` + ftsTable +
	` (owner, rating, name, name2, description, authors, scenarios, tags)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(rec Record) []any {
	return []any{rec.Owner, rec.Rating, rec.Name, rec.Name2, rec.Description,
		rec.Authors, rec.Scenarios, rec.Tags}
}

// Upsert replaces the index row for rec's owner key. There is no partial
// column update: any existing row is deleted and a fresh row inserted within
// one transaction, which is what keeps owner keys unique.
func (ix *Index) Upsert(ctx context.Context, rec Record) error {
	err := db.Tx(ctx, ix.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+ftsTable+` WHERE owner = ?`, rec.Owner); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, insertRecord, insertArgs(rec)...)
		return err
	})
	if err != nil {
		return fmt.Errorf("index upsert %s: %w", rec.Owner, err)
	}
	ix.log.Debug("indexed", zap.String("owner", rec.Owner))
	return nil
}

// Delete removes the index row for an owner key; a no-op if absent.
func (ix *Index) Delete(ctx context.Context, owner string) error {
	err := db.Tx(ctx, ix.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM `+ftsTable+` WHERE owner = ?`, owner)
		return err
	})
	if err != nil {
		return fmt.Errorf("index delete %s: %w", owner, err)
	}
	ix.log.Debug("unindexed", zap.String("owner", owner))
	return nil
}

// Rebuild drops and recreates the full-text table, then bulk-inserts every
// current entity, one kind at a time, newest first within each kind. The
// whole batch runs in a single transaction for all-or-nothing semantics.
func (ix *Index) Rebuild(ctx context.Context, cat Catalog) error {
	publishers, err := cat.Publishers(ctx)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	publications, err := cat.Publications(ctx)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	articles, err := cat.Articles(ctx)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}

	total := 0
	err = db.Tx(ctx, ix.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+ftsTable); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, createFTS); err != nil {
			return err
		}
		insert := func(rec Record) error {
			if _, err := tx.ExecContext(ctx, insertRecord, insertArgs(rec)...); err != nil {
				return fmt.Errorf("insert %s: %w", rec.Owner, err)
			}
			total++
			return nil
		}
		for i := range publishers {
			if err := insert(PublisherRecord(&publishers[i])); err != nil {
				return err
			}
		}
		for i := range publications {
			if err := insert(PublicationRecord(&publications[i])); err != nil {
				return err
			}
		}
		for i := range articles {
			if err := insert(ArticleRecord(&articles[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	ix.log.Info("search index rebuilt", zap.Int("rows", total))
	return nil
}
