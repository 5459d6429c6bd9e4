package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/grognard-labs/aslcat/internal/models"
)

// TagCount is one entry of the tag report.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagCounts unpacks every publication and article tag column and returns the
// distinct tags with usage counts, most-used first, then by name.
//
// Tags are munged into one string column, so this walks every row. The
// catalog is small enough that this has never mattered.
func (s *Store) TagCounts(ctx context.Context) ([]TagCount, error) {
	counts := map[string]int{}

	count := func(query string) error {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var enc sql.NullString
			if err := rows.Scan(&enc); err != nil {
				return err
			}
			for _, tag := range models.DecodeTags(text(enc)) {
				counts[tag]++
			}
		}
		return rows.Err()
	}

	if err := count(`SELECT pub_tags FROM publication`); err != nil {
		return nil, fmt.Errorf("count publication tags: %w", err)
	}
	if err := count(`SELECT article_tags FROM article`); err != nil {
		return nil, fmt.Errorf("count article tags: %w", err)
	}

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}
