package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Default highlight markers. The frontend styles matches via the .hilite
// class, so these are the production values; the CLI substitutes terminal
// friendly markers and empty markers give a plain run.
const (
	DefaultBeginMark = `<span class="hilite">`
	DefaultEndMark   = `</span>`
)

// ErrEmptyQuery is returned when a query compiles to nothing.
var ErrEmptyQuery = errors.New("please enter something to search for")

// QueryError is a user-facing problem with the query itself (malformed FTS
// syntax). The engine's internal message prefix has already been stripped.
type QueryError struct {
	Msg string
}

func (e *QueryError) Error() string { return e.Msg }

// SearchOptions tune one search execution.
type SearchOptions struct {
	// Columns restricts matching to a subset of the indexed columns
	// (e.g. only "authors" for an identity search). Empty means all.
	Columns []string

	// BeginMark/EndMark wrap matched terms in the per-field output.
	// Leave both empty for unmarked output.
	BeginMark string
	EndMark   string
}

// Hit is one raw engine result: the owning entity plus the per-field output
// with highlight markers applied.
type Hit struct {
	Owner  string
	Rating int     // rating column (0 when unrated)
	Rank   float64 // bm25 score, lower is better
	Fields map[string]string
}

// Search runs a compiled match expression. Results come back ordered by
// rating descending first and text relevance second: editorially-boosted
// content always outranks purely textual relevance. The owner column is
// excluded from relevance scoring.
func (ix *Index) Search(ctx context.Context, expr string, weights WeightTable, opts SearchOptions) ([]Hit, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, ErrEmptyQuery
	}
	if len(opts.Columns) > 0 {
		expr = fmt.Sprintf("{%s}: (%s)", strings.Join(opts.Columns, " "), expr)
	}

	// bm25 weights are positional: owner and rating first, both fixed at
	// zero, then the configured weight per text column.
	bm25Args := []string{"0.0", "0.0"}
	for _, col := range weightedColumns {
		bm25Args = append(bm25Args, strconv.FormatFloat(weights.Weight(col), 'f', -1, 64))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT owner, CAST(COALESCE(rating, 0) AS INTEGER) AS rating,
		bm25(%s, %s) AS score`, ftsTable, strings.Join(bm25Args, ", "))

	var args []any
	for i := range weightedColumns {
		// Text columns start at index 2 (after owner and rating).
		fmt.Fprintf(&b, ", highlight(%s, %d, ?, ?)", ftsTable, i+2)
		args = append(args, opts.BeginMark, opts.EndMark)
	}
	// Equal rating and score fall back to insertion order; Rebuild inserts
	// newest entities first, so recent content surfaces ahead of old ties.
	fmt.Fprintf(&b, `
		FROM %s
		WHERE %s MATCH ?
		ORDER BY rating DESC, score, rowid`, ftsTable, ftsTable)
	args = append(args, expr)

	rows, err := ix.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		hit := Hit{Fields: map[string]string{}}
		highlighted := make([]sql.NullString, len(weightedColumns))
		dest := []any{&hit.Owner, &hit.Rating, &hit.Rank}
		for i := range highlighted {
			dest = append(dest, &highlighted[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		for i, col := range weightedColumns {
			if highlighted[i].Valid {
				hit.Fields[col] = highlighted[i].String
			}
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}

	ix.log.Debug("search executed", zap.String("expr", expr), zap.Int("hits", len(hits)))
	return hits, nil
}

// queryError converts an engine error on a MATCH into a user-facing
// QueryError, stripping the engine-internal message prefix. Non-query errors
// pass through untouched.
func queryError(err error) error {
	msg := err.Error()
	if i := strings.Index(msg, "fts5: "); i >= 0 {
		return &QueryError{Msg: msg[i+len("fts5: "):]}
	}
	if strings.Contains(msg, "syntax error") || strings.Contains(msg, "unknown special query") {
		return &QueryError{Msg: msg}
	}
	return err
}
