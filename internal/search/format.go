package search

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// fieldKey maps one FTS column onto the public key it is published under
// for a given entity kind. Multi-valued columns (newline-joined at index
// time) are split back into lists for the sibling key.
type fieldKey struct {
	column string
	key    string
	multi  bool
}

var publisherFields = []fieldKey{
	{column: "name", key: "publ_name"},
	{column: "description", key: "publ_description"},
}

var publicationFields = []fieldKey{
	{column: "name", key: "pub_name"},
	{column: "description", key: "pub_description"},
	{column: "tags", key: "pub_tags", multi: true},
}

var articleFields = []fieldKey{
	{column: "name", key: "article_title"},
	{column: "name2", key: "article_subtitle"},
	{column: "description", key: "article_snippet"},
	{column: "authors", key: "authors", multi: true},
	{column: "scenarios", key: "scenarios", multi: true},
	{column: "tags", key: "article_tags", multi: true},
}

// Formatter turns raw search hits into result records: the entity's full
// field set plus, for each column the query matched, a sibling key carrying
// the highlighted rendering.
type Formatter struct {
	cat    Catalog
	linker *RuleLinker
	log    *zap.Logger
}

// NewFormatter wires the formatter to its catalog and rule linker. The
// logger may be nil.
func NewFormatter(cat Catalog, linker *RuleLinker, log *zap.Logger) *Formatter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Formatter{cat: cat, linker: linker, log: log}
}

// Format resolves each hit against the catalog and assembles its result
// record. Hits whose owner no longer exists are dropped with a warning; the
// index catches up on the next rebuild.
func (f *Formatter) Format(ctx context.Context, hits []Hit, beginMark string) ([]map[string]any, error) {
	results := make([]map[string]any, 0, len(hits))
	for _, hit := range hits {
		kind, id, err := ParseOwnerKey(hit.Owner)
		if err != nil {
			f.log.Warn("malformed owner key in search index", zap.String("owner", hit.Owner))
			continue
		}

		rec, fields, err := f.lookup(ctx, kind, id)
		if err != nil {
			f.log.Warn("search hit references a missing entity",
				zap.String("owner", hit.Owner), zap.Error(err))
			continue
		}
		rec["type"] = kind.String()
		rec["rank"] = hit.Rank

		// With no markers there is nothing to tell a matched field by, so a
		// plain run produces no sibling keys at all.
		if beginMark != "" {
			for _, fk := range fields {
				hl, ok := hit.Fields[fk.column]
				if !ok || !strings.Contains(hl, beginMark) {
					continue
				}
				if kind == KindArticle && fk.column == "description" {
					hl = f.linker.Link(hl)
				}
				if fk.multi {
					rec[fk.key+"!"] = strings.Split(hl, multiSep)
				} else {
					rec[fk.key+"!"] = hl
				}
			}
		}
		results = append(results, rec)
	}
	return results, nil
}

// lookup fetches the entity and returns its plain field map together with
// the kind's column/key table.
func (f *Formatter) lookup(ctx context.Context, kind Kind, id int64) (map[string]any, []fieldKey, error) {
	switch kind {
	case KindPublisher:
		p, err := f.cat.Publisher(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return p.Vals(), publisherFields, nil
	case KindPublication:
		p, err := f.cat.Publication(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return p.Vals(), publicationFields, nil
	default:
		a, err := f.cat.Article(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		rec := a.Vals()
		if snip, ok := rec["article_snippet"].(string); ok {
			rec["article_snippet"] = f.linker.Link(snip)
		}
		return rec, articleFields, nil
	}
}
