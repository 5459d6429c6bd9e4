// Package search implements the full-text search subsystem: the query
// compiler, the denormalized FTS5 index and its synchronization protocol, the
// search executor, the result formatter, and the ASLRB rule-citation linker.
//
// The relational catalog is a collaborator, reached only through the Catalog
// interface; this package never mutates domain records.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/grognard-labs/aslcat/internal/models"
)

// Kind identifies which entity type an index row belongs to. The set is
// closed: only these three kinds are denormalized into the index.
type Kind int

const (
	KindPublisher Kind = iota
	KindPublication
	KindArticle
)

var kindNames = [...]string{"publisher", "publication", "article"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ErrBadOwnerKey indicates a malformed owner key.
var ErrBadOwnerKey = errors.New("malformed owner key")

// MakeOwnerKey builds the composite key that names one index row,
// e.g. "article:42". The key is created when an entity is first indexed and
// never changes for the entity's life.
func MakeOwnerKey(k Kind, id int64) string {
	return fmt.Sprintf("%s:%d", k, id)
}

// ParseOwnerKey splits an owner key back into its kind and id.
func ParseOwnerKey(key string) (Kind, int64, error) {
	name, idStr, ok := strings.Cut(key, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadOwnerKey, key)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadOwnerKey, key)
	}
	for k, n := range kindNames {
		if n == name {
			return Kind(k), id, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: unknown kind %q", ErrBadOwnerKey, name)
}

// Catalog is the relational collaborator. The store package provides the real
// implementation; tests substitute fakes.
type Catalog interface {
	Publisher(ctx context.Context, id int64) (*models.Publisher, error)
	Publication(ctx context.Context, id int64) (*models.Publication, error)
	Article(ctx context.Context, id int64) (*models.Article, error)

	// Listings are newest-first; the rebuild path preserves that order so
	// equally-ranked hits surface recent content first.
	Publishers(ctx context.Context) ([]models.Publisher, error)
	Publications(ctx context.Context) ([]models.Publication, error)
	Articles(ctx context.Context) ([]models.Article, error)
}
