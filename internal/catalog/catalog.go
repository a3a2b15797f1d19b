package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownProduct     = errors.New("unknown product or version")
	ErrVersionRequired    = errors.New("product has several versions; a version id is required")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// Snapshot is the priced catalog data copied into an order line.
type Snapshot struct {
	ProductTitle string
	VersionTitle string
	UnitPrice    decimal.Decimal
	Currency     string
}

// Catalog resolves product references at checkout time.
type Catalog interface {
	Lookup(ctx context.Context, productID, versionID string) (Snapshot, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresCatalog reads the CMS product tables. Only active rows resolve.
type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) Lookup(ctx context.Context, productID, versionID string) (Snapshot, error) {
	if productID == "" {
		return Snapshot{}, ErrUnknownProduct
	}

	query, args, err := buildLookupQuery(productID, versionID).ToSql()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var found []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ProductTitle, &s.VersionTitle, &s.UnitPrice, &s.Currency); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
		}
		found = append(found, s)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	switch len(found) {
	case 0:
		return Snapshot{}, ErrUnknownProduct
	case 1:
		return found[0], nil
	default:
		return Snapshot{}, ErrVersionRequired
	}
}

// buildLookupQuery selects at most two rows so an ambiguous product without
// a version id can be detected.
func buildLookupQuery(productID, versionID string) sq.SelectBuilder {
	q := psql.Select("p.title", "v.title", "v.price", "v.currency").
		From("products p").
		Join("product_versions v ON v.product_id = p.id").
		Where(sq.Eq{"p.id": productID, "p.active": true, "v.active": true}).
		OrderBy("v.id").
		Limit(2)
	if versionID != "" {
		q = q.Where(sq.Eq{"v.id": versionID})
	}
	return q
}
