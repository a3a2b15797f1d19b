package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/meditationastro/medinow-sub000/internal/domain/order"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var orderColumns = []string{
	"id",
	"user_id",
	"customer_full_name",
	"customer_email",
	"customer_phone",
	"notes",
	"currency",
	"total",
	"status",
	"payment_provider",
	"payment_status",
	"created_at",
	"updated_at",
}

var itemColumns = []string{
	"id",
	"order_id",
	"product_title",
	"version_title",
	"unit_price",
	"quantity",
	"line_total",
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresOrderStore implements OrderStore on PostgreSQL.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (s *PostgresOrderStore) Create(ctx context.Context, o *order.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin create", err)
	}
	defer tx.Rollback()

	query, args, err := psql.Insert("orders").
		Columns(orderColumns...).
		Values(
			o.ID,
			nullString(o.UserID),
			o.Customer.FullName,
			o.Customer.Email,
			o.Customer.Phone,
			o.Notes,
			o.Currency,
			o.Total,
			string(o.Status),
			string(o.PaymentProvider),
			string(o.PaymentStatus),
			o.CreatedAt,
			o.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return persistErr("build order insert", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return persistErr("insert order", err)
	}

	items := psql.Insert("order_items").Columns(append(itemColumns, "position")...)
	for i, item := range o.Items {
		items = items.Values(
			item.ID,
			o.ID,
			item.ProductTitle,
			item.VersionTitle,
			item.UnitPrice,
			item.Quantity,
			item.LineTotal,
			i,
		)
	}
	query, args, err = items.ToSql()
	if err != nil {
		return persistErr("build item insert", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return persistErr("insert order items", err)
	}

	actor := o.UserID
	if actor == "" {
		actor = "guest"
	}
	if err := insertChange(ctx, tx, &order.StatusChange{
		OrderID:       o.ID,
		To:            o.Status,
		PaymentStatus: o.PaymentStatus,
		Actor:         actor,
		Source:        order.SourceSystem,
		ChangedAt:     o.CreatedAt,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit create", err)
	}
	return nil
}

func (s *PostgresOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, order.ErrOrderNotFound
	}

	o, err := getOrder(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}

	items, err := loadItems(ctx, s.db, []string{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	return o, nil
}

func (s *PostgresOrderStore) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	query, args, err := buildListQuery(f).ToSql()
	if err != nil {
		return nil, persistErr("build list query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list orders", err)
	}
	defer rows.Close()

	orders := make([]order.Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, persistErr("scan order", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate orders", err)
	}

	items, err := loadItems(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func buildListQuery(f order.Filter) sq.SelectBuilder {
	q := psql.Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC", "id")

	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		q = q.Where(sq.Or{
			sq.ILike{"customer_full_name": pattern},
			sq.ILike{"customer_email": pattern},
			sq.Expr("id::text ILIKE ?", pattern),
		})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q
}

func (s *PostgresOrderStore) Stats(ctx context.Context) (order.Stats, error) {
	query, args, err := buildStatsQuery().ToSql()
	if err != nil {
		return order.Stats{}, persistErr("build stats query", err)
	}

	var stats order.Stats
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalOrders,
		&stats.Revenue,
		&stats.PendingOrders,
		&stats.CompletedOrders,
	)
	if err != nil {
		return order.Stats{}, persistErr("query stats", err)
	}
	return stats, nil
}

func buildStatsQuery() sq.SelectBuilder {
	return psql.Select("COUNT(*)").
		Column(sq.Expr("COALESCE(SUM(total) FILTER (WHERE status = ANY(?)), 0)", pq.Array(statusStrings(order.RevenueStatuses)))).
		Column(sq.Expr("COUNT(*) FILTER (WHERE status = ANY(?))", pq.Array(statusStrings(order.OpenStatuses)))).
		Column(sq.Expr("COUNT(*) FILTER (WHERE status = ?)", string(order.StatusCompleted))).
		From("orders")
}

func (s *PostgresOrderStore) Update(ctx context.Context, id string, fn UpdateFunc) (*order.Order, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, order.ErrOrderNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin update", err)
	}
	defer tx.Rollback()

	o, err := getOrder(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	items, err := loadItems(ctx, tx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]

	change, err := fn(o)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Update("orders").
		Set("status", string(o.Status)).
		Set("payment_status", string(o.PaymentStatus)).
		Set("updated_at", o.UpdatedAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, persistErr("build order update", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, persistErr("update order", err)
	}

	if change != nil {
		change.OrderID = id
		if err := insertChange(ctx, tx, change); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("commit update", err)
	}
	return o, nil
}

func (s *PostgresOrderStore) History(ctx context.Context, id string) ([]order.StatusChange, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, order.ErrOrderNotFound
	}

	query, args, err := psql.Select(
		"id",
		"order_id",
		"from_status",
		"to_status",
		"payment_status",
		"actor",
		"source",
		"changed_at",
	).
		From("order_status_changes").
		Where(sq.Eq{"order_id": id}).
		OrderBy("changed_at", "id").
		ToSql()
	if err != nil {
		return nil, persistErr("build history query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("query history", err)
	}
	defer rows.Close()

	history := make([]order.StatusChange, 0)
	for rows.Next() {
		var (
			c    order.StatusChange
			from sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.OrderID, &from, &c.To, &c.PaymentStatus, &c.Actor, &c.Source, &c.ChangedAt); err != nil {
			return nil, persistErr("scan history", err)
		}
		c.From = order.Status(from.String)
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate history", err)
	}
	return history, nil
}

func (s *PostgresOrderStore) Delete(ctx context.Context, id string) error {
	id, ok := canonicalID(id)
	if !ok {
		return order.ErrOrderNotFound
	}

	// order_items and order_status_changes cascade on the foreign key.
	query, args, err := psql.Delete("orders").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return persistErr("build delete", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistErr("delete order", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("delete order", err)
	}
	if n == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func getOrder(ctx context.Context, q querier, id string, forUpdate bool) (*order.Order, error) {
	b := psql.Select(orderColumns...).From("orders").Where(sq.Eq{"id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, persistErr("build order query", err)
	}

	o, err := scanOrder(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, persistErr("get order", err)
	}
	return o, nil
}

func loadItems(ctx context.Context, q querier, orderIDs []string) (map[string][]order.Item, error) {
	result := make(map[string][]order.Item, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	query, args, err := psql.Select(itemColumns...).
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("order_id", "position").
		ToSql()
	if err != nil {
		return nil, persistErr("build item query", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("query items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item    order.Item
			orderID string
		)
		if err := rows.Scan(
			&item.ID,
			&orderID,
			&item.ProductTitle,
			&item.VersionTitle,
			&item.UnitPrice,
			&item.Quantity,
			&item.LineTotal,
		); err != nil {
			return nil, persistErr("scan item", err)
		}
		result[orderID] = append(result[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate items", err)
	}
	return result, nil
}

func insertChange(ctx context.Context, q querier, c *order.StatusChange) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query, args, err := psql.Insert("order_status_changes").
		Columns("id", "order_id", "from_status", "to_status", "payment_status", "actor", "source", "changed_at").
		Values(c.ID, c.OrderID, nullString(string(c.From)), string(c.To), string(c.PaymentStatus), c.Actor, string(c.Source), c.ChangedAt).
		ToSql()
	if err != nil {
		return persistErr("build history insert", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return persistErr("insert status change", err)
	}
	return nil
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o      order.Order
		userID sql.NullString
		total  decimal.Decimal
	)
	err := row.Scan(
		&o.ID,
		&userID,
		&o.Customer.FullName,
		&o.Customer.Email,
		&o.Customer.Phone,
		&o.Notes,
		&o.Currency,
		&total,
		&o.Status,
		&o.PaymentProvider,
		&o.PaymentStatus,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.UserID = userID.String
	o.Total = total
	o.Items = []order.Item{}
	return &o, nil
}

// canonicalID accepts any form uuid.Parse does (braces, urn:uuid:, no
// hyphens) and returns the hyphenated form Postgres stores.
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func statusStrings(statuses []order.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
