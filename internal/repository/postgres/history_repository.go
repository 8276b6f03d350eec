// backend-go/internal/repository/postgres/history_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/andresuchdata/pricetrack/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

const (
	defaultProductLimit = 50
	maxProductLimit     = 1000
)

type historyRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) repository.HistoryRepository {
	return &historyRepository{db: db}
}

// GetHistory reads the three parts of a history inside one read-only repeatable
// read transaction so they describe the same data.
func (r *historyRepository) GetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, error) {
	if productID.IsZero() {
		return nil, repository.ErrProductNotFound
	}

	history := &domain.History{
		Transactions: []domain.TransactionRecord{},
		Suppliers:    []domain.SupplierStats{},
	}

	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := r.db.WithTx(ctx, opts, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID); err != nil {
			return fmt.Errorf("check product: %w", err)
		}
		if !exists {
			return repository.ErrProductNotFound
		}

		rangeClause, rangeArgs := buildDateRangeClause(rng, "t", 2)
		args := append([]interface{}{productID}, rangeArgs...)

		txQuery := fmt.Sprintf(`
			SELECT
				t.order_date,
				t.unit_price::float8 AS unit_price,
				t.quantity::float8 AS quantity,
				s.id AS supplier_id,
				s.name AS supplier_name,
				s.code AS supplier_code
			FROM purchase_transactions t
			JOIN suppliers s ON s.id = t.supplier_id
			WHERE t.product_id = $1%s
			ORDER BY t.order_date ASC, t.id ASC
		`, rangeClause)
		if err := sqlx.SelectContext(ctx, tx, &history.Transactions, txQuery, args...); err != nil {
			return fmt.Errorf("select transactions: %w", err)
		}

		supplierQuery := scopedStatsCTE(rangeClause) + `
			SELECT
				s.id AS supplier_id,
				s.name,
				s.code,
				ps.min_price,
				ps.max_price,
				ps.average_price,
				ps.total_quantity,
				ps.total_amount,
				COALESCE((SELECT AVG(average_price) FROM per_supplier), 0)::float8 AS overall_average_price,
				COALESCE((SELECT unit_price FROM latest), 0)::float8 AS current_price
			FROM per_supplier ps
			JOIN suppliers s ON s.id = ps.supplier_id
			ORDER BY s.name ASC, s.id ASC
		`
		if err := sqlx.SelectContext(ctx, tx, &history.Suppliers, supplierQuery, args...); err != nil {
			return fmt.Errorf("select supplier stats: %w", err)
		}

		overallQuery := scopedStatsCTE(rangeClause) + `
			SELECT
				COALESCE(MIN(unit_price), 0)::float8 AS min_price,
				COALESCE(MAX(unit_price), 0)::float8 AS max_price,
				COALESCE(AVG(unit_price), 0)::float8 AS average_price,
				COALESCE(SUM(quantity), 0)::float8 AS total_quantity,
				COALESCE(SUM(unit_price * quantity), 0)::float8 AS total_amount,
				COALESCE((SELECT AVG(average_price) FROM per_supplier), 0)::float8 AS overall_average_price,
				COALESCE((SELECT unit_price FROM latest), 0)::float8 AS current_price
			FROM scoped
		`
		if err := tx.GetContext(ctx, &history.Stats.Stats, overallQuery, args...); err != nil {
			return fmt.Errorf("select overall stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return history, nil
}

// scopedStatsCTE narrows purchase_transactions to the product and range, then
// derives the per-supplier aggregates and the latest price.
func scopedStatsCTE(rangeClause string) string {
	return fmt.Sprintf(`
		WITH scoped AS (
			SELECT t.id, t.supplier_id, t.order_date, t.unit_price, t.quantity
			FROM purchase_transactions t
			WHERE t.product_id = $1%s
		),
		per_supplier AS (
			SELECT
				supplier_id,
				MIN(unit_price)::float8 AS min_price,
				MAX(unit_price)::float8 AS max_price,
				AVG(unit_price)::float8 AS average_price,
				SUM(quantity)::float8 AS total_quantity,
				SUM(unit_price * quantity)::float8 AS total_amount
			FROM scoped
			GROUP BY supplier_id
		),
		latest AS (
			SELECT unit_price
			FROM scoped
			ORDER BY order_date DESC, id DESC
			LIMIT 1
		)
	`, rangeClause)
}

func (r *historyRepository) GetProduct(ctx context.Context, productID domain.ID) (*domain.Product, error) {
	var product domain.Product
	err := r.db.GetContext(ctx, &product, `SELECT id, name, code FROM products WHERE id = $1`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

func (r *historyRepository) ListProducts(ctx context.Context, search string, limit int) ([]domain.Product, error) {
	limit = clampProductLimit(limit)

	clause, args := buildProductSearchClause(search, "p", 1)
	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.code
		FROM products p%s
		ORDER BY p.name ASC, p.id ASC
		LIMIT $%d
	`, clause, len(args)+1)
	args = append(args, limit)

	products := []domain.Product{}
	if err := sqlx.SelectContext(ctx, r.db, &products, query, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func clampProductLimit(limit int) int {
	if limit <= 0 {
		return defaultProductLimit
	}
	if limit > maxProductLimit {
		return maxProductLimit
	}
	return limit
}
