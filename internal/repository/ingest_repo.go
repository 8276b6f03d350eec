package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schemaSQL string

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rollbacker interface {
	Rollback() error
}

// rollback aborts tx. A transaction already finished by a failed Commit is not
// an error.
func rollback(tx rollbacker) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

type IngestRepository struct {
	db *sql.DB
}

func NewIngestRepository(db *sql.DB) *IngestRepository {
	return &IngestRepository{db: db}
}

// Migrate creates the tables and indexes when they do not exist yet.
func (r *IngestRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *IngestRepository) UpsertProduct(ctx context.Context, q queryRower, code, name string) (domain.ID, error) {
	query := `
		INSERT INTO products (code, name, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (code)
		DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		RETURNING id
	`
	var id domain.ID
	if err := q.QueryRowContext(ctx, query, code, name).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to upsert product %s: %w", code, err)
	}
	return id, nil
}

func (r *IngestRepository) UpsertSupplier(ctx context.Context, q queryRower, code, name string) (domain.ID, error) {
	query := `
		INSERT INTO suppliers (code, name, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (code)
		DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		RETURNING id
	`
	var id domain.ID
	if err := q.QueryRowContext(ctx, query, code, name).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to upsert supplier %s: %w", code, err)
	}
	return id, nil
}

// ImportRows writes one batch of parsed rows in a single transaction. Rows are
// keyed by (source, line) so importing the same file twice does not duplicate
// transactions.
func (r *IngestRepository) ImportRows(ctx context.Context, rows []domain.ImportRow) (domain.ImportResult, error) {
	var result domain.ImportResult
	if len(rows) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := rollback(tx); rbErr != nil {
				log.Error().Err(rbErr).Msg("could not rollback import transaction")
			}
		}
	}()

	products := make(map[string]domain.ID)
	suppliers := make(map[string]domain.ID)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO purchase_transactions (
			product_id, supplier_id, order_date, unit_price, quantity, source_file, source_line
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_file, source_line) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			supplier_id = EXCLUDED.supplier_id,
			order_date = EXCLUDED.order_date,
			unit_price = EXCLUDED.unit_price,
			quantity = EXCLUDED.quantity
	`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		productID, ok := products[row.ProductCode]
		if !ok {
			productID, err = r.UpsertProduct(ctx, tx, row.ProductCode, row.ProductName)
			if err != nil {
				return result, err
			}
			products[row.ProductCode] = productID
		}

		supplierID, ok := suppliers[row.SupplierCode]
		if !ok {
			supplierID, err = r.UpsertSupplier(ctx, tx, row.SupplierCode, row.SupplierName)
			if err != nil {
				return result, err
			}
			suppliers[row.SupplierCode] = supplierID
		}

		if _, err = stmt.ExecContext(ctx,
			productID,
			supplierID,
			row.OrderDate,
			row.UnitPrice,
			row.Quantity,
			row.Source,
			row.Line,
		); err != nil {
			return result, fmt.Errorf("failed to insert transaction %s:%d: %w", row.Source, row.Line, err)
		}
		result.Transactions++
	}

	if err = tx.Commit(); err != nil {
		return result, fmt.Errorf("could not commit transaction: %w", err)
	}

	result.Rows = len(rows)
	result.Products = len(products)
	result.Suppliers = len(suppliers)
	return result, nil
}
