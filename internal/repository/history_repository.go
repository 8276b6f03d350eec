// backend-go/internal/repository/history_repository.go
package repository

import (
	"context"
	"errors"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
)

// ErrProductNotFound is returned when a history or product lookup names an unknown product.
var ErrProductNotFound = errors.New("product not found")

type HistoryRepository interface {
	// GetHistory returns the transactions, supplier table and overall stats of a
	// product within the range, all read from one snapshot.
	GetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, error)
	GetProduct(ctx context.Context, productID domain.ID) (*domain.Product, error)
	ListProducts(ctx context.Context, search string, limit int) ([]domain.Product, error)
}
