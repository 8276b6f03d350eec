package tracker

import "github.com/andresuchdata/pricetrack/backend-go/internal/domain"

// FilterBySupplier returns the transactions to visualize for a supplier filter.
//
// For "all" (or an unset filter) the input slice itself is returned so callers
// can detect that nothing changed. Otherwise the result is the order-preserving
// subsequence of records from that supplier.
func FilterBySupplier(transactions []domain.TransactionRecord, supplier domain.ID) []domain.TransactionRecord {
	if supplier.IsAll() {
		return transactions
	}

	filtered := make([]domain.TransactionRecord, 0, len(transactions))
	for _, tx := range transactions {
		if tx.SupplierID == supplier {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}

// SelectStats picks the figures shown on the summary cards. It returns the
// overall stats for "all", the first matching supplier row otherwise, and
// false when the supplier is not in the list.
func SelectStats(supplier domain.ID, overall domain.SupplierStats, suppliers []domain.SupplierStats) (domain.SupplierStats, bool) {
	if supplier.IsAll() {
		return overall, true
	}

	for _, s := range suppliers {
		if s.SupplierID == supplier {
			return s, true
		}
	}
	return domain.SupplierStats{}, false
}
