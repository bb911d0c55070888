// Package sheets defines the outbound port for exporting ledger rows.
package sheets

import (
	"context"

	"buste/internal/core"
)

// LedgerWriter appends committed transactions to an external ledger copy.
type LedgerWriter interface {
	AppendTransaction(ctx context.Context, t core.Transaction) error
}
