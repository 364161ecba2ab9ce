package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// TransactionReader defines read operations for ledger entries
type TransactionReader interface {
	// FindTransactionByID retrieves a single ledger entry.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindTransactionsByTransferID retrieves the paired entries of a transfer.
	FindTransactionsByTransferID(ctx context.Context, transferID string) ([]domain.Transaction, error)

	// FindReversalOf retrieves the reversing entry for an original transaction, if any.
	FindReversalOf(ctx context.Context, originalTransactionID string) (*domain.Transaction, error)

	// ListTransactionsByAccountID retrieves a paginated list of entries for an account,
	// newest first, using token-based pagination. It returns the entries and a token
	// for the next page.
	ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error)
}

// PostingRecordsBuilder builds a posting's outbox records once the running
// balances of its entries are known, inside the posting's own database
// transaction. runningBalances is keyed by transaction id and carries the
// balance each entry left behind, computed from the locked account rows, so
// the emitted events describe the committed state rather than the snapshot
// the caller validated against.
type PostingRecordsBuilder func(runningBalances map[string]decimal.Decimal) ([]domain.OutboxRecord, error)

// TransactionWriter defines the atomic posting operations. Each call commits
// the ledger entries, the balance updates, and the outbox records in one
// database transaction, or none of them.
type TransactionWriter interface {
	// SavePosting persists ledger entries, applies balance deltas, and writes the
	// outbox records buildRecords produces from the committed running balances,
	// all atomically.
	SavePosting(ctx context.Context, txns []domain.Transaction, balanceChanges map[string]decimal.Decimal, buildRecords PostingRecordsBuilder) error

	// SaveReversal persists reversing entries and flips the originals to REVERSED,
	// atomically with the balance deltas and outbox records. It fails with a
	// conflict when any original is no longer COMPLETED.
	SaveReversal(ctx context.Context, reversals []domain.Transaction, originalIDs []string, balanceChanges map[string]decimal.Decimal, records []domain.OutboxRecord) error
}

// TransactionTxSupport exposes entry writes that join a caller-owned transaction.
type TransactionTxSupport interface {
	// InsertTransactionsInTx inserts ledger entries within tx, computing each
	// running balance from the locked account rows in lockedAccounts. It returns
	// the running balances it wrote, keyed by transaction id.
	InsertTransactionsInTx(ctx context.Context, tx pgx.Tx, txns []domain.Transaction, lockedAccounts map[string]domain.Account) (map[string]decimal.Decimal, error)
}

// TransactionRepositoryFacade combines all ledger-entry repository interfaces
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
	TransactionTxSupport
}

// TransactionRepositoryWithTx extends TransactionRepositoryFacade with transaction capabilities
type TransactionRepositoryWithTx interface {
	TransactionRepositoryFacade
	TransactionManager
}
