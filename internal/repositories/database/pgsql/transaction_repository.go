package pgsql

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/apperrors"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	"github.com/wekeza-tech/coopcore/internal/models"
	"github.com/wekeza-tech/coopcore/internal/utils/accounting"
	"github.com/wekeza-tech/coopcore/internal/utils/mapping"
	"github.com/wekeza-tech/coopcore/internal/utils/pagination"
)

const transactionColumns = `transaction_id, account_id, transaction_type, entry_side, amount, currency_code, running_balance, status, transaction_date, value_date, transfer_id, original_transaction_id, description, created_at, created_by, last_updated_at, last_updated_by`

type PgxTransactionRepository struct {
	BaseRepository
	accountRepo portsrepo.AccountRepositoryFacade
	outboxRepo  portsrepo.OutboxWriter
}

// newPgxTransactionRepository creates a new repository for ledger entries.
// It takes the account and outbox repositories so a posting can lock accounts,
// move balances, and queue its events inside one transaction.
func newPgxTransactionRepository(pool *pgxpool.Pool, accountRepo portsrepo.AccountRepositoryFacade, outboxRepo portsrepo.OutboxWriter) portsrepo.TransactionRepositoryWithTx {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
		accountRepo:    accountRepo,
		outboxRepo:     outboxRepo,
	}
}

// Ensure PgxTransactionRepository implements portsrepo.TransactionRepositoryWithTx
var _ portsrepo.TransactionRepositoryWithTx = (*PgxTransactionRepository)(nil)

// scanTransactionRow scans one ledger_transactions row. transfer_id and
// original_transaction_id are NULL unless the entry belongs to a transfer or
// reverses another entry.
func scanTransactionRow(row pgx.Row) (models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.AccountID,
		&m.TransactionType,
		&m.EntrySide,
		&m.Amount,
		&m.CurrencyCode,
		&m.RunningBalance,
		&m.Status,
		&m.TransactionDate,
		&m.ValueDate,
		&m.TransferID,
		&m.OriginalTransactionID,
		&m.Description,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return models.Transaction{}, err
	}
	return m, nil
}

// SavePosting writes ledger entries, balance updates, and outbox records
// within one DB transaction. The accounts named in balanceChanges are locked
// first; entries carry running balances computed from the locked rows, and
// buildRecords sees those same balances so the queued events describe the
// committed state.
func (r *PgxTransactionRepository) SavePosting(ctx context.Context, txns []domain.Transaction, balanceChanges map[string]decimal.Decimal, buildRecords portsrepo.PostingRecordsBuilder) error {
	if len(txns) == 0 {
		return apperrors.NewValidationError("posting requires at least one ledger entry")
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) // Ignored once the transaction commits

	runningBalances, err := r.applyPostingInTx(ctx, tx, txns, balanceChanges)
	if err != nil {
		return err
	}

	records, err := buildRecords(runningBalances)
	if err != nil {
		return err
	}

	if err := r.outboxRepo.CreateRecordsInTx(ctx, tx, records); err != nil {
		return apperrors.NewAppError(500, "failed to queue outbox records for posting", err)
	}

	return r.Commit(ctx, tx)
}

// SaveReversal flips the original entries to REVERSED and writes the
// reversing entries, balance updates, and outbox records atomically. The flip
// is guarded: any original no longer COMPLETED aborts the whole posting.
func (r *PgxTransactionRepository) SaveReversal(ctx context.Context, reversals []domain.Transaction, originalIDs []string, balanceChanges map[string]decimal.Decimal, records []domain.OutboxRecord) error {
	if len(reversals) == 0 || len(originalIDs) == 0 {
		return apperrors.NewValidationError("reversal requires the original entries and their reversing entries")
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	now := reversals[0].CreatedAt
	userID := reversals[0].CreatedBy

	flipQuery := `
		UPDATE ledger_transactions
		SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE transaction_id = ANY($1) AND status = $5;
	`
	cmdTag, err := tx.Exec(ctx, flipQuery,
		originalIDs,
		string(domain.TransactionStatusReversed),
		now,
		userID,
		string(domain.TransactionStatusCompleted),
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark original entries reversed", err)
	}
	if int(cmdTag.RowsAffected()) != len(originalIDs) {
		// At least one original is missing or was already reversed.
		return apperrors.NewAppError(409, "original entries are not all reversible", apperrors.ErrAlreadyReversed)
	}

	if _, err := r.applyPostingInTx(ctx, tx, reversals, balanceChanges); err != nil {
		return err
	}

	if err := r.outboxRepo.CreateRecordsInTx(ctx, tx, records); err != nil {
		return apperrors.NewAppError(500, "failed to queue outbox records for reversal", err)
	}

	return r.Commit(ctx, tx)
}

// applyPostingInTx locks the touched accounts, applies balance deltas, and
// inserts the entries. Shared by postings and reversals. It returns the
// running balances written, keyed by transaction id.
func (r *PgxTransactionRepository) applyPostingInTx(ctx context.Context, tx pgx.Tx, txns []domain.Transaction, balanceChanges map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	now := txns[0].CreatedAt
	userID := txns[0].CreatedBy

	accountIDs := make([]string, 0, len(balanceChanges))
	for accID := range balanceChanges {
		accountIDs = append(accountIDs, accID)
	}
	sort.Strings(accountIDs)

	lockedAccounts, err := r.accountRepo.FindAccountsByIDsForUpdate(ctx, tx, accountIDs)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.NewAppError(500, "failed to lock accounts for update", err)
	}

	// Re-check invariants against the locked balances. Services validate with
	// read snapshots; only this check is race-free.
	for _, accID := range accountIDs {
		acc := lockedAccounts[accID]
		if !acc.IsActive() {
			return nil, apperrors.NewConflictError("account " + accID + " is closed and cannot accept postings")
		}
		if acc.AccountType == domain.AccountTypeSavings {
			newBalance := acc.AvailableBalance.Add(balanceChanges[accID])
			if newBalance.IsNegative() {
				return nil, apperrors.NewAppError(422, "insufficient funds in account "+accID, apperrors.ErrInsufficientFunds)
			}
		}
	}

	if err := r.accountRepo.UpdateAccountBalancesInTx(ctx, tx, balanceChanges, userID, now); err != nil {
		return nil, apperrors.NewAppError(500, "failed to update account balances", err)
	}

	return r.InsertTransactionsInTx(ctx, tx, txns, lockedAccounts)
}

// InsertTransactionsInTx inserts ledger entries within tx, computing each
// running balance from the locked rows in lockedAccounts plus the entries
// already applied to the same account in this posting. The balances written
// are returned keyed by transaction id.
func (r *PgxTransactionRepository) InsertTransactionsInTx(ctx context.Context, tx pgx.Tx, txns []domain.Transaction, lockedAccounts map[string]domain.Account) (map[string]decimal.Decimal, error) {
	batch := &pgx.Batch{}
	txnQuery := `
		INSERT INTO ledger_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`

	// Balances before this posting's changes, advanced entry by entry.
	currentRunningBalances := make(map[string]decimal.Decimal)
	for accID, lockedAcc := range lockedAccounts {
		currentRunningBalances[accID] = lockedAcc.CurrentBalance
	}

	// Sort by TransactionID for deterministic order
	sorted := make([]domain.Transaction, len(txns))
	copy(sorted, txns)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TransactionID < sorted[j].TransactionID
	})

	entryBalances := make(map[string]decimal.Decimal, len(txns))
	for _, txn := range sorted {
		lockedAccount, ok := lockedAccounts[txn.AccountID]
		if !ok {
			return nil, apperrors.NewAppError(500, "internal error: locked account "+txn.AccountID+" not found during entry processing", nil)
		}

		signedAmount, err := accounting.CalculateSignedAmount(txn, lockedAccount.AccountType)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to calculate signed amount for entry "+txn.TransactionID, err)
		}

		newRunningBalance := currentRunningBalances[txn.AccountID].Add(signedAmount)
		currentRunningBalances[txn.AccountID] = newRunningBalance
		entryBalances[txn.TransactionID] = newRunningBalance

		m := mapping.ToModelTransaction(txn)
		m.RunningBalance = newRunningBalance

		batch.Queue(txnQuery,
			m.TransactionID,
			m.AccountID,
			m.TransactionType,
			m.EntrySide,
			m.Amount,
			m.CurrencyCode,
			m.RunningBalance,
			m.Status,
			m.TransactionDate,
			m.ValueDate,
			m.TransferID,
			m.OriginalTransactionID,
			m.Description,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to execute ledger entry batch", err)
	}

	return entryBalances, nil
}

// FindTransactionByID retrieves a single ledger entry.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE transaction_id = $1;
	`
	m, err := scanTransactionRow(r.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find ledger entry "+transactionID, err)
	}

	d := mapping.ToDomainTransaction(m)
	return &d, nil
}

// FindTransactionsByTransferID retrieves the paired entries of a transfer.
func (r *PgxTransactionRepository) FindTransactionsByTransferID(ctx context.Context, transferID string) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE transfer_id = $1
		ORDER BY created_at, transaction_id;
	`
	rows, err := r.Pool.Query(ctx, query, transferID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query entries for transfer "+transferID, err)
	}
	defer rows.Close()

	entries := []models.Transaction{}
	for rows.Next() {
		m, err := scanTransactionRow(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan entry row for transfer "+transferID, err)
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating entry rows for transfer "+transferID, err)
	}

	return mapping.ToDomainTransactionSlice(entries), nil
}

// FindReversalOf retrieves the entry that reverses originalTransactionID.
func (r *PgxTransactionRepository) FindReversalOf(ctx context.Context, originalTransactionID string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE original_transaction_id = $1;
	`
	m, err := scanTransactionRow(r.Pool.QueryRow(ctx, query, originalTransactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find reversal of entry "+originalTransactionID, err)
	}

	d := mapping.ToDomainTransaction(m)
	return &d, nil
}

// ListTransactionsByAccountID retrieves a paginated list of entries for an
// account using token-based pagination, newest first. It returns the entries
// and a token for the next page.
func (r *PgxTransactionRepository) ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
	`
	filterClause := `WHERE account_id = $1`

	// Ordering must be stable: transaction_date DESC with created_at DESC as
	// the tie-breaker, matching the cursor tuple.
	orderByClause := `ORDER BY transaction_date DESC, created_at DESC`

	var rows pgx.Rows
	var err error
	args := []interface{}{accountID}

	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}

		// Tuple comparison is concise and efficient in Postgres
		cursorClause := `AND (transaction_date, created_at) < ($2, $3)`
		args = append(args, lastDate, lastCreatedAt)

		query := baseQuery + " " + filterClause + " " + cursorClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	} else {
		query := baseQuery + " " + filterClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	}

	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query entries for account "+accountID, err)
	}
	defer rows.Close()

	modelTxns := make([]models.Transaction, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanTransactionRow(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan entry row for account "+accountID, scanErr)
		}
		modelTxns = append(modelTxns, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating entry rows for account "+accountID, err)
	}

	// Determine the next token
	var nextTokenVal *string
	results := modelTxns
	if len(modelTxns) > limit {
		// The token points to the last item included in this response page;
		// the next query starts after it.
		lastTxn := modelTxns[limit-1]
		newToken := pagination.EncodeToken(lastTxn.TransactionDate, lastTxn.CreatedAt)
		nextTokenVal = &newToken
		results = modelTxns[:limit]
	}

	return mapping.ToDomainTransactionSlice(results), nextTokenVal, nil
}
