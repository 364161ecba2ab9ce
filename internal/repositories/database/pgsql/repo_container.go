package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	accountRepo := newPgxAccountRepository(dbPool)
	outboxRepo := newPgxOutboxRepository(dbPool)
	transactionRepo := newPgxTransactionRepository(dbPool, accountRepo, outboxRepo)
	memberRepo := newPgxMemberRepository(dbPool, outboxRepo)
	loanRepo := newPgxLoanRepository(dbPool, accountRepo, transactionRepo, outboxRepo)
	sagaRepo := newPgxSagaRepository(dbPool, outboxRepo)
	processedRepo := newPgxProcessedEventRepository(dbPool)
	quarantineRepo := newPgxQuarantineRepository(dbPool)

	return portsrepo.RepositoryProvider{
		AccountRepo:     accountRepo,
		TransactionRepo: transactionRepo,
		MemberRepo:      memberRepo,
		LoanRepo:        loanRepo,
		OutboxRepo:      outboxRepo,
		SagaRepo:        sagaRepo,
		ProcessedRepo:   processedRepo,
		QuarantineRepo:  quarantineRepo,
	}
}
