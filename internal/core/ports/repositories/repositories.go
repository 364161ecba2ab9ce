package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	AccountRepo     AccountRepositoryFacade
	TransactionRepo TransactionRepositoryFacade
	MemberRepo      MemberRepositoryFacade
	LoanRepo        LoanRepositoryFacade
	OutboxRepo      OutboxRepositoryFacade
	SagaRepo        SagaRepositoryFacade
	ProcessedRepo   ProcessedEventRepository
	QuarantineRepo  QuarantineRepository
}
