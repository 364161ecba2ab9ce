package services

import (
	"fmt"

	portsrepo "github.com/wekeza-tech/coopcore/internal/core/ports/repositories"
	portssvc "github.com/wekeza-tech/coopcore/internal/core/ports/services"
	"github.com/wekeza-tech/coopcore/internal/platform/config"
)

// workflowAttacher is the post-construction hook the loan service exposes so
// the loan/coordinator reference cycle can be closed after both exist.
type workflowAttacher interface {
	AttachWorkflowCoordinator(saga portssvc.SagaCoordinatorSvc)
}

// NewServiceContainer wires the application services over the repository
// provider. The schema gate is built first since every emitting service
// depends on it; compilation failure there aborts startup.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) (*portssvc.ServiceContainer, error) {
	container := &portssvc.ServiceContainer{}

	schemaSvc, err := NewSchemaService(repos.QuarantineRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to build schema gate: %w", err)
	}
	container.Schema = schemaSvc

	container.Member = NewMemberService(repos.MemberRepo, schemaSvc)
	container.Account = NewAccountService(repos.AccountRepo, repos.MemberRepo)
	container.Ledger = NewLedgerService(repos.AccountRepo, repos.TransactionRepo, schemaSvc)

	// The loan service and the coordinator reference each other: loans start
	// workflows, workflow effects drive loan transitions. Build the loan
	// service without the coordinator, then attach it.
	container.Loan = NewLoanService(repos.LoanRepo, repos.AccountRepo, repos.MemberRepo, schemaSvc)

	container.Saga = NewSagaService(
		repos.SagaRepo,
		container.Loan,
		container.Ledger,
		schemaSvc,
		cfg.SagaDefaultTimeout,
	)

	container.Loan.(workflowAttacher).AttachWorkflowCoordinator(container.Saga)

	container.OutboxAdmin = NewOutboxAdminService(repos.OutboxRepo, repos.QuarantineRepo)

	return container, nil
}
