package accounting

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

// CalculateSignedAmount applies the correct sign to an entry amount based on
// the account's normal side. Used in both services and repositories so the
// accounting convention lives in one place.
//
// DEBIT to a debit-normal account (LOAN, GL_CASH) -> Positive (+)
// CREDIT to a debit-normal account -> Negative (-)
// DEBIT to a credit-normal account (SAVINGS, GL_INTEREST, GL_FEES) -> Negative (-)
// CREDIT to a credit-normal account -> Positive (+)
func CalculateSignedAmount(txn domain.Transaction, accountType domain.AccountType) (decimal.Decimal, error) {
	switch accountType {
	case domain.AccountTypeSavings, domain.AccountTypeLoan, domain.AccountTypeGLCash,
		domain.AccountTypeGLIncome, domain.AccountTypeGLFees:
	default:
		return decimal.Zero, fmt.Errorf("unknown account type %q for account %s", accountType, txn.AccountID)
	}

	signedAmount := txn.Amount
	isDebit := txn.EntrySide == domain.Debit

	if accountType.DebitNormal() {
		if !isDebit {
			signedAmount = signedAmount.Neg()
		}
	} else {
		if isDebit {
			signedAmount = signedAmount.Neg()
		}
	}
	return signedAmount, nil
}

// ValidateBalancedEntries checks that a multi-leg posting balances to zero
// when each entry is signed by its side alone (debits positive, credits
// negative). This is the double-entry law for transfers and GL postings.
func ValidateBalancedEntries(transactions []domain.Transaction) error {
	if len(transactions) < 2 {
		return fmt.Errorf("posting must have at least two entries")
	}

	zero := decimal.NewFromInt(0)
	sum := zero

	for _, txn := range transactions {
		if txn.Amount.LessThanOrEqual(zero) {
			return fmt.Errorf("entry amount must be positive for transaction %s", txn.TransactionID)
		}

		switch txn.EntrySide {
		case domain.Debit:
			sum = sum.Add(txn.Amount)
		case domain.Credit:
			sum = sum.Sub(txn.Amount)
		default:
			return fmt.Errorf("unknown entry side %q for transaction %s", txn.EntrySide, txn.TransactionID)
		}
	}

	if !sum.Equal(zero) {
		return fmt.Errorf("entries do not balance to zero: sum is %s", sum.String())
	}

	return nil
}
