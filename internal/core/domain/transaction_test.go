package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wekeza-tech/coopcore/internal/core/domain"
)

func TestTransaction_IsReversal(t *testing.T) {
	tests := []struct {
		name string
		tx   domain.Transaction
		want bool
	}{
		{
			name: "original entry",
			tx:   domain.Transaction{TransactionID: "txn-1"},
			want: false,
		},
		{
			name: "reversal entry references original",
			tx:   domain.Transaction{TransactionID: "txn-2", OriginalTransactionID: "txn-1"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tx.IsReversal())
		})
	}
}

func TestAccountType_DebitNormal(t *testing.T) {
	tests := []struct {
		name        string
		accountType domain.AccountType
		want        bool
	}{
		{name: "savings is credit normal", accountType: domain.AccountTypeSavings, want: false},
		{name: "loan is debit normal", accountType: domain.AccountTypeLoan, want: true},
		{name: "cash GL is debit normal", accountType: domain.AccountTypeGLCash, want: true},
		{name: "interest GL is credit normal", accountType: domain.AccountTypeGLIncome, want: false},
		{name: "fees GL is credit normal", accountType: domain.AccountTypeGLFees, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.accountType.DebitNormal())
		})
	}
}
