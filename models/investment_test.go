package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvestmentTransitionsForwardOnly(t *testing.T) {
	cases := []struct {
		from    InvestmentStatus
		to      InvestmentStatus
		allowed bool
	}{
		{InvestmentPending, InvestmentPaymentConfirmed, true},
		{InvestmentPaymentConfirmed, InvestmentContractSigned, true},
		{InvestmentContractSigned, InvestmentCompleted, true},
		{InvestmentPending, InvestmentContractSigned, false},
		{InvestmentPending, InvestmentCompleted, false},
		{InvestmentPaymentConfirmed, InvestmentPending, false},
		{InvestmentContractSigned, InvestmentPaymentConfirmed, false},
		{InvestmentCompleted, InvestmentPending, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestInvestmentTransitionKeepsStatusOnFailure(t *testing.T) {
	inv := &Investment{Status: InvestmentPending}
	require.ErrorIs(t, inv.Transition(InvestmentCompleted), ErrInvalidTransition)
	require.Equal(t, InvestmentPending, inv.Status)

	require.NoError(t, inv.Transition(InvestmentPaymentConfirmed))
	require.Equal(t, InvestmentPaymentConfirmed, inv.Status)
}

func TestValidPaymentMethod(t *testing.T) {
	require.True(t, ValidPaymentMethod(PaymentMethodMobileMoney))
	require.True(t, ValidPaymentMethod(PaymentMethodBankTransfer))
	require.True(t, ValidPaymentMethod(PaymentMethodCard))
	require.False(t, ValidPaymentMethod("cash"))
	require.False(t, ValidPaymentMethod(""))
}
