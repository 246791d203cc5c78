package utils

import (
	"context"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestGeneratePaymentReferenceFormat(t *testing.T) {
	re := regexp.MustCompile(`^PAY-\d{8}-[A-Z0-9]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ref, err := GeneratePaymentReference()
		require.NoError(t, err)
		require.Regexp(t, re, ref)
		seen[ref] = true
	}
	// 50 draws from a 36^6 space should never collide
	require.Len(t, seen, 50)
}

func TestProcessPaymentRejectsNonPositiveAmount(t *testing.T) {
	t.Setenv("PAYMENT_SIM_DELAY_MS", "0")

	for _, amount := range []string{"0", "-10.00"} {
		d, err := decimal.NewFromString(amount)
		require.NoError(t, err)
		_, err = ProcessPayment(context.Background(), PaymentRequest{InvestmentID: "i1", Amount: d})
		require.Error(t, err)
		appErr, ok := err.(*AppError)
		require.True(t, ok)
		require.Equal(t, KindValidation, appErr.Kind)
	}
}

func TestProcessPaymentHonorsCancellation(t *testing.T) {
	t.Setenv("PAYMENT_SIM_DELAY_MS", "5000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ProcessPayment(ctx, PaymentRequest{InvestmentID: "i1", Amount: decimal.NewFromInt(100)})
	require.Error(t, err)
	appErr, ok := err.(*AppError)
	require.True(t, ok)
	require.Equal(t, KindUpstream, appErr.Kind)
}

func TestProcessPaymentSuccess(t *testing.T) {
	t.Setenv("PAYMENT_SIM_DELAY_MS", "0")

	res, err := ProcessPayment(context.Background(), PaymentRequest{
		InvestmentID: "inv-42",
		Amount:       decimal.NewFromInt(500),
		Method:       "mobile_money",
	})
	require.NoError(t, err)
	require.Regexp(t, `^PAY-`, res.Reference)
	require.Contains(t, res.RedirectURL, "inv-42")
	require.Contains(t, res.RedirectURL, res.Reference)
}

func TestVerifyPayment(t *testing.T) {
	t.Setenv("PAYMENT_SIM_DELAY_MS", "0")

	ok, err := VerifyPayment(context.Background(), "PAY-20250601-ABC123")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPayment(context.Background(), "TXN-123")
	require.NoError(t, err)
	require.False(t, ok)
}
