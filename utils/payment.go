package utils

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Mock payment gateway. It stands in for the local PSPs (mobile money, bank
// transfer, card) until a real integration lands: every positive-amount
// payment is approved after a short simulated delay. The delay honors context
// cancellation so request timeouts propagate into the adapter.

type PaymentRequest struct {
	InvestmentID string
	Amount       decimal.Decimal
	Method       string
}

type PaymentResult struct {
	Reference   string
	RedirectURL string
}

func simulatedDelay() time.Duration {
	ms := 150
	if s := os.Getenv("PAYMENT_SIM_DELAY_MS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			ms = v
		}
	}
	return time.Duration(ms) * time.Millisecond
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GeneratePaymentReference returns a unique reference in the form
// PAY-YYYYMMDD-XXXXXX.
func GeneratePaymentReference() (string, error) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 6)
	for i := range buf {
		out[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return fmt.Sprintf("PAY-%s-%s", time.Now().UTC().Format("20060102"), string(out)), nil
}

// ProcessPayment simulates initiating a payment with the provider. It fails
// for non-positive amounts and performs no mutation of any kind, so a failure
// leaves the caller's state untouched.
func ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if err := sleepCtx(ctx, simulatedDelay()); err != nil {
		return nil, UpstreamError("payment gateway unavailable: " + err.Error())
	}
	if !req.Amount.IsPositive() {
		return nil, ValidationError("invalid payment amount")
	}
	ref, err := GeneratePaymentReference()
	if err != nil {
		return nil, UpstreamError("failed to allocate payment reference")
	}
	return &PaymentResult{
		Reference:   ref,
		RedirectURL: fmt.Sprintf("/investment/%s/confirm?ref=%s", req.InvestmentID, ref),
	}, nil
}

// VerifyPayment simulates querying the provider for transaction status. Any
// reference issued by this gateway verifies successfully.
func VerifyPayment(ctx context.Context, reference string) (bool, error) {
	if err := sleepCtx(ctx, simulatedDelay()/2); err != nil {
		return false, UpstreamError("payment gateway unavailable: " + err.Error())
	}
	return strings.HasPrefix(reference, "PAY-"), nil
}
