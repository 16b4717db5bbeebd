package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ethioshop/marketplace/internal/repository"
)

// CBEBirrGateway simulates the CBE Birr mobile-money provider.
type CBEBirrGateway struct {
	policy  OutcomePolicy
	timeout time.Duration
	logger  *slog.Logger
}

// NewCBEBirrGateway builds the CBE Birr simulator.
func NewCBEBirrGateway(policy OutcomePolicy, timeout time.Duration, logger *slog.Logger) *CBEBirrGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &CBEBirrGateway{policy: policy, timeout: timeout, logger: logger}
}

func (g *CBEBirrGateway) Name() string { return repository.PaymentMethodCBEBirr }

// Charge runs one simulated CBE Birr charge with a CBE-prefixed receipt id.
func (g *CBEBirrGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.AmountCents <= 0 {
		return &ChargeResult{OK: false, Reason: "amount must be positive"}, nil
	}
	if strings.TrimSpace(req.PayerReference) == "" {
		return &ChargeResult{OK: false, Reason: "payer account required"}, nil
	}
	return chargeWithTimeout(ctx, g.timeout, func(ctx context.Context) (*ChargeResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !g.policy.Approve() {
			g.logger.Info("cbe birr charge declined", "order_id", req.OrderID, "amount_cents", req.AmountCents)
			return &ChargeResult{OK: false, Reason: "cbe birr rejected the charge"}, nil
		}
		txn := fmt.Sprintf("CBE%s", strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12]))
		g.logger.Info("cbe birr charge approved", "order_id", req.OrderID, "txn_id", txn)
		return &ChargeResult{OK: true, ProviderTxnID: txn}, nil
	})
}
