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

// TelebirrGateway simulates the telebirr mobile-money provider.
type TelebirrGateway struct {
	policy  OutcomePolicy
	timeout time.Duration
	logger  *slog.Logger
}

// NewTelebirrGateway builds the telebirr simulator.
func NewTelebirrGateway(policy OutcomePolicy, timeout time.Duration, logger *slog.Logger) *TelebirrGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelebirrGateway{policy: policy, timeout: timeout, logger: logger}
}

func (g *TelebirrGateway) Name() string { return repository.PaymentMethodTelebirr }

// Charge runs one simulated telebirr charge. Approved charges get a
// TB-prefixed transaction id matching the provider's receipt format.
func (g *TelebirrGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.AmountCents <= 0 {
		return &ChargeResult{OK: false, Reason: "amount must be positive"}, nil
	}
	if strings.TrimSpace(req.PayerReference) == "" {
		return &ChargeResult{OK: false, Reason: "payer phone number required"}, nil
	}
	return chargeWithTimeout(ctx, g.timeout, func(ctx context.Context) (*ChargeResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !g.policy.Approve() {
			g.logger.Info("telebirr charge declined", "order_id", req.OrderID, "amount_cents", req.AmountCents)
			return &ChargeResult{OK: false, Reason: "telebirr rejected the charge"}, nil
		}
		txn := fmt.Sprintf("TB%s", strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12]))
		g.logger.Info("telebirr charge approved", "order_id", req.OrderID, "txn_id", txn)
		return &ChargeResult{OK: true, ProviderTxnID: txn}, nil
	})
}
