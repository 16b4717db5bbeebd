package payment

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethioshop/marketplace/internal/repository"
)

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry(
		NewTelebirrGateway(StaticPolicy(true), 0, nil),
		NewCBEBirrGateway(StaticPolicy(true), 0, nil),
	)

	tests := []struct {
		name    string
		method  string
		wantErr error
	}{
		{name: "telebirr", method: "telebirr"},
		{name: "cbe birr", method: "cbe_birr"},
		{name: "uppercase is normalized", method: "TELEBIRR"},
		{name: "cash is not chargeable", method: "cash", wantErr: ErrUnsupportedMethod},
		{name: "unknown method", method: "paypal", wantErr: ErrUnsupportedMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, err := registry.Resolve(tt.method)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, gw)
		})
	}
}

func TestTelebirrCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("approved charge returns TB receipt", func(t *testing.T) {
		gw := NewTelebirrGateway(StaticPolicy(true), time.Second, nil)
		result, err := gw.Charge(ctx, ChargeRequest{
			OrderID:        "o1",
			AmountCents:    150000,
			PayerReference: "+251911223344",
			Method:         repository.PaymentMethodTelebirr,
		})
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.True(t, strings.HasPrefix(result.ProviderTxnID, "TB"))
	})

	t.Run("rejected charge carries a reason and no txn id", func(t *testing.T) {
		gw := NewTelebirrGateway(StaticPolicy(false), time.Second, nil)
		result, err := gw.Charge(ctx, ChargeRequest{
			OrderID:        "o1",
			AmountCents:    150000,
			PayerReference: "+251911223344",
		})
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Empty(t, result.ProviderTxnID)
		assert.NotEmpty(t, result.Reason)
	})

	t.Run("non positive amount is rejected before the provider call", func(t *testing.T) {
		gw := NewTelebirrGateway(StaticPolicy(true), time.Second, nil)
		result, err := gw.Charge(ctx, ChargeRequest{OrderID: "o1", AmountCents: 0, PayerReference: "+251911"})
		require.NoError(t, err)
		assert.False(t, result.OK)
	})

	t.Run("missing payer reference is rejected", func(t *testing.T) {
		gw := NewTelebirrGateway(StaticPolicy(true), time.Second, nil)
		result, err := gw.Charge(ctx, ChargeRequest{OrderID: "o1", AmountCents: 1000})
		require.NoError(t, err)
		assert.False(t, result.OK)
	})

	t.Run("expired context fails closed as a rejection", func(t *testing.T) {
		gw := NewTelebirrGateway(StaticPolicy(true), time.Second, nil)
		expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()
		result, err := gw.Charge(expired, ChargeRequest{OrderID: "o1", AmountCents: 1000, PayerReference: "+251911"})
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Equal(t, "provider timeout", result.Reason)
	})
}

func TestCBEBirrChargePrefix(t *testing.T) {
	gw := NewCBEBirrGateway(StaticPolicy(true), time.Second, nil)
	result, err := gw.Charge(context.Background(), ChargeRequest{
		OrderID:        "o2",
		AmountCents:    9900,
		PayerReference: "1000123456789",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, strings.HasPrefix(result.ProviderTxnID, "CBE"))
}

func TestRatePolicyBounds(t *testing.T) {
	always := NewRatePolicy(100, rand.NewSource(1))
	never := NewRatePolicy(0, rand.NewSource(1))
	for i := 0; i < 50; i++ {
		assert.True(t, always.Approve())
		assert.False(t, never.Approve())
	}
}
