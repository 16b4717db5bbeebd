package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethioshop/marketplace/internal/notifier"
	"github.com/ethioshop/marketplace/internal/payment"
	"github.com/ethioshop/marketplace/internal/repository"
	"github.com/ethioshop/marketplace/internal/repository/memory"
)

type recordingEmitter struct {
	mu       sync.Mutex
	requests []notifier.Request
	fail     bool
}

func (e *recordingEmitter) Emit(_ context.Context, req notifier.Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return errors.New("emitter down")
	}
	e.requests = append(e.requests, req)
	return nil
}

func (e *recordingEmitter) all() []notifier.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]notifier.Request(nil), e.requests...)
}

func testMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func testGateways(approve bool) *payment.Registry {
	return payment.NewRegistry(
		payment.NewTelebirrGateway(payment.StaticPolicy(approve), 0, nil),
		payment.NewCBEBirrGateway(payment.StaticPolicy(approve), 0, nil),
	)
}

func pendingOrder(id string) repository.Order {
	return repository.Order{
		ID:            id,
		BuyerID:       "buyer-1",
		SellerID:      "seller-1",
		TotalCents:    100000,
		Currency:      "ETB",
		Status:        repository.OrderStatusPending,
		PaymentStatus: repository.PaymentStatusPending,
		CreatedAt:     1700000000,
	}
}

func TestCapturePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("gateway success flips pending to paid and notifies the seller", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		orders.Seed(pendingOrder("o1"))
		emitter := &recordingEmitter{}
		svc := NewPaymentService(orders, testGateways(true), emitter, testMetrics(), nil)

		result, err := svc.CapturePayment(ctx, CaptureInput{
			OrderID:        "o1",
			AmountCents:    100000,
			PayerReference: "+251911223344",
			Method:         "telebirr",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.PaymentID)
		assert.False(t, result.NotifyDegraded)

		stored, ok := orders.Snapshot("o1")
		require.True(t, ok)
		assert.Equal(t, repository.PaymentStatusPaid, stored.PaymentStatus)
		assert.Equal(t, result.PaymentID, stored.PaymentID)
		require.NotNil(t, stored.PaymentCompletedAt)

		emitted := emitter.all()
		require.Len(t, emitted, 1)
		assert.Equal(t, "seller-1", emitted[0].RecipientID)
		assert.Equal(t, repository.NotificationTypePayment, emitted[0].Type)
		assert.Equal(t, "Payment Received", emitted[0].Title)
	})

	t.Run("gateway decline leaves the order untouched and emits nothing", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		orders.Seed(pendingOrder("o1"))
		emitter := &recordingEmitter{}
		svc := NewPaymentService(orders, testGateways(false), emitter, testMetrics(), nil)

		_, err := svc.CapturePayment(ctx, CaptureInput{
			OrderID:        "o1",
			AmountCents:    100000,
			PayerReference: "+251911223344",
			Method:         "telebirr",
		})
		assert.ErrorIs(t, err, ErrPaymentDeclined)

		stored, _ := orders.Snapshot("o1")
		assert.Equal(t, repository.PaymentStatusPending, stored.PaymentStatus)
		assert.Empty(t, stored.PaymentID)
		assert.Empty(t, emitter.all())
	})

	t.Run("amount mismatch is declined without a provider call", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		orders.Seed(pendingOrder("o1"))
		svc := NewPaymentService(orders, testGateways(true), &recordingEmitter{}, testMetrics(), nil)

		_, err := svc.CapturePayment(ctx, CaptureInput{
			OrderID:        "o1",
			AmountCents:    999,
			PayerReference: "+251911223344",
			Method:         "telebirr",
		})
		assert.ErrorIs(t, err, ErrPaymentDeclined)

		stored, _ := orders.Snapshot("o1")
		assert.Equal(t, repository.PaymentStatusPending, stored.PaymentStatus)
	})

	t.Run("second capture observes paid and is rejected", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		orders.Seed(pendingOrder("o1"))
		svc := NewPaymentService(orders, testGateways(true), &recordingEmitter{}, testMetrics(), nil)

		input := CaptureInput{OrderID: "o1", AmountCents: 100000, PayerReference: "+251911223344", Method: "telebirr"}
		first, err := svc.CapturePayment(ctx, input)
		require.NoError(t, err)

		_, err = svc.CapturePayment(ctx, input)
		assert.ErrorIs(t, err, ErrPreconditionFailed)

		stored, _ := orders.Snapshot("o1")
		assert.Equal(t, first.PaymentID, stored.PaymentID, "payment id must not change on the rejected attempt")
	})

	t.Run("missing fields fail with invalid argument", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		svc := NewPaymentService(orders, testGateways(true), &recordingEmitter{}, testMetrics(), nil)

		tests := []CaptureInput{
			{AmountCents: 1000, PayerReference: "x", Method: "telebirr"},
			{OrderID: "o1", PayerReference: "x", Method: "telebirr"},
			{OrderID: "o1", AmountCents: 1000, Method: "telebirr"},
			{OrderID: "o1", AmountCents: 1000, PayerReference: "x"},
			{OrderID: "o1", AmountCents: 1000, PayerReference: "x", Method: "cash"},
		}
		for _, input := range tests {
			_, err := svc.CapturePayment(ctx, input)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		}
	})

	t.Run("unknown order fails with not found", func(t *testing.T) {
		svc := NewPaymentService(memory.NewOrderRepo(), testGateways(true), &recordingEmitter{}, testMetrics(), nil)
		_, err := svc.CapturePayment(ctx, CaptureInput{
			OrderID:        "missing",
			AmountCents:    1000,
			PayerReference: "+251911",
			Method:         "telebirr",
		})
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("emit failure degrades the result but keeps the paid state", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		orders.Seed(pendingOrder("o1"))
		svc := NewPaymentService(orders, testGateways(true), &recordingEmitter{fail: true}, testMetrics(), nil)

		result, err := svc.CapturePayment(ctx, CaptureInput{
			OrderID:        "o1",
			AmountCents:    100000,
			PayerReference: "+251911223344",
			Method:         "cbe_birr",
		})
		require.NoError(t, err)
		assert.True(t, result.NotifyDegraded)

		stored, _ := orders.Snapshot("o1")
		assert.Equal(t, repository.PaymentStatusPaid, stored.PaymentStatus)
	})
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()
	orders := memory.NewOrderRepo()
	completed := int64(1700000100)
	order := pendingOrder("o1")
	order.PaymentStatus = repository.PaymentStatusPaid
	order.PaymentMethod = repository.PaymentMethodTelebirr
	order.PaymentID = "TBABC123"
	order.PaymentCompletedAt = &completed
	orders.Seed(order)

	svc := NewPaymentService(orders, testGateways(true), &recordingEmitter{}, testMetrics(), nil)

	view, err := svc.VerifyPayment(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, repository.PaymentStatusPaid, view.PaymentStatus)
	assert.Equal(t, "TBABC123", view.PaymentID)
	assert.Equal(t, repository.PaymentMethodTelebirr, view.PaymentMethod)
	require.NotNil(t, view.PaymentCompletedAt)
	assert.Equal(t, completed, *view.PaymentCompletedAt)

	_, err = svc.VerifyPayment(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.VerifyPayment(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRequestRefund(t *testing.T) {
	ctx := context.Background()

	paidOrder := func(id string) repository.Order {
		order := pendingOrder(id)
		order.PaymentStatus = repository.PaymentStatusPaid
		order.PaymentID = "TBABC123"
		return order
	}

	t.Run("refund flips paid to refunded and notifies the buyer", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		orders.Seed(paidOrder("o1"))
		emitter := &recordingEmitter{}
		svc := NewPaymentService(orders, testGateways(true), emitter, testMetrics(), nil)

		result, err := svc.RequestRefund(ctx, RefundInput{OrderID: "o1", Reason: "item damaged"})
		require.NoError(t, err)
		assert.False(t, result.NotifyDegraded)

		stored, _ := orders.Snapshot("o1")
		assert.Equal(t, repository.PaymentStatusRefunded, stored.PaymentStatus)
		assert.Equal(t, "item damaged", stored.RefundReason)
		require.NotNil(t, stored.RefundRequestedAt)

		emitted := emitter.all()
		require.Len(t, emitted, 1)
		assert.Equal(t, "buyer-1", emitted[0].RecipientID)
		assert.Equal(t, repository.NotificationTypeSystem, emitted[0].Type)
		assert.Equal(t, "Refund Initiated", emitted[0].Title)
	})

	t.Run("refund reason is stripped of markup", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		orders.Seed(paidOrder("o1"))
		svc := NewPaymentService(orders, testGateways(true), &recordingEmitter{}, testMetrics(), nil)

		_, err := svc.RequestRefund(ctx, RefundInput{OrderID: "o1", Reason: `<script>alert(1)</script>broken`})
		require.NoError(t, err)

		stored, _ := orders.Snapshot("o1")
		assert.Equal(t, "broken", stored.RefundReason)
	})

	t.Run("refund on a pending order fails the precondition and mutates nothing", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		orders.Seed(pendingOrder("o1"))
		svc := NewPaymentService(orders, testGateways(true), &recordingEmitter{}, testMetrics(), nil)

		_, err := svc.RequestRefund(ctx, RefundInput{OrderID: "o1", Reason: "changed my mind"})
		assert.ErrorIs(t, err, ErrPreconditionFailed)

		stored, _ := orders.Snapshot("o1")
		assert.Equal(t, repository.PaymentStatusPending, stored.PaymentStatus)
		assert.Empty(t, stored.RefundReason)
	})

	t.Run("refund is terminal and a second request reports already refunded", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		orders.Seed(paidOrder("o1"))
		svc := NewPaymentService(orders, testGateways(true), &recordingEmitter{}, testMetrics(), nil)

		_, err := svc.RequestRefund(ctx, RefundInput{OrderID: "o1", Reason: "first"})
		require.NoError(t, err)

		_, err = svc.RequestRefund(ctx, RefundInput{OrderID: "o1", Reason: "second"})
		assert.ErrorIs(t, err, ErrAlreadyRefunded)

		stored, _ := orders.Snapshot("o1")
		assert.Equal(t, "first", stored.RefundReason)
	})

	t.Run("refund after escrow release is blocked", func(t *testing.T) {
		orders := memory.NewOrderRepo()
		order := paidOrder("o1")
		order.Status = repository.OrderStatusDelivered
		order.EscrowReleased = true
		orders.Seed(order)
		svc := NewPaymentService(orders, testGateways(true), &recordingEmitter{}, testMetrics(), nil)

		_, err := svc.RequestRefund(ctx, RefundInput{OrderID: "o1", Reason: "too late"})
		assert.ErrorIs(t, err, ErrPreconditionFailed)
	})
}
