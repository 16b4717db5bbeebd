package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethioshop/marketplace/internal/auth/token"
	"github.com/ethioshop/marketplace/internal/cache"
	"github.com/ethioshop/marketplace/internal/notifier"
	"github.com/ethioshop/marketplace/internal/payment"
	"github.com/ethioshop/marketplace/internal/repository"
	"github.com/ethioshop/marketplace/internal/repository/memory"
	"github.com/ethioshop/marketplace/internal/service"
	"github.com/ethioshop/marketplace/internal/support/hash"
)

type testEnv struct {
	router http.Handler
	orders *memory.OrderRepo
	users  *memory.UserRepo
	tokens *token.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	orders := memory.NewOrderRepo()
	users := memory.NewUserRepo()
	notifications := memory.NewNotificationRepo()

	tokens := token.MustManager(token.Options{
		SigningKey: []byte("router-test-signing-key"),
		Issuer:     "ethioshop-test",
		TTL:        time.Hour,
	})
	store := cache.NewStore(cache.Options{DefaultTTL: time.Minute})

	gateways := payment.NewRegistry(
		payment.NewTelebirrGateway(payment.StaticPolicy(true), time.Second, nil),
		payment.NewCBEBirrGateway(payment.StaticPolicy(true), time.Second, nil),
	)
	emitter := notifier.NewStoreEmitter(notifications, nil, nil)
	metrics := service.NewMetrics(prometheus.NewRegistry())

	services := Services{
		Auth:          service.NewAuthService(users, hash.MustBcryptHasher(4), tokens, nil),
		Users:         service.NewUserService(users, nil),
		Orders:        service.NewOrderService(orders, users, emitter, nil),
		Payments:      service.NewPaymentService(orders, gateways, emitter, metrics, nil),
		Escrow:        service.NewEscrowService(orders, emitter, metrics, nil),
		Notifications: service.NewNotificationService(notifications, store, nil),
	}
	router := NewRouter(services, Config{
		Tokens:          tokens,
		Cache:           store,
		ReplayTTL:       time.Minute,
		MetricsRegistry: prometheus.NewRegistry(),
	})
	return &testEnv{router: router, orders: orders, users: users, tokens: tokens}
}

func (e *testEnv) bearerFor(t *testing.T, userID, role string) string {
	t.Helper()
	signed, _, err := e.tokens.Issue(token.IssueInput{Subject: userID, Role: role})
	require.NoError(t, err)
	return "Bearer " + signed
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func seedPendingOrder(t *testing.T, orders *memory.OrderRepo, id string) {
	t.Helper()
	orders.Seed(repository.Order{
		ID:              id,
		BuyerID:         "buyer-1",
		SellerID:        "seller-1",
		TotalCents:      250000,
		Currency:        "ETB",
		Status:          repository.OrderStatusPending,
		PaymentStatus:   repository.PaymentStatusPending,
		PaymentMethod:   repository.PaymentMethodTelebirr,
		ShippingAddress: "Bole, Addis Ababa",
		CreatedAt:       time.Now().Unix(),
	})
}

func TestRouterAuthGuard(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/orders/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/orders/", "Bearer not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCaptureEndpoint(t *testing.T) {
	env := newTestEnv(t)
	seedPendingOrder(t, env.orders, "order-1")
	bearer := env.bearerFor(t, "buyer-1", "buyer")

	body := map[string]any{
		"order_id":        "order-1",
		"amount_cents":    250000,
		"payer_reference": "+251911000000",
		"payment_method":  "telebirr",
	}
	rec := env.do(t, http.MethodPost, "/api/v1/payments/capture", bearer, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result service.CaptureResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "order-1", result.OrderID)
	assert.NotEmpty(t, result.PaymentID)

	// A second attempt loses to the committed capture.
	rec = env.do(t, http.MethodPost, "/api/v1/payments/capture", bearer, body)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestCaptureIdempotencyReplay(t *testing.T) {
	env := newTestEnv(t)
	seedPendingOrder(t, env.orders, "order-1")
	bearer := env.bearerFor(t, "buyer-1", "buyer")

	body := map[string]any{
		"order_id":        "order-1",
		"amount_cents":    250000,
		"payer_reference": "+251911000000",
		"payment_method":  "telebirr",
	}
	mkReq := func() *http.Request {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/capture", &buf)
		req.Header.Set("Authorization", bearer)
		req.Header.Set("Idempotency-Key", "client-key-42")
		return req
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, mkReq())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first service.CaptureResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, mkReq())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Idempotent-Replay"))

	var second service.CaptureResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.PaymentID, second.PaymentID)
}

func TestErrorStatusMapping(t *testing.T) {
	env := newTestEnv(t)
	seedPendingOrder(t, env.orders, "order-1")
	bearer := env.bearerFor(t, "buyer-1", "buyer")

	// Unknown order maps to 404.
	rec := env.do(t, http.MethodPost, "/api/v1/payments/refund", bearer,
		map[string]any{"order_id": "missing", "reason": "changed my mind"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Refund before payment maps to 412.
	rec = env.do(t, http.MethodPost, "/api/v1/payments/refund", bearer,
		map[string]any{"order_id": "order-1", "reason": "changed my mind"})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	// Missing method maps to 400.
	rec = env.do(t, http.MethodPost, "/api/v1/payments/capture", bearer,
		map[string]any{"order_id": "order-1", "amount_cents": 250000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Cash is pay on delivery, never chargeable.
	rec = env.do(t, http.MethodPost, "/api/v1/payments/capture", bearer,
		map[string]any{"order_id": "order-1", "amount_cents": 250000, "payer_reference": "x", "payment_method": "cash"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEscrowReleaseEndpoint(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().Unix()
	env.orders.Seed(repository.Order{
		ID:            "order-2",
		BuyerID:       "buyer-1",
		SellerID:      "seller-1",
		TotalCents:    100000,
		Currency:      "ETB",
		Status:        repository.OrderStatusDelivered,
		PaymentStatus: repository.PaymentStatusPaid,
		PaymentMethod: repository.PaymentMethodTelebirr,
		PaymentID:     "TBAAAABBBBCCCC",
		CreatedAt:     now,
		DeliveredAt:   &now,
	})
	bearer := env.bearerFor(t, "seller-1", "seller")

	rec := env.do(t, http.MethodPost, "/api/v1/payments/escrow/release", bearer,
		map[string]any{"order_id": "order-2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/payments/escrow/release", bearer,
		map[string]any{"order_id": "order-2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminGuard(t *testing.T) {
	env := newTestEnv(t)
	store := memory.NewStore()
	services := Services{
		Auth:          service.NewAuthService(env.users, hash.MustBcryptHasher(4), env.tokens, nil),
		Users:         service.NewUserService(env.users, nil),
		Orders:        service.NewOrderService(env.orders, env.users, notifier.NewLoggerEmitter(nil), nil),
		Payments:      service.NewPaymentService(env.orders, payment.NewRegistry(), notifier.NewLoggerEmitter(nil), nil, nil),
		Escrow:        service.NewEscrowService(env.orders, notifier.NewLoggerEmitter(nil), nil, nil),
		Notifications: service.NewNotificationService(memory.NewNotificationRepo(), cache.NewStore(cache.Options{}), nil),
		System:        service.NewAdminSystemService(store, nil),
	}
	router := NewRouter(services, Config{
		Tokens:          env.tokens,
		Cache:           cache.NewStore(cache.Options{}),
		MetricsRegistry: prometheus.NewRegistry(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/system/status", nil)
	req.Header.Set("Authorization", env.bearerFor(t, "buyer-1", "buyer"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/system/status", nil)
	req.Header.Set("Authorization", env.bearerFor(t, "admin-1", "admin"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
