package payment

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ChargeRequest carries everything a provider needs for one charge attempt.
type ChargeRequest struct {
	OrderID        string
	AmountCents    int64
	PayerReference string
	Method         string
}

// ChargeResult is the provider outcome. OK false means the charge was
// rejected; ProviderTxnID is set only on success.
type ChargeResult struct {
	OK            bool
	ProviderTxnID string
	Reason        string
}

// Gateway abstracts a mobile-money provider. Implementations must issue at
// most one provider call per Charge invocation; retry is the caller's
// responsibility.
type Gateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// ErrUnsupportedMethod reports a payment method no gateway handles.
var ErrUnsupportedMethod = errors.New("payment: unsupported method")

// Registry resolves the gateway for a payment method.
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry builds a registry keyed by each gateway's Name.
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[strings.ToLower(g.Name())] = g
	}
	return r
}

// Resolve returns the gateway registered for method.
func (r *Registry) Resolve(method string) (Gateway, error) {
	g, ok := r.gateways[strings.ToLower(strings.TrimSpace(method))]
	if !ok {
		return nil, ErrUnsupportedMethod
	}
	return g, nil
}

// Methods lists the registered method names.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}

// chargeWithTimeout runs the provider simulation under a deadline. An
// expired deadline fails closed as a rejection, never as an ambiguous
// success.
func chargeWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) (*ChargeResult, error)) (*ChargeResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := fn(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ChargeResult{OK: false, Reason: "provider timeout"}, nil
		}
		return nil, err
	}
	return result, nil
}
