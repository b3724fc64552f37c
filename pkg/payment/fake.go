package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/storefront/pkg/apperr"
)

// FakeGateway is an in-process Gateway used in development and tests.
// Intents start in requires_payment_method; tests move them along with
// SetStatus.
type FakeGateway struct {
	mu          sync.Mutex
	intents     map[string]*Intent
	byKey       map[string]string
	unavailable bool
	calls       map[string]int
}

func NewFake() *FakeGateway {
	return &FakeGateway{
		intents: make(map[string]*Intent),
		byKey:   make(map[string]string),
		calls:   make(map[string]int),
	}
}

func (f *FakeGateway) CreateIntent(_ context.Context, p CreateParams) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++

	if f.unavailable {
		return nil, apperr.Upstream(errors.New("connection refused"), "payment provider unavailable")
	}
	if p.Amount <= 0 {
		return nil, apperr.InvalidArgument("amount must be positive")
	}
	if p.IdempotencyKey != "" {
		if id, ok := f.byKey[p.IdempotencyKey]; ok {
			return clone(f.intents[id]), nil
		}
	}

	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	in := &Intent{
		ID:           id,
		ClientSecret: fmt.Sprintf("%s_secret_%s", id, uuid.NewString()[:8]),
		Amount:       p.Amount,
		Currency:     p.Currency,
		Status:       StatusRequiresPaymentMethod,
		Metadata:     make(map[string]string, len(p.Metadata)),
	}
	for k, v := range p.Metadata {
		in.Metadata[k] = v
	}
	f.intents[id] = in
	if p.IdempotencyKey != "" {
		f.byKey[p.IdempotencyKey] = id
	}
	return clone(in), nil
}

func (f *FakeGateway) RetrieveIntent(_ context.Context, id string) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["retrieve"]++

	if f.unavailable {
		return nil, apperr.Upstream(errors.New("connection refused"), "payment provider unavailable")
	}
	in, ok := f.intents[id]
	if !ok {
		return nil, apperr.NotFound("Payment intent not found")
	}
	return clone(in), nil
}

func (f *FakeGateway) CancelIntent(_ context.Context, id string) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["cancel"]++

	if f.unavailable {
		return nil, apperr.Upstream(errors.New("connection refused"), "payment provider unavailable")
	}
	in, ok := f.intents[id]
	if !ok {
		return nil, apperr.NotFound("Payment intent not found")
	}
	if in.Status == StatusSucceeded {
		return nil, apperr.InvalidArgument("cannot cancel a succeeded payment intent")
	}
	in.Status = StatusCanceled
	return clone(in), nil
}

// SetStatus moves an intent to status, as the shopper's client would.
func (f *FakeGateway) SetStatus(id string, status Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in, ok := f.intents[id]; ok {
		in.Status = status
	}
}

// Succeed marks id as paid.
func (f *FakeGateway) Succeed(id string) { f.SetStatus(id, StatusSucceeded) }

// SetUnavailable makes every call fail as if the provider were down.
func (f *FakeGateway) SetUnavailable(down bool) {
	f.mu.Lock()
	f.unavailable = down
	f.mu.Unlock()
}

// Calls returns how many times op (create, retrieve, cancel) was invoked.
func (f *FakeGateway) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func clone(in *Intent) *Intent {
	out := *in
	out.Metadata = make(map[string]string, len(in.Metadata))
	for k, v := range in.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
