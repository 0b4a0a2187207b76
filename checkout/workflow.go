package checkout

import (
	"context"
	"errors"

	"github.com/alovak/checkoutflow-playground/internal/money"
	"github.com/alovak/checkoutflow-playground/payment"
	"golang.org/x/exp/slog"
)

// DiscountPolicy takes Percent off the total when the cart holds strictly
// more than MinItems items.
type DiscountPolicy struct {
	MinItems int
	Percent  int64
}

func DefaultDiscountPolicy() DiscountPolicy {
	return DiscountPolicy{MinItems: 5, Percent: 10}
}

// Applies reports whether itemCount qualifies for the discount.
func (p DiscountPolicy) Applies(itemCount int) bool {
	return p.Percent > 0 && itemCount > p.MinItems
}

// Observer is notified once per Run.
type Observer interface {
	Discounted()
	Outcome(status Status)
}

// Workflow prices a cart and charges it through a payment capability.
// It holds no per-checkout state and is safe for concurrent use.
type Workflow[C money.Currency] struct {
	payments payment.Capability[C]
	policy   DiscountPolicy
	logger   *slog.Logger
	observer Observer
}

type Option[C money.Currency] func(*Workflow[C])

func WithPolicy[C money.Currency](p DiscountPolicy) Option[C] {
	return func(w *Workflow[C]) { w.policy = p }
}

func WithLogger[C money.Currency](l *slog.Logger) Option[C] {
	return func(w *Workflow[C]) { w.logger = l }
}

func WithObserver[C money.Currency](o Observer) Option[C] {
	return func(w *Workflow[C]) { w.observer = o }
}

func NewWorkflow[C money.Currency](payments payment.Capability[C], opts ...Option[C]) *Workflow[C] {
	w := &Workflow[C]{
		payments: payments,
		policy:   DefaultDiscountPolicy(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Quote prices the cart without charging it.
func (w *Workflow[C]) Quote(cart Cart[C]) Quote[C] {
	q := Quote[C]{
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal(),
		Discount:  money.Zero[C](),
	}
	q.Total = q.Subtotal
	if w.policy.Applies(q.ItemCount) {
		q.Discounted = true
		q.Total = q.Subtotal.Percent(100 - w.policy.Percent)
		q.Discount = q.Subtotal.Sub(q.Total)
	}
	return q
}

// Run prices the cart and charges the total once. On failure the returned
// error is the *payment.Failure produced by the capability, unchanged, and
// the Outcome carries the same value.
func (w *Workflow[C]) Run(ctx context.Context, cart Cart[C]) (Outcome[C], error) {
	q := w.Quote(cart)
	if q.Discounted && w.observer != nil {
		w.observer.Discounted()
	}

	if cart.ID != "" && payment.ReferenceFrom(ctx) == "" {
		ctx = payment.WithReference(ctx, cart.ID)
	}

	if err := w.payments.Charge(ctx, q.Total); err != nil {
		failure := asFailure(err)
		w.log(ctx, "checkout failed", slog.String("cart_id", cart.ID), slog.String("amount", money.Format(q.Total)), slog.String("reason", failure.Message))
		w.notify(StatusFailed)
		return Outcome[C]{Status: StatusFailed, Failure: failure}, failure
	}

	w.log(ctx, "checkout succeeded", slog.String("cart_id", cart.ID), slog.Int("items", q.ItemCount), slog.String("amount", money.Format(q.Total)))
	w.notify(StatusSuccess)
	return Outcome[C]{Status: StatusSuccess, Amount: q.Total}, nil
}

// asFailure keeps a *payment.Failure as is and converts anything else.
func asFailure(err error) *payment.Failure {
	if f, ok := err.(*payment.Failure); ok {
		return f
	}
	var f *payment.Failure
	if errors.As(err, &f) {
		return f
	}
	return &payment.Failure{Message: err.Error()}
}

func (w *Workflow[C]) log(ctx context.Context, msg string, attrs ...slog.Attr) {
	if w.logger == nil {
		return
	}
	w.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (w *Workflow[C]) notify(s Status) {
	if w.observer != nil {
		w.observer.Outcome(s)
	}
}
