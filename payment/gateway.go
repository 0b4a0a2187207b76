package payment

import (
	"context"
	"time"

	"github.com/alovak/checkoutflow-playground/internal/journal"
	"github.com/alovak/checkoutflow-playground/internal/money"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Journal stores charge attempts.
type Journal interface {
	Record(ctx context.Context, a *journal.Attempt) error
}

// DevGateway simulates a card gateway. It logs and journals every attempt
// and approves it, unless DeclineAbove is set and the amount exceeds it.
type DevGateway[C money.Currency] struct {
	logger       *slog.Logger
	journal      Journal
	declineAbove *money.Money[C]
	now          func() time.Time
}

type GatewayOption[C money.Currency] func(*DevGateway[C])

// WithDeclineAbove makes the gateway decline amounts strictly greater than limit.
func WithDeclineAbove[C money.Currency](limit money.Money[C]) GatewayOption[C] {
	return func(g *DevGateway[C]) { g.declineAbove = &limit }
}

// WithClock overrides the attempt timestamp source.
func WithClock[C money.Currency](now func() time.Time) GatewayOption[C] {
	return func(g *DevGateway[C]) { g.now = now }
}

// NewDevGateway returns a gateway that records into j. j may be nil.
func NewDevGateway[C money.Currency](logger *slog.Logger, j Journal, opts ...GatewayOption[C]) *DevGateway[C] {
	g := &DevGateway[C]{
		logger:  logger.With(slog.String("component", "dev-gateway")),
		journal: j,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *DevGateway[C]) Charge(ctx context.Context, amount money.Money[C]) error {
	ref := ReferenceFrom(ctx)

	var failure *Failure
	switch {
	case ctx.Err() != nil:
		failure = Declined("charge cancelled: %v", ctx.Err())
	case g.declineAbove != nil && amount.Cmp(*g.declineAbove) > 0:
		failure = Declined("card declined: %s exceeds limit %s", amount, *g.declineAbove)
	}

	attempt := &journal.Attempt{
		ID:        uuid.New().String(),
		Reference: ref,
		Amount:    amount.Decimal().String(),
		Currency:  amount.Currency().String(),
		Status:    journal.StatusApproved,
		CreatedAt: g.now().UTC(),
	}
	if failure != nil {
		attempt.Status = journal.StatusDeclined
		attempt.Message = failure.Message
	}

	g.logger.Info("charging card",
		slog.String("reference", ref),
		slog.String("amount", money.Format(amount)),
		slog.String("status", string(attempt.Status)),
	)

	if g.journal != nil {
		// cancelled attempts are still journaled
		jctx := ctx
		if ctx.Err() != nil {
			var cancel context.CancelFunc
			jctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
		}
		if err := g.journal.Record(jctx, attempt); err != nil {
			g.logger.Error("recording charge attempt", slog.String("attempt_id", attempt.ID), slog.Any("err", err))
		}
	}

	if failure != nil {
		return failure
	}
	return nil
}

// Instrumented reports charge latency and result for an inner capability.
type Instrumented[C money.Currency] struct {
	inner   Capability[C]
	observe func(result string, d time.Duration)
}

// Instrument wraps inner. observe receives "approved" or "declined".
func Instrument[C money.Currency](inner Capability[C], observe func(result string, d time.Duration)) *Instrumented[C] {
	return &Instrumented[C]{inner: inner, observe: observe}
}

func (i *Instrumented[C]) Charge(ctx context.Context, amount money.Money[C]) error {
	start := time.Now()
	err := i.inner.Charge(ctx, amount)
	result := "approved"
	if err != nil {
		result = "declined"
	}
	if i.observe != nil {
		i.observe(result, time.Since(start))
	}
	return err
}
