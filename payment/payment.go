// Package payment defines the charge capability used by checkout and its
// non-test implementations.
package payment

import (
	"context"
	"fmt"

	"github.com/alovak/checkoutflow-playground/internal/money"
)

// Capability charges an amount. Implementations report any reason the charge
// could not complete as a *Failure.
type Capability[C money.Currency] interface {
	Charge(ctx context.Context, amount money.Money[C]) error
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc[C money.Currency] func(ctx context.Context, amount money.Money[C]) error

func (f CapabilityFunc[C]) Charge(ctx context.Context, amount money.Money[C]) error {
	return f(ctx, amount)
}

// Failure is the single reason a charge did not complete.
type Failure struct {
	Message string
}

func (f *Failure) Error() string { return f.Message }

// Declined returns a Failure with a formatted message.
func Declined(format string, args ...any) *Failure {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}

type referenceKey struct{}

// WithReference attaches a charge reference (usually the cart ID) to ctx.
func WithReference(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, referenceKey{}, ref)
}

// ReferenceFrom returns the charge reference stored in ctx, if any.
func ReferenceFrom(ctx context.Context) string {
	ref, _ := ctx.Value(referenceKey{}).(string)
	return ref
}
