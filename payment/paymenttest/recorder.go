// Package paymenttest provides an in-memory payment capability for tests.
package paymenttest

import (
	"context"
	"sync"

	"github.com/alovak/checkoutflow-playground/internal/money"
	"github.com/alovak/checkoutflow-playground/payment"
)

// Charge is a recorded call.
type Charge[C money.Currency] struct {
	Reference string
	Amount    money.Money[C]
}

// Recorder records every charge request and never leaves the process.
// By default it approves everything.
type Recorder[C money.Currency] struct {
	mu      sync.Mutex
	charges []Charge[C]
	failure *payment.Failure
}

func NewRecorder[C money.Currency]() *Recorder[C] {
	return &Recorder[C]{}
}

// Failing returns a Recorder that declines every charge with msg.
func Failing[C money.Currency](msg string) *Recorder[C] {
	r := NewRecorder[C]()
	r.FailWith(msg)
	return r
}

// FailWith makes subsequent charges return a Failure with msg.
func (r *Recorder[C]) FailWith(msg string) *payment.Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure = &payment.Failure{Message: msg}
	return r.failure
}

// Failure returns the configured failure, or nil.
func (r *Recorder[C]) Failure() *payment.Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failure
}

func (r *Recorder[C]) Charge(ctx context.Context, amount money.Money[C]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.charges = append(r.charges, Charge[C]{Reference: payment.ReferenceFrom(ctx), Amount: amount})
	if r.failure != nil {
		return r.failure
	}
	return nil
}

// Charges returns a copy of the recorded calls.
func (r *Recorder[C]) Charges() []Charge[C] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Charge[C], len(r.charges))
	copy(out, r.charges)
	return out
}
