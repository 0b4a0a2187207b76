package checkout

import (
	"github.com/alovak/checkoutflow-playground/internal/money"
	"github.com/alovak/checkoutflow-playground/payment"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Outcome is the terminal result of one checkout. Amount is set on success,
// Failure on failure.
type Outcome[C money.Currency] struct {
	Status  Status
	Amount  money.Money[C]
	Failure *payment.Failure
}

func (o Outcome[C]) Succeeded() bool { return o.Status == StatusSuccess }

// Quote is the priced cart before payment.
type Quote[C money.Currency] struct {
	ItemCount  int
	Subtotal   money.Money[C]
	Discount   money.Money[C]
	Total      money.Money[C]
	Discounted bool
}
