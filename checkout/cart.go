package checkout

import "github.com/alovak/checkoutflow-playground/internal/money"

type CartItem[C money.Currency] struct {
	ID       string
	Name     string
	Price    money.Money[C]
	Quantity int
}

// Cart is decoded and validated upstream; the workflow only reads it.
type Cart[C money.Currency] struct {
	ID    string
	Items []CartItem[C]
}

// ItemCount is the total quantity across all lines.
func (c Cart[C]) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Subtotal is the sum of price x quantity over all lines.
func (c Cart[C]) Subtotal() money.Money[C] {
	total := money.Zero[C]()
	for _, item := range c.Items {
		total = money.Add(total, item.Price.Mul(item.Quantity))
	}
	return total
}
