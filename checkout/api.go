package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/alovak/checkoutflow-playground/internal/journal"
	"github.com/alovak/checkoutflow-playground/internal/money"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ChargeLister lists journaled charge attempts.
type ChargeLister interface {
	List(ctx context.Context, reference string) ([]*journal.Attempt, error)
}

// API is a HTTP API for the checkout workflow
type API[C money.Currency] struct {
	workflow *Workflow[C]
	charges  ChargeLister
}

// NewAPI returns the API. charges may be nil, in which case /charges is not mounted.
func NewAPI[C money.Currency](workflow *Workflow[C], charges ChargeLister) *API[C] {
	return &API[C]{
		workflow: workflow,
		charges:  charges,
	}
}

func (a *API[C]) AppendRoutes(r chi.Router) {
	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", a.checkout)
		r.Post("/quote", a.quote)
	})
	if a.charges != nil {
		r.Get("/charges", a.listCharges)
	}
}

type CartItemRequest[C money.Currency] struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    *money.Money[C] `json:"price"`
	Quantity *int            `json:"quantity"`
}

type CartRequest[C money.Currency] struct {
	ID    string               `json:"id"`
	Items []CartItemRequest[C] `json:"items"`
}

// Cart validates the request shape and builds the domain cart. A missing
// cart id is generated.
func (req CartRequest[C]) Cart() (Cart[C], error) {
	cart := Cart[C]{ID: req.ID, Items: make([]CartItem[C], 0, len(req.Items))}
	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	for i, item := range req.Items {
		switch {
		case item.ID == "":
			return Cart[C]{}, fmt.Errorf("items[%d].id is required", i)
		case item.Price == nil:
			return Cart[C]{}, fmt.Errorf("items[%d].price is required", i)
		case item.Price.IsNegative():
			return Cart[C]{}, fmt.Errorf("items[%d].price must not be negative", i)
		case item.Quantity == nil:
			return Cart[C]{}, fmt.Errorf("items[%d].quantity is required", i)
		case *item.Quantity < 0:
			return Cart[C]{}, fmt.Errorf("items[%d].quantity must not be negative", i)
		}
		cart.Items = append(cart.Items, CartItem[C]{
			ID:       item.ID,
			Name:     item.Name,
			Price:    *item.Price,
			Quantity: *item.Quantity,
		})
	}
	return cart, nil
}

type OutcomeResponse[C money.Currency] struct {
	CartID    string          `json:"cart_id"`
	Status    Status          `json:"status"`
	Amount    *money.Money[C] `json:"amount,omitempty"`
	Formatted string          `json:"formatted,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type QuoteResponse[C money.Currency] struct {
	CartID     string         `json:"cart_id"`
	ItemCount  int            `json:"item_count"`
	Subtotal   money.Money[C] `json:"subtotal"`
	Discount   money.Money[C] `json:"discount"`
	Total      money.Money[C] `json:"total"`
	Discounted bool           `json:"discounted"`
	Formatted  string         `json:"formatted"`
}

func (a *API[C]) decodeCart(w http.ResponseWriter, r *http.Request) (Cart[C], bool) {
	var req CartRequest[C]
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return Cart[C]{}, false
	}
	cart, err := req.Cart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return Cart[C]{}, false
	}
	return cart, true
}

func (a *API[C]) checkout(w http.ResponseWriter, r *http.Request) {
	cart, ok := a.decodeCart(w, r)
	if !ok {
		return
	}

	outcome, err := a.workflow.Run(r.Context(), cart)
	resp := OutcomeResponse[C]{CartID: cart.ID, Status: outcome.Status}
	status := http.StatusOK
	if err != nil {
		status = http.StatusPaymentRequired
		resp.Error = err.Error()
	} else {
		resp.Amount = &outcome.Amount
		resp.Formatted = money.Format(outcome.Amount)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (a *API[C]) quote(w http.ResponseWriter, r *http.Request) {
	cart, ok := a.decodeCart(w, r)
	if !ok {
		return
	}

	q := a.workflow.Quote(cart)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(QuoteResponse[C]{
		CartID:     cart.ID,
		ItemCount:  q.ItemCount,
		Subtotal:   q.Subtotal,
		Discount:   q.Discount,
		Total:      q.Total,
		Discounted: q.Discounted,
		Formatted:  money.Format(q.Total),
	})
}

func (a *API[C]) listCharges(w http.ResponseWriter, r *http.Request) {
	attempts, err := a.charges.List(r.Context(), r.URL.Query().Get("reference"))
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if attempts == nil {
		attempts = []*journal.Attempt{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(attempts)
}
