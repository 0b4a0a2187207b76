package checkoutclient_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/alovak/checkoutflow-playground/checkout"
	"github.com/alovak/checkoutflow-playground/internal/checkoutclient"
	"github.com/alovak/checkoutflow-playground/internal/money"
	"github.com/alovak/checkoutflow-playground/payment"
	"github.com/alovak/checkoutflow-playground/payment/paymenttest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func server(t *testing.T, capability payment.Capability[money.USD]) *checkoutclient.Client {
	t.Helper()
	r := chi.NewRouter()
	checkout.NewAPI[money.USD](checkout.NewWorkflow[money.USD](capability), nil).AppendRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return checkoutclient.New(srv.URL+"/", nil)
}

func apples(qty int) checkout.CartRequest[money.USD] {
	price := money.New[money.USD](10)
	return checkout.CartRequest[money.USD]{
		ID:    "123-abc",
		Items: []checkout.CartItemRequest[money.USD]{{ID: "p1", Name: "Apple", Price: &price, Quantity: &qty}},
	}
}

func TestClient_Checkout(t *testing.T) {
	c := server(t, paymenttest.NewRecorder[money.USD]())

	out, err := c.Checkout(context.Background(), apples(6))
	require.NoError(t, err)
	require.Equal(t, checkout.StatusSuccess, out.Status)
	require.Equal(t, "$54.00", out.Formatted)
	require.True(t, out.Amount.Equal(money.New[money.USD](54)))
}

func TestClient_CheckoutDeclined(t *testing.T) {
	c := server(t, paymenttest.Failing[money.USD]("do not honor"))

	out, err := c.Checkout(context.Background(), apples(1))
	var failure *payment.Failure
	require.True(t, errors.As(err, &failure))
	require.Equal(t, "do not honor", failure.Message)
	require.Equal(t, checkout.StatusFailed, out.Status)
}

func TestClient_Quote(t *testing.T) {
	c := server(t, paymenttest.NewRecorder[money.USD]())

	q, err := c.Quote(context.Background(), apples(3))
	require.NoError(t, err)
	require.Equal(t, 3, q.ItemCount)
	require.False(t, q.Discounted)
	require.Equal(t, "$30.00", q.Formatted)
}

func TestClient_BadRequest(t *testing.T) {
	c := server(t, paymenttest.NewRecorder[money.USD]())

	qty := -1
	req := apples(1)
	req.Items[0].Quantity = &qty
	_, err := c.Checkout(context.Background(), req)
	require.ErrorContains(t, err, "status=400")
}

func TestClient_CheckoutKeepsSubCentPrices(t *testing.T) {
	recorder := paymenttest.NewRecorder[money.USD]()
	c := server(t, recorder)

	qty := 100
	price := money.New[money.USD](0.004)
	req := checkout.CartRequest[money.USD]{
		ID:    "tiny",
		Items: []checkout.CartItemRequest[money.USD]{{ID: "p1", Name: "Screw", Price: &price, Quantity: &qty}},
	}

	cart, err := req.Cart()
	require.NoError(t, err)
	local := checkout.NewWorkflow[money.USD](paymenttest.NewRecorder[money.USD]()).Quote(cart)
	require.True(t, local.Total.Equal(money.New[money.USD](0.36)), "local total %s", local.Total.Decimal())

	out, err := c.Checkout(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "$0.36", out.Formatted)

	charges := recorder.Charges()
	require.Len(t, charges, 1)
	require.True(t, charges[0].Amount.Equal(local.Total), "remote charged %s", charges[0].Amount.Decimal())
}
