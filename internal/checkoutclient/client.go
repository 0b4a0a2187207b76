package checkoutclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alovak/checkoutflow-playground/checkout"
	"github.com/alovak/checkoutflow-playground/internal/money"
	"github.com/alovak/checkoutflow-playground/payment"
)

type Client struct {
	Base string
	HTTP *http.Client
}

func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

// Checkout submits the cart. A declined payment is returned as a FAILED
// outcome together with a *payment.Failure.
func (c *Client) Checkout(ctx context.Context, cart checkout.CartRequest[money.USD]) (checkout.OutcomeResponse[money.USD], error) {
	var out checkout.OutcomeResponse[money.USD]
	status, err := c.post(ctx, "/checkout", cart, &out, http.StatusOK, http.StatusPaymentRequired)
	if err != nil {
		return checkout.OutcomeResponse[money.USD]{}, err
	}
	if status == http.StatusPaymentRequired {
		return out, &payment.Failure{Message: out.Error}
	}
	return out, nil
}

func (c *Client) Quote(ctx context.Context, cart checkout.CartRequest[money.USD]) (checkout.QuoteResponse[money.USD], error) {
	var out checkout.QuoteResponse[money.USD]
	if _, err := c.post(ctx, "/checkout/quote", cart, &out, http.StatusOK); err != nil {
		return checkout.QuoteResponse[money.USD]{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any, accept ...int) (int, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	for _, code := range accept {
		if resp.StatusCode == code {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return 0, fmt.Errorf("decode %s: %w", path, err)
			}
			return resp.StatusCode, nil
		}
	}
	body, _ := io.ReadAll(resp.Body)
	return 0, fmt.Errorf("%s status=%d body=%s", path, resp.StatusCode, strings.TrimSpace(string(body)))
}
