package checkout_test

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/alovak/checkoutflow-playground/checkout"
	"github.com/alovak/checkoutflow-playground/payment/paymenttest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func startApp(t *testing.T, cfg *checkout.Config, opts ...checkout.AppOption) *checkout.App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := checkout.NewApp(logger, cfg, opts...)
	require.NoError(t, app.Start())
	t.Cleanup(app.Shutdown)
	return app
}

func testConfig() *checkout.Config {
	cfg := checkout.DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	return cfg
}

func TestApp_EndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.Payment.DeclineAbove = "100"
	app := startApp(t, cfg)
	base := "http://" + app.Addr

	resp, err := http.Get(base + "/-/live")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/-/ready")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(base+"/checkout", "application/json",
		bytes.NewBufferString(`{"id":"123-abc","items":[{"id":"p1","name":"Apple","price":10,"quantity":6}]}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"formatted":"$54.00"`)

	resp, err = http.Post(base+"/checkout", "application/json",
		bytes.NewBufferString(`{"id":"big","items":[{"id":"p1","price":150,"quantity":1}]}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	series, err := testutil.GatherAndCount(app.Registry(), "checkout_outcomes_total")
	require.NoError(t, err)
	require.Equal(t, 2, series)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), "checkout_discounts_total 1"), string(body))
	require.Contains(t, string(body), `checkout_outcomes_total{status="SUCCESS"} 1`)
	require.Contains(t, string(body), `checkout_outcomes_total{status="FAILED"} 1`)
	require.Contains(t, string(body), `checkout_charge_duration_seconds_count{result="declined"} 1`)
}

func TestApp_WithCapability(t *testing.T) {
	recorder := paymenttest.NewRecorder[USD]()
	app := startApp(t, testConfig(), checkout.WithCapability(recorder))

	resp, err := http.Post("http://"+app.Addr+"/checkout", "application/json",
		bytes.NewBufferString(`{"id":"r1","items":[{"id":"p1","price":10,"quantity":3}]}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	charges := recorder.Charges()
	require.Len(t, charges, 1)
	require.Equal(t, "r1", charges[0].Reference)
	require.Equal(t, "$30.00", charges[0].Amount.String())
}

func TestApp_StartFailsOnBadListenAddr(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPAddr = "256.0.0.1:99999"
	app := checkout.NewApp(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	require.Error(t, app.Start())
	require.Error(t, app.Start())
	require.Empty(t, app.Addr)
}

func TestApp_RestartAfterFailedStart(t *testing.T) {
	cfg := testConfig()
	cfg.Payment.DeclineAbove = "not-a-number"
	app := checkout.NewApp(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	require.Error(t, app.Start())

	cfg.Payment.DeclineAbove = ""
	require.NoError(t, app.Start())
	t.Cleanup(app.Shutdown)
	require.NotEmpty(t, app.Addr)
}
