package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alovak/checkoutflow-playground/checkout"
	"github.com/alovak/checkoutflow-playground/internal/checkoutclient"
	"github.com/alovak/checkoutflow-playground/internal/journal"
	"github.com/alovak/checkoutflow-playground/internal/logging"
	"github.com/alovak/checkoutflow-playground/internal/money"
	"github.com/alovak/checkoutflow-playground/payment"
)

const usage = `usage: checkout <command> [flags]

commands:
  serve   run the checkout HTTP service
  run     check out a cart file locally with the dev gateway
  submit  send a cart file to a running service`

func main() {
	if len(os.Args) < 2 {
		fail(usage)
	}
	switch os.Args[1] {
	case "serve":
		serve(os.Args[2:])
	case "run":
		os.Exit(run(os.Args[2:], os.Stdout))
	case "submit":
		os.Exit(submit(os.Args[2:], os.Stdout))
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		fail("unknown command %q\n%s", os.Args[1], usage)
	}
}

func serve(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config (optional)")
	must(fs.Parse(args))

	cfg := must1(checkout.LoadConfig(*configPath))
	logger, closer, err := logging.New(cfg.Log, os.Stdout)
	must(err)
	defer closer.Close()

	app := checkout.NewApp(logger, cfg)
	must(app.Start())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	app.Shutdown()
}

// run checks out the cart locally and returns the process exit code.
func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cartPath := fs.String("cart", "", "path to cart JSON")
	configPath := fs.String("config", "", "path to YAML config (optional)")
	must(fs.Parse(args))

	cfg := must1(checkout.LoadConfig(*configPath))
	cart := must1(readCart(*cartPath))

	logger, closer, err := logging.New(cfg.Log, os.Stderr)
	must(err)
	defer closer.Close()

	var opts []payment.GatewayOption[money.USD]
	if cfg.Payment.DeclineAbove != "" {
		opts = append(opts, payment.WithDeclineAbove(must1(money.Parse[money.USD](cfg.Payment.DeclineAbove))))
	}
	gateway := payment.NewDevGateway[money.USD](logger, journal.NewRepository(), opts...)
	wf := checkout.NewWorkflow[money.USD](gateway,
		checkout.WithPolicy[money.USD](cfg.DiscountPolicy()),
		checkout.WithLogger[money.USD](logger),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q := wf.Quote(cart)
	fmt.Fprintf(out, "cart %s: %d items, subtotal %s, discount %s\n", cart.ID, q.ItemCount, q.Subtotal, q.Discount)

	outcome, err := wf.Run(ctx, cart)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", outcome.Status, err)
		return 2
	}
	fmt.Fprintf(out, "%s: charged %s\n", outcome.Status, outcome.Amount)
	return 0
}

func submit(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	cartPath := fs.String("cart", "", "path to cart JSON")
	addr := fs.String("addr", "http://127.0.0.1:9090", "checkout service base URL")
	quoteOnly := fs.Bool("quote", false, "only price the cart, do not charge")
	must(fs.Parse(args))

	req := must1(readCartRequest(*cartPath))
	cli := checkoutclient.New(*addr, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *quoteOnly {
		q := must1(cli.Quote(ctx, req))
		fmt.Fprintf(out, "cart %s: %d items, total %s (discounted=%v)\n", q.CartID, q.ItemCount, q.Formatted, q.Discounted)
		return 0
	}

	res, err := cli.Checkout(ctx, req)
	var failure *payment.Failure
	if errors.As(err, &failure) {
		fmt.Fprintf(out, "%s: %s\n", res.Status, failure.Message)
		return 2
	}
	must(err)
	fmt.Fprintf(out, "%s: charged %s\n", res.Status, res.Formatted)
	return 0
}

func readCartRequest(path string) (checkout.CartRequest[money.USD], error) {
	var req checkout.CartRequest[money.USD]
	if path == "" {
		return req, fmt.Errorf("-cart is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return req, fmt.Errorf("open cart: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("decode cart %s: %w", path, err)
	}
	return req, nil
}

func readCart(path string) (checkout.Cart[money.USD], error) {
	req, err := readCartRequest(path)
	if err != nil {
		return checkout.Cart[money.USD]{}, err
	}
	return req.Cart()
}

func must(err error) {
	if err != nil {
		fail("%v", err)
	}
}

func must1[T any](v T, err error) T {
	if err != nil {
		fail("%v", err)
	}
	return v
}

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
