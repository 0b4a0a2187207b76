package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alovak/checkoutflow-playground/internal/journal"
	"github.com/alovak/checkoutflow-playground/internal/metrics"
	"github.com/alovak/checkoutflow-playground/internal/middleware"
	"github.com/alovak/checkoutflow-playground/internal/money"
	"github.com/alovak/checkoutflow-playground/payment"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/slog"
)

// App is the main application, it wires the workflow, its payment
// capability and the HTTP API, and is responsible for starting and stopping them.
type App struct {
	srv        *http.Server
	wg         *sync.WaitGroup
	Addr       string
	logger     *slog.Logger
	config     *Config
	db         *sql.DB
	registry   *prometheus.Registry
	metrics    *metrics.Checkout
	capability payment.Capability[money.USD]
}

type AppOption func(*App)

// WithCapability replaces the configured payment gateway.
func WithCapability(c payment.Capability[money.USD]) AppOption {
	return func(a *App) { a.capability = c }
}

func NewApp(logger *slog.Logger, config *Config, opts ...AppOption) *App {
	logger = logger.With(slog.String("app", "checkout"))

	if config == nil {
		config = DefaultConfig()
	}

	registry := prometheus.NewRegistry()
	a := &App{
		wg:       &sync.WaitGroup{},
		logger:   logger,
		config:   config,
		registry: registry,
		metrics:  metrics.NewCheckout(registry),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry exposes the app metrics.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// openJournal returns the configured repository and, for the pg backend,
// its database handle. The caller owns db.
func (a *App) openJournal(ctx context.Context) (*journal.Repository, *sql.DB, error) {
	switch a.config.Journal.Backend {
	case "pg":
		db, err := sql.Open("postgres", a.config.Journal.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxIdleConns(5)
		db.SetMaxOpenConns(10)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		repo := journal.NewPGRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, db, nil
	case "mem", "":
		return journal.NewRepository(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported journal backend=%s", a.config.Journal.Backend)
	}
}

// workflow builds the checkout workflow from config and reports into m.
func (a *App) workflow(repo *journal.Repository, m *metrics.Checkout) (*Workflow[money.USD], error) {
	capability := a.capability
	if capability == nil {
		var opts []payment.GatewayOption[money.USD]
		if a.config.Payment.DeclineAbove != "" {
			limit, err := money.Parse[money.USD](a.config.Payment.DeclineAbove)
			if err != nil {
				return nil, fmt.Errorf("payment.decline_above: %w", err)
			}
			opts = append(opts, payment.WithDeclineAbove(limit))
		}
		capability = payment.NewDevGateway[money.USD](a.logger, repo, opts...)
	}

	instrumented := payment.Instrument(capability, func(result string, d time.Duration) {
		m.ChargeDuration.WithLabelValues(result).Observe(d.Seconds())
	})

	return NewWorkflow[money.USD](instrumented,
		WithPolicy[money.USD](a.config.DiscountPolicy()),
		WithLogger[money.USD](a.logger),
		WithObserver[money.USD](metricsObserver{m}),
	), nil
}

// Start opens the journal and serves HTTP. When it returns an error nothing
// is left open and Start may be called again.
func (a *App) Start() (err error) {
	a.logger.Info("starting app...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, db, err := a.openJournal(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil && db != nil {
			db.Close()
		}
	}()

	wf, err := a.workflow(repo, a.metrics)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.NewStructuredLogger(a.logger))
	router.Use(chimiddleware.Recoverer)

	api := NewAPI[money.USD](wf, repo)
	api.AppendRoutes(router)

	router.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	router.Get("/-/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := repo.Ping(ctx); err != nil {
			http.Error(w, "journal not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", metrics.Handler(a.registry))

	l, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()
	a.db = db

	a.srv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.wg.Add(1)
	go func() {
		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil {
			if err != http.ErrServerClosed {
				a.logger.Error("starting http server", "err", err)
			}

			a.logger.Info("http server stopped")
		}

		a.wg.Done()
	}()

	return nil
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			a.logger.Error("shutting down http server", "err", err)
		}
	}

	a.wg.Wait()

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("closing journal db", "err", err)
		}
	}

	a.logger.Info("app stopped")
}

type metricsObserver struct {
	m *metrics.Checkout
}

func (o metricsObserver) Discounted() { o.m.Discounts.Inc() }

func (o metricsObserver) Outcome(status Status) {
	o.m.Outcomes.WithLabelValues(string(status)).Inc()
}
