package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/recicla-upao/validation-core/pkg/auth"
	"github.com/recicla-upao/validation-core/pkg/client"
	"github.com/recicla-upao/validation-core/pkg/config"
	"github.com/recicla-upao/validation-core/pkg/credstore"
	"github.com/recicla-upao/validation-core/pkg/guard"
	"github.com/recicla-upao/validation-core/pkg/ledger"
	"github.com/recicla-upao/validation-core/pkg/observability"
	"github.com/recicla-upao/validation-core/pkg/session"
	"github.com/recicla-upao/validation-core/pkg/workflow"
)

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	store   credstore.Store
	session *session.Manager
	client  *client.Client
	gateway *ledger.Gateway
	guard   *guard.Guard
	obs     *observability.Provider

	redirect guard.Route
	unsub    func()
}

func newApp(ctx context.Context, stdout, stderr io.Writer) (*app, error) {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:    "recicla-cli",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Network,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     1.0,
		BatchTimeout:   time.Second,
		Enabled:        cfg.OTelEnabled,
		Insecure:       cfg.OTelInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	var storeOpts []credstore.Option
	if cfg.StoreSecret != "" {
		storeOpts = append(storeOpts, credstore.WithSecret([]byte(cfg.StoreSecret)))
	}
	store, err := credstore.Open(ctx, cfg.StoreURL, storeOpts...)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("credential store: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
		store:  store,
		obs:    obs,
	}

	a.session = session.NewManager(store, session.WithLogger(logger.With("component", "session")))
	a.unsub = a.session.Subscribe(func(active bool) {
		logger.Debug("session state changed", "active", active)
	})

	transport := auth.NewTransport(http.DefaultTransport, a.session)
	transport.Logger = logger.With("component", "auth-transport")
	a.client = client.New(cfg.APIURL,
		client.WithHTTPClient(&http.Client{Transport: transport}),
		client.WithRateLimit(cfg.RateLimitRPS, 1),
		client.WithLogger(logger.With("component", "client")),
	)
	a.gateway = ledger.NewGateway(a.client,
		ledger.WithObservability(obs),
		ledger.WithLogger(logger.With("component", "ledger")),
	)
	a.guard = guard.New(a.session, guard.NavigatorFunc(func(_ context.Context, to guard.Route) {
		a.redirect = to
	}), guard.WithLogger(logger.With("component", "guard")))

	return a, nil
}

func (a *app) controller(opts ...workflow.Option) *workflow.Controller {
	base := []workflow.Option{
		workflow.WithPageSize(a.cfg.PageSize),
		workflow.WithEvidenceGateway(a.cfg.EvidenceGateway),
		workflow.WithObservability(a.obs),
		workflow.WithLogger(a.logger.With("component", "workflow")),
		workflow.WithNotifier(workflow.NotifierFunc(func(_ context.Context, n workflow.Notice) {
			if n.Level == workflow.LevelSuccess {
				return
			}
			_, _ = fmt.Fprintf(a.stderr, "[%s] %s: %s\n", n.Level, n.Title, n.Text)
		})),
	}
	return workflow.NewController(a.gateway, append(base, opts...)...)
}

// requireRole runs the guard and reports a denial the way the portal would:
// by naming the page the operator is sent to.
func (a *app) requireRole(ctx context.Context, role auth.Role) bool {
	if a.guard.CanEnter(ctx, role) {
		return true
	}
	_, _ = fmt.Fprintf(a.stderr, "Access denied: %s session required (redirect to %s)\n", role, a.redirect)
	return false
}

func (a *app) Close(ctx context.Context) {
	if a.unsub != nil {
		a.unsub()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close credential store", "error", err)
	}
	_ = a.obs.Shutdown(ctx)
}

// withApp builds the app, runs fn and tears the app down.
func withApp(stdout, stderr io.Writer, fn func(ctx context.Context, a *app) int) int {
	ctx := context.Background()
	a, err := newApp(ctx, stdout, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}
