// Package ledger is the client for the validation ledger's REST gateway:
// pending proposals, approve/reject, and balance queries.
//
// Every operation is one network call. Nothing is retried and failures are
// returned exactly as the transport produced them.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"

	"github.com/recicla-upao/validation-core/pkg/client"
	"github.com/recicla-upao/validation-core/pkg/observability"
)

// Gateway talks to the ledger gateway through a client.Client whose
// transport carries the session credential.
type Gateway struct {
	client *client.Client
	obs    *observability.Provider
	logger *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithObservability traces and meters every call through p.
func WithObservability(p *observability.Provider) Option {
	return func(g *Gateway) { g.obs = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// NewGateway returns a gateway over c.
func NewGateway(c *client.Client, opts ...Option) *Gateway {
	g := &Gateway{
		client: c,
		logger: slog.Default().With("component", "ledger"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ListPendingProposals calls GET /blockchain/actividades/pendientes.
func (g *Gateway) ListPendingProposals(ctx context.Context) (_ []ActivityProposal, err error) {
	ctx, done := g.obs.TrackOperation(ctx, "ledger.list_pending")
	defer func() { done(err) }()

	var out []ActivityProposal
	if err := g.client.Do(ctx, http.MethodGet, "/blockchain/actividades/pendientes", nil, &out); err != nil {
		return nil, err
	}
	g.logger.DebugContext(ctx, "pending proposals fetched", "count", len(out))
	return out, nil
}

// GetProposal calls GET /blockchain/actividades/{id}.
func (g *Gateway) GetProposal(ctx context.Context, id int64) (_ *ActivityProposal, err error) {
	ctx, done := g.obs.TrackOperation(ctx, "ledger.get_proposal", attribute.Int64("proposal.id", id))
	defer func() { done(err) }()

	var out ActivityProposal
	if err := g.client.Do(ctx, http.MethodGet, fmt.Sprintf("/blockchain/actividades/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approve calls POST /blockchain/actividades/{id}/aprobar.
func (g *Gateway) Approve(ctx context.Context, id int64, wallet string, credential Credential) (_ *Result, err error) {
	ctx, done := g.obs.TrackOperation(ctx, "ledger.approve", attribute.Int64("proposal.id", id))
	defer func() { done(err) }()

	raw, err := g.client.DoRaw(ctx, http.MethodPost, fmt.Sprintf("/blockchain/actividades/%d/aprobar", id), ApproveRequest{
		ValidatorWallet:     wallet,
		ValidatorCredential: credential,
	})
	if err != nil {
		return nil, err
	}
	res := decodeResult(raw)
	g.logger.InfoContext(ctx, "approval submitted", "proposal_id", id, "validator", wallet, "tx", res.TransactionHash)
	return res, nil
}

// Reject calls POST /blockchain/actividades/{id}/rechazar.
func (g *Gateway) Reject(ctx context.Context, id int64, wallet string, credential Credential, reason string) (_ *Result, err error) {
	ctx, done := g.obs.TrackOperation(ctx, "ledger.reject", attribute.Int64("proposal.id", id))
	defer func() { done(err) }()

	raw, err := g.client.DoRaw(ctx, http.MethodPost, fmt.Sprintf("/blockchain/actividades/%d/rechazar", id), RejectRequest{
		ValidatorWallet:     wallet,
		ValidatorCredential: credential,
		Reason:              reason,
	})
	if err != nil {
		return nil, err
	}
	res := decodeResult(raw)
	g.logger.InfoContext(ctx, "rejection submitted", "proposal_id", id, "validator", wallet, "tx", res.TransactionHash)
	return res, nil
}

// QueryBalance calls GET /blockchain/balance?walletAddress=.
func (g *Gateway) QueryBalance(ctx context.Context, wallet string) (_ *Balance, err error) {
	ctx, done := g.obs.TrackOperation(ctx, "ledger.query_balance")
	defer func() { done(err) }()

	q := url.Values{}
	q.Set("walletAddress", wallet)
	var out Balance
	if err := g.client.Do(ctx, http.MethodGet, "/blockchain/balance?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
