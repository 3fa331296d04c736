// Package workflow drives the validation of pending recycling proposals:
// paging through the pending list, opening an approve or reject form for one
// proposal, and submitting the validator's decision to the ledger.
//
// The ledger owns every proposal and the approval quorum. The controller
// only displays what the ledger last returned and re-reads the list after
// each successful action; it never adjusts approval counts or flags locally.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/recicla-upao/validation-core/pkg/client"
	"github.com/recicla-upao/validation-core/pkg/evidence"
	"github.com/recicla-upao/validation-core/pkg/ledger"
	"github.com/recicla-upao/validation-core/pkg/observability"
)

// DefaultPageSize is the number of proposals shown per page.
const DefaultPageSize = 6

// Gateway is the subset of the ledger gateway the controller drives.
type Gateway interface {
	ListPendingProposals(ctx context.Context) ([]ledger.ActivityProposal, error)
	GetProposal(ctx context.Context, id int64) (*ledger.ActivityProposal, error)
	Approve(ctx context.Context, id int64, wallet string, credential ledger.Credential) (*ledger.Result, error)
	Reject(ctx context.Context, id int64, wallet string, credential ledger.Credential, reason string) (*ledger.Result, error)
}

// ActionKind is the decision being prepared in the action form.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionApprove
	ActionReject
)

func (k ActionKind) String() string {
	switch k {
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	}
	return "none"
}

// View is a snapshot of the controller state.
type View struct {
	Items      []ledger.ActivityProposal
	Page       int
	TotalPages int
	Total      int
	Loading    bool
	Action     ActionKind
	Selected   *ledger.ActivityProposal
}

type action struct {
	seq      uint64
	kind     ActionKind
	proposal ledger.ActivityProposal
}

// Controller is the validation panel state machine.
type Controller struct {
	gateway   Gateway
	pageSize  int
	preflight bool
	evGateway string
	notifier  Notifier
	obs       *observability.Provider
	logger    *slog.Logger

	mu         sync.Mutex
	pending    []ledger.ActivityProposal
	page       int
	totalPages int
	loading    bool
	loadSeq    uint64
	action     *action
	actionSeq  uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithPageSize sets the page size. Values below 1 keep the default.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithPreflight controls whether Submit re-reads the proposal from the
// ledger before acting on it. Enabled by default.
func WithPreflight(enabled bool) Option {
	return func(c *Controller) { c.preflight = enabled }
}

// WithEvidenceGateway sets the content gateway used by EvidenceURL.
func WithEvidenceGateway(base string) Option {
	return func(c *Controller) { c.evGateway = base }
}

// WithNotifier sets where user-facing notices go.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithObservability traces Submit and LoadPending through p.
func WithObservability(p *observability.Provider) Option {
	return func(c *Controller) { c.obs = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController returns a controller over gateway. Nothing is fetched until
// LoadPending.
func NewController(gateway Gateway, opts ...Option) *Controller {
	c := &Controller{
		gateway:   gateway,
		pageSize:  DefaultPageSize,
		preflight: true,
		evGateway: evidence.DefaultGateway,
		notifier:  discardNotifier{},
		logger:    slog.Default().With("component", "workflow"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadPending fetches the pending list and re-slices it into pages. The
// current page is kept when still in range and clamped to the last page
// otherwise. A response that arrives after a newer LoadPending started is
// discarded.
func (c *Controller) LoadPending(ctx context.Context) (err error) {
	ctx, done := c.obs.TrackOperation(ctx, "workflow.load_pending")
	defer func() { done(err) }()

	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.loading = true
	c.mu.Unlock()

	proposals, err := c.gateway.ListPendingProposals(ctx)

	c.mu.Lock()
	if seq != c.loadSeq {
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "stale pending list discarded", "seq", seq)
		return err
	}
	c.loading = false
	if err != nil {
		c.mu.Unlock()
		c.logger.ErrorContext(ctx, "failed to load pending proposals", "error", err)
		c.notifier.Notify(ctx, Notice{
			Level: LevelError,
			Title: "Error",
			Text:  "Could not load pending proposals: " + errorText(err),
			Err:   err,
		})
		return err
	}
	c.pending = proposals
	c.totalPages = ceilDiv(len(proposals), c.pageSize)
	if c.page >= c.totalPages {
		c.page = max(c.totalPages-1, 0)
	}
	total, pages := len(c.pending), c.totalPages
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "pending proposals loaded", "count", total, "pages", pages)
	return nil
}

// SelectPage moves to page n. Out-of-range n is ignored and false is returned.
func (c *Controller) SelectPage(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 || n >= c.totalPages {
		return false
	}
	c.page = n
	return true
}

// Page returns a copy of the proposals on the current page.
func (c *Controller) Page() []ledger.ActivityProposal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageLocked()
}

func (c *Controller) pageLocked() []ledger.ActivityProposal {
	start := c.page * c.pageSize
	if start >= len(c.pending) {
		return nil
	}
	end := min(start+c.pageSize, len(c.pending))
	out := make([]ledger.ActivityProposal, end-start)
	copy(out, c.pending[start:end])
	return out
}

// TotalPages returns ceil(pending / pageSize).
func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages
}

// CurrentPage returns the zero-based page index.
func (c *Controller) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Snapshot returns the full controller state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		Items:      c.pageLocked(),
		Page:       c.page,
		TotalPages: c.totalPages,
		Total:      len(c.pending),
		Loading:    c.loading,
	}
	if c.action != nil {
		p := c.action.proposal
		v.Action = c.action.kind
		v.Selected = &p
	}
	return v
}

// Lookup returns the cached copy of proposal id from the last load.
func (c *Controller) Lookup(id int64) (ledger.ActivityProposal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pending {
		if p.ID == id {
			return p, true
		}
	}
	return ledger.ActivityProposal{}, false
}

// BeginApprove opens the approve form for p, replacing any form in progress.
func (c *Controller) BeginApprove(p ledger.ActivityProposal) {
	c.begin(ActionApprove, p)
}

// BeginReject opens the reject form for p, replacing any form in progress.
func (c *Controller) BeginReject(p ledger.ActivityProposal) {
	c.begin(ActionReject, p)
}

func (c *Controller) begin(kind ActionKind, p ledger.ActivityProposal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actionSeq++
	c.action = &action{seq: c.actionSeq, kind: kind, proposal: p}
}

// Cancel closes the action form.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.action = nil
}

// Submit sends the open action to the ledger. Blank wallet or credential,
// and a blank reason for a rejection, fail locally without a network call.
// A proposal that is already executed or rejected, either in the cached copy
// or in the preflight read, fails with ErrAlreadyFinalized.
//
// On success the form is closed and the pending list is re-read. Gateway
// failures are returned as produced and the form stays open.
func (c *Controller) Submit(ctx context.Context, wallet string, credential ledger.Credential, reason string) (_ *ledger.Result, err error) {
	c.mu.Lock()
	act := c.action
	c.mu.Unlock()

	if act == nil {
		return nil, ErrNoSelection
	}
	wallet = strings.TrimSpace(wallet)
	if wallet == "" || strings.TrimSpace(string(credential)) == "" {
		c.warn(ctx, ErrMissingCredential)
		return nil, ErrMissingCredential
	}
	reason = normalizeText(reason)
	if act.kind == ActionReject && reason == "" {
		c.warn(ctx, ErrMissingReason)
		return nil, ErrMissingReason
	}
	if act.proposal.Terminal() {
		c.warn(ctx, ErrAlreadyFinalized)
		return nil, ErrAlreadyFinalized
	}

	id := act.proposal.ID
	ctx, done := c.obs.TrackOperation(ctx, "workflow.submit",
		attribute.Int64("proposal.id", id),
		attribute.String("action", act.kind.String()),
	)
	defer func() { done(err) }()

	if c.preflight {
		fresh, err := c.gateway.GetProposal(ctx, id)
		if err != nil {
			c.fail(ctx, act.kind, err)
			return nil, err
		}
		if fresh.Terminal() {
			c.logger.InfoContext(ctx, "proposal finalized before submit", "proposal_id", id, "status", fresh.Status())
			c.warn(ctx, ErrAlreadyFinalized)
			c.closeAction(act.seq)
			_ = c.LoadPending(ctx)
			return nil, ErrAlreadyFinalized
		}
	}

	var res *ledger.Result
	switch act.kind {
	case ActionApprove:
		res, err = c.gateway.Approve(ctx, id, wallet, credential)
	case ActionReject:
		res, err = c.gateway.Reject(ctx, id, wallet, credential, reason)
	default:
		return nil, ErrNoSelection
	}
	if err != nil {
		c.fail(ctx, act.kind, err)
		return nil, err
	}

	c.logger.InfoContext(ctx, "action accepted by ledger", "proposal_id", id, "action", act.kind.String())
	c.notifier.Notify(ctx, Notice{Level: LevelSuccess, Title: successTitle(act.kind), Text: res.Message})
	c.closeAction(act.seq)

	// Displayed state always comes from the ledger.
	if err := c.LoadPending(ctx); err != nil {
		c.logger.WarnContext(ctx, "refresh after submit failed", "error", err)
	}
	return res, nil
}

// closeAction clears the form if it is still the one identified by seq.
func (c *Controller) closeAction(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.action != nil && c.action.seq == seq {
		c.action = nil
	}
}

// EvidenceURL returns the gateway link for p's evidence when the reference
// is a well-formed content ID.
func (c *Controller) EvidenceURL(p ledger.ActivityProposal) (string, bool) {
	if !evidence.IsValidContentID(p.EvidenceRef) {
		return "", false
	}
	return evidence.URL(c.evGateway, p.EvidenceRef), true
}

func (c *Controller) warn(ctx context.Context, err error) {
	c.notifier.Notify(ctx, Notice{Level: LevelWarning, Title: "Error", Text: err.Error(), Err: err})
}

func (c *Controller) fail(ctx context.Context, kind ActionKind, err error) {
	c.logger.ErrorContext(ctx, "ledger action failed", "action", kind.String(), "error", err)
	c.notifier.Notify(ctx, Notice{Level: LevelError, Title: "Error", Text: errorText(err), Err: err})
}

func successTitle(kind ActionKind) string {
	if kind == ActionReject {
		return "Rejected"
	}
	return "Approved"
}

// errorText prefers the server's message over the transport error string.
func errorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
