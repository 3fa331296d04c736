package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/recicla-upao/validation-core/pkg/auth"
	"github.com/recicla-upao/validation-core/pkg/client"
	"github.com/recicla-upao/validation-core/pkg/config"
	"github.com/recicla-upao/validation-core/pkg/evidence"
	"github.com/recicla-upao/validation-core/pkg/ledger"
	"github.com/recicla-upao/validation-core/pkg/wallet"
	"github.com/recicla-upao/validation-core/pkg/workflow"
)

// runPendingCmd implements `recicla pending`.
//
// Exit codes:
//
//	0 = listed
//	1 = backend failure
//	2 = usage error
//	3 = session is not an ONG session
func runPendingCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("pending", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		page       int
		jsonOutput bool
	)
	cmd.IntVar(&page, "page", 1, "Page number, starting at 1")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the page as JSON")

	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}

	return withApp(stdout, stderr, func(ctx context.Context, a *app) int {
		if !a.requireRole(ctx, auth.RoleNGO) {
			return exitDenied
		}

		c := a.controller()
		if err := c.LoadPending(ctx); err != nil {
			return exitFailure
		}
		if page != 1 && !c.SelectPage(page-1) {
			_, _ = fmt.Fprintf(stderr, "Page %d is out of range (1-%d)\n", page, c.TotalPages())
		}
		v := c.Snapshot()

		if jsonOutput {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(map[string]any{
				"page":        v.Page + 1,
				"total_pages": v.TotalPages,
				"total":       v.Total,
				"items":       v.Items,
			})
			return exitOK
		}

		if v.Total == 0 {
			_, _ = fmt.Fprintln(stdout, "No pending proposals")
			return exitOK
		}
		printProposals(stdout, c, v.Items)
		_, _ = fmt.Fprintf(stdout, "\nPage %d of %d (%d pending)\n", v.Page+1, v.TotalPages, v.Total)
		return exitOK
	})
}

func printProposals(w io.Writer, c *workflow.Controller, items []ledger.ActivityProposal) {
	_, _ = fmt.Fprintf(w, "%-6s %-10s %8s %10s %-9s %-9s %s\n", "ID", "MATERIAL", "KG", "REWARD", "APPROVALS", "STATUS", "EVIDENCE")
	for _, p := range items {
		ev := "-"
		if url, ok := c.EvidenceURL(p); ok {
			ev = url
		}
		_, _ = fmt.Fprintf(w, "%-6d %-10s %8.2f %10s %-9d %-9s %s\n",
			p.ID, workflow.MaterialName(p.MaterialType), p.WeightKg, p.RewardAmount.String(),
			p.ApprovalCount, p.Status(), ev)
	}
}

// runDecisionCmd implements `recicla approve` and `recicla reject`.
//
// Exit codes:
//
//	0 = accepted by the ledger
//	1 = ledger refused, proposal already finalized, or backend failure
//	2 = usage error or missing validator fields
//	3 = session is not an ONG session
func runDecisionCmd(kind string, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet(kind, flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		id         int64
		walletAddr string
		reason     string
	)
	cmd.Int64Var(&id, "id", 0, "Proposal id (REQUIRED)")
	cmd.StringVar(&walletAddr, "wallet", "", "Validator wallet address (REQUIRED)")
	if kind == "reject" {
		cmd.StringVar(&reason, "reason", "", "Reason for the rejection (REQUIRED)")
	}

	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}
	if id <= 0 {
		_, _ = fmt.Fprintln(stderr, "Error: -id is required")
		return exitUsage
	}
	if walletAddr != "" && !wallet.IsValidAddress(walletAddr) {
		_, _ = fmt.Fprintf(stderr, "Error: %q is not a wallet address\n", walletAddr)
		return exitUsage
	}
	credential := ledger.Credential(os.Getenv("RECICLA_VALIDATOR_KEY"))

	return withApp(stdout, stderr, func(ctx context.Context, a *app) int {
		if !a.requireRole(ctx, auth.RoleNGO) {
			return exitDenied
		}

		p, err := a.gateway.GetProposal(ctx, id)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: proposal %d: %s\n", id, describe(err))
			return exitFailure
		}

		// The proposal was just read, so Submit skips its own re-read.
		c := a.controller(workflow.WithPreflight(false))
		if kind == "reject" {
			c.BeginReject(*p)
		} else {
			c.BeginApprove(*p)
		}

		res, err := c.Submit(ctx, walletAddr, credential, reason)
		switch {
		case errors.Is(err, workflow.ErrMissingCredential):
			_, _ = fmt.Fprintln(stderr, "Error: -wallet and RECICLA_VALIDATOR_KEY are required")
			return exitUsage
		case errors.Is(err, workflow.ErrMissingReason):
			_, _ = fmt.Fprintln(stderr, "Error: -reason is required to reject")
			return exitUsage
		case errors.Is(err, workflow.ErrAlreadyFinalized):
			_, _ = fmt.Fprintf(stderr, "Error: proposal %d is already %s\n", id, p.Status())
			return exitFailure
		case err != nil:
			return exitFailure
		}

		verb := "approved"
		if kind == "reject" {
			verb = "rejected"
		}
		_, _ = fmt.Fprintf(stdout, "Proposal %d %s", id, verb)
		if res.TransactionHash != "" {
			_, _ = fmt.Fprintf(stdout, " (tx %s)", res.TransactionHash)
		}
		_, _ = fmt.Fprintln(stdout)

		if fresh, ok := c.Lookup(id); ok {
			_, _ = fmt.Fprintf(stdout, "Ledger state: %d approvals, %s\n", fresh.ApprovalCount, fresh.Status())
		} else {
			_, _ = fmt.Fprintln(stdout, "Ledger state: no longer pending")
		}
		return exitOK
	})
}

// runEvidenceCmd implements `recicla evidence`. With a CID argument it only
// checks the format; with -id it reads the proposal first.
func runEvidenceCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("evidence", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var id int64
	cmd.Int64Var(&id, "id", 0, "Proposal id")

	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}

	if id == 0 {
		if cmd.NArg() != 1 {
			_, _ = fmt.Fprintln(stderr, "Usage: recicla evidence (-id N | <cid>)")
			return exitUsage
		}
		ref := cmd.Arg(0)
		if !evidence.IsValidContentID(ref) {
			_, _ = fmt.Fprintf(stderr, "%q is not a valid content id\n", ref)
			return exitFailure
		}
		_, _ = fmt.Fprintln(stdout, evidence.URL(config.Load().EvidenceGateway, ref))
		return exitOK
	}

	return withApp(stdout, stderr, func(ctx context.Context, a *app) int {
		if !a.requireRole(ctx, auth.RoleNGO) {
			return exitDenied
		}
		p, err := a.gateway.GetProposal(ctx, id)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: proposal %d: %s\n", id, describe(err))
			return exitFailure
		}
		url, ok := a.controller().EvidenceURL(*p)
		if !ok {
			_, _ = fmt.Fprintf(stderr, "Proposal %d has no viewable evidence\n", id)
			return exitFailure
		}
		_, _ = fmt.Fprintln(stdout, url)
		return exitOK
	})
}

// describe prefers the server's message over the transport error.
func describe(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
