package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/recicla-upao/validation-core/pkg/config"
	"github.com/recicla-upao/validation-core/pkg/wallet"
)

// runBalanceCmd implements `recicla balance`.
func runBalanceCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("balance", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var walletAddr string
	cmd.StringVar(&walletAddr, "wallet", "", "Wallet address (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}
	if !wallet.IsValidAddress(walletAddr) {
		_, _ = fmt.Fprintln(stderr, "Error: -wallet must be a 0x-prefixed 40 hex digit address")
		return exitUsage
	}

	return withApp(stdout, stderr, func(ctx context.Context, a *app) int {
		b, err := a.gateway.QueryBalance(ctx, walletAddr)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %s\n", describe(err))
			return exitFailure
		}
		_, _ = fmt.Fprintf(stdout, "%s\n", b.Amount.String())
		return exitOK
	})
}

// runNetworkCmd implements `recicla network`. With -chain it exits 1 when
// the given chain id is not the active network.
func runNetworkCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("network", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var chainID string
	cmd.StringVar(&chainID, "chain", "", "Chain id reported by the wallet (hex or decimal)")

	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}

	n, err := config.Load().ActiveNetwork()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	if chainID != "" {
		if !n.Matches(chainID) {
			_, _ = fmt.Fprintf(stderr, "Wrong network: switch the wallet to %s (%s)\n", n.ChainName, n.ChainID)
			return exitFailure
		}
		_, _ = fmt.Fprintf(stdout, "Connected to %s\n", n.ChainName)
		return exitOK
	}

	dec, _ := n.ChainIDDecimal()
	_, _ = fmt.Fprintf(stdout, "%-9s %s\n", "Network:", n.ChainName)
	_, _ = fmt.Fprintf(stdout, "%-9s %s (%d)\n", "Chain:", n.ChainID, dec)
	_, _ = fmt.Fprintf(stdout, "%-9s %s\n", "Currency:", n.Currency.Symbol)
	for _, rpc := range n.RPCURLs {
		_, _ = fmt.Fprintf(stdout, "%-9s %s\n", "RPC:", rpc)
	}
	for _, ex := range n.ExplorerURLs {
		_, _ = fmt.Fprintf(stdout, "%-9s %s\n", "Explorer:", ex)
	}
	return exitOK
}
