// Command recicla is the operator CLI for the recycling portal: session
// login and logout, and the NGO validation panel for pending proposals.
package main

import (
	"fmt"
	"io"
	"os"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitDenied  = 3
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return exitUsage
	}

	switch args[1] {
	case "login":
		return runLoginCmd(args[2:], stdout, stderr)
	case "logout":
		return runLogoutCmd(args[2:], stdout, stderr)
	case "whoami":
		return runWhoamiCmd(args[2:], stdout, stderr)
	case "pending":
		return runPendingCmd(args[2:], stdout, stderr)
	case "approve":
		return runDecisionCmd("approve", args[2:], stdout, stderr)
	case "reject":
		return runDecisionCmd("reject", args[2:], stdout, stderr)
	case "balance":
		return runBalanceCmd(args[2:], stdout, stderr)
	case "evidence":
		return runEvidenceCmd(args[2:], stdout, stderr)
	case "network":
		return runNetworkCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return exitOK
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return exitUsage
	}
}

// ANSI Colors
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorCyan  = "\033[36m"
	colorGreen = "\033[32m"
	colorGray  = "\033[37m"
)

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%srecicla%s\n", colorBold+colorGreen, colorReset)
	fmt.Fprintf(w, "%sValidation panel for recycling proposals.%s\n", colorGray, colorReset)
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%sUSAGE:%s\n", colorBold, colorReset)
	fmt.Fprintln(w, "  recicla <command> [flags]")
	fmt.Fprintln(w, "")

	printSection(w, "SESSION")
	printCommand(w, "login", "Log in (-username, -password or RECICLA_PASSWORD)")
	printCommand(w, "logout", "Clear the stored session")
	printCommand(w, "whoami", "Show the current user and role")

	printSection(w, "VALIDATION (ONG)")
	printCommand(w, "pending", "List pending proposals (-page, -json)")
	printCommand(w, "approve", "Approve a proposal (-id, -wallet)")
	printCommand(w, "reject", "Reject a proposal (-id, -wallet, -reason)")
	printCommand(w, "evidence", "Print the evidence link of a proposal (-id or CID)")

	printSection(w, "WALLET")
	printCommand(w, "balance", "Show the token balance of a wallet (-wallet)")
	printCommand(w, "network", "Show the active network (-chain to check a chain id)")

	printCommand(w, "help", "Show this help")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "The validator credential is read from RECICLA_VALIDATOR_KEY.")
	fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	fmt.Fprintf(w, "%s%s:%s\n", colorBold+colorCyan, title, colorReset)
}

func printCommand(w io.Writer, name, desc string) {
	fmt.Fprintf(w, "  %s%-10s%s %s\n", colorGreen, name, colorReset, desc)
}
