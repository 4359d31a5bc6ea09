package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "canonical":
		return runCanonical(args[1:])
	case "resolve", "dedup":
		return runResolve(args[1:])
	case "brief":
		return runBrief(args[1:])
	case "snapshot":
		return runSnapshot(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "trustbrief CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  trustbrief <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  validate   Validate batch files against their schema")
	fmt.Fprintln(os.Stderr, "  canonical  Assign provider and server ids to raw server records")
	fmt.Fprintln(os.Stderr, "  resolve    Emit merge directives for candidates against a canonical set")
	fmt.Fprintln(os.Stderr, "  dedup      Alias for resolve")
	fmt.Fprintln(os.Stderr, "  brief      Compute movers, downgrades, new entrants and tier snapshot")
	fmt.Fprintln(os.Stderr, "  snapshot   Store today's scores as the next day's prior snapshot")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"trustbrief <command> -h\" for command-specific flags.")
}
