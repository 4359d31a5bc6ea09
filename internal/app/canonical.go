package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"horse.fit/trustbrief/internal/canonical"
	"horse.fit/trustbrief/internal/cli"
	payloadschema "horse.fit/trustbrief/schema"
)

func runCanonical(args []string) int {
	fs := flag.NewFlagSet("canonical", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "", "Server input batch (.json or .yaml)")
	strict := fs.Bool("strict", false, "Exit non-zero when any record lacks an identifier")
	formatRaw := fs.String("format", outputFormatJSON, "Output format: table|json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*input) == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
		return 2
	}
	format, err := parseOutputFormat(*formatRaw, outputFormatJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --format: %v\n", err)
		return 2
	}

	_, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	raw, fileFormat, err := readBatchFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read input failed: %v\n", err)
		return 1
	}
	inputs, err := payloadschema.DecodeServerInputs(raw, fileFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid server inputs: %v\n", err)
		return 1
	}

	result := canonical.AssignServerIDs(inputs)
	for _, failure := range result.Failed {
		logger.Warn().
			Str("candidate_id", failure.CandidateID).
			Str("entity", failure.Entity).
			Msg("record has no usable identifier")
	}
	logger.Info().
		Int("inputs", len(inputs)).
		Int("assigned", len(result.Assigned)).
		Int("failed", len(result.Failed)).
		Msg("canonical ids assigned")

	if format == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
			return 1
		}
	} else {
		rows := make([][]string, 0, len(result.Assigned))
		for _, assignment := range result.Assigned {
			rows = append(rows, []string{
				assignment.CandidateID,
				assignment.ProviderID,
				assignment.ServerID,
				string(assignment.IdentifierSource),
				assignment.PrimaryIdentifier,
			})
		}
		if err := writeTable([]string{"CANDIDATE", "PROVIDER_ID", "SERVER_ID", "SOURCE", "IDENTIFIER"}, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
			return 1
		}
	}

	if *strict && len(result.Failed) > 0 {
		return 1
	}
	return 0
}
