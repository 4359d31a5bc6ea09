package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"horse.fit/trustbrief/internal/cli"
	"horse.fit/trustbrief/internal/config"
	"horse.fit/trustbrief/internal/resolve"
	payloadschema "horse.fit/trustbrief/schema"
)

type resolveOutput struct {
	Kind       resolve.EntityKind       `json:"entity_kind"`
	Directives []resolve.MergeDirective `json:"directives"`
	Conflicts  []resolve.Conflict       `json:"conflicts"`
	Summary    resolve.Summary          `json:"summary"`
	RunUUID    string                   `json:"run_uuid,omitempty"`
}

func runResolve(args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	kindRaw := fs.String("kind", string(resolve.KindServer), "Entity kind: provider, server or endpoint")
	candidatesRaw := fs.String("candidates", "", "Comma-separated candidate batch files; each file is resolved as its own batch")
	existingPath := fs.String("existing", "", "Existing canonical record file")
	save := fs.Bool("save", false, "Record directives and the run in the database")
	timeout := fs.Duration("timeout", 60*time.Second, "Overall command timeout")
	formatRaw := fs.String("format", outputFormatJSON, "Output format: table|json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	kind, err := resolve.ParseEntityKind(*kindRaw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --kind: %v\n", err)
		return 2
	}
	candidateFiles := splitList(*candidatesRaw)
	if len(candidateFiles) == 0 {
		fmt.Fprintln(os.Stderr, "--candidates is required")
		return 2
	}
	if strings.TrimSpace(*existingPath) == "" {
		fmt.Fprintln(os.Stderr, "--existing is required")
		return 2
	}
	format, err := parseOutputFormat(*formatRaw, outputFormatJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --format: %v\n", err)
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	batches := make([][]resolve.Candidate, 0, len(candidateFiles))
	processed := 0
	for _, path := range candidateFiles {
		batch, err := loadCandidates(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid candidates: %v\n", err)
			return 1
		}
		processed += len(batch)
		batches = append(batches, batch)
	}
	existing, err := loadCandidates(*existingPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid existing records: %v\n", err)
		return 1
	}

	ladder, err := resolve.LadderFor(kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Resolve setup failed: %v\n", err)
		return 1
	}
	resolver := resolve.NewResolver(ladder)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	results, err := resolver.ResolveBatches(ctx, batches, existing)
	if err != nil {
		logger.Error().Err(err).Msg("resolve failed")
		fmt.Fprintf(os.Stderr, "Resolve failed: %v\n", err)
		return 1
	}
	directives, conflicts := resolve.ApplyDirectives(results...)
	for _, conflict := range conflicts {
		logger.Warn().
			Str("canonical_id", conflict.Directive.CanonicalID).
			Str("claimed_id", conflict.ClaimedID).
			Str("claimed_by", conflict.ClaimedBy).
			Msg("dropped conflicting merge directive")
	}

	out := resolveOutput{
		Kind:       resolver.Kind(),
		Directives: directives,
		Conflicts:  conflicts,
		Summary:    resolve.Summarize(directives),
	}
	if out.Directives == nil {
		out.Directives = []resolve.MergeDirective{}
	}
	if out.Conflicts == nil {
		out.Conflicts = []resolve.Conflict{}
	}

	logger.Info().
		Str("entity_kind", string(resolver.Kind())).
		Int("batches", len(batches)).
		Int("candidates", processed).
		Int("existing", len(existing)).
		Int("directives", out.Summary.Directives).
		Int("requires_review", out.Summary.RequiresReview).
		Int("conflicts", len(conflicts)).
		Msg("resolve completed")

	if *save {
		runUUID, err := saveDirectives(ctx, cfg, kind, processed, directives)
		if err != nil {
			logger.Error().Err(err).Msg("saving merge directives failed")
			fmt.Fprintf(os.Stderr, "Save failed: %v\n", err)
			return 1
		}
		out.RunUUID = runUUID
	}

	if format == outputFormatJSON {
		if err := printJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(out.Directives))
	for _, directive := range out.Directives {
		rows = append(rows, []string{
			directive.CanonicalID,
			strings.Join(directive.MergedIDs, ","),
			strconv.FormatFloat(directive.Confidence, 'f', 2, 64),
			strconv.FormatBool(directive.RequiresReview),
			directive.Reason,
		})
	}
	if err := writeTable([]string{"CANONICAL_ID", "MERGED_IDS", "CONFIDENCE", "REVIEW", "REASON"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}

func loadCandidates(path string) ([]resolve.Candidate, error) {
	raw, format, err := readBatchFile(path)
	if err != nil {
		return nil, err
	}
	candidates, err := payloadschema.DecodeCandidates(raw, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return candidates, nil
}

func saveDirectives(ctx context.Context, cfg *config.Config, kind resolve.EntityKind, processed int, directives []resolve.MergeDirective) (string, error) {
	pool, err := openStore(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer pool.Close()

	run, err := pool.StartRun(ctx, "resolve:"+string(kind))
	if err != nil {
		return "", err
	}
	saveErr := pool.SaveMergeDirectives(ctx, run.RunID, directives)
	if err := pool.FinishRun(ctx, run.RunID, processed, len(directives), saveErr); err != nil && saveErr == nil {
		saveErr = err
	}
	if saveErr != nil {
		return "", saveErr
	}
	return run.RunUUID, nil
}
