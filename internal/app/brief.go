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

	"github.com/rs/zerolog"

	"horse.fit/trustbrief/internal/brief"
	"horse.fit/trustbrief/internal/cli"
	"horse.fit/trustbrief/internal/config"
	"horse.fit/trustbrief/internal/globaltime"
	payloadschema "horse.fit/trustbrief/schema"
)

func runBrief(args []string) int {
	fs := flag.NewFlagSet("brief", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	currentPath := fs.String("current", "", "Current server record batch (.json or .yaml)")
	priorPath := fs.String("prior", "", "Prior score snapshot file; when empty the previous day's stored snapshot is used if DATABASE_URL is set")
	nowRaw := fs.String("now", "", "Generation time in RFC3339 (default: current UTC time)")
	save := fs.Bool("save", false, "Store the brief and today's snapshot in the database")
	timeout := fs.Duration("timeout", 60*time.Second, "Overall command timeout")
	formatRaw := fs.String("format", outputFormatTable, "Output format: table|json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*currentPath) == "" {
		fmt.Fprintln(os.Stderr, "--current is required")
		return 2
	}
	format, err := parseOutputFormat(*formatRaw, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --format: %v\n", err)
		return 2
	}
	now := globaltime.UTC()
	if trimmed := strings.TrimSpace(*nowRaw); trimmed != "" {
		parsed, err := time.Parse(time.RFC3339, trimmed)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Invalid --now: must be RFC3339")
			return 2
		}
		now = parsed.UTC()
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if *save {
		if err := cfg.RequireDatabase(); err != nil {
			fmt.Fprintf(os.Stderr, "--save: %v\n", err)
			return 2
		}
	}

	raw, fileFormat, err := readBatchFile(*currentPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read current records failed: %v\n", err)
		return 1
	}
	records, err := payloadschema.DecodeServerRecords(raw, fileFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid current records: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	prior, err := loadPrior(ctx, cfg, logger, *priorPath, now)
	if err != nil {
		logger.Error().Err(err).Msg("loading prior snapshot failed")
		fmt.Fprintf(os.Stderr, "Load prior snapshot failed: %v\n", err)
		return 1
	}

	calculator := brief.NewCalculator(cfg.PermalinkBaseURL)
	daily := calculator.Build(records, prior, brief.Options{
		MaxMovers:        cfg.BriefMaxMovers,
		MaxDowngrades:    cfg.BriefMaxDowngrades,
		MaxNewEntrants:   cfg.BriefMaxNewEntrants,
		NewEntrantWindow: cfg.BriefNewEntrantWindow,
		Now:              now,
	})

	logger.Info().
		Str("date", daily.Date).
		Int("records", len(records)).
		Int("prior", len(prior)).
		Int("movers", len(daily.Movers)).
		Int("downgrades", len(daily.Downgrades)).
		Int("new_entrants", len(daily.NewEntrants)).
		Msg("daily brief computed")

	if *save {
		if err := saveBrief(ctx, cfg, records, daily, now); err != nil {
			logger.Error().Err(err).Msg("saving daily brief failed")
			fmt.Fprintf(os.Stderr, "Save failed: %v\n", err)
			return 1
		}
	}

	if format == outputFormatJSON {
		if err := printJSON(daily); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
			return 1
		}
		return 0
	}
	if err := writeBriefTables(daily); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}

func loadPrior(ctx context.Context, cfg *config.Config, logger zerolog.Logger, path string, now time.Time) (brief.Snapshot, error) {
	if strings.TrimSpace(path) != "" {
		raw, format, err := readBatchFile(path)
		if err != nil {
			return nil, err
		}
		return payloadschema.DecodeSnapshot(raw, format)
	}

	if cfg.RequireDatabase() != nil {
		logger.Warn().Msg("no prior snapshot given and DATABASE_URL is unset; movers and downgrades will be empty")
		return brief.Snapshot{}, nil
	}

	pool, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	priorDay := globaltime.DayStartOf(now).AddDate(0, 0, -1)
	return pool.LoadSnapshot(ctx, priorDay)
}

func saveBrief(ctx context.Context, cfg *config.Config, records []brief.ServerRecord, daily brief.DailyBrief, now time.Time) error {
	pool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	run, err := pool.StartRun(ctx, "brief")
	if err != nil {
		return err
	}
	saveErr := pool.SaveDailyBrief(ctx, run.RunID, now, records, daily)
	emitted := len(daily.Movers) + len(daily.Downgrades) + len(daily.NewEntrants)
	if err := pool.FinishRun(ctx, run.RunID, len(records), emitted, saveErr); err != nil && saveErr == nil {
		saveErr = err
	}
	return saveErr
}

func writeBriefTables(daily brief.DailyBrief) error {
	fmt.Fprintf(stdout, "Daily brief %s\n\n", daily.Date)

	fmt.Fprintln(stdout, "Top movers")
	moverRows := make([][]string, 0, len(daily.Movers))
	for _, mover := range daily.Movers {
		moverRows = append(moverRows, []string{
			mover.ServerName,
			mover.ProviderName,
			formatScore(mover.ScoreDelta),
			strconv.Itoa(mover.EvidenceDelta),
			joinReasons(mover.Reasons),
			mover.Permalink,
		})
	}
	if err := writeTable([]string{"SERVER", "PROVIDER", "DELTA", "EVIDENCE", "REASONS", "LINK"}, moverRows); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "\nTop downgrades")
	downgradeRows := make([][]string, 0, len(daily.Downgrades))
	for _, downgrade := range daily.Downgrades {
		downgradeRows = append(downgradeRows, []string{
			downgrade.ServerName,
			downgrade.ProviderName,
			formatScore(downgrade.ScoreDelta),
			strings.Join(downgrade.FailFastChanges.Added, ","),
			joinReasons(downgrade.Reasons),
			downgrade.Permalink,
		})
	}
	if err := writeTable([]string{"SERVER", "PROVIDER", "DELTA", "NEW_FAIL_FAST", "REASONS", "LINK"}, downgradeRows); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "\nNew entrants")
	entrantRows := make([][]string, 0, len(daily.NewEntrants))
	for _, entrant := range daily.NewEntrants {
		entrantRows = append(entrantRows, []string{
			entrant.ServerName,
			entrant.ProviderName,
			strconv.FormatFloat(entrant.TrustScore, 'f', 1, 64),
			string(entrant.Tier),
			strconv.Itoa(entrant.EvidenceConfidence),
			entrant.LastAssessedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writeTable([]string{"SERVER", "PROVIDER", "SCORE", "TIER", "EVIDENCE", "ASSESSED"}, entrantRows); err != nil {
		return err
	}

	snapshot := daily.TierSnapshot
	fmt.Fprintln(stdout, "\nTier snapshot")
	tierRows := make([][]string, 0, len(brief.Tiers))
	for _, tier := range brief.Tiers {
		tierRows = append(tierRows, []string{string(tier), strconv.Itoa(snapshot.ByTier[tier])})
	}
	tierRows = append(tierRows,
		[]string{"fail-fast", strconv.Itoa(snapshot.WithFailFast)},
		[]string{"total", strconv.Itoa(snapshot.Total)},
	)
	return writeTable([]string{"TIER", "SERVERS"}, tierRows)
}

func joinReasons(reasons []brief.ReasonCode) string {
	parts := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		parts = append(parts, string(reason))
	}
	return strings.Join(parts, ",")
}
