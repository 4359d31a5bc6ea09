package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/trustbrief/internal/brief"
	"horse.fit/trustbrief/internal/cli"
	payloadschema "horse.fit/trustbrief/schema"
)

func runSnapshot(args []string) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "", "Server record batch (.json or .yaml)")
	dateRaw := fs.String("date", defaultUTCDayString(), "Snapshot date in UTC (YYYY-MM-DD)")
	dryRun := fs.Bool("dry-run", false, "Print the snapshot as JSON instead of storing it")
	timeout := fs.Duration("timeout", 60*time.Second, "Overall command timeout")

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
	day, err := parseUTCDate(*dateRaw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --date: %v\n", err)
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	raw, fileFormat, err := readBatchFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read input failed: %v\n", err)
		return 1
	}
	records, err := payloadschema.DecodeServerRecords(raw, fileFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid server records: %v\n", err)
		return 1
	}

	if *dryRun {
		if err := printJSON(brief.SnapshotFromRecords(records)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("snapshot failed")
		fmt.Fprintf(os.Stderr, "Snapshot failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	if err := pool.SaveSnapshot(ctx, day, records); err != nil {
		logger.Error().Err(err).Msg("snapshot failed")
		fmt.Fprintf(os.Stderr, "Snapshot failed: %v\n", err)
		return 1
	}

	logger.Info().
		Str("date", day.Format("2006-01-02")).
		Int("servers", len(records)).
		Msg("score snapshot stored")
	fmt.Fprintf(stdout, "snapshot date=%s servers=%d\n", day.Format("2006-01-02"), len(records))
	return 0
}
