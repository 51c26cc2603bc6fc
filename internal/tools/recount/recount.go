// Package recount implements the recount command: it rebuilds reaction
// counters and totals from the reaction event log, or checks them for drift.
package recount

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/louisbranch/reactions/internal/platform/cmd"
	"github.com/louisbranch/reactions/internal/platform/logging"
	"github.com/louisbranch/reactions/internal/reaction/kind"
	engine "github.com/louisbranch/reactions/internal/recount"
	"github.com/louisbranch/reactions/internal/storage/sqlite"
)

// ErrDrift is returned by Run in check mode when stored aggregates differ
// from the event log.
var ErrDrift = errors.New("stored counters differ from reaction events")

// Config holds recount command configuration.
type Config struct {
	Model      string
	Type       string
	DBPath     string        `env:"REACTIONS_DB_PATH" envDefault:"data/reactions.db"`
	KindsPath  string        `env:"REACTIONS_KINDS_PATH" envDefault:"data/kinds.yaml"`
	Timeout    time.Duration `env:"REACTIONS_RECOUNT_TIMEOUT" envDefault:"0s"`
	LogLevel   string        `env:"REACTIONS_LOG_LEVEL" envDefault:"info"`
	LogFormat  string        `env:"REACTIONS_LOG_FORMAT" envDefault:"console"`
	Check      bool
	JSONOutput bool
	NoProgress bool
}

// ParseConfig parses environment defaults and then flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	return parseConfig(fs, args, nil)
}

func parseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.Model, "model", "", "subject kind name or alias to recount (default: all kinds)")
	fs.StringVar(&cfg.Type, "type", "", "reaction type name to recount (default: all types)")
	fs.StringVar(&cfg.DBPath, "db-path", "", "path to reactions sqlite database (default: REACTIONS_DB_PATH or data/reactions.db)")
	fs.StringVar(&cfg.KindsPath, "kinds-path", "", "path to the subject kind registry (default: REACTIONS_KINDS_PATH or data/kinds.yaml)")
	fs.BoolVar(&cfg.Check, "check", false, "compare stored counters and totals against reaction events without writing")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.BoolVar(&cfg.NoProgress, "no-progress", false, "disable the progress bar")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "overall timeout (default: REACTIONS_RECOUNT_TIMEOUT or 0 = none)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "log level debug|info|warn|error (default: REACTIONS_LOG_LEVEL or info)")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "log format console|json (default: REACTIONS_LOG_FORMAT or console)")
	if err := cmd.ParseConfigFromArgs(&cfg, fs, args, environ); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return cfg, nil
}

// Run executes the recount command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	logger, err := logging.New(errOut, logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cmd.ServiceRecount,
	})
	if err != nil {
		return err
	}

	registry, err := kind.LoadFile(cfg.KindsPath)
	if err != nil {
		return fmt.Errorf("load kinds: %w", err)
	}

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open reactions store: %w", err)
	}

	return runWithDeps(ctx, cfg, store, registry, logger, out, errOut)
}

// runWithDeps contains the core recount logic with injectable dependencies.
// It owns the lifecycle of the store (closing it on return).
func runWithDeps(ctx context.Context, cfg Config, store closableStore, kinds engine.Resolver, logger zerolog.Logger, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(errOut, "Error: close reactions store: %v\n", err)
		}
	}()

	opts := []engine.Option{engine.WithLogger(logger)}
	if !cfg.NoProgress && !cfg.JSONOutput && isTerminal(errOut) {
		opts = append(opts, engine.WithProgress(newProgressBar(errOut)))
	}
	e := engine.New(store, kinds, opts...)
	filter := engine.Filter{
		SubjectKind:      strings.TrimSpace(cfg.Model),
		ReactionTypeName: strings.TrimSpace(cfg.Type),
	}

	if cfg.Check {
		report, err := e.Check(ctx, filter)
		if err != nil {
			return err
		}
		if cfg.JSONOutput {
			outputJSON(out, errOut, report)
		} else {
			printCheckReport(out, report)
		}
		if !report.Clean() {
			return fmt.Errorf("%w: %d rows", ErrDrift, len(report.Drift))
		}
		return nil
	}

	report, err := e.Recount(ctx, filter)
	if err != nil {
		if report.SubjectsProcessed > 0 {
			fmt.Fprintf(errOut, "Recounted %d subjects before the run stopped; re-run to finish\n", report.SubjectsProcessed)
		}
		return err
	}
	if cfg.JSONOutput {
		outputJSON(out, errOut, report)
		return nil
	}
	printReport(out, report)
	return nil
}

func outputJSON(out io.Writer, errOut io.Writer, value any) {
	encoder := json.NewEncoder(out)
	if err := encoder.Encode(value); err != nil {
		fmt.Fprintf(errOut, "Error: encode json: %v\n", err)
	}
}

func printReport(out io.Writer, report engine.Report) {
	fmt.Fprintf(out, "Recounted %d subjects (kind=%s, type=%s)\n",
		report.SubjectsProcessed, orAll(report.SubjectKind), orAll(report.ReactionTypeID))
	fmt.Fprintf(out, "Counters reset: %d, rebuilt: %d, events replayed: %d, totals recomputed: %d\n",
		report.CountersReset, report.CountersRebuilt, report.EventsReplayed, report.TotalsRecomputed)
}

func printCheckReport(out io.Writer, report engine.CheckReport) {
	fmt.Fprintf(out, "Checked %d subjects (kind=%s, type=%s), %d events replayed\n",
		report.SubjectsChecked, orAll(report.SubjectKind), orAll(report.ReactionTypeID), report.EventsReplayed)
	if report.Clean() {
		fmt.Fprintln(out, "No drift found")
		return
	}
	fmt.Fprintf(out, "Drift (%d rows):\n", len(report.Drift))
	for _, d := range report.Drift {
		target := string(d.Scope)
		if d.ReactionTypeID != "" {
			target += " " + d.ReactionTypeID
		}
		stored := fmt.Sprintf("%d/%s", d.StoredCount, d.StoredWeight)
		if d.Missing {
			stored = "missing"
		}
		fmt.Fprintf(out, "- subject=%s %s stored=%s expected=%d/%s\n",
			d.SubjectID, target, stored, d.ExpectedCount, d.ExpectedWeight)
	}
}

func orAll(value string) string {
	if value == "" {
		return "all"
	}
	return value
}
