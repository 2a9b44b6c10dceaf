// Command recalculate rebuilds every rating from the stored history.
//
// Usage:
//
//	recalculate [-config sailrank.yaml] [-season f24] [-apply-decay]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/sailrank/internal/app"
	"github.com/okian/sailrank/internal/config"
	"github.com/okian/sailrank/internal/domain/types"
	"github.com/okian/sailrank/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "recalculate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("recalculate", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv(config.EnvConfigFile), "YAML configuration file")
	seasonID := fs.String("season", "", "reference season, e.g. f24 (default: configured or current season)")
	applyDecay := fs.Bool("apply-decay", false, "decay participants inactive in the reference season afterwards")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFile(ctx, *configPath)
	if err != nil {
		return err
	}
	if *seasonID != "" {
		cfg.ReferenceSeason = *seasonID
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}

	opts, err := app.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	svc := app.New(append(opts, app.WithLogger(logger.Named("recalculate")))...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	rep, err := svc.Recalculate(ctx, *applyDecay)
	if err != nil {
		return err
	}
	printReport(out, rep, svc.GetStats(ctx))
	return nil
}

func printReport(out io.Writer, rep types.RecalculationReport, st types.Stats) {
	fmt.Fprintf(out, "run %s (season %s)\n", rep.RunID, rep.Season)
	fmt.Fprintf(out, "  events:       %d\n", rep.Events)
	fmt.Fprintf(out, "  divisions:    %d\n", rep.Divisions)
	fmt.Fprintf(out, "  comparisons:  %d\n", rep.Comparisons)
	fmt.Fprintf(out, "  decayed:      %d\n", rep.Decayed)
	fmt.Fprintf(out, "  participants: %d\n", st.Participants)
	fmt.Fprintf(out, "  affiliations: %d\n", st.Affiliations)
	fmt.Fprintf(out, "  took:         %s\n", rep.Duration)
}
