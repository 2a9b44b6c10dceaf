// Command simulate submits a synthetic regatta season to a running service
// and verifies the standings it produces.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/sailrank/internal/simulate"
	"github.com/okian/sailrank/pkg/logger"
)

const defaultTestTimeout = 10 * time.Minute

func main() {
	cfg := simulate.Defaults()
	var divisions string
	flag.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the service")
	flag.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Generator seed; equal seeds give equal seasons")
	flag.IntVar(&cfg.Year, "year", cfg.Year, "Simulate the fall of this year")
	flag.IntVar(&cfg.Regattas, "regattas", cfg.Regattas, "Number of regattas")
	flag.IntVar(&cfg.Schools, "schools", cfg.Schools, "Number of schools")
	flag.IntVar(&cfg.SailorsPerSchool, "roster", cfg.SailorsPerSchool, "Sailors per school")
	flag.StringVar(&divisions, "divisions", strings.Join(cfg.Divisions, ","), "Comma separated division labels")
	flag.IntVar(&cfg.TopN, "top", cfg.TopN, "Leaderboard entries to fetch and verify")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "Concurrent submitters")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	flag.DurationVar(&cfg.Settle, "settle", cfg.Settle, "Maximum wait for the ingestion queue to drain")
	flag.BoolVar(&cfg.Recalculate, "recalculate", cfg.Recalculate, "Replay the season chronologically before verifying")
	flag.StringVar(&cfg.OutputFile, "output", "", "Write the generated sheets to this JSON file")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()
	cfg.Divisions = strings.Split(divisions, ",")

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	rep, err := simulate.Run(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	fmt.Printf("regattas %d, placements %d: %d accepted, %d duplicate, %d rejected, %d retried\n",
		rep.Regattas, rep.Placements, rep.Accepted, rep.Duplicate, rep.Rejected, rep.Retried)
	fmt.Printf("verified top %d (%d rank lookups), concordance %.3f, %d participants, took %s\n",
		rep.Leaderboard, rep.RankChecks, rep.Concordance, rep.Participants, rep.Duration)
}
