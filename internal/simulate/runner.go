package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sailrank/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
	maxSubmitAttempts   = 5
	retryBackoff        = 50 * time.Millisecond
	pollInterval        = 50 * time.Millisecond
)

// ErrInvalidConfig reports a configuration the simulator cannot run.
var ErrInvalidConfig = errors.New("invalid simulation config")

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: missing base url", ErrInvalidConfig)
	case c.Regattas < 1:
		return fmt.Errorf("%w: regattas must be positive", ErrInvalidConfig)
	case c.Schools < 2:
		return fmt.Errorf("%w: at least two schools are needed", ErrInvalidConfig)
	case c.SailorsPerSchool < 1:
		return fmt.Errorf("%w: sailors per school must be positive", ErrInvalidConfig)
	case len(c.Divisions) == 0:
		return fmt.Errorf("%w: no divisions", ErrInvalidConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	return nil
}

// Run executes a complete simulation against a running service.
func Run(ctx context.Context, cfg *Config) (Report, error) {
	start := time.Now()
	var rep Report
	if err := cfg.validate(); err != nil {
		return rep, err
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting regatta simulation",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("regattas", cfg.Regattas),
		logger.Int("schools", cfg.Schools),
		logger.Int("workers", cfg.Workers),
	)

	if err := client.Health(ctx); err != nil {
		return rep, fmt.Errorf("service health check failed: %w", err)
	}

	season := Generate(cfg)
	rep.Regattas, rep.Placements = len(season.Sheets), season.Placements()
	if cfg.OutputFile != "" {
		if err := saveSheets(cfg.OutputFile, season.Sheets); err != nil {
			log.Warn(ctx, "failed to save sheets", logger.Error(err))
		}
	}

	if err := submitSheets(ctx, client, cfg.Workers, season.Sheets, &rep); err != nil {
		return rep, fmt.Errorf("submission failed: %w", err)
	}
	if err := waitForDrain(ctx, client, cfg.Settle); err != nil {
		return rep, err
	}

	if cfg.Recalculate {
		rc, err := client.Recalculate(ctx)
		if err != nil {
			return rep, fmt.Errorf("recalculation failed: %w", err)
		}
		rep.RecalcRunID = rc.RunID
	}

	board, err := client.Leaderboard(ctx, cfg.TopN)
	if err != nil {
		return rep, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	rep.Leaderboard = len(board)
	if err := VerifyLeaderboard(board); err != nil {
		return rep, err
	}
	for _, e := range board {
		single, err := client.Rank(ctx, e.Participant)
		if err != nil {
			return rep, fmt.Errorf("rank retrieval failed: %w", err)
		}
		if err := VerifyRank(e, single); err != nil {
			return rep, err
		}
		rep.RankChecks++
	}
	rep.Concordance = Concordance(board, season.Skills)

	if st, err := client.Stats(ctx); err == nil {
		rep.Participants = st.Participants
	}
	rep.Duration = time.Since(start)

	log.Info(ctx, "simulation finished",
		logger.Int("accepted", rep.Accepted),
		logger.Int("duplicate", rep.Duplicate),
		logger.Int("rejected", rep.Rejected),
		logger.Int("retried", rep.Retried),
		logger.Int("leaderboard", rep.Leaderboard),
		logger.Float64("concordance", rep.Concordance),
		logger.Duration("duration", rep.Duration),
	)
	return rep, nil
}

// submitSheets posts sheets from a pool of workers, retrying on
// backpressure.
func submitSheets(ctx context.Context, client *Client, workers int, sheets []Sheet, rep *Report) error {
	var accepted, duplicate, rejected, retried, failed atomic.Int64
	var firstErr error
	var errOnce sync.Once

	ch := make(chan Sheet, workers*2)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sheet := range ch {
				outcome, err := submitWithRetry(ctx, client, sheet, &retried)
				switch {
				case err != nil:
					failed.Add(1)
					errOnce.Do(func() { firstErr = err })
				case outcome == Accepted:
					accepted.Add(1)
				case outcome == Duplicate:
					duplicate.Add(1)
				case outcome == Rejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, sheet := range sheets {
			select {
			case <-ctx.Done():
				return
			case ch <- sheet:
			}
		}
	}()
	wg.Wait()

	rep.Accepted = int(accepted.Load())
	rep.Duplicate = int(duplicate.Load())
	rep.Rejected = int(rejected.Load())
	rep.Retried = int(retried.Load())
	rep.Failed = int(failed.Load())
	if err := ctx.Err(); err != nil {
		return err
	}
	return firstErr
}

func submitWithRetry(ctx context.Context, client *Client, sheet Sheet, retried *atomic.Int64) (Outcome, error) {
	var outcome Outcome
	for attempt := range maxSubmitAttempts {
		var err error
		outcome, err = client.Submit(ctx, sheet)
		if err != nil || outcome != Backpressure {
			return outcome, err
		}
		retried.Add(1)
		select {
		case <-ctx.Done():
			return outcome, ctx.Err()
		case <-time.After(retryBackoff << attempt):
		}
	}
	return outcome, nil
}

// waitForDrain polls /stats until the ingestion queue has been empty for two
// consecutive polls. A recalculation afterwards is serialized behind any
// ingest still in flight.
func waitForDrain(ctx context.Context, client *Client, limit time.Duration) error {
	deadline := time.Now().Add(limit)
	empty := 0
	for {
		st, err := client.Stats(ctx)
		if err != nil {
			return fmt.Errorf("stats retrieval failed: %w", err)
		}
		if st.QueueLength == 0 {
			empty++
		} else {
			empty = 0
		}
		if empty >= 2 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("queue still holds %d submissions after %s", st.QueueLength, limit)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// saveSheets writes the generated sheets as a JSON array.
func saveSheets(path string, sheets []Sheet) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(sheets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sheets: %w", err)
	}
	return os.WriteFile(path, data, filePermission)
}
