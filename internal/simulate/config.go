// Package simulate generates synthetic regatta seasons, submits them to a
// running service over HTTP and checks the resulting standings.
package simulate

import (
	"time"

	"github.com/okian/sailrank/pkg/logger"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL          string        // Base URL of the service
	Seed             uint64        // Seed for the generator; equal seeds give equal seasons
	Year             int           // Fall of this year is simulated
	Regattas         int           // Number of regattas to generate
	Schools          int           // Number of competing schools
	SailorsPerSchool int           // Roster size per school
	Divisions        []string      // Division labels raced at every regatta
	TopN             int           // Number of leaderboard entries to fetch and verify
	Workers          int           // Number of concurrent submitters
	Timeout          time.Duration // HTTP request timeout
	Settle           time.Duration // Upper bound on waiting for the queue to drain
	Recalculate      bool          // Replay the season chronologically after submission
	OutputFile       string        // Optional file receiving the generated sheets
	Logger           logger.Logger // Defaults to the global logger
}

// Defaults returns a configuration for a small season.
func Defaults() *Config {
	return &Config{
		BaseURL:          "http://localhost:9080",
		Seed:             1,
		Year:             2024,
		Regattas:         20,
		Schools:          12,
		SailorsPerSchool: 8,
		Divisions:        []string{"A", "B"},
		TopN:             25,
		Workers:          4,
		Timeout:          30 * time.Second,
		Settle:           time.Minute,
		Recalculate:      true,
	}
}

// Report summarizes a simulation run.
type Report struct {
	Regattas     int
	Placements   int
	Accepted     int
	Duplicate    int
	Rejected     int
	Retried      int
	Failed       int
	Leaderboard  int
	RankChecks   int
	Concordance  float64 // share of leaderboard pairs ordered like the hidden skills
	RecalcRunID  string
	Participants int
	Duration     time.Duration
}
