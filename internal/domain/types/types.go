// Package types contains the read shapes shared by the service and the API.
package types

import (
	"fmt"
	"time"

	"github.com/okian/sailrank/internal/domain/model"
)

// Profile is a participant's page: rating, rank and result history.
type Profile struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	CleanName   string        `json:"clean_name"`
	GradYear    string        `json:"grad_year"`
	Affiliation string        `json:"affiliation"`
	Rating      float64       `json:"rating"`
	Rank        int           `json:"rank"`
	PrimaryRole string        `json:"primary_role"`
	History     []HistoryItem `json:"history"`
}

// HistoryItem is one result on a profile.
type HistoryItem struct {
	EventID      string      `json:"event_id"`
	EventName    string      `json:"event_name"`
	Date         time.Time   `json:"date"`
	Season       string      `json:"season"`
	Division     string      `json:"division"`
	Role         model.Role  `json:"role"`
	Place        model.Place `json:"place"`
	RatingChange float64     `json:"rating_change"`
}

// Stats summarizes service state for monitoring.
type Stats struct {
	Started         bool   `json:"started"`
	Participants    int    `json:"participants"`
	Events          int    `json:"events"`
	Affiliations    int    `json:"affiliations"`
	Results         int    `json:"results"`
	QueueLength     int    `json:"queue_length"`
	DedupeSize      int    `json:"dedupe_size"`
	Season          string `json:"season"`
	LastRecalculate string `json:"last_recalculation_id,omitempty"`
}

// RecalculationReport describes one full rebuild.
type RecalculationReport struct {
	RunID       string        `json:"run_id"`
	Season      string        `json:"season"`
	Events      int           `json:"events"`
	Divisions   int           `json:"divisions"`
	Comparisons int           `json:"comparisons"`
	Decayed     int           `json:"decayed"`
	Duration    time.Duration `json:"duration_ns"`
}

// PrimaryRole summarizes which seat a participant sails most, e.g.
// "Skipper (75%)". Equal counts report "Both (50%)"; no results report "-".
func PrimaryRole(results []model.Result) string {
	var skipper, crew int
	for _, r := range results {
		switch r.Role {
		case model.Skipper:
			skipper++
		case model.Crew:
			crew++
		}
	}
	total := skipper + crew
	if total == 0 {
		return "-"
	}
	switch {
	case skipper > crew:
		return fmt.Sprintf("%s (%.0f%%)", model.Skipper, 100*float64(skipper)/float64(total))
	case crew > skipper:
		return fmt.Sprintf("%s (%.0f%%)", model.Crew, 100*float64(crew)/float64(total))
	default:
		return "Both (50%)"
	}
}
