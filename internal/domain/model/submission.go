package model

import (
	"fmt"
	"strings"
)

// Placement is one row of an ingested result sheet.
type Placement struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	Division    string `json:"division"`
	Role        Role   `json:"role"`
	Place       Place  `json:"place"`
}

// Validate checks the identity fields of a placement. The place itself is not
// validated: malformed places are tolerated and contribute nothing.
func (p Placement) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidPlacement)
	case strings.TrimSpace(p.Affiliation) == "":
		return fmt.Errorf("%w: missing affiliation", ErrInvalidPlacement)
	case strings.TrimSpace(p.Division) == "":
		return fmt.Errorf("%w: missing division", ErrInvalidPlacement)
	case strings.TrimSpace(string(p.Role)) == "":
		return fmt.Errorf("%w: missing role", ErrInvalidPlacement)
	}
	return nil
}

// Submission is a full result sheet for one event, as handed over by the
// ingestion collaborator.
type Submission struct {
	ID          string      `json:"id"`
	Event       Event       `json:"event"`
	Description string      `json:"description,omitempty"`
	Placements  []Placement `json:"placements"`
}

// IngestStats summarizes what a submission changed.
type IngestStats struct {
	SubmissionID      string `json:"submission_id"`
	EventID           string `json:"event_id"`
	ParticipantsAdded int    `json:"participants_added"`
	ResultsAdded      int    `json:"results_added"`
	ResultsUpdated    int    `json:"results_updated"`
}
