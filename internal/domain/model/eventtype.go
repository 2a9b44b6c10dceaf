package model

import "strings"

// EventType classifies an event for importance weighting.
type EventType string

// Known event types.
const (
	NationalChampionship EventType = "National Championship"
	NationalInvitational EventType = "National Invitational"
	DistrictChampionship EventType = "District Championship"
	DistrictQualifier    EventType = "District Championship Qualifier"
	InDistrict           EventType = "In-District"
	StateChampionship    EventType = "State Championship"
	LeagueChampionship   EventType = "League Championship"
	InLeague             EventType = "In League"
	JuniorVarsity        EventType = "JV"
	Promotional          EventType = "Promotional"
)

// ClassifyEvent infers the event type from its name and description.
// Earlier rules win.
func ClassifyEvent(name, description string) EventType {
	n := strings.ToLower(name)
	d := strings.ToLower(description)
	has := func(s string) bool { return strings.Contains(n, s) }

	switch {
	case has("national championship") || strings.Contains(d, "national championship"):
		return NationalChampionship
	case has("national") && has("invitational"):
		return NationalInvitational
	case has("district championship"):
		return DistrictChampionship
	case has("district") && has("qualifier"):
		return DistrictQualifier
	case has("district"):
		return InDistrict
	case has("state championship"):
		return StateChampionship
	case has("league championship"):
		return LeagueChampionship
	case has("league"):
		return InLeague
	case has("jv"):
		return JuniorVarsity
	default:
		return Promotional
	}
}
