package simulate

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/okian/sailrank/internal/domain/model"
)

var (
	firstNames = []string{
		"Ava", "Ben", "Cora", "Dan", "Eli", "Fay", "Gus", "Hana", "Ivan", "Jade",
		"Kai", "Lena", "Max", "Nina", "Owen", "Pia", "Quinn", "Rosa", "Sam", "Tess",
	}
	lastNames = []string{
		"Abbott", "Baker", "Chen", "Diaz", "Evans", "Foster", "Garcia", "Hughes",
		"Ito", "Jensen", "Kowalski", "Lopez", "Murphy", "Nguyen", "Olsen", "Patel",
	}
	regattaNames = []string{
		"Fall Open", "Harvest Invitational", "District Qualifier", "League Championship",
		"JV Challenge", "Island Trophy", "Founders Regatta", "District Championship",
	}
)

const dnfRate = 0.03

// Sheet is the wire shape of a POST /events body.
type Sheet struct {
	ID          string      `json:"id"`
	Event       SheetEvent  `json:"event"`
	Description string      `json:"description,omitempty"`
	Placements  []Placement `json:"placements"`
}

// SheetEvent describes the regatta of a sheet.
type SheetEvent struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// Placement is one sailor's finish on a sheet.
type Placement = model.Placement

type sailor struct {
	name   string
	school string
	skill  float64
}

// Season is a generated set of result sheets plus the hidden skill of every
// sailor, keyed by participant ID.
type Season struct {
	Sheets []Sheet
	Skills map[string]float64
}

// Placements returns the number of placements over all sheets.
func (s Season) Placements() int {
	n := 0
	for _, sh := range s.Sheets {
		n += len(sh.Placements)
	}
	return n
}

// Generate builds a fall season from cfg. Each school sends one skipper and
// one crew per division to every regatta it attends; boats finish in the
// order of their noisy combined skill.
func Generate(cfg *Config) Season {
	rng := rand.New(rand.NewPCG(cfg.Seed, uint64(cfg.Year)))
	schools := make([]string, cfg.Schools)
	rosters := make([][]sailor, cfg.Schools)
	skills := make(map[string]float64)

	for i := range schools {
		schools[i] = fmt.Sprintf("School %02d", i+1)
		used := make(map[string]bool)
		for len(rosters[i]) < cfg.SailorsPerSchool {
			name := fmt.Sprintf("%s %s '%02d",
				firstNames[rng.IntN(len(firstNames))],
				lastNames[rng.IntN(len(lastNames))],
				(cfg.Year+1+rng.IntN(4))%100)
			if used[name] {
				continue
			}
			used[name] = true
			s := sailor{name: name, school: schools[i], skill: rng.NormFloat64()}
			rosters[i] = append(rosters[i], s)
			skills[model.ParticipantID(s.name, s.school)] = s.skill
		}
	}

	start := time.Date(cfg.Year, time.September, 1, 0, 0, 0, 0, time.UTC)
	sheets := make([]Sheet, 0, cfg.Regattas)
	for r := range cfg.Regattas {
		date := start.AddDate(0, 0, 7*(r/2)+rng.IntN(2))
		sheet := Sheet{
			ID: fmt.Sprintf("sim-%d-%d-%04d", cfg.Seed, cfg.Year, r),
			Event: SheetEvent{
				Name: fmt.Sprintf("%s %d", regattaNames[rng.IntN(len(regattaNames))], r+1),
				Date: date.Format(time.DateOnly),
			},
		}

		attending := rng.Perm(cfg.Schools)[:minSchools(cfg.Schools)+rng.IntN(cfg.Schools-minSchools(cfg.Schools)+1)]
		lineups := make(map[int][]int, len(attending))
		for _, i := range attending {
			lineups[i] = rng.Perm(len(rosters[i]))
		}
		for d, div := range cfg.Divisions {
			sheet.Placements = append(sheet.Placements, raceDivision(rng, div, d, attending, lineups, rosters)...)
		}
		sheets = append(sheets, sheet)
	}
	return Season{Sheets: sheets, Skills: skills}
}

func minSchools(n int) int {
	return min(n, 4)
}

type boat struct {
	skipper, crew sailor
	speed         float64
}

// raceDivision sails division d. Each school fields the d-th pair of its
// lineup, wrapping around short rosters.
func raceDivision(rng *rand.Rand, division string, d int, attending []int, lineups map[int][]int, rosters [][]sailor) []Placement {
	boats := make([]boat, 0, len(attending))
	for _, i := range attending {
		roster, lineup := rosters[i], lineups[i]
		b := boat{
			skipper: roster[lineup[(2*d)%len(lineup)]],
			crew:    roster[lineup[(2*d+1)%len(lineup)]],
		}
		b.speed = (2*b.skipper.skill+b.crew.skill)/3 + 0.5*rng.NormFloat64()
		boats = append(boats, b)
	}
	slices.SortFunc(boats, func(a, b boat) int { return cmp.Compare(b.speed, a.speed) })

	out := make([]Placement, 0, 2*len(boats))
	for i, b := range boats {
		place := model.PlaceOf(i + 1)
		if rng.Float64() < dnfRate {
			place = "DNF"
		}
		out = append(out, Placement{Name: b.skipper.name, Affiliation: b.skipper.school, Division: division, Role: model.Skipper, Place: place})
		if b.crew != b.skipper {
			out = append(out, Placement{Name: b.crew.name, Affiliation: b.crew.school, Division: division, Role: model.Crew, Place: place})
		}
	}
	return out
}
