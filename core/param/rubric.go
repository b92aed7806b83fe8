package param

import (
	"sort"
	"time"
)

// RubricLevel is one discrete grade level of a rubric version.
// MinScore is the level's lower boundary, inclusive.
type RubricLevel struct {
	Letter     string   `json:"letter"`
	Descriptor string   `json:"descriptor"`
	Examples   []string `json:"examples,omitempty"`
	Indicators []string `json:"indicators,omitempty"`
	MinScore   float64  `json:"min_score"`
}

// Rubric is a versioned mapping from numeric scores to grade levels for one
// Parameter. Versions are append-only: a published rubric row is never
// mutated, corrections get a new version.
type Rubric struct {
	ParameterID string        `json:"parameter_id"`
	Version     int           `json:"version"`
	Levels      []RubricLevel `json:"levels"`
	Published   bool          `json:"published"`
	CreatedAt   time.Time     `json:"created_at"` // UTC
}

// Grade is a resolved rubric level for a concrete score.
type Grade struct {
	Letter     string   `json:"letter"`
	Descriptor string   `json:"descriptor"`
	Examples   []string `json:"examples,omitempty"`
	Indicators []string `json:"indicators,omitempty"`
}

// Resolve maps a numeric score to a grade by ordered boundary scan:
// highest boundary first, first match wins, so a score sitting exactly on a
// boundary resolves to the higher grade.
func (r Rubric) Resolve(score float64) Grade {
	if len(r.Levels) == 0 {
		return Grade{}
	}

	levels := make([]RubricLevel, len(r.Levels))
	copy(levels, r.Levels)
	sort.Slice(levels, func(i, j int) bool { return levels[i].MinScore > levels[j].MinScore })

	for _, lvl := range levels {
		if score >= lvl.MinScore {
			return Grade{
				Letter:     lvl.Letter,
				Descriptor: lvl.Descriptor,
				Examples:   lvl.Examples,
				Indicators: lvl.Indicators,
			}
		}
	}
	// below the lowest boundary: the lowest level still applies
	lowest := levels[len(levels)-1]
	return Grade{
		Letter:     lowest.Letter,
		Descriptor: lowest.Descriptor,
		Examples:   lowest.Examples,
		Indicators: lowest.Indicators,
	}
}

// DefaultLevels returns the standard five-level scale for a parameter score
// range, used by the admin seeder.
func DefaultLevels(min, max float64) []RubricLevel {
	span := max - min
	return []RubricLevel{
		{Letter: "A+", Descriptor: "Outstanding", MinScore: min + span*0.9},
		{Letter: "A", Descriptor: "Excellent", MinScore: min + span*0.75},
		{Letter: "B", Descriptor: "Good", MinScore: min + span*0.5},
		{Letter: "C", Descriptor: "Developing", MinScore: min + span*0.25},
		{Letter: "D", Descriptor: "Needs support", MinScore: min},
	}
}
