// Package analytics derives cohort percentiles, growth trajectories and
// score predictions from published reports. Everything here is recomputable:
// records are never authoritative and are safe to discard and regenerate.
package analytics

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrInsufficientHistory means fewer than two published scores exist;
	// callers are expected to omit the prediction, not fail the request.
	ErrInsufficientHistory = errors.New("not enough published history for a prediction")
)

// ScorePoint is one published overall score in a student's history.
type ScorePoint struct {
	TermID      string    `json:"term_id"`
	CycleID     string    `json:"cycle_id"`
	Score       float64   `json:"score"`
	PublishedAt time.Time `json:"published_at"` // UTC
}

// Trajectory classifies a student's recent score movement.
type Trajectory string

const (
	TrajectoryImproving Trajectory = "improving"
	TrajectoryDeclining Trajectory = "declining"
	TrajectoryStable    Trajectory = "stable"
)

// Percentiles are the student's cohort-relative standings.
type Percentiles struct {
	Class  float64 `json:"class"`
	Grade  float64 `json:"grade"`
	School float64 `json:"school"`
}

// Prediction is a linear extrapolation of the next overall score.
type Prediction struct {
	NextScore  float64 `json:"next_score"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"` // shrinks with shorter history
	Points     int     `json:"points"`     // history length used
}

// Record is the derived analytics output for one (student, term).
type Record struct {
	StudentID   string      `json:"student_id"`
	TermID      string      `json:"term_id"`
	Percentiles Percentiles `json:"percentiles"`
	Trajectory  Trajectory  `json:"trajectory"`
	Prediction  *Prediction `json:"prediction,omitempty"`
	Risks       []string    `json:"risks,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"` // UTC
}

// PercentileRank places score within the cohort distribution using the
// nearest-rank method: percentile = 100 * (scores strictly below) / count.
// Ties share the same (lower) percentile; results are always in [0, 100].
func PercentileRank(cohort []float64, score float64) float64 {
	if len(cohort) == 0 {
		return 0
	}
	var below int
	for _, s := range cohort {
		if s < score {
			below++
		}
	}
	return math.Floor(100 * float64(below) / float64(len(cohort)))
}

// ClassifyGrowth compares the two most recent published scores with a
// dead-band: a move within +-deadBand counts as stable.
func ClassifyGrowth(history []ScorePoint, deadBand float64) Trajectory {
	if len(history) < 2 {
		return TrajectoryStable
	}
	latest := history[len(history)-1].Score
	previous := history[len(history)-2].Score
	switch delta := latest - previous; {
	case delta > deadBand:
		return TrajectoryImproving
	case delta < -deadBand:
		return TrajectoryDeclining
	default:
		return TrajectoryStable
	}
}

// PredictNext extrapolates the next score by least squares over the last
// window points of history. The interval derives from the residual variance
// of the fit; with only two points the fit is exact, so the spread of the
// points stands in for the residuals, which widens the interval and lowers
// the reported confidence.
func PredictNext(history []ScorePoint, window int) (Prediction, error) {
	if window < 2 {
		window = 2
	}
	if len(history) < 2 {
		return Prediction{}, ErrInsufficientHistory
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	n := len(history)

	// least-squares fit over x = 0..n-1
	var sumX, sumY, sumXY, sumXX float64
	for i, pt := range history {
		x := float64(i)
		sumX += x
		sumY += pt.Score
		sumXY += x * pt.Score
		sumXX += x * x
	}
	fn := float64(n)
	slope := (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / fn
	next := intercept + slope*fn

	var spread float64
	if n > 2 {
		var ssRes float64
		for i, pt := range history {
			resid := pt.Score - (intercept + slope*float64(i))
			ssRes += resid * resid
		}
		spread = math.Sqrt(ssRes / float64(n-2))
	} else {
		spread = math.Abs(history[1].Score - history[0].Score)
	}

	margin := 2 * spread
	confidence := (1 - 1/fn) / (1 + spread/4)
	return Prediction{
		NextScore:  next,
		Lower:      next - margin,
		Upper:      next + margin,
		Confidence: confidence,
		Points:     n,
	}, nil
}
