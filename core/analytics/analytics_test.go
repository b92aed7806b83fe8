package analytics

import (
	"math"
	"testing"
	"time"
)

func points(scores ...float64) []ScorePoint {
	pts := make([]ScorePoint, 0, len(scores))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, s := range scores {
		pts = append(pts, ScorePoint{
			TermID:      "t",
			CycleID:     "c",
			Score:       s,
			PublishedAt: base.AddDate(0, i, 0),
		})
	}
	return pts
}

func TestPercentileRank(t *testing.T) {
	cohort := []float64{50, 60, 70, 70, 80, 90}

	tests := []struct {
		name  string
		score float64
		want  float64
	}{
		{name: "top of cohort", score: 95, want: 100},
		{name: "bottom of cohort", score: 40, want: 0},
		{name: "lowest member", score: 50, want: 0},
		{name: "middle", score: 80, want: 66},
		{name: "ties share the lower percentile", score: 70, want: 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentileRank(cohort, tt.score); got != tt.want {
				t.Errorf("PercentileRank(%g) = %g, want %g", tt.score, got, tt.want)
			}
		})
	}

	if got := PercentileRank(nil, 70); got != 0 {
		t.Errorf("PercentileRank(empty) = %g, want 0", got)
	}
}

func TestClassifyGrowth(t *testing.T) {
	tests := []struct {
		name    string
		history []ScorePoint
		want    Trajectory
	}{
		{name: "clearly improving", history: points(70, 75), want: TrajectoryImproving},
		{name: "clearly declining", history: points(75, 70), want: TrajectoryDeclining},
		{name: "inside the dead band", history: points(70, 70.8), want: TrajectoryStable},
		{name: "exactly on the dead band", history: points(70, 71), want: TrajectoryStable},
		{name: "just past the dead band", history: points(70, 71.1), want: TrajectoryImproving},
		{name: "only the last two points matter", history: points(90, 70, 75), want: TrajectoryImproving},
		{name: "single point", history: points(70), want: TrajectoryStable},
		{name: "no history", history: nil, want: TrajectoryStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyGrowth(tt.history, 1.0); got != tt.want {
				t.Errorf("ClassifyGrowth() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPredictNext(t *testing.T) {
	t.Run("three point fit", func(t *testing.T) {
		pred, err := PredictNext(points(78, 82, 85), 3)
		if err != nil {
			t.Fatalf("PredictNext() failed: %v", err)
		}
		// slope 3.5, intercept 78.1667 over x = 0..2
		if want := 88.6667; math.Abs(pred.NextScore-want) > 1e-3 {
			t.Errorf("NextScore = %g, want %g", pred.NextScore, want)
		}
		if pred.Points != 3 {
			t.Errorf("Points = %d, want 3", pred.Points)
		}
		if pred.Lower >= pred.NextScore || pred.Upper <= pred.NextScore {
			t.Errorf("interval [%g, %g] does not bracket %g", pred.Lower, pred.Upper, pred.NextScore)
		}
	})

	t.Run("two points extrapolate the delta", func(t *testing.T) {
		pred, err := PredictNext(points(78, 82), 3)
		if err != nil {
			t.Fatalf("PredictNext() failed: %v", err)
		}
		if want := 86.0; math.Abs(pred.NextScore-want) > 1e-9 {
			t.Errorf("NextScore = %g, want %g", pred.NextScore, want)
		}
	})

	t.Run("more history tightens the interval", func(t *testing.T) {
		short, err := PredictNext(points(78, 82), 3)
		if err != nil {
			t.Fatalf("PredictNext() failed: %v", err)
		}
		long, err := PredictNext(points(78, 82, 85), 3)
		if err != nil {
			t.Fatalf("PredictNext() failed: %v", err)
		}
		if shortWidth, longWidth := short.Upper-short.Lower, long.Upper-long.Lower; longWidth >= shortWidth {
			t.Errorf("interval width did not shrink: 2 points %g, 3 points %g", shortWidth, longWidth)
		}
		if long.Confidence <= short.Confidence {
			t.Errorf("confidence did not grow: 2 points %g, 3 points %g", short.Confidence, long.Confidence)
		}
	})

	t.Run("window bounds the history used", func(t *testing.T) {
		pred, err := PredictNext(points(10, 78, 82, 85), 3)
		if err != nil {
			t.Fatalf("PredictNext() failed: %v", err)
		}
		if pred.Points != 3 {
			t.Errorf("Points = %d, want 3", pred.Points)
		}
		// the outlier outside the window must not drag the fit
		if want := 88.6667; math.Abs(pred.NextScore-want) > 1e-3 {
			t.Errorf("NextScore = %g, want %g", pred.NextScore, want)
		}
	})

	t.Run("insufficient history", func(t *testing.T) {
		if _, err := PredictNext(points(78), 3); err != ErrInsufficientHistory {
			t.Errorf("PredictNext() error = %v, want %v", err, ErrInsufficientHistory)
		}
		if _, err := PredictNext(nil, 3); err != ErrInsufficientHistory {
			t.Errorf("PredictNext() error = %v, want %v", err, ErrInsufficientHistory)
		}
	})
}
