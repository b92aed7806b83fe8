package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/maendeleo/core/analytics"
	"github.com/trezcool/maendeleo/core/report"
	"github.com/trezcool/maendeleo/core/user"
	dummydb "github.com/trezcool/maendeleo/storage/database/dummy"
	testutil "github.com/trezcool/maendeleo/tests"
)

type testEnv struct {
	db      *dummydb.DB
	reports report.Repository
	svc     *analytics.Service
}

func setup(t *testing.T) *testEnv {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return &testEnv{
		db:      db,
		reports: dummydb.NewReportRepository(db),
		svc: analytics.NewService(
			dummydb.NewAnalyticsRepository(db), dummydb.NewAnalyticsCache(), testutil.Logger{}, testutil.NewConfig(),
		),
	}
}

// publish stores a published report directly; analytics only reads the
// published projection, the compile pipeline is out of scope here.
func (env *testEnv) publish(t *testing.T, studentID, termID string, score, completeness float64, publishedAt time.Time) {
	r := report.Report{
		ID:           uuid.New().String(),
		StudentID:    studentID,
		TermID:       termID,
		CycleID:      "cycle-" + termID,
		Status:       report.StatusPublished,
		Version:      1,
		OverallScore: score,
		Summary: report.SummaryDocument{
			Meta: report.CompilationMeta{Quality: report.QualityIndicators{Completeness: completeness}},
		},
		PublishedAt: publishedAt.UTC(),
		CreatedAt:   publishedAt.UTC(),
		UpdatedAt:   publishedAt.UTC(),
	}
	if _, err := env.reports.CreateReport(r); err != nil {
		t.Fatalf("publish() failed: %v", err)
	}
}

func Test_analyticsService_Get(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	// the subject improves over three terms
	env.publish(t, "s1", "T1", 70, 1, base)
	env.publish(t, "s1", "T2", 75, 1, base.AddDate(0, 3, 0))
	env.publish(t, "s1", "T3", 80, 0.8, base.AddDate(0, 6, 0))

	// peers published in T3 only
	env.publish(t, "s2", "T3", 60, 1, base.AddDate(0, 6, 0))
	env.publish(t, "s3", "T3", 90, 1, base.AddDate(0, 6, 0))
	env.publish(t, "s4", "T3", 85, 1, base.AddDate(0, 6, 0))

	// s1 and s2 share a class; s3 is in the same grade, s4 in another grade
	env.db.SetStudentProfile(user.StudentProfile{UserID: "s1", ClassID: "7A", GradeLevel: 7})
	env.db.SetStudentProfile(user.StudentProfile{UserID: "s2", ClassID: "7A", GradeLevel: 7})
	env.db.SetStudentProfile(user.StudentProfile{UserID: "s3", ClassID: "7B", GradeLevel: 7})
	env.db.SetStudentProfile(user.StudentProfile{UserID: "s4", ClassID: "8A", GradeLevel: 8})

	rec, err := env.svc.Get(ctx, "s1", "T3")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if rec.StudentID != "s1" || rec.TermID != "T3" {
		t.Errorf("record keyed %s/%s, want s1/T3", rec.StudentID, rec.TermID)
	}
	// class {60, 80}: one below out of two
	if rec.Percentiles.Class != 50 {
		t.Errorf("class percentile = %g, want 50", rec.Percentiles.Class)
	}
	// grade {60, 80, 90}: one below out of three
	if rec.Percentiles.Grade != 33 {
		t.Errorf("grade percentile = %g, want 33", rec.Percentiles.Grade)
	}
	// school {60, 80, 85, 90}: one below out of four
	if rec.Percentiles.School != 25 {
		t.Errorf("school percentile = %g, want 25", rec.Percentiles.School)
	}
	if rec.Trajectory != analytics.TrajectoryImproving {
		t.Errorf("trajectory = %s, want %s", rec.Trajectory, analytics.TrajectoryImproving)
	}
	if rec.Prediction == nil {
		t.Fatal("prediction missing despite three published scores")
	}
	if rec.Prediction.Points != 3 {
		t.Errorf("prediction points = %d, want 3", rec.Prediction.Points)
	}
	if rec.Risks != nil {
		t.Errorf("risks = %v, want none", rec.Risks)
	}
}

func Test_analyticsService_Get_cached(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	env.publish(t, "s1", "T1", 70, 1, base)
	env.publish(t, "s1", "T2", 75, 1, base.AddDate(0, 3, 0))

	rec, err := env.svc.Get(ctx, "s1", "T2")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	// new data arrives; the cached record keeps serving until invalidated
	env.publish(t, "s1", "T2", 40, 1, base.AddDate(0, 4, 0))
	cached, err := env.svc.Get(ctx, "s1", "T2")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if cached.Trajectory != rec.Trajectory || !cached.GeneratedAt.Equal(rec.GeneratedAt) {
		t.Errorf("second Get() did not serve the cached record: %+v", cached)
	}

	env.svc.Invalidate(ctx, "s1", "T2")
	fresh, err := env.svc.Get(ctx, "s1", "T2")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if fresh.Trajectory != analytics.TrajectoryDeclining {
		t.Errorf("trajectory after invalidation = %s, want %s", fresh.Trajectory, analytics.TrajectoryDeclining)
	}
}

func Test_analyticsService_Get_risks(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	// declining student at the bottom of the school with a patchy report
	env.publish(t, "s1", "T1", 70, 1, base)
	env.publish(t, "s1", "T2", 40, 0.4, base.AddDate(0, 3, 0))
	for i, peer := range []string{"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11"} {
		env.publish(t, peer, "T2", 60+float64(i), 1, base.AddDate(0, 3, 0))
	}

	rec, err := env.svc.Get(ctx, "s1", "T2")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	want := []string{"declining_trajectory", "bottom_decile", "low_completeness"}
	if len(rec.Risks) != len(want) {
		t.Fatalf("risks = %v, want %v", rec.Risks, want)
	}
	for i, r := range want {
		if rec.Risks[i] != r {
			t.Errorf("risks[%d] = %s, want %s", i, rec.Risks[i], r)
		}
	}
}

func Test_analyticsService_Get_noHistory(t *testing.T) {
	env := setup(t)

	if _, err := env.svc.Get(context.Background(), "ghost", "T1"); err != analytics.ErrRecordNotFound {
		t.Errorf("Get() error = %v, want %v", err, analytics.ErrRecordNotFound)
	}
}

func Test_analyticsService_Get_shortHistory(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	env.publish(t, "s1", "T1", 70, 1, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))

	rec, err := env.svc.Get(ctx, "s1", "T1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	// one published score: no prediction, but the record still serves
	if rec.Prediction != nil {
		t.Errorf("prediction = %+v, want none", rec.Prediction)
	}
	if rec.Trajectory != analytics.TrajectoryStable {
		t.Errorf("trajectory = %s, want %s", rec.Trajectory, analytics.TrajectoryStable)
	}
}
