package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/user"
)

// NewConfig returns the default test configuration without touching the
// environment or any .env file.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Maendeleo",
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "noreply@localhost",
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Redis: core.RedisConfig{
			LeaseTimeout: 30 * time.Second,
			AnalyticsTTL: 6 * time.Hour,
		},
		Hpc: core.HpcConfig{
			WeightTolerance:   1e-6,
			GrowthDeadBand:    1.0,
			PredictionWindow:  3,
			RemarkMinLen:      10,
			ApproverRoles:     []string{user.RoleStaffTeacher, user.RoleStaffCounselor, user.RoleAdminPrincipal},
			StepDueInterval:   72 * time.Hour,
			CompletenessRisk:  0.5,
			OverallRubricName: "overall",
			CategoryBounds: map[string]core.CategoryBound{
				"scholastic":    {Min: 0.4, Max: 0.6},
				"co_scholastic": {Min: 0.15, Max: 0.3},
				"life_skills":   {Min: 0.1, Max: 0.25},
				"discipline":    {Min: 0.05, Max: 0.15},
			},
		},
	}
}

// Logger discards everything; it keeps test output clean.
type Logger struct{}

var _ core.Logger = (*Logger)(nil)

func (Logger) Enable(bool)                  {}
func (Logger) Debug(string, ...interface{}) {}
func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}
func (Logger) Fatal(string, ...interface{}) {}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
