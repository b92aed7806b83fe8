package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (default), TEST, QA, PROD
		AppName          string
		SecretKey        string
		Build            string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail string
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Hpc      HpcConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Address      string
		Password     string
		DB           int
		LeaseTimeout time.Duration // compile lease TTL
		AnalyticsTTL time.Duration // cached analytics record TTL
	}

	// HpcConfig carries the configurable grading policy bounds.
	HpcConfig struct {
		WeightTolerance   float64 // tolerance on assignment weights summing to 1.0
		GrowthDeadBand    float64 // +- band within which a trajectory is "stable"
		PredictionWindow  int     // number of published scores used for prediction
		RemarkMinLen      int     // min remark length for roles that require one
		ApproverRoles     []string
		StepDueInterval   time.Duration // due date spacing between approval steps
		CompletenessRisk  float64       // completeness below this flags a risk indicator
		CategoryBounds    map[string]CategoryBound
		OverallRubricName string // parameter key of the school-level rubric
	}

	CategoryBound struct {
		Min float64
		Max float64
	}
)

func (c ServerConfig) Address() string   { return c.Host + ":" + c.Port }
func (c DatabaseConfig) Address() string { return c.Host + ":" + c.Port }

// NewConfig loads the app configuration from defaults, an optional
// config/.env.<env> file and environment variables (in increasing precedence).
func NewConfig() (*Config, error) {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Maendeleo")
	conf.SetDefault("secretKey", "w3=yu)#1r&t5b$kg(e8^hpc+engine%dev@only")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")

	conf.SetDefault("server.host", "")
	conf.SetDefault("server.port", "8000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.JWTExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.JWTRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "maendeleo")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("redis.address", "localhost:6379")
	conf.SetDefault("redis.db", 0)
	conf.SetDefault("redis.leaseTimeout", 30*time.Second)
	conf.SetDefault("redis.analyticsTTL", 6*time.Hour)

	conf.SetDefault("hpc.weightTolerance", 1e-6)
	conf.SetDefault("hpc.growthDeadBand", 1.0)
	conf.SetDefault("hpc.predictionWindow", 3)
	conf.SetDefault("hpc.remarkMinLen", 10)
	conf.SetDefault("hpc.approverRoles", []string{"staff:teacher", "staff:counselor", "admin:principal"})
	conf.SetDefault("hpc.stepDueInterval", 72*time.Hour)
	conf.SetDefault("hpc.completenessRisk", 0.5)
	conf.SetDefault("hpc.overallRubricName", "overall")
	conf.SetDefault("hpc.categoryBounds", map[string]CategoryBound{
		"scholastic":    {Min: 0.4, Max: 0.6},
		"co_scholastic": {Min: 0.15, Max: 0.3},
		"life_skills":   {Min: 0.1, Max: 0.25},
		"discipline":    {Min: 0.05, Max: 0.15},
	})

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetDefault("env", env)
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	conf.SetDefault("workDir", wd)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	conf.AutomaticEnv()

	c := new(Config)
	if err := conf.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	return c, nil
}

// Getwd tries to find the project root (the dir holding go.mod).
// go-test changes the working directory to the test package being run during tests... this breaks our code...
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			// not running from within the project tree; fall back to cwd
			return wd
		}
		currDir = newDir
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Debug: %t, DB: %s/%s}", c.Env, c.Debug, c.Database.Address(), c.Database.Name)
}
