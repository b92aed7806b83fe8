package main

import (
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"log"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
	"github.com/trezcool/maendeleo/core/user"
	dummydb "github.com/trezcool/maendeleo/storage/database/dummy"
	testutil "github.com/trezcool/maendeleo/tests"
)

var (
	dataStore *dummydb.DB
	usrRepo   user.Repository
	paramRepo param.Repository
)

func setup(t *testing.T) *commandLine {
	logger = log.New(io.Discard, "", 0)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	dataStore = db
	usrRepo = dummydb.NewUserRepository(db)
	paramRepo = dummydb.NewParamRepository(db)

	conf := testutil.NewConfig()
	paramSvc := param.NewService(paramRepo, conf)

	return &commandLine{
		db:       &sqlx.DB{},
		conf:     conf,
		usrSvc:   user.NewService(usrRepo),
		paramSvc: paramSvc,
		evalSvc:  eval.NewService(dummydb.NewEvalRepository(db), paramSvc, conf),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, _ *sql.DB, _ fs.FS, _ string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand defaults to up", args: []string{"migrate"}},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCLIErr(t, cli.run(args), tt)
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no flags", args: []string{"adduser"}, wantErr: errHelp},
		{name: "empty password", args: []string{"adduser", "-username", "awe"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "principal1", "-email", "princip@school.cd"}, pwd: "V3ry$trong"},
		{name: "create admin", args: []string{"adduser", "-username", "headmast3r", "-admin"}, pwd: "V3ry$trong"},
		{name: "update existing grants roles", args: []string{"adduser", "-username", "principal1", "-admin"}, pwd: "Ev3n$tronger"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.pwd)

		t.Run(tt.name, func(t *testing.T) {
			checkCLIErr(t, cli.run(args), tt)
		})
	}

	usr, err := cli.usrSvc.GetByUsernameOrEmail("principal1")
	if err != nil {
		t.Fatalf("GetByUsernameOrEmail() failed: %v", err)
	}
	if len(usr.Roles) != len(user.AllRoles) {
		t.Errorf("roles = %v, want all roles", usr.Roles)
	}
	if err := usr.CheckPassword("Ev3n$tronger"); err != nil {
		t.Errorf("CheckPassword() failed after update: %v", err)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@school.cd", "0ld&Busted", nil, true)

	tests := []cliTest{
		{name: "no flags", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "empty password", args: []string{"resetpassword", "-username", "awe"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"resetpassword", "-username", "ghost"}, pwd: "N3w#Hotness", wantErr: user.ErrNotFound},
		{name: "by username", args: []string{"resetpassword", "-username", "awe"}, pwd: "N3w#Hotness"},
		{name: "by email", args: []string{"resetpassword", "-username", "awe@school.cd"}, pwd: "Oth3r!Hotness"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.pwd)

		t.Run(tt.name, func(t *testing.T) {
			checkCLIErr(t, cli.run(args), tt)
		})
	}

	usr, err := cli.usrSvc.GetByID(usr.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if err := usr.CheckPassword("Oth3r!Hotness"); err != nil {
		t.Errorf("CheckPassword() failed after reset: %v", err)
	}
}

func Test_commandLine_setProfile(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Student", "mwema1", "mwema@school.cd", "", []string{user.RoleStudent}, true)

	tests := []cliTest{
		{name: "no flags", args: []string{"setprofile"}, wantErr: errHelp},
		{name: "missing class", args: []string{"setprofile", "-username", "mwema1", "-grade", "7"}, wantErr: errHelp},
		{name: "missing grade", args: []string{"setprofile", "-username", "mwema1", "-class", "7B"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"setprofile", "-username", "ghost", "-class", "7B", "-grade", "7"}, wantErr: user.ErrNotFound},
		{name: "set", args: []string{"setprofile", "-username", "mwema1", "-class", "7B", "-grade", "7"}},
		{name: "update by email", args: []string{"setprofile", "-username", "mwema@school.cd", "-class", "8A", "-grade", "8"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCLIErr(t, cli.run(args), tt)
		})
	}

	p, ok := dataStore.StudentProfile(usr.ID)
	if !ok {
		t.Fatal("student profile was not stored")
	}
	if p.ClassID != "8A" || p.GradeLevel != 8 {
		t.Errorf("profile = %+v, want class 8A grade 8", p)
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)

	if err := cli.run([]string{"admin", "seed"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	params, err := paramRepo.QueryActiveParameters()
	if err != nil {
		t.Fatalf("QueryActiveParameters() failed: %v", err)
	}
	if len(params) != len(seedParameters) {
		t.Fatalf("seeded %d parameters, want %d", len(params), len(seedParameters))
	}
	for _, p := range params {
		if _, err := cli.paramSvc.LatestRubricVersion(p.ID); err != nil {
			t.Errorf("parameter %q has no published rubric: %v", p.Name, err)
		}
		if _, err := cli.evalSvc.GetAssignment(p.ID); err != nil {
			t.Errorf("parameter %q has no evaluator assignment: %v", p.Name, err)
		}
	}
	if _, err := cli.paramSvc.LatestRubricVersion(cli.conf.Hpc.OverallRubricName); err != nil {
		t.Errorf("overall rubric missing: %v", err)
	}
	if err := cli.paramSvc.CheckWeightageBounds(); err != nil {
		t.Errorf("CheckWeightageBounds() failed: %v", err)
	}
}

func checkCLIErr(t *testing.T, err error, tt cliTest) {
	t.Helper()

	if err != nil {
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() error = nil, want %v%s", tt.wantErr, tt.wantErrStr)
	}
}
