package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
	"github.com/trezcool/maendeleo/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sqlx.DB
	conf     *core.Config
	usrSvc   *user.Service
	paramSvc *param.Service
	evalSvc  *eval.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate up|down|status - run database migrations")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-admin] - create or update a user (password prompted)")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  setprofile -username USERNAME|EMAIL -class CLASS -grade GRADE - set a student's class and grade cohorts")
	fmt.Println("  seed - load the default parameters, rubrics and evaluator assignments")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant all roles.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	setProfileCmd := flag.NewFlagSet("setprofile", flag.ExitOnError)
	setProfileUname := setProfileCmd.String("username", "", "The student's username or email.")
	setProfileClass := setProfileCmd.String("class", "", "The student's class id, e.g. 7B.")
	setProfileGrade := setProfileCmd.Int("grade", 0, "The student's grade level.")

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" && *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "setprofile":
		if err := setProfileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setProfileUname == "" || *setProfileClass == "" || *setProfileGrade <= 0 {
			setProfileCmd.Usage()
			return errHelp
		}
		return cli.setProfile(*setProfileUname, *setProfileClass, *setProfileGrade)

	case "seed":
		return cli.seed()

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
