package main

import (
	"github.com/trezcool/maendeleo/core"
)

// setProfile records the class and grade cohorts a student's analytics are
// ranked against.
func (cli *commandLine) setProfile(uname, classID string, gradeLevel int) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	return cli.usrSvc.SetStudentProfile(usr.ID, classID, gradeLevel)
}
