package main

import (
	"github.com/trezcool/goose"

	appfs "github.com/trezcool/maendeleo/fs"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	direction := "up"
	arguments := make([]string, 0)
	if len(args) > 0 {
		direction = args[0]
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(direction, cli.db.DB, appfs.FS, "migrations", arguments...)
}
