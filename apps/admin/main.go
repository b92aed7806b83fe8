package main

import (
	"log"
	"os"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
	"github.com/trezcool/maendeleo/core/user"
	"github.com/trezcool/maendeleo/storage/database"
	sqlxrepos "github.com/trezcool/maendeleo/storage/database/sqlx"
)

var logger *log.Logger // todo: logger service

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	paramSvc := param.NewService(sqlxrepos.NewParamRepository(db), conf)

	// start CLI
	cli := commandLine{
		db:       db,
		conf:     conf,
		usrSvc:   user.NewService(sqlxrepos.NewUserRepository(db)),
		paramSvc: paramSvc,
		evalSvc:  eval.NewService(sqlxrepos.NewEvalRepository(db), paramSvc, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
