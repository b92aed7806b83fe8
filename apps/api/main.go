package main

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"os"

	"github.com/trezcool/maendeleo/apps/api/echo"
	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/analytics"
	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
	"github.com/trezcool/maendeleo/core/report"
	"github.com/trezcool/maendeleo/core/user"
	emailsvc "github.com/trezcool/maendeleo/services/email"
	logsvc "github.com/trezcool/maendeleo/services/logger"
	rendersvc "github.com/trezcool/maendeleo/services/render"
	"github.com/trezcool/maendeleo/storage/database"
	sqlxrepos "github.com/trezcool/maendeleo/storage/database/sqlx"
	redisstore "github.com/trezcool/maendeleo/storage/redis"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %+v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()
	if err = database.Migrate(db.DB); err != nil {
		logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	// set up redis (compile lease + analytics cache)
	rdb, err := redisstore.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	defer func() { _ = rdb.Close() }()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}
	renderer, err := rendersvc.NewFileService(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up renderer: %v", err), err)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	paramSvc := param.NewService(sqlxrepos.NewParamRepository(db), conf)
	evalSvc := eval.NewService(sqlxrepos.NewEvalRepository(db), paramSvc, conf)

	analyticsSvc := analytics.NewService(
		sqlxrepos.NewAnalyticsRepository(db),
		redisstore.NewAnalyticsCache(rdb),
		logger, conf,
	)

	reportRepo := sqlxrepos.NewReportRepository(db)
	compiler := report.NewCompiler(reportRepo, evalSvc, paramSvc, redisstore.NewLeaseLocker(rdb, conf), conf)
	reportSvc := report.NewService(
		reportRepo, compiler, mailSvc, renderer,
		&guardianNotifier{usrSvc: usrSvc, logger: logger}, analyticsSvc, logger, conf,
	)

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// start API server
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		UserSvc:      usrSvc,
		ParamSvc:     paramSvc,
		EvalSvc:      evalSvc,
		ReportSvc:    reportSvc,
		AnalyticsSvc: analyticsSvc,
	})

	go server.Start()

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// guardianNotifier emails the student and their guardians when a report
// publishes.
type guardianNotifier struct {
	usrSvc *user.Service
	logger core.Logger
}

func (n *guardianNotifier) RecipientsFor(r report.Report) []mail.Address {
	var recipients []mail.Address

	student, err := n.usrSvc.GetByID(r.StudentID)
	if err != nil {
		n.logger.Warn(fmt.Sprintf("resolving report recipients: %v", err), err)
		return nil
	}
	if student.Email != "" {
		recipients = append(recipients, mail.Address{Name: student.Name, Address: student.Email})
	}

	// guardians are linked by convention: guardian accounts carry the
	// student's username as a role suffix (guardian:<username>)
	if student.Username != "" {
		users, err := n.usrSvc.QueryAll()
		if err != nil {
			n.logger.Warn(fmt.Sprintf("resolving guardians: %v", err), err)
			return recipients
		}
		wanted := user.RoleGuardian + student.Username
		for _, u := range users {
			if u.IsActive && u.Email != "" && u.HasRole(wanted) {
				recipients = append(recipients, mail.Address{Name: u.Name, Address: u.Email})
			}
		}
	}
	return recipients
}
