package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/setup"
	"github.com/trezcool/attendtrack/core/user"
	logsvc "github.com/trezcool/attendtrack/services/logger"
	"github.com/trezcool/attendtrack/storage/database"
	sqlxrepos "github.com/trezcool/attendtrack/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	repos := sqlxrepos.NewDB(db)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(repos))
	profileSvc := profile.NewService(sqlxrepos.NewProfileRepository(repos))

	// start CLI
	cli := commandLine{
		db:         db.DB,
		out:        os.Stdout,
		validate:   validate,
		tx:         repos,
		usrSvc:     usrSvc,
		profileSvc: profileSvc,
		setupSvc:   setup.NewService(repos, usrSvc, profileSvc, appLogger),
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
