package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/attendtrack/apps/api/echo"
	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/attendance"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/progress"
	"github.com/trezcool/attendtrack/core/report"
	"github.com/trezcool/attendtrack/core/setup"
	"github.com/trezcool/attendtrack/core/user"
	logsvc "github.com/trezcool/attendtrack/services/logger"
	"github.com/trezcool/attendtrack/storage/database"
	sqlxrepos "github.com/trezcool/attendtrack/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newTransactor(db *sqlxrepos.DB) core.Transactor {
	return db
}

func newReportService(
	conf *core.Config,
	profiles *profile.Service,
	att attendance.Repository,
	prog progress.Repository,
) *report.Service {
	return report.NewService(profiles, att, prog, conf.AttendanceWindowDays)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewDB))
	must(c.Provide(newTransactor))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewProfileRepository))
	must(c.Provide(sqlxrepos.NewAttendanceRepository))
	must(c.Provide(sqlxrepos.NewProgressRepository))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(profile.NewService))
	must(c.Provide(attendance.NewRecorder))
	must(c.Provide(progress.NewRecorder))
	must(c.Provide(newReportService))
	must(c.Provide(setup.NewService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
