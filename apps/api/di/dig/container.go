package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	metricsvc "github.com/trezcool/academia/services/metrics"
	notifysvc "github.com/trezcool/academia/services/notify"
	rediscache "github.com/trezcool/academia/storage/cache/redis"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	CourseSvc  *course.Service
	AccessSvc  *access.Service
	Validate   *validator.Validate
	Translator ut.Translator
	Registry   *prometheus.Registry
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
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

// newDB returns a nil *sqlx.DB when the in-memory engine is configured.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	if conf.Database.Engine == "memory" {
		return nil
	}

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

func newCourseRepository(db *sqlx.DB) course.Repository {
	if db == nil {
		return inmemdb.NewCourseRepository(inmemdb.Open())
	}
	return sqlxrepos.NewCourseRepository(db)
}

// newRedis returns a nil client when the cache is disabled or unreachable.
func newRedis(conf *core.Config, logger core.Logger) *rediscache.Client {
	client, err := rediscache.New(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up redis cache: %v", err), err)
		return nil
	}
	return client
}

func newSessionFetcher(conf *core.Config, svc *course.Service, client *rediscache.Client, logger core.Logger) access.SessionFetcher {
	if client == nil {
		return svc
	}
	return rediscache.NewSessionCache(client, svc, conf.Redis.CacheTTL, logger)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newNotifier(mailSvc core.EmailService, logger core.Logger) access.Notifier {
	return access.MultiNotifier(notifysvc.NewLogNotifier(logger), notifysvc.NewEmailNotifier(mailSvc))
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func newObserver(reg *prometheus.Registry) access.Observer {
	return metricsvc.NewRecorder(reg)
}

func newAccessService(
	conf *core.Config,
	fetcher access.SessionFetcher,
	notifier access.Notifier,
	observer access.Observer,
	logger core.Logger,
	reg *prometheus.Registry,
) *access.Service {
	svc := access.NewService(fetcher, notifier, observer, logger, access.ServiceOptions{
		FetchTimeout:  conf.Access.FetchTimeout,
		AttemptTTL:    conf.Access.AttemptTTL,
		SweepInterval: conf.Access.SweepInterval,
		Policy:        access.Policy{RequireChecksForManual: conf.Access.RequireChecksForManual},
	})
	metricsvc.RegisterLiveAttempts(reg, svc.Len)
	return svc
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		CourseSvc:  p.CourseSvc,
		AccessSvc:  p.AccessSvc,
		Validate:   p.Validate,
		Translator: p.Translator,
		Metrics:    promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}),
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newCourseRepository))
	must(c.Provide(newRedis))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(course.NewService))
	must(c.Provide(newSessionFetcher))
	must(c.Provide(newEmailService))
	must(c.Provide(newNotifier))
	must(c.Provide(newRegistry))
	must(c.Provide(newObserver))
	must(c.Provide(newAccessService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
