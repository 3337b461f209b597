package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/jifunze/jifunze/apps/api/echo"
	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/attendance"
	"github.com/jifunze/jifunze/core/course"
	"github.com/jifunze/jifunze/core/message"
	"github.com/jifunze/jifunze/core/notification"
	"github.com/jifunze/jifunze/core/resource"
	"github.com/jifunze/jifunze/core/school"
	"github.com/jifunze/jifunze/core/user"
	brokersvc "github.com/jifunze/jifunze/services/broker"
	emailsvc "github.com/jifunze/jifunze/services/email"
	logsvc "github.com/jifunze/jifunze/services/logger"
	"github.com/jifunze/jifunze/storage/database"
	sqlxrepos "github.com/jifunze/jifunze/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var broker notification.Broker
	if conf.NatsURL != "" {
		natsBroker, err := brokersvc.NewNatsBroker(conf, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to nats: %v", err), err)
		}
		defer natsBroker.Close()
		broker = natsBroker
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	schoolSvc := school.NewService(sqlxrepos.NewSchoolRepository(db))
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db), usrSvc)
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), courseSvc, broker, logger)
	messageSvc := message.NewService(sqlxrepos.NewMessageRepository(db), courseSvc, notifSvc)
	attendanceSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), usrSvc, courseSvc)
	resourceSvc := resource.NewService(sqlxrepos.NewResourceRepository(db), courseSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		SchoolSvc:     schoolSvc,
		CourseSvc:     courseSvc,
		MessageSvc:    messageSvc,
		NotifSvc:      notifSvc,
		AttendanceSvc: attendanceSvc,
		ResourceSvc:   resourceSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

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

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return sqlx.NewDb(db, conf.Database.Engine), nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
