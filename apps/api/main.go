package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	dig_container "github.com/trezcool/academia/apps/api/di/dig"
	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
	rediscache "github.com/trezcool/academia/storage/cache/redis"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sqlx.DB,
		cache *rediscache.Client,
		validate *validator.Validate,
		translator ut.Translator,
		accessSvc *access.Service,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.InitValidators(validate, translator)
		course.InitValidators(validate, translator)

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if db == nil {
				return
			}
			if err := db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		defer func() {
			if cache == nil {
				return
			}
			if err := cache.Close(); err != nil {
				apiLogger.Error("Failed to close redis client", err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		expvar.Publish("access_attempts", expvar.Func(func() interface{} { return accessSvc.Len() }))

		debug := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}
		g.Go(func() error {
			if err := debug.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
			return nil
		})

		// =========================================================================
		// Start Access Attempts Sweeper

		g.Go(func() error {
			return accessSvc.Run(gctx)
		})

		// =========================================================================
		// Start API Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer scancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(sctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}

		// close the live access attempts & the debug server
		cancel()
		dctx, dcancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer dcancel()
		if err := debug.Shutdown(dctx); err != nil {
			apiLogger.Error(fmt.Sprintf("could not stop debug server: %v", err), err)
		}
		if err := g.Wait(); err != nil {
			apiLogger.Error(fmt.Sprintf("background worker: %v", err), err)
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
