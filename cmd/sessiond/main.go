// Command sessiond serves the session API over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/authsession/core/config"
	"github.com/dmitrymomot/authsession/core/logger"
	"github.com/dmitrymomot/authsession/core/session"
	"github.com/dmitrymomot/authsession/integration/database/pg"
	"github.com/dmitrymomot/authsession/integration/database/redis"
	"github.com/dmitrymomot/authsession/pkg/ratelimiter"
)

func main() {
	var app appConfig
	config.MustLoad(&app)

	log := logger.New(logger.ForEnv(app.Env, app.Name))
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, app, log)
	stop()

	if err != nil {
		log.Error("sessiond stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, app appConfig, log *slog.Logger) error {
	var (
		sessCfg  session.Config
		redisCfg redis.Config
	)
	if err := config.Load(&sessCfg); err != nil {
		return err
	}
	if err := config.Load(&redisCfg); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	checks := []func(context.Context) error{redis.Healthcheck(rdb)}

	var accounts session.AccountStore
	if app.PostgresURL != "" {
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			return err
		}
		accounts = pg.NewAccountStore(pool)
		checks = append(checks, pg.Healthcheck(pool))
	}

	svc, err := session.NewService(sessCfg, redis.NewKVStore(rdb), accounts,
		session.WithLogger(log),
	)
	if err != nil {
		return err
	}

	attempts := ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(log))
	limiter, err := ratelimiter.NewBucket(attempts, ratelimiter.Config{
		Capacity:       app.VerifyAttempts,
		RefillRate:     1,
		RefillInterval: app.VerifyRefill,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         app.Addr,
		Handler:      newRouter(svc, limiter, log, checks...),
		ReadTimeout:  app.ReadTimeout,
		WriteTimeout: app.WriteTimeout,
		IdleTimeout:  app.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(attempts.Run(gctx))
	g.Go(func() error {
		log.Info("http server started", slog.String("addr", app.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
