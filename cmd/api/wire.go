package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/bryanwahyu/copyguard/internal/application"
	appai "github.com/bryanwahyu/copyguard/internal/application/ai"
	appauth "github.com/bryanwahyu/copyguard/internal/application/auth"
	appdashboard "github.com/bryanwahyu/copyguard/internal/application/dashboard"
	appintegrations "github.com/bryanwahyu/copyguard/internal/application/integrations"
	appreviews "github.com/bryanwahyu/copyguard/internal/application/reviews"
	appsettings "github.com/bryanwahyu/copyguard/internal/application/settings"
	"github.com/bryanwahyu/copyguard/internal/application/worker"
	"github.com/bryanwahyu/copyguard/internal/config"
	domai "github.com/bryanwahyu/copyguard/internal/domain/ai"
	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
	anthropicai "github.com/bryanwahyu/copyguard/internal/infra/ai/anthropic"
	openaiai "github.com/bryanwahyu/copyguard/internal/infra/ai/openai"
	"github.com/bryanwahyu/copyguard/internal/infra/auth"
	"github.com/bryanwahyu/copyguard/internal/infra/db"
	"github.com/bryanwahyu/copyguard/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/copyguard/internal/infra/httpserver"
	"github.com/bryanwahyu/copyguard/internal/infra/lock"
	"github.com/bryanwahyu/copyguard/internal/infra/sources/notion"
	"github.com/bryanwahyu/copyguard/internal/infra/sources/slack"
	"github.com/bryanwahyu/copyguard/internal/infra/storage"
	"github.com/bryanwahyu/copyguard/internal/middleware"
)

// app holds what serve needs to run and tear down.
type app struct {
	Handler http.Handler
	Pool    *worker.Pool

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	store, err := db.Open(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, store.Close)
	if err := store.Migrate(ctx); err != nil {
		return fail(fmt.Errorf("migrating: %w", err))
	}

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fail(err)
	}

	checks := map[string]middleware.HealthChecker{
		"database": middleware.CheckFunc(store.Ping),
	}

	var locker reviews.Locker = appreviews.NewInflightLocker()
	if cfg.Redis.URL != "" {
		rl, err := lock.Connect(ctx, cfg.Redis.URL, cfg.Redis.LockTTL)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, rl.Close)
		locker = rl
		checks["redis"] = middleware.CheckFunc(rl.Ping)
	}

	var archive reviews.Archive
	if cfg.Archive.Endpoint != "" {
		st, err := storage.New(ctx, storage.Options{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			Bucket:    cfg.Archive.BucketName,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			return fail(fmt.Errorf("minio init: %w", err))
		}
		archive = st
		checks["archive"] = middleware.CheckFunc(st.Ping)
	}

	a.Pool = worker.NewPool(cfg.Worker.Workers, cfg.Worker.QueueSize, log.Named("worker"))
	metrics := middleware.NewMetrics()
	clock := application.NewMonotonicClock(application.SystemClock{})

	svc := reviewService(store, a.Pool, locker, log)
	svc.Engine = appai.NewService(model(cfg), cfg.Model.Timeout)
	svc.Archive = archive
	svc.Recorder = metrics
	svc.Clock = clock

	a.Handler = httpserver.NewRouter(httpserver.Deps{
		Auth: &appauth.Service{
			Repo:      store.Users(),
			Tokens:    tokens,
			Passwords: auth.Passwords{},
			Clock:     clock,
		},
		Tokens:   tokens,
		Reviews:  svc,
		Settings: &appsettings.Service{Repo: store.Guidelines(), Clock: clock},
		Integrations: &appintegrations.Service{
			Repo:           store.Integrations(),
			Reviews:        svc,
			Slack:          slack.New(),
			Notion:         notion.New(),
			Clock:          clock,
			SkipDuplicates: cfg.Ingest.SkipDuplicates,
			History:        store.Reviews(),
		},
		Dashboard:   &appdashboard.Service{Repo: store.Reviews(), Clock: clock},
		Metrics:     metrics,
		Checks:      checks,
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log.Named("http"),
	})
	return a, nil
}

// reviewService wires the lifecycle without an engine; sweep only needs storage.
func reviewService(store *sqlstore.Store, exec reviews.Executor, locker reviews.Locker, log *zap.Logger) *appreviews.Service {
	return &appreviews.Service{
		Repo:     store.Reviews(),
		Sessions: store,
		Executor: exec,
		Locker:   locker,
		Clock:    application.SystemClock{},
		Log:      log.Named("reviews"),
	}
}

func model(cfg *config.Config) domai.Model {
	switch cfg.Model.Provider {
	case "openai":
		return openaiai.NewClient(cfg.Model.APIKey, cfg.Model.Name, cfg.Model.MaxTokens)
	default:
		return anthropicai.NewClient(cfg.Model.APIKey, cfg.Model.Name, cfg.Model.MaxTokens)
	}
}
