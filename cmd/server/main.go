package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	accounthandler "hometrust/internal/account/handler"
	accountservice "hometrust/internal/account/service"
	accountstore "hometrust/internal/account/store"
	"hometrust/internal/artifact"
	claimhandler "hometrust/internal/claim/handler"
	claimservice "hometrust/internal/claim/service"
	claimstore "hometrust/internal/claim/store"
	httprouter "hometrust/internal/http"
	jwttoken "hometrust/internal/jwt_token"
	listinghandler "hometrust/internal/listing/handler"
	listingservice "hometrust/internal/listing/service"
	listingstore "hometrust/internal/listing/store"
	moderationhandler "hometrust/internal/moderation/handler"
	moderationservice "hometrust/internal/moderation/service"
	"hometrust/internal/modlog"
	"hometrust/internal/notify"
	"hometrust/internal/platform/config"
	"hometrust/internal/platform/httpserver"
	"hometrust/internal/platform/kafka"
	"hometrust/internal/platform/logger"
	"hometrust/internal/platform/metrics"
	"hometrust/internal/platform/postgres"
	platformredis "hometrust/internal/platform/redis"
)

// main wires the stores, services, HTTP surface, and the outbox dispatcher,
// then supervises them until shutdown. Business logic lives in the internal
// services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		log.Error("kafka producer setup failed", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	m := metrics.New()
	tokens := jwttoken.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)
	runner := newPostgresTxRunner(db)

	accounts := accountstore.NewPostgres(db)
	claims := claimstore.NewPostgres(db)
	listings := listingstore.NewPostgres(db)
	logbook := modlog.NewPostgres(db)
	outbox := notify.NewPostgres(db)
	artifacts := artifact.NewHTTPStore(cfg.Artifact)

	accountSvc := accountservice.New(accounts,
		accountservice.WithLogger(log),
		accountservice.WithFreeMailBlocklist(cfg.FreeMailDomains),
	)
	claimSvc := claimservice.New(claims, accounts, artifacts, runner,
		claimservice.WithLogger(log),
		claimservice.WithMetrics(m),
	)
	listingSvc := listingservice.New(listings, accounts, artifacts,
		listingservice.WithLogger(log),
	)
	moderationSvc := moderationservice.New(accounts, claims, listings, logbook, outbox, runner,
		moderationservice.WithLogger(log),
		moderationservice.WithMetrics(m),
	)

	dispatcherOpts := []notify.DispatcherOption{
		notify.WithLogger(log),
		notify.WithMetrics(m),
	}
	if redisClient != nil {
		dispatcherOpts = append(dispatcherOpts, notify.WithDeadLetter(notify.NewRedisDeadLetter(redisClient)))
	}
	dispatcher := notify.NewDispatcher(outbox, producer, runner, notify.DispatcherConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		BaseBackoff:  cfg.Outbox.BaseBackoff,
	}, dispatcherOpts...)

	router := httprouter.NewRouter(log,
		accounthandler.New(accountSvc, log, tokens),
		claimhandler.New(claimSvc, log, tokens),
		listinghandler.New(listingSvc, log, tokens),
		moderationhandler.New(moderationSvc, log, tokens),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting hometrust", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := dispatcher.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
