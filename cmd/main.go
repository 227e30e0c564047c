package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	wbfconfig "github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"campushub/internal/api"
	"campushub/internal/config"
	"campushub/internal/engine"
	"campushub/internal/mailer"
	"campushub/internal/notifier"
	"campushub/internal/rabbit"
	"campushub/internal/repo"
	"campushub/internal/report"
	"campushub/internal/service"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	rawCfg := wbfconfig.New()
	if err := rawCfg.Load("config.yaml", "", "'"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	cfg, err := config.Build(rawCfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build configuration")
	}

	db, err := dbpg.New(cfg.DB.MasterDSN, cfg.DB.SlaveDSNs, cfg.DB.Options)
	if err != nil {
		log.Fatal().Msgf("failed to connect to DB: %v", err)
	}
	if err := db.Master.Ping(); err != nil {
		log.Fatal().Msgf("DB ping failed: %v", err)
	}
	log.Info().Msg("database connected")

	repository, err := repo.New(db, &log)
	if err != nil {
		log.Fatal().Msgf("failed to initialize repository: %v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot get working directory")
	}
	if err := repository.MigrateUp(filepath.Join(cwd, "migrations/postgres")); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	rmq, err := rabbit.New(cfg.Rabbit.URL, cfg.Rabbit.Exchange, cfg.Rabbit.Queue)
	if err != nil {
		log.Fatal().Msgf("failed to connect to RabbitMQ: %v", err)
	}
	defer rmq.Close()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	mail := mailer.New(cfg.SMTP, &log)
	worker := notifier.NewWorker(rmq, repository, mail)
	worker.Start(workerCtx)

	eng := engine.New(repository, &log)
	reports := report.NewAggregator(repository, &log)
	svc := service.New(eng, reports, repository, &log, rmq)
	app := api.NewRouters(&api.Routers{
		Service:   svc,
		JWTSecret: cfg.Auth.JWTSecret,
		KioskKey:  cfg.Auth.KioskKey,
	})

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("starting server on :%s", cfg.Server.Port)
		if err := app.Run(":" + cfg.Server.Port); err != nil {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("received signal %s, shutting down", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("server error: %v", err)
	}

	cancelWorkers()
	worker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if closer, ok := interface{}(app).(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(shutdownCtx); err != nil {
			log.Error().Msgf("error shutting down server: %v", err)
		}
	}

	log.Info().Msg("shutdown complete")
}
