// server runs the attendance HTTP API. With DATABASE_URL unset it runs
// entirely on in-memory stores, which is enough for local development.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	adminhandler "github.com/carlsburger/GastroCore-sub000/internal/admin/handler"
	attendancehandler "github.com/carlsburger/GastroCore-sub000/internal/attendance/handler"
	attendancerepo "github.com/carlsburger/GastroCore-sub000/internal/attendance/repository"
	auditrepo "github.com/carlsburger/GastroCore-sub000/internal/audit/repository"
	employeerepo "github.com/carlsburger/GastroCore-sub000/internal/employee/repository"
	shiftrepo "github.com/carlsburger/GastroCore-sub000/internal/shift/repository"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/engine"
	"github.com/carlsburger/GastroCore-sub000/internal/audit"
	"github.com/carlsburger/GastroCore-sub000/internal/config"
	"github.com/carlsburger/GastroCore-sub000/internal/db"
	"github.com/carlsburger/GastroCore-sub000/internal/events/producer"
	healthhandler "github.com/carlsburger/GastroCore-sub000/internal/health/handler"
	"github.com/carlsburger/GastroCore-sub000/internal/security"
	"github.com/carlsburger/GastroCore-sub000/internal/server"
	"github.com/carlsburger/GastroCore-sub000/internal/server/middleware"
	"github.com/carlsburger/GastroCore-sub000/internal/shift/linker"
	"github.com/carlsburger/GastroCore-sub000/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logrus.New()
	if cfg.Env == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "gastrocore-attendance", cfg.OTLPInsecure)
	if err != nil {
		logger.WithError(err).Fatal("telemetry setup failed")
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("telemetry shutdown failed")
		}
	}()

	var (
		sessions  attendancerepo.Repository
		shifts    shiftrepo.Repository
		employees employeerepo.Repository
		audits    auditrepo.Repository
		pinger    healthhandler.Pinger
	)
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("database connection failed")
		}
		defer sqlDB.Close()
		pinger = sqlDB
		sessions = attendancerepo.NewPostgresRepository(sqlDB)
		shifts = shiftrepo.NewPostgresRepository(sqlDB)
		employees = employeerepo.NewPostgresRepository(sqlDB)
		audits = auditrepo.NewPostgresRepository(sqlDB)
		logger.Info("using postgres stores")
	} else {
		sessions = attendancerepo.NewMemoryRepository()
		shifts = shiftrepo.NewMemoryRepository()
		employees = employeerepo.NewMemoryRepository()
		audits = auditrepo.NewMemoryRepository()
		logger.Warn("DATABASE_URL unset, using in-memory stores")
	}

	metrics, err := engine.NewMetrics(providers.MeterProvider.Meter("attendance"))
	if err != nil {
		logger.WithError(err).Fatal("metric registration failed")
	}

	engineDeps := engine.Deps{
		Repo:     sessions,
		Linker:   linker.New(shifts, cfg.Location(), logger),
		Audit:    audit.NewLogger(audits, middleware.ActorID, logger),
		Metrics:  metrics,
		Log:      logger,
		Location: cfg.Location(),
	}

	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic)
	if err != nil {
		logger.WithError(err).Fatal("kafka producer setup failed")
	}
	if kafkaProducer != nil {
		engineDeps.Emitter = kafkaProducer
		defer kafkaProducer.Close()
		logger.WithField("topic", cfg.KafkaTopic).Info("event emission enabled")
	} else {
		engineDeps.Emitter = otel.NewEventEmitter(providers.LoggerProvider)
	}

	eng := engine.New(engineDeps)
	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	router := server.NewRouter(server.Deps{
		Log:          logger,
		Tokens:       tokens,
		TerminalKeys: security.NewTerminalKeyVerifier(cfg.TerminalKeyHash),
		Attendance:   attendancehandler.New(eng, employees, logger),
		Admin:        adminhandler.New(eng, logger),
		Health:       healthhandler.New(pinger),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("serve failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown failed")
	}
	logger.Info("HTTP server stopped")
}
