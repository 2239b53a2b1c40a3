// Worker assíncrono: consome pedidos de recontagem e varre a semana que acabou de fechar.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/marcelojr/track-battle/internal/app/worker"
	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/clock"
	"github.com/marcelojr/track-battle/internal/platform/config"
	"github.com/marcelojr/track-battle/internal/platform/health"
	"github.com/marcelojr/track-battle/internal/platform/logger"
	"github.com/marcelojr/track-battle/internal/platform/migrations"
	postgresstorage "github.com/marcelojr/track-battle/internal/platform/storage/postgres"
	redisstorage "github.com/marcelojr/track-battle/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuracao invalida", "err", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	loc, err := clock.LoadLocation(cfg.ContestTimezone)
	if err != nil {
		logger.Fatal("fuso do concurso invalido", "tz", cfg.ContestTimezone, "err", err)
	}
	clockSystem := clock.NewSystemClock(loc)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal("falha ao conectar no banco", "driver", cfg.DatabaseDriver, "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("falha ao resgatar sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("falha na migracao automatica", "err", err)
		}
	}

	redisClient, err := redisstorage.NewClient(ctx, redisstorage.ClientConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Fatal("falha ao conectar no redis", "err", err)
	}
	defer redisClient.Close()

	contador := redisstorage.NewContador(redisClient, cfg.ContadorKeyPrefix, cfg.ContadorTTL)
	fila := redisstorage.NewFila(redisClient, cfg.FilaKey)
	checker := health.NewChecker(sqlDB, redisClient)

	if cfg.WorkerMetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/readyz", checker.ReadyHandler())
			logger.Info("worker metrics ouvindo", "addr", cfg.WorkerMetricsAddress)
			if err := http.ListenAndServe(cfg.WorkerMetricsAddress, mux); err != nil {
				logger.Error("erro no servidor de metrics do worker", "err", err)
			}
		}()
	}

	reconciler := worker.NewReconciler(
		postgresstorage.NewTrackRepository(db),
		postgresstorage.NewVoteRepository(db),
		contador,
		clockSystem,
		logger.L(),
	)

	// A semana pode ter virado com o worker parado.
	if err := reconciler.CatchUp(ctx); err != nil {
		logger.Error("falha ao varrer semana anterior", "err", err)
	}

	go func() {
		if err := reconciler.WatchWeek(ctx, cfg.WeekWatchInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("observador de semana parou", "err", err)
		}
	}()

	pendentes, err := fila.Len(ctx)
	if err != nil {
		logger.Warn("falha ao medir fila de recontagem", "err", err)
	}
	logger.Info("worker iniciado, aguardando recontagens", "pendentes", pendentes)
	err = fila.ConsumirRecontagens(ctx, func(ctx context.Context, rc domain.Recount) error {
		if err := reconciler.Process(ctx, rc); err != nil {
			logger.Error("erro ao processar recontagem", "track_id", rc.TrackID, "err", err)
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("worker finalizado com erro", "err", err)
	}

	logger.Info("worker finalizado")
}

func openDatabase(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseDriver == "sqlite" {
		return postgresstorage.OpenSQLite(ctx, cfg.SQLitePath)
	}
	return postgresstorage.Open(ctx, cfg.PostgresDSN())
}
