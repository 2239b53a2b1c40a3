// Executável principal da API: carrega a configuração, inicializa dependências e sobe o servidor HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/marcelojr/track-battle/internal/app/archive"
	"github.com/marcelojr/track-battle/internal/app/contest"
	"github.com/marcelojr/track-battle/internal/app/httpapi"
	"github.com/marcelojr/track-battle/internal/app/sessions"
	"github.com/marcelojr/track-battle/internal/app/web"
	"github.com/marcelojr/track-battle/internal/domain"
	"github.com/marcelojr/track-battle/internal/platform/antifraude"
	"github.com/marcelojr/track-battle/internal/platform/audioprobe"
	"github.com/marcelojr/track-battle/internal/platform/clock"
	"github.com/marcelojr/track-battle/internal/platform/config"
	"github.com/marcelojr/track-battle/internal/platform/health"
	"github.com/marcelojr/track-battle/internal/platform/ids"
	"github.com/marcelojr/track-battle/internal/platform/logger"
	"github.com/marcelojr/track-battle/internal/platform/migrations"
	"github.com/marcelojr/track-battle/internal/platform/storage/objects"
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

	// Redis guarda sessões, contadores da semana, fila de recontagem e antifraude.
	redisClient, err := redisstorage.NewClient(ctx, redisstorage.ClientConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Fatal("falha ao conectar no redis", "err", err)
	}
	defer redisClient.Close()

	store, err := objects.NewFromConfig(ctx, objects.Config{
		Type:          objects.StoreType(cfg.ObjectStorageType),
		DataDir:       cfg.ObjectDataDir,
		Bucket:        cfg.ObjectBucket,
		Region:        cfg.ObjectRegion,
		Endpoint:      cfg.ObjectEndpoint,
		Prefix:        cfg.ObjectPrefix,
		PublicBaseURL: cfg.ObjectPublicBase,
	})
	if err != nil {
		logger.Fatal("falha ao abrir armazenamento de audio", "type", cfg.ObjectStorageType, "err", err)
	}

	tracks := postgresstorage.NewTrackRepository(db)
	votes := postgresstorage.NewVoteRepository(db)
	contador := redisstorage.NewContador(redisClient, cfg.ContadorKeyPrefix, cfg.ContadorTTL)
	fila := redisstorage.NewFila(redisClient, cfg.FilaKey)

	var antifraudeSvc domain.Antifraude = antifraude.NewNoop()
	if cfg.RateLimitEnabled {
		if cfg.RateLimitBackend == "local" {
			antifraudeSvc = antifraude.NewLocalRateLimiter(cfg.RateLimitMaxActions, cfg.RateLimitWindow())
		} else {
			antifraudeSvc = antifraude.NewRedisRateLimiter(redisClient, cfg.RateLimitMaxActions, cfg.RateLimitWindow(), cfg.RateLimitKeyPrefix)
		}
	}

	var sessionStore domain.SessionStore = redisstorage.NewSessionStore(redisClient, cfg.SessionKeyPrefix, cfg.SessionTTL)
	if cfg.SessionStore == "memory" {
		sessionStore = sessions.NewMemoryStore(cfg.SessionTTL, clockSystem)
	}
	sessionManager := sessions.NewManager(sessionStore, cfg.CookieName, cfg.CookieSecure, cfg.SessionTTL, clockSystem)

	servico := contest.NewService(
		tracks,
		votes,
		store,
		contador,
		fila,
		antifraudeSvc,
		clockSystem,
		ids.NewGenerator(),
		contest.Options{
			AtomicVotes:   cfg.AtomicVoteCounter,
			MaxAudioBytes: cfg.AudioMaxBytes,
			Prober:        audioprobe.New(),
			Logger:        logger.L(),
		},
	)

	seed, err := archive.LoadSeed()
	if err != nil {
		logger.Fatal("falha ao carregar arquivo inicial", "err", err)
	}
	arquivo := archive.NewView(tracks, clockSystem, seed, logger.L())

	mux := http.NewServeMux()
	httpapi.New(servico, arquivo, sessionManager, logger.L(), cfg.AudioMaxBytes).Register(mux)
	frontend, err := web.New(servico, arquivo, sessionManager, logger.L(), cfg.AudioMaxBytes)
	if err != nil {
		logger.Fatal("erro ao carregar templates", "err", err)
	}
	frontend.Register(mux)

	if fsStore, ok := store.(*objects.FileStore); ok && cfg.ObjectPublicBase == "" {
		mux.Handle("/audio/", http.StripPrefix("/audio/", http.FileServer(http.Dir(fsStore.Root()))))
	}

	checker := health.NewChecker(sqlDB, redisClient, health.Probe{Name: "storage", Check: store.Ping})
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("erro ao encerrar servidor", "err", err)
		}
	}()

	logger.Info("api ouvindo", "addr", cfg.HTTPAddress, "week", servico.CurrentWeek(), "tz", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("erro no servidor", "err", err)
	}
	logger.Info("api finalizada")
}

func openDatabase(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseDriver == "sqlite" {
		return postgresstorage.OpenSQLite(ctx, cfg.SQLitePath)
	}
	return postgresstorage.Open(ctx, cfg.PostgresDSN())
}
