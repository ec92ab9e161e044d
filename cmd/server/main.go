package main // Entry point package

import (
	"context"   // shutdown deadline
	"errors"    // distinguish a clean server close
	"fmt"       // body limit string
	"net/http"  // server timeouts and ErrServerClosed
	"os"        // os.Interrupt
	"os/signal" // catch SIGINT/SIGTERM
	"syscall"   // SIGTERM
	"time"      // timeouts

	"github.com/joho/godotenv"                      // load .env for local development
	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Echo's stock middleware
	"github.com/sirupsen/logrus"                    // structured logging
	"github.com/spf13/afero"                        // filesystem behind the upload tree

	"github.com/iliyamo/mindful-backend/internal/config"     // Internal config loader
	"github.com/iliyamo/mindful-backend/internal/database"   // MySQL connection and migrations
	"github.com/iliyamo/mindful-backend/internal/handler"    // HTTP handlers
	"github.com/iliyamo/mindful-backend/internal/inference"  // text classifier
	"github.com/iliyamo/mindful-backend/internal/middleware" // auth, rate limit, cache, metrics, logging
	"github.com/iliyamo/mindful-backend/internal/model"      // media kinds
	"github.com/iliyamo/mindful-backend/internal/repository" // MySQL repositories
	"github.com/iliyamo/mindful-backend/internal/router"     // Internal router setup
	"github.com/iliyamo/mindful-backend/internal/service"    // media service and event publisher
	"github.com/iliyamo/mindful-backend/internal/storage"    // upload tree
)

func main() {
	_ = godotenv.Load() // a missing .env is fine outside development

	logrus.SetFormatter(&logrus.JSONFormatter{})
	cfg := config.Load() // Load environment config
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("connect database")
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)); err != nil {
			logrus.WithError(err).Fatal("migrate database")
		}
	}

	rdb := config.NewRedisClient() // nil when Redis is down; limiter and cache pass through
	if rdb == nil {
		logrus.Warn("redis unavailable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	musicCacheCfg := cacheCfg.WithPrefix(model.KindMusic)
	exerciseCacheCfg := cacheCfg.WithPrefix(model.KindExercise)

	classifier := inference.Load(cfg.ModelPath) // logs its own outcome

	files := storage.New(afero.NewOsFs(), cfg.UploadDir)
	media := service.NewMediaService(files, repository.NewMusicRepo(db), repository.NewExerciseRepo(db))
	if n, err := media.SweepStaging(); err != nil {
		logrus.WithError(err).Warn("sweep upload staging")
	} else if n > 0 {
		logrus.WithField("removed", n).Info("removed interrupted uploads")
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsOn {
		events = service.NewAMQPPublisher(cfg.RabbitMQURL)
	}

	users := repository.NewUserRepo(db, cfg.BcryptCost)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logrus.StandardLogger()))
	e.Use(middleware.Metrics())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	router.RegisterRoutes(e, handler.NewHealthHandler(db, classifier))
	router.RegisterAuth(e,
		handler.NewAuthHandler(cfg.JWTSecret, cfg.TokenTTL, users),
		middleware.NewCredentialLimiter(config.LoadRateLimitConfig(), rdb))
	router.RegisterCommunity(e,
		handler.NewPostHandler(repository.NewPostRepo(db), users, events),
		handler.NewMoodHandler(repository.NewMoodRepo(db), events),
		handler.NewPredictHandler(classifier),
		cfg.JWTSecret)
	router.RegisterMedia(e,
		handler.NewMediaHandler(media,
			middleware.NewCacheInvalidator(rdb, musicCacheCfg.Prefix),
			middleware.NewCacheInvalidator(rdb, exerciseCacheCfg.Prefix)),
		router.MediaOptions{
			UploadLimit:   echomw.BodyLimit(fmt.Sprintf("%dM", cfg.MaxUploadMB)),
			MusicCache:    middleware.NewRedisCache(musicCacheCfg, rdb),
			ExerciseCache: middleware.NewRedisCache(exerciseCacheCfg, rdb),
		})

	addr := ":" + cfg.Port // Address string with port
	srv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening") // Print startup info
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown")
	}
	logrus.Info("server stopped")
}
