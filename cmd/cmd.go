package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geoquest-backend/internal/config"
	"geoquest-backend/internal/handlers"
	"geoquest-backend/internal/identity"
	"geoquest-backend/internal/migrations"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/notify"
	"geoquest-backend/internal/repository"
	"geoquest-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

func Run() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	if err := run(ctx, configPath); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server exited")
}

func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	setupLogger(cfg.Log)

	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	sqlDB := stdlib.OpenDBFromPool(db)
	if err := migrations.Run(sqlDB); err != nil {
		sqlDB.Close()
		return err
	}
	sqlDB.Close()
	log.Info().Msg("Database migrations applied")

	store := repository.NewStore(db)

	// Event fan-out
	wsHub := services.NewWSHub()
	defer wsHub.Close()
	publishers := services.Publishers{wsHub}
	if cfg.APNs.KeyFile != "" {
		apnsCfg := notify.APNsConfig{
			KeyFile:    cfg.APNs.KeyFile,
			KeyID:      cfg.APNs.KeyID,
			TeamID:     cfg.APNs.TeamID,
			Topic:      cfg.APNs.Topic,
			Production: cfg.APNs.Production,
		}
		if !apnsCfg.Enabled() {
			return errors.New("apns.key_file is set but key_id, team_id or topic is missing")
		}
		apns, err := notify.NewAPNs(apnsCfg, store)
		if err != nil {
			return err
		}
		publishers = append(publishers, apns)
		log.Info().Bool("production", cfg.APNs.Production).Msg("Push notifications enabled")
	}

	// Initialize services
	s3Opts := services.S3Options{
		Region:          cfg.AWS.Region,
		Bucket:          cfg.AWS.S3Bucket,
		AccessKeyID:     cfg.AWS.AccessKey,
		SecretAccessKey: cfg.AWS.SecretKey,
		Endpoint:        cfg.AWS.Endpoint,
		PublicBaseURL:   cfg.AWS.PublicBaseURL,
	}
	s3Client, err := services.NewS3Client(ctx, s3Opts)
	if err != nil {
		return err
	}

	customers := identity.NewShopify(identity.ShopifyConfig{
		ShopDomain:  cfg.Shopify.ShopDomain,
		AccessToken: cfg.Shopify.AccessToken,
		APIVersion:  cfg.Shopify.APIVersion,
	}, nil)

	ledgerService := services.NewLedgerService(store, publishers)
	userService := services.NewUserService(store, customers, cfg.JWT.Secret, cfg.JWT.TTL)
	checkInService := services.NewCheckInService(store, ledgerService, publishers)
	questService := services.NewQuestService(store, ledgerService, publishers, services.QuestOptions{
		SequentialSteps: cfg.Quest.SequentialSteps,
	})
	photoService := services.NewPhotoService(store, ledgerService, publishers, s3Client, s3Opts, cfg.Points.PhotoReward)
	placeService := services.NewPlaceService(store)

	// Setup router
	router := &handlers.Router{
		Validator:      userService,
		AdminToken:     cfg.Admin.Token,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Health:         handlers.NewHealthHandler(map[string]handlers.Checker{"postgres": store}),
		Users:          handlers.NewUserHandler(userService, ledgerService),
		CheckIns:       handlers.NewCheckInHandler(checkInService),
		Quests:         handlers.NewQuestHandler(questService),
		Photos:         handlers.NewPhotoHandler(photoService),
		Locations:      handlers.NewPlaceHandler(placeService, models.KindLocation),
		Partners:       handlers.NewPlaceHandler(placeService, models.KindPartner),
		WebSockets:     handlers.NewWebSocketHandler(wsHub, userService),
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		wsHub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// setupLogger configures zerolog logger
func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if cfg.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	log.Logger = log.Output(out)

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
