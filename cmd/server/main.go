package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookarr/internal/config"
	"bookarr/internal/dispatch"
	"bookarr/internal/domain"
	"bookarr/internal/downloader"
	apphttp "bookarr/internal/http"
	"bookarr/internal/provider"
	"bookarr/internal/repository/sqlite"
	"bookarr/internal/search"
	"bookarr/internal/service"
	"bookarr/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}
	if strings.TrimSpace(cfg.Auth.RegisterPassword) == "" {
		logger.Fatalf("auth registration password is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	itemRepo := sqlite.NewWantedItemRepository(db)
	historyRepo := sqlite.NewHistoryRepository(db)
	userRepo := sqlite.NewUserRepository(db)

	if err := itemRepo.Init(ctx); err != nil {
		logger.Fatalf("init wanted item repository: %v", err)
	}
	if err := historyRepo.Init(ctx); err != nil {
		logger.Fatalf("init history repository: %v", err)
	}
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	userService := service.NewUserService(userRepo, cfg.Auth.RegisterPassword)

	registry := provider.NewRegistry()
	selector := search.NewSelector(logger, historyRepo, searchRules(cfg))
	escalator := &search.Escalator{
		Selector:  selector,
		Registry:  registry,
		Threshold: cfg.Search.MatchThreshold,
		Throttle:  search.NewWarningThrottle(time.Duration(cfg.Search.WarnCooldownSeconds) * time.Second),
		Log:       logger,
	}

	// The torrent manager reports outcomes back to the wanted service, and
	// the dispatcher routes snatches to the manager, so the dispatcher is
	// attached after both exist.
	wantedService := service.NewWantedService(itemRepo, historyRepo, escalator, nil, provider.Categories(), logger)

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	manager := downloader.NewManager(downloader.Config{
		DownloadRoot:   cfg.Download.DataDir,
		MaxConcurrent:  3,
		StatusInterval: 2 * time.Second,
		UploadOptions: storage.UploadOptions{
			Bucket:    cfg.Storage.Bucket,
			KeyPrefix: cfg.Storage.KeyPrefix,
		},
		Logger: logger,
	}, wantedService, wantedService, storageSvc)

	var nzbClient *dispatch.NZBClient
	if cfg.Clients.NZBURL != "" {
		nzbClient = dispatch.NewNZBClient(cfg.Clients.NZBURL, cfg.Clients.NZBAPIKey, cfg.Clients.NZBPaused)
	}

	dispatcher := dispatch.NewDispatcher(itemRepo, historyRepo, dispatch.Config{
		NZBClient:      nzbClient,
		TorrentManager: manager,
		DataDir:        cfg.Download.DataDir,
		Logger:         logger,
	})
	wantedService.SetDispatcher(dispatcher)

	if err := manager.Start(ctx); err != nil {
		logger.Fatalf("start torrent manager: %v", err)
	}
	if err := manager.Resume(ctx); err != nil {
		logger.Warnf("resume snatches: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	tokens := apphttp.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	handler := apphttp.NewHandler(wantedService, userService, tokens, storageSvc, cfg.Storage.Bucket)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	manager.Shutdown()

	logger.Info("bye")
}

func searchRules(cfg config.Config) map[domain.ItemKind]search.KindRules {
	return map[domain.ItemKind]search.KindRules{
		domain.KindEBook: {
			RejectWords: cfg.Search.RejectWordsEBook,
			FormatWords: []string{"epub", "mobi", "azw3", "pdf"},
			Bounds:      search.Bounds{MinMB: cfg.Search.MinSizeEBookMB, MaxMB: cfg.Search.MaxSizeEBookMB},
		},
		domain.KindAudioBook: {
			RejectWords: cfg.Search.RejectWordsAudioBook,
			FormatWords: []string{"mp3", "m4b", "flac"},
			Bounds:      search.Bounds{MinMB: cfg.Search.MinSizeAudioBookMB, MaxMB: cfg.Search.MaxSizeAudioBookMB},
		},
		domain.KindMagazine: {
			RejectWords: cfg.Search.RejectWordsMagazine,
			FormatWords: []string{"pdf"},
			Bounds:      search.Bounds{MinMB: cfg.Search.MinSizeMagazineMB, MaxMB: cfg.Search.MaxSizeMagazineMB},
		},
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured, archival disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
