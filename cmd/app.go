package cmd

import (
	"context"
	"fmt"
	"time"

	"GenreFM/cache"
	"GenreFM/config"
	"GenreFM/core/audio"
	"GenreFM/core/classifier"
	"GenreFM/core/features"
	"GenreFM/core/pipeline"
	"GenreFM/db"
	"GenreFM/logger"
	"GenreFM/model"
	"GenreFM/repository"
	"GenreFM/storage"
)

// app holds the wired pipeline and the optional backing services.
type app struct {
	cfg      *config.Config
	models   *classifier.Holder
	pipeline *pipeline.Pipeline
	history  repository.ClassificationRepository
	store    *storage.Store
	closers  []func() error
}

// newApp connects the services enabled in cfg and builds the pipeline.
// Optional services that fail to come up are logged and left disabled.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.MinioEnabled() {
		if err := storage.InitMinio(cfg); err != nil {
			if cfg.ModelSource == "minio" {
				return nil, err
			}
			logger.Warn("MinIO unavailable, upload archive disabled", logger.ErrorField(err))
		} else {
			a.store = storage.NewStore(storage.GetMinioClient(), cfg.MinioBucket)
		}
	}

	clf, err := loadModel(ctx, cfg, a.store)
	if err != nil {
		return nil, err
	}
	a.models = classifier.NewHolder(clf)
	logger.Info("model loaded",
		logger.String("version", clf.Version()),
		logger.String("kind", clf.Info().Kind),
		logger.String("source", cfg.ModelSource))

	decoder, err := audio.NewDecoder(cfg.Decoder, cfg.FFmpegPath, audio.DefaultSampleRate, cfg.MaxAudioSeconds)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{Workers: cfg.Workers}

	if cfg.CacheEnabled {
		if err := cache.ConnectRedis(cfg); err != nil {
			logger.Warn("Redis unavailable, result cache disabled", logger.ErrorField(err))
		} else {
			opts.Cache = cache.NewResultCache(cache.RedisClient, cfg.CacheTTL)
			a.closers = append(a.closers, cache.CloseRedis)
		}
	}

	if cfg.HistoryEnabled {
		if err := a.connectHistory(); err != nil {
			logger.Warn("history database unavailable, history disabled", logger.ErrorField(err))
		} else {
			opts.History = a.history
		}
	}

	if cfg.ArchiveUploads && a.store != nil {
		opts.Archive = a.store
	}

	a.pipeline = pipeline.New(decoder, features.NewExtractor(features.DefaultConfig()), a.models, opts)
	logger.Info("pipeline ready",
		logger.Int("workers", a.pipeline.Workers()),
		logger.String("decoder", cfg.Decoder),
		logger.Bool("cache", opts.Cache != nil),
		logger.Bool("history", opts.History != nil),
		logger.Bool("archive", opts.Archive != nil))
	return a, nil
}

func (a *app) connectHistory() error {
	if err := db.ConnectGormDB(a.cfg); err != nil {
		return err
	}
	a.closers = append(a.closers, db.CloseGormDB)
	if err := db.AutoMigrateModels(&model.Classification{}); err != nil {
		return err
	}
	a.history = repository.NewGormClassificationRepository(db.GormDB)
	return nil
}

// Close releases every connection opened by newApp.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", logger.ErrorField(err))
		}
	}
}

// loadModel reads the artifact from the configured source exactly once.
func loadModel(ctx context.Context, cfg *config.Config, store *storage.Store) (*classifier.Classifier, error) {
	switch cfg.ModelSource {
	case "", "file":
		return classifier.FileLoader(cfg.ModelPath).Get()
	case "minio":
		if store == nil {
			return nil, fmt.Errorf("model source is minio but MinIO is not configured")
		}
		return classifier.NewLoader(func() (*classifier.Classifier, error) {
			fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			data, err := store.FetchModel(fetchCtx, cfg.ModelPath)
			if err != nil {
				return nil, err
			}
			format, err := classifier.FormatFromPath(cfg.ModelPath)
			if err != nil {
				return nil, err
			}
			return classifier.LoadBytes(data, format)
		}).Get()
	default:
		return nil, fmt.Errorf("unknown model source %q", cfg.ModelSource)
	}
}
