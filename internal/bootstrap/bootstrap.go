// Package bootstrap turns configuration into the store, file store, id
// generator and event queue used by both binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"registration/internal/cloudinary"
	"registration/internal/config"
	"registration/internal/intake"
	"registration/internal/queue"
	"registration/internal/registration"
	"registration/internal/store"
)

// Deps is everything built from config. Close releases it in reverse order.
type Deps struct {
	Store registration.Store
	Files registration.FileStore
	IDs   registration.IDGenerator
	// Queue is nil when QUEUE_BACKEND=none.
	Queue queue.Queue

	redis   *store.Redis
	closers []func() error
}

// Build connects every backend named in cfg. A durable backend that cannot
// be reached is an error; there is no fallback to memory.
func Build(ctx context.Context, cfg config.App, logger *slog.Logger) (*Deps, error) {
	d, counter, err := buildCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Deps, error) {
		_ = d.Close()
		return nil, err
	}

	if d.IDs, err = NewIDGenerator(cfg.IDPolicy, counter); err != nil {
		return fail(err)
	}

	if d.Files, err = NewFileStore(ctx, cfg); err != nil {
		return fail(err)
	}
	logger.Info("file store ready", slog.String("backend", cfg.FileBackend))
	return d, nil
}

// BuildWorker connects only the store and the event queue. Files and IDs
// are left nil.
func BuildWorker(ctx context.Context, cfg config.App, logger *slog.Logger) (*Deps, error) {
	d, _, err := buildCore(ctx, cfg, logger)
	return d, err
}

func buildCore(ctx context.Context, cfg config.App, logger *slog.Logger) (*Deps, registration.Counter, error) {
	d := &Deps{}
	fail := func(err error) (*Deps, registration.Counter, error) {
		_ = d.Close()
		return nil, nil, err
	}

	if cfg.RedisAddr != "" {
		d.redis = store.NewRedis(cfg.RedisAddr)
		d.closers = append(d.closers, d.redis.Close)
	}

	counter, err := d.buildStore(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	logger.Info("store ready", slog.String("backend", d.Store.Info().Backend), slog.Bool("durable", d.Store.Info().Durable))

	if d.Queue, err = d.buildQueue(cfg); err != nil {
		return fail(err)
	}
	return d, counter, nil
}

// Publisher returns the queue as an event publisher, or nil when events are off.
func (d *Deps) Publisher() registration.Publisher {
	if d.Queue == nil {
		return nil
	}
	return d.Queue
}

// Close releases connections in reverse order of creation.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// buildStore opens the configured store and returns the counter that
// backs sequential ids for it.
func (d *Deps) buildStore(ctx context.Context, cfg config.App) (registration.Counter, error) {
	var redisCounter registration.Counter
	if d.redis != nil {
		redisCounter = store.NewCounter(d.redis.Client, store.SequenceKey)
	}

	switch cfg.StoreBackend {
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL, cfg.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		repo := registration.NewSQLRepository(db.Client, store.PostgresDialect())
		d.Store = repo
		d.closers = append(d.closers, repo.Close)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return redisCounter, nil

	case "sqlite":
		db, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo := registration.NewSQLRepository(db, store.SQLiteDialect())
		d.Store = repo
		d.closers = append(d.closers, repo.Close)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return redisCounter, nil

	case "mongo":
		client, err := store.NewMongo(ctx, cfg.MongoURI, cfg.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		repo := registration.NewMongoRepository(client, cfg.MongoDatabase)
		d.Store = repo
		d.closers = append(d.closers, repo.Close)
		if redisCounter != nil {
			return redisCounter, nil
		}
		return repo.Counter("registrations"), nil

	case "memory":
		d.Store = registration.NewMemoryStore()
		return &registration.MemoryCounter{}, nil

	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

func (d *Deps) buildQueue(cfg config.App) (queue.Queue, error) {
	switch cfg.QueueBackend {
	case "none", "":
		return nil, nil
	case "memory":
		return queue.NewInMemory(256), nil
	case "redis":
		if d.redis == nil {
			return nil, errors.New("redis queue needs REDIS_ADDR")
		}
		return queue.NewRedisQueue(d.redis.Client, queue.DefaultKey), nil
	default:
		return nil, fmt.Errorf("unknown queue backend: %s", cfg.QueueBackend)
	}
}

// NewIDGenerator picks the id policy. Sequential ids need a counter.
func NewIDGenerator(policy string, counter registration.Counter) (registration.IDGenerator, error) {
	switch policy {
	case "uuid", "":
		return registration.UUIDGenerator{}, nil
	case "sequential":
		if counter == nil {
			return nil, errors.New("sequential ids need a persisted counter (set REDIS_ADDR)")
		}
		return registration.NewSequentialGenerator(counter, "REG-"), nil
	default:
		return nil, fmt.Errorf("unknown id policy: %s", policy)
	}
}

// NewFileStore builds the payment screenshot backend.
func NewFileStore(ctx context.Context, cfg config.App) (registration.FileStore, error) {
	switch cfg.FileBackend {
	case "disk":
		return intake.NewDiskStore(cfg.UploadDir)
	case "inline":
		return intake.InlineStore{}, nil
	case "s3":
		return intake.NewS3Store(ctx, intake.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			Prefix:          "payments",
		})
	case "cloudinary":
		client, err := cloudinary.FromURL(cfg.CloudinaryURL)
		if err != nil {
			return nil, err
		}
		return intake.NewCloudinaryStore(client, cfg.CloudinaryFolder), nil
	default:
		return nil, fmt.Errorf("unknown file backend: %s", cfg.FileBackend)
	}
}
