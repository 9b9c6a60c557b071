package main

import (
	"context"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/catalog"
	"github.com/Ramsey-B/fern/internal/repositories/inventory"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/health"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/lifecycle"
	"github.com/Ramsey-B/fern/pkg/locator"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/processor"
	"github.com/Ramsey-B/fern/pkg/relocation"
	"github.com/Ramsey-B/fern/pkg/selection"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const serviceName = "fern"

// catalogStore joins the catalog repository with station presence so one value
// serves the processor, merge engine and lifecycle manager
type catalogStore struct {
	*catalog.Repository
	inventory.Presence
}

type app struct {
	cfg    *config.Config
	logger ectologger.Logger

	db        database.DB
	rdb       *redis.Client
	producer  *kafka.Producer
	consumer  *kafka.Consumer
	processor *processor.Processor
	checker   *health.Checker
	server    *health.Server
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	logger, flush, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = flush() }()

	var begin, end time.Time
	if opts.hasWindow() {
		if begin, end, err = opts.window(time.Now().UTC()); err != nil {
			return err
		}
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Setup(ctx, tracing.Config{
			ServiceName: serviceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Protocol:    cfg.Tracing.Protocol,
			Insecure:    cfg.Tracing.Insecure,
			Timeout:     10 * time.Second,
		})
		if err != nil {
			return err
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	live := opts.eventID == "" && !opts.hasWindow()
	a := &app{cfg: cfg, logger: logger}
	deps := a.dependencies(live)
	if err := deps.Start(ctx); err != nil {
		logger.WithError(err).Errorf("Startup failed: %+v", err)
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := deps.Stop(stopCtx); err != nil {
			logger.WithError(err).Error("Shutdown incomplete")
		}
	}()

	switch {
	case opts.eventID != "":
		_, err := a.processor.ProcessEventID(ctx, opts.eventID)
		return err
	case opts.hasWindow():
		summary, err := a.processor.ProcessTimeWindow(ctx, begin, end)
		logger.WithFields(map[string]any{
			"begin":        begin,
			"end":          end,
			"events":       summary.Events,
			"merged":       summary.Merged,
			"disqualified": summary.Disqualified,
			"failed":       summary.Failed,
		}).Info("Time window processed")
		return err
	}

	a.checker.SetReady(true)
	logger.Info("fern is consuming catalog notifications")
	select {
	case <-ctx.Done():
	case <-a.consumer.Done():
	}
	a.checker.SetReady(false)
	if err := a.consumer.Err(); err != nil {
		logger.WithError(err).Error("Notification consumer stopped, shutting down")
		return err
	}
	logger.Info("Shutting down")
	return nil
}

func (a *app) dependencies(live bool) *startup.Startup {
	cfg := a.cfg
	s := startup.New(a.logger, cfg.Startup.MaxAttempts)

	s.Add(startup.Component{
		ComponentName: "database",
		OnStart: func(ctx context.Context) error {
			db, err := database.Connect(ctx, database.Config{
				Host:            cfg.Database.Host,
				Port:            cfg.Database.Port,
				User:            cfg.Database.User,
				Password:        cfg.Database.Password,
				Name:            cfg.Database.Name,
				SSLMode:         cfg.Database.SSLMode,
				MaxOpenConns:    cfg.Database.MaxOpenConns,
				MaxIdleConns:    cfg.Database.MaxIdleConns,
				ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			}, a.logger)
			if err != nil {
				return err
			}
			a.db = db
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return a.db.Close()
		},
	})

	s.Add(startup.Component{
		ComponentName: "migrations",
		Requires:      []string{"database"},
		OnStart: func(ctx context.Context) error {
			if !cfg.Database.Migrate {
				return nil
			}
			migrator := database.NewSchemaMigrator(a.logger, cfg.Database.MigrationFolderPath, cfg.Database.Name)
			_, err := migrator.Up(a.db)
			return err
		},
	})

	requires := []string{"database", "migrations", "producer"}
	if cfg.Redis.Enabled {
		requires = append(requires, "redis")
		s.Add(startup.Component{
			ComponentName: "redis",
			OnStart: func(ctx context.Context) error {
				rdb, err := inventory.NewRedisClient(ctx, inventory.RedisConfig{
					Host:     cfg.Redis.Host,
					Port:     cfg.Redis.Port,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				}, a.logger)
				if err != nil {
					return err
				}
				a.rdb = rdb
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return a.rdb.Close()
			},
		})
	}

	s.Add(startup.Component{
		ComponentName: "producer",
		OnStart: func(ctx context.Context) error {
			a.producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.Kafka.Brokers,
				BatchSize:    cfg.Kafka.BatchSize,
				BatchTimeout: time.Duration(cfg.Kafka.BatchTimeout) * time.Millisecond,
				RequiredAcks: cfg.Kafka.RequiredAcks,
				Compression:  cfg.Kafka.Compression,
			}, a.logger)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return a.producer.Close()
		},
	})

	s.Add(startup.Component{
		ComponentName: "processor",
		Requires:      requires,
		OnStart:       a.buildProcessor,
	})

	if !live {
		return s
	}

	s.Add(startup.Component{
		ComponentName: "health",
		Requires:      []string{"database", "consumer"},
		OnStart: func(ctx context.Context) error {
			deps := map[string]health.Pinger{
				"database": a.db,
				"stream":   a.consumer,
			}
			if a.rdb != nil {
				rdb := a.rdb
				deps["redis"] = health.PingFunc(func(ctx context.Context) error {
					return rdb.Ping(ctx).Err()
				})
			}
			// the epoch cache falls back to the inventory tables
			a.checker = health.NewChecker(deps).Optional("redis")
			a.server = health.NewServer(a.checker, cfg.HTTP.Port, serviceName, a.logger)
			a.server.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return a.server.Shutdown(ctx)
		},
	})

	s.Add(startup.Component{
		ComponentName: "consumer",
		Requires:      []string{"processor"},
		OnStart: func(ctx context.Context) error {
			a.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:       cfg.Kafka.Brokers,
				Topic:         cfg.Kafka.InputTopic,
				ConsumerGroup: cfg.Kafka.ConsumerGroup,
				FromBeginning: cfg.Kafka.FromBeginning,
			}, a.logger, a.processor.HandleMessage)
			return a.consumer.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return a.consumer.Stop()
		},
	})

	return s
}

func (a *app) buildProcessor(ctx context.Context) error {
	cfg := a.cfg

	inventoryRepo := inventory.NewRepository(a.db, a.logger)
	var presence inventory.Presence = inventoryRepo
	if a.rdb != nil {
		cache := inventory.NewEpochCache(inventoryRepo, a.rdb, cfg.Redis.PresenceTTL, a.logger)
		networks, err := inventoryRepo.ListNetworks(ctx)
		if err != nil {
			return err
		}
		cache.Warm(ctx, networks)
		presence = cache
	}
	store := catalogStore{
		Repository: catalog.NewRepository(a.db, a.logger),
		Presence:   presence,
	}

	available := cfg.Locator.Available
	if !ectolinq.Contains(available, cfg.Locator.Type) {
		available = append(available, cfg.Locator.Type)
	}
	factory := locator.NewFactory(locator.Config{
		BaseURL:   cfg.Locator.ServiceURL,
		Available: available,
		Timeout:   cfg.Locator.Timeout,
	}, a.logger)

	selector := selection.NewSelector(a.logger, selection.Policy{
		PrimaryAgencyIDs:   cfg.Input.PrimaryOriginAgencyIDs,
		SecondaryAgencyIDs: cfg.Input.SecondaryOriginAgencyIDs,
		EvaluationMode:     cfg.Input.RequiredEvaluationMode(),
		Output: selection.Identity{
			Author:   cfg.Output.Author,
			AgencyID: cfg.Output.AgencyID,
		},
	})

	relocator := relocation.NewOrchestrator(a.logger, factory, relocation.Config{
		FixedDepth:                cfg.Locator.FixedDepth,
		DistanceCutOff:            cfg.Locator.DistanceCutOff,
		IgnoreInitialLocation:     cfg.Locator.IgnoreInitialLocation,
		DefaultLocator:            cfg.Locator.Type,
		DefaultProfile:            cfg.Locator.Profile,
		UseOriginLocator:          cfg.Locator.UseOriginLocator,
		DepthUncertaintyTolerance: cfg.Locator.DepthUncertaintyTolerance,
		Author:                    cfg.Output.Author,
		AgencyID:                  cfg.Output.AgencyID,
		EvaluationMode:            cfg.Output.Mode(),
	})

	emitter := events.NewEmitter(a.producer, a.logger, cfg.Kafka.OutputTopic, cfg.Connection.GroupRemove)
	manager := lifecycle.NewManager(a.logger, store, emitter, lifecycle.Config{
		DryRun: cfg.Mode.Test,
		Author: cfg.Output.Author,
	})

	a.processor = processor.NewProcessor(
		a.logger,
		store,
		selector,
		merging.NewEngine(a.logger, store),
		relocator,
		manager,
		cfg.Mode.RemoveOnly,
	)

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"author":      cfg.Output.Author,
		"agency_id":   cfg.Output.AgencyID,
		"locator":     cfg.Locator.Type,
		"profile":     cfg.Locator.Profile,
		"test_mode":   cfg.Mode.Test,
		"remove_only": cfg.Mode.RemoveOnly,
	}).Info("Processor ready")
	return nil
}
