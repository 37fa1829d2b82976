package cli

import (
	"context"

	"github.com/turtacn/mechstereo/internal/application/expansion"
	"github.com/turtacn/mechstereo/internal/application/rebuild"
	"github.com/turtacn/mechstereo/internal/domain/chem"
	"github.com/turtacn/mechstereo/internal/infrastructure/chem/inchi"
	"github.com/turtacn/mechstereo/internal/infrastructure/database/redis"
	"github.com/turtacn/mechstereo/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/mechstereo/internal/infrastructure/oracle/subprocess"
	"github.com/turtacn/mechstereo/internal/infrastructure/storage/minio"
	"github.com/turtacn/mechstereo/pkg/errors"
)

// runtime is the set of components behind one command run.
type runtime struct {
	toolkit   chem.Toolkit
	service   expansion.Service
	cache     *redis.ExpansionCache
	collector prometheus.MetricsCollector
	logger    logging.Logger
	closers   []func() error
}

// newStatelessRuntime builds a service for commands that never call the
// oracle.
func newStatelessRuntime(cliCtx *CLIContext) *runtime {
	tk := inchi.New()
	return &runtime{
		toolkit: tk,
		service: expansion.NewService(tk, nil, cliCtx.Logger),
		logger:  cliCtx.Logger,
	}
}

// newExpansionRuntime wires the oracle and every enabled backend of the
// configuration into an expansion service.  Backends that fail to connect
// abort the run; Close releases whatever was opened.
func newExpansionRuntime(cliCtx *CLIContext, metricsWanted bool) (rt *runtime, err error) {
	cfg := cliCtx.Config
	log := cliCtx.Logger
	rt = &runtime{toolkit: inchi.New(), logger: log}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	oracle := cliCtx.Deps.Oracle
	if oracle == nil {
		if len(cfg.Oracle.Command) == 0 {
			return rt, errors.New(errors.ErrCodeFeatureDisabled, "oracle.command is not configured")
		}
		sub, subErr := subprocess.New(cfg.Oracle, log.Named("oracle"))
		if subErr != nil {
			return rt, subErr
		}
		oracle = sub
	}

	opts := []expansion.ServiceOption{
		expansion.WithWorkers(cfg.Expansion.Workers),
		expansion.WithMaxAttempts(cfg.Expansion.MaxAttempts),
	}
	if cfg.Expansion.FillSmiles {
		if resolver, ok := oracle.(rebuild.SmilesResolver); ok {
			opts = append(opts, expansion.WithSmiles(resolver))
		} else {
			log.Warn("oracle cannot resolve SMILES; expansion.fill_smiles ignored")
		}
	}

	if cfg.Redis.Enabled {
		client, cErr := redis.NewClient(&cfg.Redis, log.Named("redis"))
		if cErr != nil {
			return rt, cErr
		}
		rt.closers = append(rt.closers, client.Close)
		var cacheOpts []redis.CacheOption
		if cfg.Redis.KeyPrefix != "" {
			cacheOpts = append(cacheOpts, redis.WithPrefix(cfg.Redis.KeyPrefix))
		}
		if cfg.Redis.TTL > 0 {
			cacheOpts = append(cacheOpts, redis.WithTTL(cfg.Redis.TTL))
		}
		rt.cache = redis.NewExpansionCache(client, log.Named("cache"), cacheOpts...)
		opts = append(opts, expansion.WithCache(rt.cache))
	}

	if cfg.Kafka.Enabled {
		producer, pErr := kafka.NewProducer(cfg.Kafka, log.Named("kafka"))
		if pErr != nil {
			return rt, pErr
		}
		rt.closers = append(rt.closers, producer.Close)
		opts = append(opts, expansion.WithResultSinks(kafka.NewComponentPublisher(producer, log.Named("kafka"))))
	}

	if cfg.MinIO.Enabled {
		client, mErr := minio.NewMinIOClient(&cfg.MinIO, log.Named("minio"))
		if mErr != nil {
			return rt, mErr
		}
		rt.closers = append(rt.closers, client.Close)
		opts = append(opts, expansion.WithArtifactStore(minio.NewArtifactRepository(client, log.Named("minio"))))
	}

	if cfg.Metrics.Enabled || metricsWanted {
		collector, colErr := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:   cfg.Metrics.Namespace,
			ConstLabels: cfg.Metrics.ConstLabels,
		}, log.Named("metrics"))
		if colErr != nil {
			return rt, colErr
		}
		rt.collector = collector
		opts = append(opts, expansion.WithMetrics(prometheus.NewExpansionMetrics(collector)))
	}

	rt.service = expansion.NewService(rt.toolkit, oracle, log, opts...)
	return rt, nil
}

// purgeCache drops every cached expansion.  It is a no-op without a cache.
func (rt *runtime) purgeCache(ctx context.Context) error {
	if rt.cache == nil {
		rt.logger.Warn("--purge-cache ignored: redis is not enabled")
		return nil
	}
	_, err := rt.cache.Purge(ctx)
	return err
}

// writeMetrics exports the collected metrics to path.
func (rt *runtime) writeMetrics(path string) error {
	if rt.collector == nil || path == "" {
		return nil
	}
	if err := rt.collector.WriteTextfile(path); err != nil {
		return err
	}
	rt.logger.Debug("metrics written", logging.String("path", path))
	return nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("close failed", logging.Err(err))
		}
	}
	rt.closers = nil
}
