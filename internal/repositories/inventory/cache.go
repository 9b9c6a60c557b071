package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/fern/pkg/tracing"
)

const keyPrefix = "fern:epochs:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger ectologger.Logger) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "failed to connect to Redis at %s", addr)
	}

	logger.Infof("Connected to Redis at %s", addr)
	return rdb, nil
}

// EpochCache answers presence queries from station epochs cached in Redis, loading
// misses from the source. Redis failures degrade to reading the source directly.
type EpochCache struct {
	source EpochSource
	rdb    *redis.Client
	ttl    time.Duration
	logger ectologger.Logger
}

func NewEpochCache(source EpochSource, rdb *redis.Client, ttl time.Duration, logger ectologger.Logger) *EpochCache {
	return &EpochCache{
		source: source,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(networkCode, stationCode string) string {
	return keyPrefix + networkCode + "." + stationCode
}

// StationExists reports whether the station was operating at the given time
func (c *EpochCache) StationExists(ctx context.Context, networkCode, stationCode string, at time.Time) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "inventory.EpochCache.StationExists")
	defer span.End()

	epochs, err := c.epochs(ctx, networkCode, stationCode)
	if err != nil {
		return false, err
	}
	return anyContains(epochs, at), nil
}

func (c *EpochCache) epochs(ctx context.Context, networkCode, stationCode string) ([]Epoch, error) {
	key := cacheKey(networkCode, stationCode)
	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"network_code": networkCode,
		"station_code": stationCode,
	})

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var epochs []Epoch
		if err := json.Unmarshal(raw, &epochs); err == nil {
			return epochs, nil
		}
		log.Warn("Discarding undecodable cached station epochs")
	case !errors.Is(err, redis.Nil):
		log.WithError(err).Warn("Station epoch cache unavailable, reading inventory")
		return c.source.StationEpochs(ctx, networkCode, stationCode)
	}

	epochs, err := c.source.StationEpochs(ctx, networkCode, stationCode)
	if err != nil {
		return nil, err
	}
	c.store(ctx, networkCode, stationCode, epochs)
	return epochs, nil
}

func (c *EpochCache) store(ctx context.Context, networkCode, stationCode string, epochs []Epoch) {
	if epochs == nil {
		epochs = []Epoch{}
	}
	raw, err := json.Marshal(epochs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(networkCode, stationCode), raw, c.ttl).Err(); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to cache station epochs")
	}
}

// Warm primes the cache with the epochs of every station of the given networks
func (c *EpochCache) Warm(ctx context.Context, networks []Network) int {
	stations := map[string][]Epoch{}
	var order []string
	for _, network := range networks {
		for _, epoch := range network.Stations {
			key := cacheKey(epoch.NetworkCode, epoch.StationCode)
			if _, ok := stations[key]; !ok {
				order = append(order, key)
			}
			stations[key] = append(stations[key], epoch)
		}
	}

	for _, key := range order {
		epochs := stations[key]
		c.store(ctx, epochs[0].NetworkCode, epochs[0].StationCode, epochs)
	}

	c.logger.WithContext(ctx).WithField("stations", len(order)).Info("Warmed station epoch cache")
	return len(order)
}
