package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const pingTimeout = 5 * time.Second

type IRedis interface {
	Client() *redis.Client
	Ping(ctx context.Context) error
	Close() error
}

type redisClient struct {
	client *redis.Client
}

// New connects using REDIS_URL when set, otherwise REDIS_ADDRESS,
// REDIS_PASSWORD and REDIS_DB. An unreachable server is an error: the
// session store cannot run without it.
func New(logger *logrus.Logger) (IRedis, error) {
	opts, err := optionsFromEnv()
	if err != nil {
		return nil, err
	}

	logger.WithField("addr", opts.Addr).Info("Connecting to Redis")

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	logger.Info("Successfully connected to Redis")
	return &redisClient{client: client}, nil
}

// Wrap adopts an existing client, e.g. one pointed at miniredis in tests.
func Wrap(client *redis.Client) IRedis {
	return &redisClient{client: client}
}

func optionsFromEnv() (*redis.Options, error) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URL parse error: %w", err)
		}
		return opts, nil
	}

	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB parse error: %w", err)
		}
		db = n
	}

	return &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func (r *redisClient) Client() *redis.Client {
	return r.client
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
