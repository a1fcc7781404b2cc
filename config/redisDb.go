package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Redis connects in the background after startup, so the client is guarded.
var (
	redisMu sync.RWMutex
	rdb     *redis.Client
	locker  *redislock.Client
)
var ctx = context.Background()

func GetRedisDB() *redis.Client {
	redisMu.RLock()
	defer redisMu.RUnlock()
	return rdb
}

func GetRedisLock() *redislock.Client {
	redisMu.RLock()
	defer redisMu.RUnlock()
	return locker
}

// SetRedisDB swaps the process redis client and its locker.
func SetRedisDB(client *redis.Client) {
	redisMu.Lock()
	defer redisMu.Unlock()
	rdb = client
	if client == nil {
		locker = nil
		return
	}
	locker = redislock.New(client)
}

func GetRedisObject(key string, dest interface{}) (bool, error) {
	client := GetRedisDB()
	if client == nil {
		return false, nil
	}
	val, err := client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err = json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetRedisObject(key string, obj interface{}, exp time.Duration) error {
	client := GetRedisDB()
	if client == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, objInByte, exp).Err()
}

// GetRedisCounter adds one and returns it, while storing the updated value.
// ok is false when redis is not connected; callers fall back to the database.
func GetRedisCounter(ctx context.Context, key string) (value int64, ok bool, err error) {
	client := GetRedisDB()
	if client == nil {
		return 0, false, nil
	}
	value, err = client.Incr(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

// SeedRedisCounter sets key to floor only if the key does not exist yet.
func SeedRedisCounter(ctx context.Context, key string, floor int64) error {
	client := GetRedisDB()
	if client == nil {
		return nil
	}
	return client.SetNX(ctx, key, floor, 0).Err()
}

func RedisCounterExists(ctx context.Context, key string) (bool, error) {
	client := GetRedisDB()
	if client == nil {
		return false, nil
	}
	n, err := client.Exists(ctx, key).Result()
	return n > 0, err
}

func init() {
	// Load env from .env
	godotenv.Load()
	// Do NOT block startup in init() waiting for Redis.
}

// ConnectRedisWithRetry connects and sets the global Redis client + lock client.
// maxAttempts <= 0 retries until ctx ends. Until it returns nil, sequences fall back to the
// database and Idempotency-Key and rate limiting are inactive.
func ConnectRedisWithRetry(ctx context.Context, maxAttempts int) error {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
		log.Printf("REDIS_ADDRESS not set; defaulting to %s", redisAddr)
	}

	for attempt := 1; ; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0, // use default DB
			PoolSize: 100,
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			SetRedisDB(client)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, redisAddr)
			return nil
		}
		_ = client.Close()

		if maxAttempts > 0 && attempt >= maxAttempts {
			return fmt.Errorf("connect redis %s: giving up after %d attempts: %w", redisAddr, attempt, err)
		}
		sleep := retryDelay(attempt)
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, redisAddr, err, sleep)
		if werr := waitRetry(ctx, sleep); werr != nil {
			return fmt.Errorf("connect redis %s: %w", redisAddr, werr)
		}
	}
}

func CloseRedis() error {
	client := GetRedisDB()
	if client == nil {
		return nil
	}
	SetRedisDB(nil)
	return client.Close()
}
