// Package redis provides Redis client initialization, health checking and a
// kvstore.Store adapter used as the session store backend.
//
// This package wraps the go-redis client with connection validation and retry logic.
//
// # Key Features
//
//   - Connect: Creates a Redis client with exponential retry logic and connection verification
//   - Healthcheck: Returns a health check function for monitoring Redis connectivity
//   - NewKVStore: Adapts a client to core/kvstore.Store
//
// # Configuration
//
//	type Config struct {
//		ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
//		RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
//		RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
//		ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
//	}
//
// Both redis:// and rediss:// (TLS) URL schemes are accepted.
//
// # Usage Example
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal("Failed to connect to Redis:", err)
//	}
//	defer client.Close()
//
//	kv := redis.NewKVStore(client)
//	store := session.NewStore(kv, session.WithKeyPrefix("app:"))
//
// # Expiration Guards
//
// kvstore.ExpireNX and kvstore.ExpireGT map to the NX and GT flags of EXPIREAT,
// which require Redis 7.0 or newer.
//
// # Error Handling
//
//   - ErrFailedToParseRedisConnString: Returned when the Redis connection URL is malformed
//   - ErrRedisNotReady: Returned when Redis doesn't become ready within the timeout period
//   - ErrEmptyConnectionURL: Returned when no connection URL is provided
//   - ErrHealthcheckFailed: Returned when health check ping fails
//   - ErrCommandFailed: Wraps any other error returned by a KVStore command
//
// redis.Nil is reported as kvstore.ErrNotFound and WRONGTYPE replies as kvstore.ErrWrongType.
package redis
