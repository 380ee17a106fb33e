// Package pg provides PostgreSQL connection management, schema migrations and the
// account-level store for pending verification code pointers.
//
// This package wraps the pgx driver with retry logic and pool configuration, and
// applies the embedded goose migrations.
//
// # Key Features
//
//   - Connect: Creates a connection pool with retry logic and connection verification
//   - Migrate: Applies the embedded schema migrations using goose over database/sql
//   - Healthcheck: Returns a health check function for monitoring connectivity
//   - AccountStore: Pending verification pointer per user (session_verifications table)
//   - WithTx / TxFromContext: Propagate a pgx.Tx through context
//
// # Configuration
//
//	type Config struct {
//		ConnectionString  string        `env:"PG_CONN_URL,required"`
//		MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
//		MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
//		HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
//		MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
//		MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`
//		RetryAttempts     int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
//		RetryInterval     time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`
//		MigrationsTable   string        `env:"PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"`
//	}
//
// # Usage Example
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal("Failed to connect to PostgreSQL:", err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, logger); err != nil {
//		log.Fatal("Migration failed:", err)
//	}
//
//	accounts := pg.NewAccountStore(pool)
//	challenger := session.NewChallenger(store, accounts, cfg)
//
// # Transaction Management
//
// AccountStore methods run inside the transaction attached to the context, if any:
//
//	tx, err := pool.Begin(ctx)
//	if err != nil {
//		return err
//	}
//	defer tx.Rollback(ctx) // Safe even after commit
//
//	ctx = pg.WithTx(ctx, tx)
//	if err := accounts.ClearPendingVerification(ctx, userID); err != nil {
//		return err
//	}
//	return tx.Commit(ctx)
//
// # Error Handling
//
//   - ErrEmptyConnectionString, ErrFailedToParseDBConfig: invalid configuration
//   - ErrFailedToOpenDBConnection: the pool could not be opened or pinged after all attempts
//   - ErrHealthcheckFailed: ping failed
//   - ErrFailedToApplyMigrations: goose could not apply the schema
//   - ErrQueryFailed: wraps driver errors from AccountStore
package pg
