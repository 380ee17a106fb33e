// Package kvstore defines the key-value capability surface the session subsystem
// relies on: sets, hashes, key existence and absolute-time expiration with
// "only if not exists" and "only if greater" guards.
//
// The Store interface mirrors the Redis commands of the same names so that the
// Redis adapter in integration/database/redis is a thin translation layer.
// MemoryStore is an in-process implementation with the same observable
// semantics, used in tests and single-node development setups.
//
// # Usage
//
//	kv := kvstore.NewMemoryStore()
//	_, _ = kv.SAdd(ctx, "sessions:42", "1700000000")
//	_ = kv.HSet(ctx, "session:42:1700000000", map[string]string{"ip": "192.0.2.1"})
//	_, _ = kv.ExpireAt(ctx, "sessions:42", time.Unix(1700000000, 0), kvstore.ExpireNX)
//
// # Semantics
//
//   - Empty sets and hashes do not exist: removing the last member deletes the key.
//   - Expired keys are invisible to every read and are purged lazily.
//   - ExpireGT never applies to a key without a TTL, since no TTL counts as infinite.
//   - ExpireAt with a time in the past deletes the key.
//   - Missing hash fields are reported as ErrNotFound.
package kvstore
