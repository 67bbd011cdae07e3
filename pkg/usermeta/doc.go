// Package usermeta is the identity and metadata store the quota reconciler
// keeps its state in.
//
// Every user owns two JSON documents: public metadata (readable by the
// frontend) and private metadata (backend only). Writes are shallow merges:
// each top-level key in an Update replaces the stored key; keys not named are
// left untouched. Callers therefore always write whole values for a key.
//
// Implementations:
//
//   - ClerkStore talks to the Clerk Backend API. Unknown users yield
//     ErrUserNotFound.
//   - RedisStore, PostgresStore, MongoStore and MemoryStore are self-hosted;
//     unknown users are returned with empty metadata and created on first
//     write. They also implement UserLister.
//
// Lockers serialize read-modify-write sequences per key across goroutines
// (MemoryLocker) or processes (RedisLocker, PostgresLocker).
package usermeta
