// Package remote is the HTTP client for the todo API that synced stores
// reconcile against.
//
// # Endpoints
//
//	GET    /api/todos          list ({"items": [...]})
//	POST   /api/todos          create one; Idempotency-Key header is honored
//	POST   /api/todos/batch    create several ({"items": [...]})
//	PUT    /api/todos/{id}     replace
//	DELETE /api/todos/{id}     delete (204)
//
// Failing responses carry {"error": "..."} and surface as *StatusError. Only
// the list call is retried, since it is the only idempotent read; writes are
// left to the caller because a synced store rolls them back instead.
//
// Operations turns any TodoService into a synq.Remote[Todo].
package remote
