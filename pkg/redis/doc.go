// Package redis provides a pooled Redis client built on the RESP codec
// in pkg/resp. It is intended as the storage-backend driver layer:
// callers construct a Client from Settings and issue commands
// concurrently; each call borrows one connection from a bounded pool,
// executes a single request/reply exchange and returns the connection.
//
// Failure isolation is strict: any I/O, timeout or protocol error marks
// the affected connection broken and it is never lent out again. Server
// error replies (-ERR, -WRONGTYPE, ...) leave the connection healthy
// and surface as typed *Error values with KindServer.
//
// There is no process-wide default client; every Client owns its pool.
package redis
