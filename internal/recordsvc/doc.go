// Package recordsvc is a small JSON-RPC 2.0 backend used to run the gateway
// locally. Each process serves one kind of record, stored in SQLite, and
// answers the "health" method the gateway probes with.
package recordsvc
