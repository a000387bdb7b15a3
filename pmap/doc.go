// Package pmap implements durable key-value maps with an explicit
// dirty/flush/close lifecycle.
//
// A map is described by narrow capability interfaces ([Reader], [Writer],
// [KeyIterator], [Flusher], [Lifecycle]) composed into [Map]. Keys and values
// are serialized through codec.Codec; a key's encoded bytes are its identity,
// so a reopened map recognizes keys written by an earlier process.
//
// [LogMap] is the native implementation: an append-only record log plus an
// in-memory key directory that is snapshotted to a hint file on Force.
// [Enumerator] interns keys to dense int32 ids on top of two LogMaps.
//
// # Durability
//
// Mutations are written to the log immediately. With DurabilityAsync they
// reach stable storage on Force; with DurabilitySync every mutation waits
// for an fsync. After Force returns, all prior mutations survive a crash.
//
// # Concurrency
//
// A map supports one writer and any number of readers. Read-modify-write
// sequences such as [AppendData] are not atomic: callers serialize them.
package pmap
