// Package cache provides the decoded-value cache sitting in front of a log map.
//
// [LRU] is bounded by the caller-supplied cost of its entries and may share a
// memory budget with other caches through a resource.Controller. A map
// invalidates an entry on every Put, Remove and append, so cached values never
// outlive the record they were decoded from.
package cache
