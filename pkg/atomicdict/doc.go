// Package atomicdict implements the hard-core data structure of this
// module: a concurrent, open-addressed hash map using linear probing over
// a split index/entries layout. An insert takes the first empty slot on
// its probe sequence and never displaces existing nodes, so distances
// within a cluster are not kept in Robin-Hood order.
//
// The index is a power-of-two ring of 64-bit nodes, each packing an entry
// index and a tag (node.go, hash.go). Entries live in append-only pages of
// 64 cache-line-padded slots (entry.go). Accessors are per-goroutine state
// -- a reservation buffer and local counters -- checked out of a sync.Pool
// rather than kept in thread-local storage (accessor.go). A meta snapshot
// (meta.go) is swapped atomically on migration (migrate.go) via an
// atomicref.Ref, with a leader/follower protocol that rehashes the index
// in 4096-node blocks.
//
// Insert/update and compare-and-set (insert.go) are built over a single
// unified expected-insert-or-update primitive modeled as an Expectation
// sum type (expectation.go); lookup and delete (lookup.go, delete.go) have
// their own probe paths. Batched reads, group-by reduction, and a partitioned
// iterator (batch.go, reduce.go, iter.go) are layered on top.
package atomicdict
