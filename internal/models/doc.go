// Package models defines domain entities for the listening insights service.
//
// Four entities mirror the relational schema:
//   - [Artist] : artist snapshot keyed by external artist ID
//   - [Track] : track snapshot with a foreign key to its primary artist
//   - [AudioFeatures] : optional one-to-one numeric descriptors per track
//   - [Play] : append-only listening event keyed by (track, timestamp)
//
// [IngestRun] is the audit record written once per ingestion run.
//
// All entities are immutable once inserted: ingestion uses insert-or-ignore,
// so stored values are first-seen snapshots. Each type provides Validate for
// boundary checks at the ingestion layer.
package models
