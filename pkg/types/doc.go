// Package types defines the table storage data model shared by the facade
// and its runtimes: entities, entity operations and batches, segmented
// queries, access policies, request options, the begin/end runtime contract,
// and the standard error values.
//
// The runtime contract mirrors the begin/end style of asynchronous
// programming: every BeginX starts a primitive and returns an AsyncResult,
// and the matching EndX waits for it and yields the typed result or a
// *StorageError.
package types
