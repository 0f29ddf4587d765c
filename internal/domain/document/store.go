// Package document defines the content-addressable write target for rendered
// regulatory documents.  The engine only needs Put; retrieval, retention, and
// replication are the store's concern.
package document

import "context"

// Stored describes the outcome of a successful write.
type Stored struct {
	Key      string
	Size     int64
	Checksum string
}

// Store is the write-side contract the notice engine consumes.  A failed
// write leaves the notice in DRAFT for retry; generation is append-only so
// there is nothing to roll back.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (*Stored, error)
}
