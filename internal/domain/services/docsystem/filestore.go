package docsystem

import "context"

// FileStore is the object storage collaborator that holds uploaded images and files.
// The core never calls it; handlers use it with the keys returned by a purge.
type FileStore interface {
	Delete(ctx context.Context, key string) error
}
