package object

import (
	"context"
	"io"
	"net/http"
	"time"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// PresignedPut describes a presigned direct upload target.
type PresignedPut struct {
	URL    string
	Method string
	Header http.Header
}

// Presigner is implemented by stores that can issue presigned upload URLs so
// clients can push files without routing bytes through the API.
type Presigner interface {
	PresignPut(ctx context.Context, storageKey string, contentType string, expires time.Duration) (PresignedPut, error)
}
