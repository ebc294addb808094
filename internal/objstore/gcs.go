package objstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Retriever fetches stored document bytes by path.
type Retriever interface {
	Retrieve(ctx context.Context, filePath string) ([]byte, error)
}

// GCSRetriever reads objects from a Google Cloud Storage bucket. The client
// is injected so its lifecycle is owned by the process entry point.
type GCSRetriever struct {
	client *storage.Client
	bucket string
}

// NewGCSRetriever creates a retriever for the given bucket.
func NewGCSRetriever(client *storage.Client, bucket string) *GCSRetriever {
	return &GCSRetriever{client: client, bucket: bucket}
}

// Retrieve downloads the object at filePath. Failures are returned as
// *RetrievalError with the kind decided here, not by the caller.
func (r *GCSRetriever) Retrieve(ctx context.Context, filePath string) ([]byte, error) {
	objectPath := strings.TrimPrefix(filePath, "/")
	if objectPath == "" {
		return nil, &RetrievalError{Kind: KindInvalidPath, Path: filePath}
	}

	rc, err := r.client.Bucket(r.bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, classify(filePath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, classify(filePath, err)
	}

	return data, nil
}

func classify(filePath string, err error) *RetrievalError {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return &RetrievalError{Kind: KindNotFound, Path: filePath, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RetrievalError{Kind: KindTimeout, Path: filePath, Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return &RetrievalError{Kind: KindNotFound, Path: filePath, Err: err}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &RetrievalError{Kind: KindUnauthorized, Path: filePath, Err: err}
		}
	}

	return &RetrievalError{Kind: KindNetwork, Path: filePath, Err: err}
}

// FileNameFromPath extracts the final segment of a storage path.
// e.g. "team-1/inbox/receipt.pdf" -> "receipt.pdf"
func FileNameFromPath(filePath string) string {
	return path.Base(strings.TrimSuffix(filePath, "/"))
}
