package objstore

import (
	"fmt"
)

// ErrorKind classifies a retrieval failure. The storage implementation
// decides the kind; callers branch on it instead of inspecting messages.
type ErrorKind int

const (
	// KindNetwork covers transient transport failures. Retryable.
	KindNetwork ErrorKind = iota
	// KindTimeout means the retrieval exceeded its deadline. Retryable.
	KindTimeout
	// KindNotFound means the object does not exist. Permanent.
	KindNotFound
	// KindUnauthorized means the caller lacks access. Permanent.
	KindUnauthorized
	// KindInvalidPath means the path could not be parsed. Permanent.
	KindInvalidPath
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidPath:
		return "invalid_path"
	}
	return "unknown"
}

// RetrievalError is a tagged storage failure.
type RetrievalError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retrieve %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("retrieve %s: %s", e.Path, e.Kind)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Permanent reports whether retrying the retrieval cannot succeed.
func (e *RetrievalError) Permanent() bool {
	switch e.Kind {
	case KindNotFound, KindUnauthorized, KindInvalidPath:
		return true
	}
	return false
}
