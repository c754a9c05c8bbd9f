package publish

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrCredentialsUnavailable indicates no provider in the chain yielded usable credentials
	ErrCredentialsUnavailable = errors.New("credentials unavailable")

	// ErrObjectNotFound indicates the remote object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrUnknownContentType indicates no content type could be derived from the key
	ErrUnknownContentType = errors.New("unknown content type")

	// ErrUploadFailed indicates the store rejected or failed an upload
	ErrUploadFailed = errors.New("upload failed")

	// ErrInvalidationFailed indicates the CDN rejected or failed an invalidation
	ErrInvalidationFailed = errors.New("invalidation failed")

	// ErrLookupFailed indicates a metadata lookup failed for a reason other than absence
	ErrLookupFailed = errors.New("object lookup failed")

	// ErrInvalidRequest indicates the caller supplied unusable arguments
	ErrInvalidRequest = errors.New("invalid request")
)

// OperationError carries the context of a failed operation. errors.Is
// matches both its Kind and the underlying cause.
type OperationError struct {
	Op     string
	Bucket string
	Key    string
	Kind   error
	Err    error
}

func (e *OperationError) Error() string {
	target := e.Key
	if e.Bucket != "" {
		target = e.Bucket + "/" + e.Key
	}
	if target == "" {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, target, e.Kind, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's Kind.
func (e *OperationError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func opError(op string, ref ObjectRef, kind, err error) error {
	return &OperationError{Op: op, Bucket: ref.Bucket, Key: ref.Key, Kind: kind, Err: err}
}

// IsNotFound reports whether err signals a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
