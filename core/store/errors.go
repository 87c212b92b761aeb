package store

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrStorageFailure    = errors.New("local storage rejected the write")
	ErrBackupNotFound    = errors.New("backup not found")
	ErrBackupCorrupt     = errors.New("backup is corrupt")
	ErrRemoteUnavailable = errors.New("remote storage unavailable")
	ErrRemoteDataCorrupt = errors.New("remote data is corrupt")
	ErrNoCredential      = errors.New("a drive credential is required")
	ErrRemoteDisabled    = errors.New("remote storage is disabled")
)

// StorageError is returned by local stores when the backend rejected a write.
// It matches ErrStorageFailure with errors.Is and unwraps to the backend error.
type StorageError struct {
	Err error
}

func NewStorageError(err error) error {
	return &StorageError{Err: err}
}

func (e *StorageError) Error() string {
	return ErrStorageFailure.Error() + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

// RemoteErrorKind tells apart the causes of a failed remote call.
type RemoteErrorKind string

const (
	RemoteAuth      RemoteErrorKind = "auth"      // missing, expired or rejected credential
	RemoteTransport RemoteErrorKind = "transport" // network failure, no HTTP response
	RemoteQuota     RemoteErrorKind = "quota"     // storage or rate limit exceeded
	RemoteHTTP      RemoteErrorKind = "http"      // any other non-2xx response
)

// RemoteError is returned by remote stores for every failed I/O operation.
// It always matches ErrRemoteUnavailable with errors.Is.
type RemoteError struct {
	Kind       RemoteErrorKind
	Op         string
	StatusCode int
	Err        error
}

func NewRemoteError(kind RemoteErrorKind, op string, status int, err error) error {
	return &RemoteError{Kind: kind, Op: op, StatusCode: status, Err: err}
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("remote %s failed (%s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" %d", e.StatusCode)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteUnavailable
}

// RemoteKind returns the kind of the RemoteError wrapped by err, if any.
func RemoteKind(err error) (RemoteErrorKind, bool) {
	var rErr *RemoteError
	if errors.As(err, &rErr) {
		return rErr.Kind, true
	}
	return "", false
}

// ImportError reports a rejected import document.
// Index is the position of the first invalid student, or -1 when the document itself is unusable.
type ImportError struct {
	Index  int
	Reason string
}

func (e *ImportError) Error() string {
	if e.Index < 0 {
		return "invalid import file: " + e.Reason
	}
	return fmt.Sprintf("invalid import file: student at index %d: %s", e.Index, e.Reason)
}

func IsImportError(err error) bool {
	var iErr *ImportError
	return errors.As(err, &iErr)
}

// ClearError is returned by ClearAll when local data was cleared but the remote folder could not be.
type ClearError struct {
	LocalCleared bool
	RemoteErr    error
}

func (e *ClearError) Error() string {
	return fmt.Sprintf("local data cleared, but remote data could not be deleted: %v", e.RemoteErr)
}

func (e *ClearError) Unwrap() error { return e.RemoteErr }
