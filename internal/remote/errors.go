package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
)

var (
	ErrNotFound  = common.ErrRemoteNotFound
	ErrForbidden = common.ErrRemoteForbidden
	ErrTransient = common.ErrRemoteTransient
)

// Error carries the operation context of a failed store call. Kind is one of
// the classification sentinels, or nil.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("%s bucket %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// NewError wraps err with operation context and the given classification.
func NewError(op, bucket, key string, kind, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Kind: kind, Err: err}
}

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// IsPermanent reports whether retrying err cannot help.
func IsPermanent(err error) bool {
	return err != nil && !IsTransient(err) && !errors.Is(err, context.Canceled)
}

// KindForStatus maps an HTTP status code onto a classification. It returns
// nil for codes that are neither missing, forbidden nor worth retrying.
func KindForStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return ErrForbidden
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests:
		return ErrTransient
	case code >= 500:
		return ErrTransient
	}
	return nil
}

// KindForCode maps an S3 error code onto a classification.
func KindForCode(code string) error {
	switch code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return ErrNotFound
	case "AccessDenied", "Forbidden", "AllAccessDisabled", "InvalidAccessKeyId",
		"SignatureDoesNotMatch", "AccountProblem", "InvalidObjectState":
		return ErrForbidden
	case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded",
		"RequestTimeout", "InternalError", "ServiceUnavailable", "RequestTimeTooSkewed":
		return ErrTransient
	}
	return nil
}

// KindForNetwork classifies errors that never reached an HTTP response.
// Cancellation of the caller's context is not classified.
func KindForNetwork(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ETIMEDOUT):
		return ErrTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrTransient
	}
	return nil
}
