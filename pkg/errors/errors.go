// Package errors turns storage and validation failures into the errors shown
// to users: gRPC status errors that keep their cause for logging and errors.Is.
package errors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

const InternalServerErrorMsg = "Internal Server Error"

var (
	// ErrForbidden is the cause of an action only the owner of a resource may take.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument is the cause of a rejected request.
	ErrInvalidArgument = errors.New("invalid argument")
)

// PublicError is a status error whose message is safe to show. The cause is
// reachable through errors.Is and errors.As but never part of the message
// of an internal error.
type PublicError struct {
	status *status.Status
	cause  error
}

func (e *PublicError) Error() string {
	return e.status.Err().Error()
}

// GRPCStatus lets status.FromError and status.Code see through the wrapper.
func (e *PublicError) GRPCStatus() *status.Status {
	return e.status
}

func (e *PublicError) Unwrap() error {
	return e.cause
}

// Internal returns the cause.
func (e *PublicError) Internal() error {
	return e.cause
}

func newPublicError(code codes.Code, msg string, cause error) *PublicError {
	return &PublicError{status: status.New(code, msg), cause: cause}
}

// NewInternalError hides internal behind public, or behind a generic message if public is empty.
func NewInternalError(public string, internal error) *PublicError {
	if public == "" {
		public = InternalServerErrorMsg
	}
	return newPublicError(codes.Internal, public, internal)
}

// ValidationError reports a malformed request.
func ValidationError(cause error) error {
	return newPublicError(codes.InvalidArgument, cause.Error(), fmt.Errorf("%w: %w", ErrInvalidArgument, cause))
}

// Forbidden reports an action reserved to the owner of what it targets.
func Forbidden(msg string) error {
	return newPublicError(codes.PermissionDenied, msg, ErrForbidden)
}

// HandleError is used to hide internal errors from users. Use `public` to return an error message to the user.
func HandleError(public string, err error) error {
	if err == nil {
		return nil
	}

	var publicErr *PublicError
	if errors.As(err, &publicErr) {
		return publicErr
	}

	message := func(fallback string) string {
		if public != "" {
			return public
		}
		return fallback
	}

	switch {
	case errors.Is(err, storage.ErrCancelled), errors.Is(err, context.Canceled):
		return newPublicError(codes.Canceled, "Request Cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return newPublicError(codes.DeadlineExceeded, "Request Deadline Exceeded", err)
	case errors.Is(err, storage.ErrPermissionDenied):
		return newPublicError(codes.PermissionDenied, message("You do not have permission to see this content"), err)
	case errors.Is(err, storage.ErrTransient):
		return newPublicError(codes.Unavailable, message("The service is temporarily unavailable, please try again"), err)
	case errors.Is(err, storage.ErrNotFound):
		return newPublicError(codes.NotFound, message("Not found"), err)
	case errors.Is(err, storage.ErrInvalidQuery),
		errors.Is(err, storage.ErrInvalidPath),
		errors.Is(err, storage.ErrInvalidFieldValue),
		errors.Is(err, storage.ErrExceededInFilterLimit),
		errors.Is(err, ErrInvalidArgument):
		return newPublicError(codes.InvalidArgument, message("The request is invalid"), err)
	}

	return NewInternalError(public, err)
}

// IsRetryable reports whether the request failing with err may succeed when
// retried unchanged.
func IsRetryable(err error) bool {
	switch status.Code(HandleError("", err)) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return true
	}
	return false
}
