package gcp

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/busway/busway/internal/errors"
)

// classify wraps a raw API failure with the retry class the reconciler
// acts on. REST failures carry *googleapi.Error, the resource manager
// client reports gRPC status codes, and long-running operations surface
// google.rpc codes through classifyCode.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return apperrors.NewNotFound(op, err)
		case apiErr.Code == http.StatusConflict:
			return apperrors.NewConflict(op, err)
		case apiErr.Code == http.StatusTooManyRequests:
			return apperrors.NewTransient(op, err)
		case apiErr.Code >= http.StatusInternalServerError:
			return apperrors.NewTransient(op, err)
		default:
			return apperrors.NewPermanent(op, err)
		}
	}

	if code := status.Code(err); code != codes.OK && code != codes.Unknown {
		return classifyCode(op, code, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTransient(op, err)
	}

	return apperrors.NewPermanent(op, err)
}

// classifyCode maps a gRPC or google.rpc status code onto the retry
// classes. Aborted and AlreadyExists are conflicts: they typically
// resolve once the competing write settles.
func classifyCode(op string, code codes.Code, err error) error {
	switch code {
	case codes.NotFound:
		return apperrors.NewNotFound(op, err)
	case codes.AlreadyExists, codes.Aborted:
		return apperrors.NewConflict(op, err)
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal:
		return apperrors.NewTransient(op, err)
	default:
		return apperrors.NewPermanent(op, err)
	}
}

// isNotFound reports whether err is an HTTP 404 or a gRPC NotFound.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	return status.Code(err) == codes.NotFound
}
