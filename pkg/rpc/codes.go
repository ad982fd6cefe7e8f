package rpc

import (
	"context"
	"errors"

	apperrors "github.com/Adithya-Monish-Kumar-K/word-finder/pkg/errors"
)

const (
	CodeInvalidInput = "invalid_input"
	CodeRateLimited  = "rate_limited"
	CodeTimeout      = "timeout"
	CodeUnavailable  = "unavailable"
	CodeCanceled     = "canceled"
	CodeInternal     = "internal"
)

func codeFor(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, apperrors.ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, apperrors.ErrTimeout):
		return CodeTimeout
	case errors.Is(err, apperrors.ErrUnavailable):
		return CodeUnavailable
	case errors.Is(err, apperrors.ErrCanceled), errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return CodeInternal
	}
}

// errorFor rebuilds a sentinel-wrapped error from a failed response so
// callers can use errors.Is across the wire.
func errorFor(resp Response) error {
	var sentinel error
	switch resp.Code {
	case CodeInvalidInput:
		sentinel = apperrors.ErrInvalidInput
	case CodeRateLimited:
		sentinel = apperrors.ErrRateLimited
	case CodeTimeout:
		sentinel = apperrors.ErrTimeout
	case CodeUnavailable:
		sentinel = apperrors.ErrUnavailable
	case CodeCanceled:
		sentinel = apperrors.ErrCanceled
	default:
		sentinel = apperrors.ErrInternal
	}
	return apperrors.New(sentinel, apperrors.HTTPStatusCode(sentinel), resp.Error)
}
