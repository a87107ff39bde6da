package oracle

import "errors"

var (
	// ErrNotReady indicates the randomness for a request has not been
	// produced and verified yet. Callers retry on a later block.
	ErrNotReady = errors.New("oracle: random number not ready")

	// ErrUnauthorized indicates a caller lacking the required role: an
	// unapproved game requesting randomness or a non-admin retuning the
	// batch interval.
	ErrUnauthorized = errors.New("oracle: caller lacks required role")

	// ErrBadBatchInterval indicates an interval outside the allowed range.
	ErrBadBatchInterval = errors.New("oracle: batch interval out of range")

	// ErrRateLimited indicates a caller exceeding the request budget.
	ErrRateLimited = errors.New("oracle: request rate limit exceeded")
)
