package domain

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	// ErrSignature means a webhook payload failed authenticity
	// verification. It is the only webhook failure that must produce a
	// non-2xx response so the payment processor retries delivery.
	ErrSignature = errors.New("signature verification failed")
	// ErrIntegrity means a verified webhook carried internally
	// inconsistent data. Retrying cannot fix it, so it is logged and the
	// event is acknowledged anyway.
	ErrIntegrity = errors.New("integrity failure")
	// ErrDuplicateEvent marks a webhook event id that was already
	// reconciled; replays are acknowledged without a second credit grant.
	ErrDuplicateEvent = errors.New("duplicate event")
)
