package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict signals a CAS or uniqueness conflict.
	ErrConflict = errors.New("conflict")
	// ErrExtractionFailed signals the extractor returned nothing usable.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrAuthFailure signals an AEAD authentication failure on decrypt.
	ErrAuthFailure = errors.New("decrypt: authentication failure")
	// ErrBlobMissing signals a 404 from the blob store.
	ErrBlobMissing = errors.New("blob missing")
)
