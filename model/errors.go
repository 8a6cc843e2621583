package model

import "errors"

var (
	// ErrInvalidInput marks a malformed request, such as a missing document reference.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProviderUnavailable marks a table or text provider that could not serve a document.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrUnknownParameter marks a parameter id with no registered extractor.
	ErrUnknownParameter = errors.New("unknown parameter")
)
