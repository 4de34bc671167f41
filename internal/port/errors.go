package port

import "errors"

// Sentinel errors used across ports.
var (
	// ErrEmptyQuery is returned when a search query is empty or whitespace.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrEmptyInput is returned when an embed or store call receives no
	// usable texts.
	ErrEmptyInput = errors.New("input is empty")

	// ErrDimensionMismatch is returned when texts, embeddings and metadatas
	// passed to the store do not have matching lengths.
	ErrDimensionMismatch = errors.New("texts, embeddings and metadatas length mismatch")

	// ErrInvalidChunking is returned for unusable chunking parameters.
	ErrInvalidChunking = errors.New("chunk overlap must be smaller than chunk size")

	// ErrMissingConfig is returned when a required configuration value is absent.
	ErrMissingConfig = errors.New("required configuration missing")
)
