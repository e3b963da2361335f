package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller does not own the resource
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrEmbeddingUnavailable indicates no embedding service is configured
	ErrEmbeddingUnavailable = errors.New("embedding service not configured")

	// ErrIndexInProgress indicates another worker holds the document lock
	ErrIndexInProgress = errors.New("indexing already in progress")

	// ErrUnsupportedMimeType indicates no parser handles the content type
	ErrUnsupportedMimeType = errors.New("unsupported mime type")

	// ErrCyclicTree indicates a node tree references one of its own ancestors
	ErrCyclicTree = errors.New("cyclic node tree")

	// ErrMalformedTree indicates a node tree that cannot be traversed
	ErrMalformedTree = errors.New("malformed node tree")

	// ErrInvalidChunkConfig indicates target size / overlap values that cannot make progress
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrChunkLocation indicates a chunk whose offsets do not match the stream
	ErrChunkLocation = errors.New("chunk offsets do not match stream")

	// ErrDimensionMismatch indicates vectors of different lengths
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
