package usecase

import "errors"

var (
	// ErrUnknownCategory is returned for a category key missing from configuration.
	ErrUnknownCategory = errors.New("invalid category key")
	// ErrInvalidStep is returned when the threshold step cannot make progress.
	ErrInvalidStep = errors.New("threshold step must be positive")
	// ErrDuplicate is returned by Add when the key is already stored.
	ErrDuplicate = errors.New("already exists in embeddings")
	// ErrNotFound is returned by Delete when the key is not stored.
	ErrNotFound = errors.New("does not exist in embeddings")
	// ErrStorage wraps failures reading or writing category files.
	ErrStorage = errors.New("storage error")
	// ErrEmbedding wraps failures of the embedding model.
	ErrEmbedding = errors.New("embedding error")
)
