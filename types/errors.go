package types

import (
	"errors"
	"fmt"
)

var (
	ErrInput    = errors.New("input error")
	ErrProvider = errors.New("provider error")
	ErrStore    = errors.New("store error")

	ErrNoDocuments       = errors.New("no source documents found")
	ErrEmptyCorpus       = errors.New("empty corpus")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// InputError marks err as caused by bad input (missing documents, blank question...).
func InputError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInput, err)
}

// ProviderError marks err as a failure of the embedding or chat API.
func ProviderError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrProvider, err)
}

// StoreError marks err as a database connection or query failure.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
