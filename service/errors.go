package service

import (
	"errors"
	"fmt"
)

var (
	ErrFailedValidation     = errors.New("failed validation")
	ErrRecordNotFound       = errors.New("record not found")
	ErrEditConflict         = errors.New("edit conflict")
	ErrInvalidEntity        = errors.New("entity has no id")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrContentTooLarge      = errors.New("content too large")
	ErrBadRequest           = errors.New("bad request")

	// Business-rule violations keep the exact messages rendered to API clients.
	ErrDuplicateIsbn     = errors.New("Isbn já cadastrado.")
	ErrBookAlreadyLoaned = errors.New("Book already loaned")
	ErrOpenLoan          = errors.New("book has an open loan")
)

// failedValidation loops through a validation error map and returns an error
// wrapping ErrFailedValidation with the key and value of the map, so callers can
// both match the sentinel and render the violated field.
func (s *service) failedValidation(errorMap map[string]string) error {
	err := ErrFailedValidation
	for k, v := range errorMap {
		err = fmt.Errorf("%w: %q %s", ErrFailedValidation, k, v)
	}
	return err
}
