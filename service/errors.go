package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"deal-underwriter/repository"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedDocument = errors.New("unsupported document type")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// checkID rejects identifiers that cannot name a stored record, so malformed
// ids read as missing instead of reaching the database.
func checkID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %q: %w", kind, id, repository.ErrNotFound)
	}
	return nil
}
