// Package server provides the HTTP REST API for the content pipeline.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/content-pipeline/internal/db"
	"github.com/jonathan/content-pipeline/internal/generation"
)

// internalErrorMessage is returned for every unclassified failure.
const internalErrorMessage = "An internal server error occurred"

// ValidationError indicates request validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ValidationError
		duplicateErr  *db.DuplicateEmailError
		notFoundErr   *db.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &duplicateErr):
		return http.StatusConflict
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text sent to the caller. Unclassified errors
// never leak their detail.
func publicMessage(err error) string {
	var genErr *generation.Error
	switch {
	case HTTPStatus(err) != http.StatusInternalServerError:
		return err.Error()
	case errors.As(err, &genErr):
		return "Content generation error: " + genErr.Message
	default:
		return internalErrorMessage
	}
}
