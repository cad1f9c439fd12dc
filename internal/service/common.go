package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/noah-isme/uni-schedule-api/internal/models"
	"github.com/noah-isme/uni-schedule-api/internal/repository"
	appErrors "github.com/noah-isme/uni-schedule-api/pkg/errors"
)

type currentTermReader interface {
	FindCurrent(ctx context.Context) (*models.AcademicTerm, error)
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// lookupError maps sql.ErrNoRows to a 404 carrying notFound and anything else to a 500.
func lookupError(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalError(err, failure)
}

// persistError maps duplicate rows to a 409 carrying conflict and anything else to a 500.
func persistError(err error, conflict, failure string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return appErrors.Clone(appErrors.ErrConflict, conflict)
	}
	return internalError(err, failure)
}

// resolveTermID returns termID or, when empty, the current term id. An empty result means no term is current.
func resolveTermID(ctx context.Context, terms currentTermReader, termID string) (string, error) {
	if termID != "" || terms == nil {
		return termID, nil
	}
	term, err := terms.FindCurrent(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", internalError(err, "failed to load current term")
	}
	return term.ID, nil
}
