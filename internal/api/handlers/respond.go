// Package handlers provides HTTP handlers for the hive API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/hivelabs/hive-server/internal/api/errors"
	"github.com/hivelabs/hive-server/internal/harvest"
	"github.com/hivelabs/hive-server/internal/hive"
	"github.com/hivelabs/hive-server/internal/models"
)

// writeServiceError maps domain errors to structured HTTP responses. Every
// domain error carries enough detail to explain the violated precondition;
// anything unmapped is an infrastructure failure and becomes a 500 with
// the detail kept server-side.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		apierrors.WriteErrorWithDetails(w, http.StatusBadRequest,
			apierrors.CodeValidationError, vErr.Message,
			map[string]string{"field": vErr.Field})
		return
	}

	switch {
	case errors.Is(err, hive.ErrNotFound):
		apierrors.WriteNotFound(w, "hive not found")
	case errors.Is(err, hive.ErrUnauthorized):
		apierrors.WriteUnauthorized(w, "not authorized")
	case errors.Is(err, hive.ErrClosed):
		apierrors.WriteConflict(w, apierrors.CodeHiveClosed, "this hive is closed and no longer accepts messages")
	case errors.Is(err, harvest.ErrNotClosed):
		apierrors.WriteConflict(w, apierrors.CodeNotClosed, "the hive is not closed yet")
	case errors.Is(err, harvest.ErrAlreadyHarvested):
		apierrors.WriteConflict(w, apierrors.CodeAlreadyHarvested, "this hive has already been harvested")
	default:
		logger.Error("request failed", "error", err)
		apierrors.WriteInternalError(w, "internal error")
	}
}
