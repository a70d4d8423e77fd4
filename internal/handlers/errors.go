package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"RIDESHARE_BACK-END/internal/ledger"
	"RIDESHARE_BACK-END/internal/repository"
	"RIDESHARE_BACK-END/internal/utils"
)

// writeError maps ledger and repository errors to status codes. Anything
// unrecognised becomes a 500 with the detail kept in the log.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validation *ledger.ValidationError
		notFound   *ledger.NotFoundError
		authz      *ledger.AuthorizationError
		capacity   *ledger.CapacityExceededError
	)
	switch {
	case errors.As(err, &validation):
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Validation error", validation.Error())
	case errors.As(err, &notFound):
		utils.WriteErrorResponse(w, http.StatusNotFound, "Not found", notFound.Error())
	case errors.As(err, &authz):
		utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden", authz.Error())
	case errors.As(err, &capacity):
		utils.WriteErrorResponse(w, http.StatusConflict, "Not enough seats", capacity.Error())
	case errors.Is(err, repository.ErrNotFound):
		utils.WriteErrorResponse(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, repository.ErrForbidden):
		utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, repository.ErrDuplicate):
		utils.WriteErrorResponse(w, http.StatusConflict, "Conflict", err.Error())
	default:
		logger.Error("request failed", "error", err)
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Internal Server Error", "something went wrong")
	}
}
