package services

import (
	"errors"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/repository"
)

// storeErr converts repository sentinels into client-facing errors and
// passes everything else through unchanged.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return errorx.Newf(errorx.NotFound, "%s not found", what)
	case errors.Is(err, repository.ErrConflict):
		return errorx.Newf(errorx.Conflict, "%s already exists", what)
	}
	return err
}
