package recoveryhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ruteri/share-recovery-backend/api"
	"github.com/ruteri/share-recovery-backend/interfaces"
	"github.com/ruteri/share-recovery-backend/metrics"
	"github.com/ruteri/share-recovery-backend/recovery"
)

func badRequest(err error) *api.RequestError {
	return &api.RequestError{StatusCode: http.StatusBadRequest, Code: api.CodeInvalidArguments, Err: err}
}

func unauthorized(err error) *api.RequestError {
	return &api.RequestError{StatusCode: http.StatusUnauthorized, Code: api.CodeUnauthorized, Err: err}
}

func notFound(err error) *api.RequestError {
	return &api.RequestError{StatusCode: http.StatusNotFound, Code: api.CodeNotFound, Err: err}
}

func wrongState(err error) *api.RequestError {
	return &api.RequestError{StatusCode: http.StatusConflict, Code: api.CodeWrongState, Err: err}
}

func internalError(err error) *api.RequestError {
	return &api.RequestError{StatusCode: http.StatusInternalServerError, Code: api.CodeInternal, Err: err}
}

func storageUnavailable() *api.RequestError {
	return &api.RequestError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       api.CodeStorageUnavailable,
		Err:        errors.New("no storage backend configured"),
	}
}

func storageError(err error) *api.RequestError {
	return &api.RequestError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       api.CodeStorageUnavailable,
		Err:        fmt.Errorf("storage backend failed: %w", err),
	}
}

// detectionError maps detection failures to their HTTP representation.
// Budget exhaustion and inconsistent share sets share the 422 status and
// differ only by code; a passed deadline reports as a gateway timeout.
func detectionError(err error) *api.RequestError {
	switch {
	case errors.Is(err, recovery.ErrInvalidArguments):
		return badRequest(err)
	case errors.Is(err, recovery.ErrNoConsistentSecret):
		return &api.RequestError{StatusCode: http.StatusUnprocessableEntity, Code: api.CodeNoConsistentSecret, Err: err}
	case errors.Is(err, recovery.ErrResourceExceeded):
		return &api.RequestError{StatusCode: http.StatusUnprocessableEntity, Code: api.CodeResourceExceeded, Err: err}
	case errors.Is(err, recovery.ErrTimeout):
		return &api.RequestError{StatusCode: http.StatusGatewayTimeout, Code: api.CodeTimeout, Err: err}
	default:
		return internalError(err)
	}
}

// detectionOutcome returns the metrics label for a detection result.
func detectionOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeRecovered
	case errors.Is(err, recovery.ErrNoConsistentSecret):
		return metrics.OutcomeNoConsistentSecret
	case errors.Is(err, recovery.ErrResourceExceeded):
		return metrics.OutcomeResourceExceeded
	case errors.Is(err, recovery.ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, recovery.ErrInvalidArguments):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

// writeError logs the failure and writes the JSON error body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, reqErr *api.RequestError) {
	if reqErr.StatusCode >= http.StatusInternalServerError {
		h.log.Error("Request failed", "err", reqErr.Err, "path", r.URL.Path, "status", reqErr.StatusCode)
	} else {
		h.log.Debug("Request rejected", "err", reqErr.Err, "path", r.URL.Path, "status", reqErr.StatusCode)
	}

	h.writeJSON(w, reqErr.StatusCode, api.ErrorResponse{
		Error: reqErr.Err.Error(),
		Code:  reqErr.Code,
	})
}

// writeJSON writes a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// reportClassification reconstructs the share points and classification
// embedded in a stored report.
func reportClassification(report api.Report) ([]interfaces.Share, interfaces.Classification, error) {
	shares, err := api.SharesFromDTOs(report.Shares)
	if err != nil {
		return nil, interfaces.Classification{}, err
	}

	secret, ok := new(big.Int).SetString(report.Secret, 10)
	if !ok {
		return nil, interfaces.Classification{}, fmt.Errorf("invalid decimal secret %q", report.Secret)
	}

	return shares, interfaces.Classification{
		Secret:    secret,
		InlierIDs: report.InlierIDs,
		WrongIDs:  report.WrongIDs,
	}, nil
}
