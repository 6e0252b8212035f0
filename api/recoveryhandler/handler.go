// Package recoveryhandler implements the HTTP API of the share recovery
// service: one-shot fault detection, share-set document storage, stored
// detection reports with SVG visualization, and custodian collection
// sessions with signed share submission and share reissuance.
package recoveryhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ruteri/share-recovery-backend/api"
	"github.com/ruteri/share-recovery-backend/interfaces"
	"github.com/ruteri/share-recovery-backend/metrics"
	"github.com/ruteri/share-recovery-backend/recovery"
	"github.com/ruteri/share-recovery-backend/shareutils"
)

const (
	// maxBodySize is the maximum allowed request body size (1MB).
	maxBodySize = 1024 * 1024
)

// Limits caps client-supplied detection budgets. Combination counts grow
// as C(n, k), so an uncapped request against a large adversarial share
// set would pin a worker for hours. A zero field disables that cap.
type Limits struct {
	// MaxCombinations bounds the number of k-subsets a single detection
	// run may enumerate, regardless of what the client asked for.
	MaxCombinations uint64

	// MaxTimeout bounds the per-run deadline a client may request.
	MaxTimeout time.Duration

	// DefaultTimeout applies when the client requests no deadline.
	DefaultTimeout time.Duration
}

// DefaultLimits returns the detection budget caps used when the operator
// does not configure any.
func DefaultLimits() Limits {
	return Limits{
		MaxCombinations: 1_000_000,
		MaxTimeout:      60 * time.Second,
		DefaultTimeout:  30 * time.Second,
	}
}

// budget resolves the client's requested bounds against the server caps.
func (l Limits) budget(maxCombinations uint64, timeoutMs int64, now time.Time) interfaces.Budget {
	combinations := l.MaxCombinations
	if maxCombinations > 0 && (combinations == 0 || maxCombinations < combinations) {
		combinations = maxCombinations
	}

	timeout := l.DefaultTimeout
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
		if l.MaxTimeout > 0 && timeout > l.MaxTimeout {
			timeout = l.MaxTimeout
		}
	}

	budget := interfaces.Budget{MaxCombinations: combinations}
	if timeout > 0 {
		budget.Deadline = now.Add(timeout)
	}
	return budget
}

// Handler processes HTTP requests for the share recovery service.
//
// The handler runs fault detection over share sets submitted inline or
// previously stored, persists detection reports for audit, and manages
// custodian collection sessions where each share arrives in a signed
// request and detection triggers automatically once the expected number
// of submissions is reached.
//
// The storage backend is optional: without one the one-shot detection
// route still works, while document and report routes report the storage
// as unavailable.
type Handler struct {
	detector   *recovery.Detector
	storage    interfaces.StorageBackend
	custodians map[string][]byte // Map of custodian ID to public key PEM
	limits     Limits
	log        *slog.Logger

	sessions *sessionStore
}

// NewHandler creates an HTTP request handler with the specified
// dependencies. The storage backend may be nil to disable persistence.
// The custodian map (ID to public key PEM) authorizes session requests;
// an empty map effectively disables the session API.
func NewHandler(detector *recovery.Detector, storage interfaces.StorageBackend, custodians map[string][]byte, limits Limits, log *slog.Logger) *Handler {
	if custodians == nil {
		custodians = map[string][]byte{}
	}
	return &Handler{
		detector:   detector,
		storage:    storage,
		custodians: custodians,
		limits:     limits,
		log:        log,
		sessions:   newSessionStore(),
	}
}

// RegisterRoutes registers all recovery API routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/recover", h.HandleRecover)
	r.Post("/api/v1/recover/{shareset_id}", h.HandleRecoverStored)
	r.Post("/api/v1/sharesets", h.HandleUploadShareSet)
	r.Get("/api/v1/sharesets/{shareset_id}", h.HandleGetShareSet)
	r.Get("/api/v1/reports/{report_id}", h.HandleGetReport)
	r.Get("/api/v1/reports/{report_id}/svg", h.HandleGetReportSVG)
	r.Post("/api/v1/sessions", h.HandleCreateSession)
	r.Get("/api/v1/sessions/{session_id}", h.HandleSessionStatus)
	r.Post("/api/v1/sessions/{session_id}/shares", h.HandleSubmitShare)
	r.Post("/api/v1/sessions/{session_id}/reissue", h.HandleReissue)
}

// HandleRecover runs one-shot fault detection over shares supplied in the
// request body.
//
// URL format: POST /api/v1/recover
// Body: api.RecoverRequest with either inline shares plus threshold K, or
// a complete share-set document (catalog or JSON form).
//
// Response: JSON, see api.RecoverResponse. The recovered secret and the
// classification of every input share. When storage is configured the
// detection report is persisted and referenced by report_id.
func (h *Handler) HandleRecover(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req api.RecoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	set, shareSetID, reqErr := h.resolveShareSet(r.Context(), req)
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	resp, _, reqErr := h.runDetection(r.Context(), set.Shares, set.K, req.MaxCombinations, req.TimeoutMs, shareSetID)
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleRecoverStored runs fault detection over a previously uploaded
// share-set document.
//
// URL format: POST /api/v1/recover/{shareset_id}
// The shareset_id is the hex content identifier returned by the upload.
// Body: optional api.RecoverRequest carrying only budget fields.
//
// Response: JSON, see api.RecoverResponse.
func (h *Handler) HandleRecoverStored(w http.ResponseWriter, r *http.Request) {
	id, err := interfaces.NewContentIDFromHex(r.PathValue("shareset_id"))
	if err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("invalid share set ID: %w", err)))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("failed to read request body: %w", err)))
		return
	}

	var req api.RecoverRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, r, badRequest(fmt.Errorf("invalid request body: %w", err)))
			return
		}
		if len(req.Shares) > 0 || req.Document != "" {
			h.writeError(w, r, badRequest(errors.New("stored recovery accepts only budget parameters in the body")))
			return
		}
	}

	document, reqErr := h.fetchContent(r.Context(), id, interfaces.ShareSetType)
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	set, err := shareutils.ParseShareSetDocument(document)
	if err != nil {
		// The document was validated on upload, so a parse failure here
		// means the stored bytes changed underneath us.
		h.log.Error("Stored share set no longer parses", "err", err, "sharesetID", id.String())
		h.writeError(w, r, internalError(fmt.Errorf("stored share set is corrupt: %w", err)))
		return
	}

	resp, _, reqErr := h.runDetection(r.Context(), set.Shares, set.K, req.MaxCombinations, req.TimeoutMs, id.String())
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleUploadShareSet validates and stores a share-set document.
//
// URL format: POST /api/v1/sharesets
// Body: the raw document, either the line-oriented catalog form or the
// JSON form. The document is stored verbatim; its content identifier is
// the SHA-256 of the bytes as uploaded.
//
// Response: JSON, see api.UploadShareSetResponse.
func (h *Handler) HandleUploadShareSet(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		h.writeError(w, r, storageUnavailable())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	document, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("failed to read request body: %w", err)))
		return
	}
	if len(document) == 0 {
		h.writeError(w, r, badRequest(errors.New("empty document")))
		return
	}

	set, err := shareutils.ParseShareSetDocument(document)
	if err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("invalid share set document: %w", err)))
		return
	}

	id, err := h.storage.Store(r.Context(), document, interfaces.ShareSetType)
	if err != nil {
		h.log.Error("Failed to store share set", "err", err)
		h.writeError(w, r, storageError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, api.UploadShareSetResponse{
		ID: id.String(),
		N:  len(set.Shares),
		K:  set.K,
	})
}

// HandleGetShareSet returns a stored share-set document verbatim.
//
// URL format: GET /api/v1/sharesets/{shareset_id}
//
// Response: the document bytes as uploaded.
func (h *Handler) HandleGetShareSet(w http.ResponseWriter, r *http.Request) {
	id, err := interfaces.NewContentIDFromHex(r.PathValue("shareset_id"))
	if err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("invalid share set ID: %w", err)))
		return
	}

	document, reqErr := h.fetchContent(r.Context(), id, interfaces.ShareSetType)
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(document)
}

// HandleGetReport returns a stored detection report.
//
// URL format: GET /api/v1/reports/{report_id}
//
// Response: JSON, see api.Report.
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := interfaces.NewContentIDFromHex(r.PathValue("report_id"))
	if err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("invalid report ID: %w", err)))
		return
	}

	data, reqErr := h.fetchContent(r.Context(), id, interfaces.ReportType)
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// HandleGetReportSVG renders a stored detection report as an SVG chart of
// the share points, inliers and wrong shares marked distinctly.
//
// URL format: GET /api/v1/reports/{report_id}/svg
//
// Response: image/svg+xml.
func (h *Handler) HandleGetReportSVG(w http.ResponseWriter, r *http.Request) {
	id, err := interfaces.NewContentIDFromHex(r.PathValue("report_id"))
	if err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("invalid report ID: %w", err)))
		return
	}

	data, reqErr := h.fetchContent(r.Context(), id, interfaces.ReportType)
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	var report api.Report
	if err := json.Unmarshal(data, &report); err != nil {
		h.log.Error("Stored report no longer parses", "err", err, "reportID", id.String())
		h.writeError(w, r, internalError(fmt.Errorf("stored report is corrupt: %w", err)))
		return
	}

	shares, cls, err := reportClassification(report)
	if err != nil {
		h.log.Error("Stored report has invalid values", "err", err, "reportID", id.String())
		h.writeError(w, r, internalError(fmt.Errorf("stored report is corrupt: %w", err)))
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(shareutils.RenderReportSVG(shares, cls))
}

// resolveShareSet turns a recover request into a validated share set:
// either the inline shares with the request threshold, or the embedded
// document. Documents are persisted when storage is configured so the
// resulting report can reference its source.
func (h *Handler) resolveShareSet(ctx context.Context, req api.RecoverRequest) (interfaces.ShareSet, string, *api.RequestError) {
	hasShares := len(req.Shares) > 0
	hasDocument := req.Document != ""

	switch {
	case hasShares && hasDocument:
		return interfaces.ShareSet{}, "", badRequest(errors.New("request must carry either inline shares or a document, not both"))

	case hasShares:
		shares, err := api.SharesFromDTOs(req.Shares)
		if err != nil {
			return interfaces.ShareSet{}, "", badRequest(err)
		}
		set := interfaces.ShareSet{K: req.K, Shares: shares}
		if err := set.Validate(); err != nil {
			return interfaces.ShareSet{}, "", badRequest(err)
		}
		return set, "", nil

	case hasDocument:
		document := []byte(req.Document)
		set, err := shareutils.ParseShareSetDocument(document)
		if err != nil {
			return interfaces.ShareSet{}, "", badRequest(fmt.Errorf("invalid share set document: %w", err))
		}

		shareSetID := ""
		if h.storage != nil {
			id, err := h.storage.Store(ctx, document, interfaces.ShareSetType)
			if err != nil {
				// Detection can proceed; only the report's source reference is lost.
				h.log.Error("Failed to store share set document", "err", err)
			} else {
				shareSetID = id.String()
			}
		}
		return set, shareSetID, nil

	default:
		return interfaces.ShareSet{}, "", badRequest(errors.New("request must carry inline shares or a document"))
	}
}

// runDetection executes fault detection under the server-capped budget,
// records metrics, and persists the detection report when storage is
// configured.
func (h *Handler) runDetection(ctx context.Context, shares []interfaces.Share, k int, maxCombinations uint64, timeoutMs int64, shareSetID string) (*api.RecoverResponse, interfaces.Classification, *api.RequestError) {
	budget := h.limits.budget(maxCombinations, timeoutMs, time.Now())

	cls, stats, err := h.detector.DetectWithStats(ctx, shares, k, budget)
	metrics.CombinationsEvaluated.Add(float64(stats.CombinationsTried))
	metrics.RecoveryRequests.WithLabelValues(detectionOutcome(err)).Inc()
	if err != nil {
		h.log.Info("Detection failed",
			"err", err,
			slog.Int("shares", len(shares)),
			slog.Int("k", k),
			slog.Uint64("combinationsTried", stats.CombinationsTried),
			slog.Duration("elapsed", stats.Elapsed))
		return nil, interfaces.Classification{}, detectionError(err)
	}

	metrics.RecoveryDuration.Observe(stats.Elapsed.Seconds())
	metrics.WrongShares.Observe(float64(len(cls.WrongIDs)))

	report := api.Report{
		CreatedAt:         time.Now().UTC(),
		K:                 k,
		Shares:            api.ShareDTOs(shares),
		Secret:            cls.Secret.String(),
		InlierIDs:         cls.InlierIDs,
		WrongIDs:          cls.WrongIDs,
		CombinationsTried: stats.CombinationsTried,
		DurationMs:        stats.Elapsed.Milliseconds(),
		ShareSetID:        shareSetID,
	}

	reportID := ""
	if h.storage != nil {
		data, err := json.Marshal(report)
		if err != nil {
			return nil, interfaces.Classification{}, internalError(fmt.Errorf("failed to encode report: %w", err))
		}
		id, err := h.storage.Store(ctx, data, interfaces.ReportType)
		if err != nil {
			// The recovery itself succeeded; losing the stored report is
			// worth a loud log line but not a failed request.
			h.log.Error("Failed to store detection report", "err", err)
		} else {
			reportID = id.String()
		}
	}

	h.log.Info("Detection complete",
		slog.Int("shares", len(shares)),
		slog.Int("k", k),
		slog.Int("wrongShares", len(cls.WrongIDs)),
		slog.Uint64("combinationsTried", stats.CombinationsTried),
		slog.Duration("elapsed", stats.Elapsed),
		slog.String("reportID", reportID))

	return &api.RecoverResponse{
		Secret:            cls.Secret.String(),
		InlierIDs:         cls.InlierIDs,
		WrongIDs:          cls.WrongIDs,
		CombinationsTried: stats.CombinationsTried,
		ReportID:          reportID,
	}, cls, nil
}

// fetchContent retrieves stored content, mapping storage failures to
// request errors.
func (h *Handler) fetchContent(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, *api.RequestError) {
	if h.storage == nil {
		return nil, storageUnavailable()
	}

	data, err := h.storage.Fetch(ctx, id, contentType)
	if err != nil {
		if errors.Is(err, interfaces.ErrContentNotFound) {
			return nil, notFound(fmt.Errorf("%s %s not found", contentType, id))
		}
		h.log.Error("Failed to fetch content", "err", err, "id", id.String(), "contentType", contentType.String())
		return nil, storageError(err)
	}
	return data, nil
}
