package api

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ruteri/share-recovery-backend/interfaces"
	"github.com/ruteri/share-recovery-backend/resharing"
)

// Custodian authentication headers. Signed requests carry the custodian's
// identifier and a base64-encoded ASN.1 ECDSA signature over
// SHA-256(request path || request body).
const (
	CustodianIDHeader        = "X-Custodian-ID"
	CustodianSignatureHeader = "X-Custodian-Signature"
)

// Machine-readable error codes returned in the JSON error body. Two
// failure modes share the 422 status, so clients dispatch on the code
// rather than the status alone.
const (
	CodeInvalidArguments   = "invalid_arguments"
	CodeUnauthorized       = "unauthorized"
	CodeNotFound           = "not_found"
	CodeWrongState         = "wrong_state"
	CodeNoConsistentSecret = "no_consistent_secret"
	CodeResourceExceeded   = "resource_exceeded"
	CodeTimeout            = "timeout"
	CodeStorageUnavailable = "storage_unavailable"
	CodeInternal           = "internal"
)

// RequestError couples an error with the HTTP status and wire code it
// should surface as. Handlers return it from request processing helpers;
// the outermost layer serializes it as an ErrorResponse.
type RequestError struct {
	StatusCode int
	Code       string
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the underlying error for errors.Is checks.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ShareDTO is one share point on the wire. Coordinates are decimal
// strings so arbitrary-precision values survive JSON round-trips intact.
type ShareDTO struct {
	ID string `json:"id"`
	X  string `json:"x"`
	Y  string `json:"y"`
}

// NewShareDTO converts an internal share to its wire form.
func NewShareDTO(s interfaces.Share) ShareDTO {
	return ShareDTO{ID: s.ID, X: s.X.String(), Y: s.Y.String()}
}

// ToShare parses the wire form back into an internal share.
// Returns an error if either coordinate is not a decimal integer.
func (d ShareDTO) ToShare() (interfaces.Share, error) {
	x, ok := new(big.Int).SetString(d.X, 10)
	if !ok {
		return interfaces.Share{}, fmt.Errorf("share %s: invalid decimal x coordinate %q", d.ID, d.X)
	}
	y, ok := new(big.Int).SetString(d.Y, 10)
	if !ok {
		return interfaces.Share{}, fmt.Errorf("share %s: invalid decimal y coordinate %q", d.ID, d.Y)
	}
	return interfaces.NewShare(d.ID, x, y)
}

// ShareDTOs converts a slice of internal shares to wire form.
func ShareDTOs(shares []interfaces.Share) []ShareDTO {
	dtos := make([]ShareDTO, len(shares))
	for i, s := range shares {
		dtos[i] = NewShareDTO(s)
	}
	return dtos
}

// SharesFromDTOs parses a slice of wire shares. The first malformed
// entry aborts the conversion.
func SharesFromDTOs(dtos []ShareDTO) ([]interfaces.Share, error) {
	shares := make([]interfaces.Share, len(dtos))
	for i, d := range dtos {
		s, err := d.ToShare()
		if err != nil {
			return nil, err
		}
		shares[i] = s
	}
	return shares, nil
}

// RecoverRequest is the body of a one-shot recovery call. Exactly one of
// Shares or Document must be set: Shares carries inline points with the
// threshold in K, Document carries a complete share-set document (catalog
// or structured JSON) which embeds its own threshold.
//
// MaxCombinations and TimeoutMs bound the detection run. Zero means
// unlimited from the client's side; the server caps both regardless.
type RecoverRequest struct {
	Shares          []ShareDTO `json:"shares,omitempty"`
	Document        string     `json:"document,omitempty"`
	K               int        `json:"k,omitempty"`
	MaxCombinations uint64     `json:"max_combinations,omitempty"`
	TimeoutMs       int64      `json:"timeout_ms,omitempty"`
}

// RecoverResponse reports a successful detection: the recovered secret as
// a decimal string and the partition of input shares into inliers and
// wrong shares. ReportID references the stored report when the server has
// a storage backend configured.
type RecoverResponse struct {
	Secret            string   `json:"secret"`
	InlierIDs         []string `json:"inlier_ids"`
	WrongIDs          []string `json:"wrong_ids"`
	CombinationsTried uint64   `json:"combinations_tried"`
	ReportID          string   `json:"report_id,omitempty"`
}

// UploadShareSetResponse acknowledges a stored share-set document with
// its content identifier and parsed envelope parameters.
type UploadShareSetResponse struct {
	ID string `json:"id"`
	N  int    `json:"n"`
	K  int    `json:"k"`
}

// Report is the stored outcome of a detection run. It embeds the input
// share points so visualizations can be regenerated from the report alone,
// without refetching the share-set document.
type Report struct {
	CreatedAt         time.Time  `json:"created_at"`
	K                 int        `json:"k"`
	Shares            []ShareDTO `json:"shares"`
	Secret            string     `json:"secret"`
	InlierIDs         []string   `json:"inlier_ids"`
	WrongIDs          []string   `json:"wrong_ids"`
	CombinationsTried uint64     `json:"combinations_tried"`
	DurationMs        int64      `json:"duration_ms"`

	// ShareSetID references the stored source document, when the
	// detection ran over one.
	ShareSetID string `json:"shareset_id,omitempty"`
}

// CreateSessionRequest opens a collection session. K is the reconstruction
// threshold, Expected the number of custodian submissions that triggers
// detection. MaxCombinations and TimeoutMs optionally tighten the server's
// detection budget for this session.
type CreateSessionRequest struct {
	K               int    `json:"k"`
	Expected        int    `json:"expected"`
	MaxCombinations uint64 `json:"max_combinations,omitempty"`
	TimeoutMs       int64  `json:"timeout_ms,omitempty"`
}

// CreateSessionResponse returns the identifier of a newly created session.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// SubmitShareRequest is one custodian's share point. The share identifier
// is the authenticated custodian ID from the request headers, so the body
// carries only the coordinates as decimal strings.
type SubmitShareRequest struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// SessionStatusResponse describes a session's progress. Report is set
// once the session reaches the complete state; Error carries the failure
// reason in the failed state.
type SessionStatusResponse struct {
	SessionID  string           `json:"session_id"`
	State      string           `json:"state"`
	K          int              `json:"k"`
	Expected   int              `json:"expected"`
	Submitted  int              `json:"submitted"`
	Custodians []string         `json:"custodians,omitempty"`
	Report     *RecoverResponse `json:"report,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// ReissueRequest asks a completed session to split the recovered secret
// into fresh shares. Threshold is the reconstruction threshold for the
// new shares; zero defaults to the session's K.
type ReissueRequest struct {
	Threshold int `json:"threshold,omitempty"`
}

// ReissueResponse carries one freshly encrypted share per inlier
// custodian. Custodians whose submissions were classified as wrong are
// excluded.
type ReissueResponse struct {
	Threshold int                       `json:"threshold"`
	Shares    []resharing.ReissuedShare `json:"shares"`
}

// RecoveryProvider abstracts the recovery service for clients: one-shot
// detection, document upload, and report retrieval.
type RecoveryProvider interface {
	// Recover runs fault detection over the request's shares or document.
	Recover(req RecoverRequest) (*RecoverResponse, error)

	// UploadShareSet stores a share-set document and returns its content ID.
	UploadShareSet(document []byte) (*UploadShareSetResponse, error)

	// RecoverStored runs fault detection over a previously uploaded document.
	RecoverStored(shareSetID string, maxCombinations uint64, timeoutMs int64) (*RecoverResponse, error)

	// GetReport fetches a stored detection report.
	GetReport(id string) (*Report, error)

	// GetReportSVG fetches the SVG visualization of a stored report.
	GetReportSVG(id string) ([]byte, error)
}

// SessionProvider abstracts the collection-session workflow: operators
// create sessions, custodians submit signed shares, and either side polls
// status and requests reissued shares after completion.
type SessionProvider interface {
	// CreateSession opens a new collection session.
	CreateSession(req CreateSessionRequest) (*CreateSessionResponse, error)

	// GetSession reports a session's state and progress.
	GetSession(id string) (*SessionStatusResponse, error)

	// SubmitShare submits the calling custodian's share point.
	SubmitShare(sessionID string, req SubmitShareRequest) (*SessionStatusResponse, error)

	// Reissue requests fresh encrypted shares from a completed session.
	Reissue(sessionID string, req ReissueRequest) (*ReissueResponse, error)
}
