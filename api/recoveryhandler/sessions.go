package recoveryhandler

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ruteri/share-recovery-backend/api"
	"github.com/ruteri/share-recovery-backend/cryptoutils"
	"github.com/ruteri/share-recovery-backend/interfaces"
	"github.com/ruteri/share-recovery-backend/metrics"
	"github.com/ruteri/share-recovery-backend/resharing"
)

// sessionState represents the current state of a collection session.
type sessionState int

const (
	// sessionCollecting is the initial state, accepting signed custodian
	// submissions.
	sessionCollecting sessionState = iota

	// sessionDetecting indicates the expected number of shares arrived
	// and fault detection is running.
	sessionDetecting

	// sessionComplete indicates detection finished with a recovered
	// secret; the session can reissue shares.
	sessionComplete

	// sessionFailed indicates detection finished without a consistent
	// secret or ran out of budget.
	sessionFailed
)

// String converts a sessionState to its wire representation.
func (s sessionState) String() string {
	switch s {
	case sessionCollecting:
		return "collecting"
	case sessionDetecting:
		return "detecting"
	case sessionComplete:
		return "complete"
	case sessionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// session tracks one collection round: which custodians submitted,
// the detection parameters, and the outcome once detection ran.
type session struct {
	id        string
	k         int
	expected  int
	createdAt time.Time

	// Budget overrides requested at creation; the server caps apply on top.
	maxCombinations uint64
	timeoutMs       int64

	state   sessionState
	shares  map[string]interfaces.Share // Map of custodian ID to their submitted share
	order   []string                    // Custodian IDs in submission order
	secret  *big.Int                    // Set when state is sessionComplete
	result  *api.RecoverResponse        // Set when state is sessionComplete
	failure error                       // Set when state is sessionFailed

	done chan struct{} // Closed when the session reaches a terminal state
}

// sessionStore holds all sessions behind one lock. The lock guards both
// the map and the mutable fields of every session in it.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

// HandleCreateSession opens a collection session. Any registered
// custodian may act as the operator creating one.
//
// URL format: POST /api/v1/sessions
// Headers: X-Custodian-ID, X-Custodian-Signature.
// Body: api.CreateSessionRequest.
//
// Response: JSON, see api.CreateSessionResponse.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	custodianID, reqErr := h.verifyCustodian(r)
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	var req api.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	if req.K < 1 {
		h.writeError(w, r, badRequest(fmt.Errorf("threshold must be at least 1, got %d", req.K)))
		return
	}
	if req.Expected < req.K {
		h.writeError(w, r, badRequest(fmt.Errorf("expected submissions %d below threshold %d", req.Expected, req.K)))
		return
	}
	if req.Expected > len(h.custodians) {
		h.writeError(w, r, badRequest(fmt.Errorf("expected submissions %d exceeds registered custodians %d", req.Expected, len(h.custodians))))
		return
	}

	sess := &session{
		id:              uuid.New().String(),
		k:               req.K,
		expected:        req.Expected,
		createdAt:       time.Now().UTC(),
		maxCombinations: req.MaxCombinations,
		timeoutMs:       req.TimeoutMs,
		state:           sessionCollecting,
		shares:          make(map[string]interfaces.Share),
		done:            make(chan struct{}),
	}

	h.sessions.mu.Lock()
	h.sessions.sessions[sess.id] = sess
	h.sessions.mu.Unlock()

	metrics.ActiveSessions.Inc()
	h.log.Info("Session created",
		"sessionID", sess.id,
		"custodianID", custodianID,
		"k", req.K,
		"expected", req.Expected)

	h.writeJSON(w, http.StatusOK, api.CreateSessionResponse{SessionID: sess.id})
}

// HandleSessionStatus reports a session's state and progress.
//
// URL format: GET /api/v1/sessions/{session_id}
//
// The route is readable without credentials, but the detection report
// (which contains the recovered secret) is included only for requests
// signed by a registered custodian.
//
// Response: JSON, see api.SessionStatusResponse.
func (h *Handler) HandleSessionStatus(w http.ResponseWriter, r *http.Request) {
	includeReport := false
	if r.Header.Get(api.CustodianIDHeader) != "" {
		if _, reqErr := h.verifyCustodian(r); reqErr != nil {
			h.writeError(w, r, reqErr)
			return
		}
		includeReport = true
	}

	sess, reqErr := h.getSession(r.PathValue("session_id"))
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	h.writeJSON(w, http.StatusOK, h.sessionStatus(sess, includeReport))
}

// HandleSubmitShare accepts one custodian's share. The share identifier
// is the authenticated custodian ID, so each custodian can submit exactly
// once. Detection starts automatically when the expected number of
// submissions is reached.
//
// URL format: POST /api/v1/sessions/{session_id}/shares
// Headers: X-Custodian-ID, X-Custodian-Signature.
// Body: api.SubmitShareRequest.
//
// Response: JSON, see api.SessionStatusResponse.
func (h *Handler) HandleSubmitShare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	custodianID, reqErr := h.verifyCustodian(r)
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	var req api.SubmitShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	x, ok := new(big.Int).SetString(req.X, 10)
	if !ok {
		h.writeError(w, r, badRequest(fmt.Errorf("invalid decimal x coordinate %q", req.X)))
		return
	}
	y, ok := new(big.Int).SetString(req.Y, 10)
	if !ok {
		h.writeError(w, r, badRequest(fmt.Errorf("invalid decimal y coordinate %q", req.Y)))
		return
	}

	share, err := interfaces.NewShare(custodianID, x, y)
	if err != nil {
		h.writeError(w, r, badRequest(err))
		return
	}

	sess, reqErr := h.getSession(r.PathValue("session_id"))
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	h.sessions.mu.Lock()
	if sess.state != sessionCollecting {
		state := sess.state
		h.sessions.mu.Unlock()
		h.writeError(w, r, wrongState(fmt.Errorf("session is %s, not accepting shares", state)))
		return
	}

	if _, submitted := sess.shares[custodianID]; submitted {
		h.sessions.mu.Unlock()
		h.writeError(w, r, wrongState(fmt.Errorf("custodian %s already submitted a share", custodianID)))
		return
	}

	for _, existing := range sess.shares {
		if existing.X.Cmp(share.X) == 0 {
			h.sessions.mu.Unlock()
			h.writeError(w, r, badRequest(fmt.Errorf("share x coordinate %s already submitted by custodian %s", share.X, existing.ID)))
			return
		}
	}

	sess.shares[custodianID] = share
	sess.order = append(sess.order, custodianID)
	submitted := len(sess.shares)

	trigger := submitted == sess.expected
	if trigger {
		sess.state = sessionDetecting
	}
	h.sessions.mu.Unlock()

	h.log.Info("Share accepted",
		"sessionID", sess.id,
		"custodianID", custodianID,
		"submitted", submitted,
		"expected", sess.expected)

	if trigger {
		go h.runSessionDetection(sess)
	}

	h.writeJSON(w, http.StatusOK, h.sessionStatus(sess, false))
}

// HandleReissue splits a completed session's recovered secret into fresh
// shares, one per inlier custodian, each encrypted with that custodian's
// public key. Custodians whose submissions were classified as wrong
// receive nothing.
//
// URL format: POST /api/v1/sessions/{session_id}/reissue
// Headers: X-Custodian-ID, X-Custodian-Signature.
// Body: optional api.ReissueRequest.
//
// Response: JSON, see api.ReissueResponse.
func (h *Handler) HandleReissue(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	custodianID, reqErr := h.verifyCustodian(r)
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, badRequest(fmt.Errorf("failed to read request body: %w", err)))
		return
	}

	var req api.ReissueRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, r, badRequest(fmt.Errorf("invalid request body: %w", err)))
			return
		}
	}

	sess, reqErr := h.getSession(r.PathValue("session_id"))
	if reqErr != nil {
		h.writeError(w, r, reqErr)
		return
	}

	h.sessions.mu.RLock()
	state := sess.state
	secret := sess.secret
	var inliers []string
	if sess.result != nil {
		inliers = append([]string{}, sess.result.InlierIDs...)
	}
	h.sessions.mu.RUnlock()

	if state != sessionComplete {
		h.writeError(w, r, wrongState(fmt.Errorf("session is %s, reissue requires a completed recovery", state)))
		return
	}

	threshold := req.Threshold
	if threshold == 0 {
		threshold = sess.k
	}
	if threshold < resharing.MinThreshold || threshold > len(inliers) {
		h.writeError(w, r, badRequest(fmt.Errorf("threshold %d out of range [%d, %d]", threshold, resharing.MinThreshold, len(inliers))))
		return
	}

	// Every inlier ID is a registered custodian: sessions only accept
	// authenticated submissions.
	records := make([]interfaces.CustodianRecord, len(inliers))
	for i, id := range inliers {
		records[i] = interfaces.CustodianRecord{ID: id, PubKey: string(h.custodians[id])}
	}

	reissued, err := resharing.Reissue(secret, records, threshold)
	if err != nil {
		h.log.Error("Share reissue failed", "err", err, "sessionID", sess.id)
		h.writeError(w, r, internalError(fmt.Errorf("failed to reissue shares: %w", err)))
		return
	}

	h.log.Info("Shares reissued",
		"sessionID", sess.id,
		"custodianID", custodianID,
		"count", len(reissued),
		"threshold", threshold)

	h.writeJSON(w, http.StatusOK, api.ReissueResponse{
		Threshold: threshold,
		Shares:    reissued,
	})
}

// WaitForSession blocks until the session reaches a terminal state or the
// context is cancelled. Callers coordinating an interactive collection
// round use this instead of polling the status endpoint.
func (h *Handler) WaitForSession(ctx context.Context, sessionID string) error {
	sess, reqErr := h.getSession(sessionID)
	if reqErr != nil {
		return reqErr
	}

	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runSessionDetection executes fault detection for a full session and
// transitions it to its terminal state. Runs in its own goroutine; the
// request that submitted the final share does not wait for it.
func (h *Handler) runSessionDetection(sess *session) {
	h.sessions.mu.RLock()
	shares := make([]interfaces.Share, len(sess.order))
	for i, custodianID := range sess.order {
		shares[i] = sess.shares[custodianID]
	}
	h.sessions.mu.RUnlock()

	// Detached from any request context: the session outlives the
	// submission that triggered it. The budget deadline still applies.
	resp, cls, reqErr := h.runDetection(context.Background(), shares, sess.k, sess.maxCombinations, sess.timeoutMs, "")

	h.sessions.mu.Lock()
	if reqErr != nil {
		sess.state = sessionFailed
		sess.failure = reqErr.Err
	} else {
		sess.state = sessionComplete
		sess.secret = cls.Secret
		sess.result = resp
	}
	state := sess.state
	h.sessions.mu.Unlock()

	close(sess.done)
	metrics.ActiveSessions.Dec()

	if reqErr != nil {
		h.log.Info("Session detection failed", "err", reqErr.Err, "sessionID", sess.id, "state", state.String())
		return
	}
	h.log.Info("Session detection complete",
		"sessionID", sess.id,
		"state", state.String(),
		"wrongShares", len(resp.WrongIDs))
}

// getSession looks up a session by ID.
func (h *Handler) getSession(id string) (*session, *api.RequestError) {
	h.sessions.mu.RLock()
	sess, exists := h.sessions.sessions[id]
	h.sessions.mu.RUnlock()

	if !exists {
		return nil, notFound(fmt.Errorf("session %s not found", id))
	}
	return sess, nil
}

// sessionStatus builds a status snapshot. The detection report, which
// contains the recovered secret, is included only when includeReport is
// set.
func (h *Handler) sessionStatus(sess *session, includeReport bool) api.SessionStatusResponse {
	h.sessions.mu.RLock()
	defer h.sessions.mu.RUnlock()

	status := api.SessionStatusResponse{
		SessionID:  sess.id,
		State:      sess.state.String(),
		K:          sess.k,
		Expected:   sess.expected,
		Submitted:  len(sess.shares),
		Custodians: append([]string{}, sess.order...),
	}
	if sess.failure != nil {
		status.Error = sess.failure.Error()
	}
	if includeReport && sess.state == sessionComplete {
		status.Report = sess.result
	}
	return status
}

// verifyCustodian checks that the request carries a valid signature from
// a registered custodian.
//
// The signed message is SHA-256(request path || request body). The body
// is read here and restored so later decoding sees it intact. The
// custodian registry is immutable after construction, so no lock guards
// it.
func (h *Handler) verifyCustodian(r *http.Request) (string, *api.RequestError) {
	custodianID := r.Header.Get(api.CustodianIDHeader)
	signatureStr := r.Header.Get(api.CustodianSignatureHeader)

	if custodianID == "" || signatureStr == "" {
		return "", unauthorized(errors.New("missing custodian credentials"))
	}

	pubKeyPEM, exists := h.custodians[custodianID]
	if !exists {
		h.log.Warn("Authentication failed: unknown custodian ID", "custodianID", custodianID)
		return "", unauthorized(errors.New("unknown custodian"))
	}

	signature, err := base64.StdEncoding.DecodeString(signatureStr)
	if err != nil {
		h.log.Warn("Authentication failed: invalid signature encoding", "custodianID", custodianID, "err", err)
		return "", unauthorized(errors.New("invalid signature encoding"))
	}

	pubKey, err := cryptoutils.ParsePublicKey(pubKeyPEM)
	if err != nil {
		h.log.Error("Failed to parse custodian public key", "custodianID", custodianID, "err", err)
		return "", unauthorized(errors.New("invalid custodian key"))
	}

	// Read the request body without consuming it.
	var bodyBytes []byte
	if r.Body != nil {
		bodyBytes, err = io.ReadAll(r.Body)
		if err != nil {
			return "", badRequest(fmt.Errorf("failed to read request body: %w", err))
		}
		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	message := r.URL.Path
	if len(bodyBytes) > 0 {
		message += string(bodyBytes)
	}
	hash := sha256.Sum256([]byte(message))

	if !ecdsa.VerifyASN1(pubKey, hash[:], signature) {
		h.log.Warn("Authentication failed: invalid signature", "custodianID", custodianID)
		return "", unauthorized(errors.New("invalid signature"))
	}

	h.log.Debug("Custodian authentication successful", "custodianID", custodianID)
	return custodianID, nil
}
