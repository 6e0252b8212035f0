package clients

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/share-recovery-backend/api"
)

// CustodianClient implements api.SessionProvider for HTTP-based
// communication with the session API. Every request is signed with the
// custodian's ECDSA private key; the server verifies the signature
// against the registered public key before acting.
type CustodianClient struct {
	baseURL     string
	custodianID string
	privateKey  *ecdsa.PrivateKey
	httpClient  *http.Client
}

// NewCustodianClient creates a client for the custodian session API.
//
// Parameters:
//   - baseURL: The base URL of the recovery service (e.g., "http://localhost:8080")
//   - custodianID: The custodian's registered identifier
//   - privateKey: The custodian's ECDSA private key for request signing
//   - timeout: Request timeout duration (optional, default 30 seconds)
func NewCustodianClient(baseURL, custodianID string, privateKey *ecdsa.PrivateKey, timeout ...time.Duration) *CustodianClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &CustodianClient{
		baseURL:     baseURL,
		custodianID: custodianID,
		privateKey:  privateKey,
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// CreateSession opens a collection session.
func (c *CustodianClient) CreateSession(req api.CreateSessionRequest) (*api.CreateSessionResponse, error) {
	var resp api.CreateSessionResponse
	if err := c.signedCall(http.MethodPost, fmt.Sprintf("%s/api/v1/sessions", c.baseURL), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSession reports a session's state and progress. The request is
// signed, so the response includes the detection report once the session
// completes.
func (c *CustodianClient) GetSession(id string) (*api.SessionStatusResponse, error) {
	var resp api.SessionStatusResponse
	if err := c.signedCall(http.MethodGet, fmt.Sprintf("%s/api/v1/sessions/%s", c.baseURL, id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitShare submits this custodian's share point to a collecting
// session.
func (c *CustodianClient) SubmitShare(sessionID string, req api.SubmitShareRequest) (*api.SessionStatusResponse, error) {
	var resp api.SessionStatusResponse
	if err := c.signedCall(http.MethodPost, fmt.Sprintf("%s/api/v1/sessions/%s/shares", c.baseURL, sessionID), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reissue requests fresh encrypted shares from a completed session.
func (c *CustodianClient) Reissue(sessionID string, req api.ReissueRequest) (*api.ReissueResponse, error) {
	var resp api.ReissueResponse
	if err := c.signedCall(http.MethodPost, fmt.Sprintf("%s/api/v1/sessions/%s/reissue", c.baseURL, sessionID), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// signedCall marshals the body, signs the request, and decodes the JSON
// response. A nil body produces a bodyless request signed over the path
// alone.
func (c *CustodianClient) signedCall(method, reqURL string, reqBody, respBody any) error {
	var body []byte
	if reqBody != nil {
		var err error
		body, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := CreateSignedRequest(method, reqURL, body, c.custodianID, c.privateKey)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// CreateSignedRequest creates an HTTP request with custodian
// authentication headers.
//
// The signature covers SHA-256(request path || request body), signed with
// ECDSA and encoded as base64 ASN.1 in the X-Custodian-Signature header.
//
// Parameters:
//   - method: HTTP method (e.g., "GET", "POST")
//   - reqURL: The request URL
//   - body: The request body (can be nil)
//   - custodianID: The custodian's registered identifier
//   - privateKey: The custodian's ECDSA private key
//
// Returns:
//   - The signed HTTP request
//   - Error if request creation or signing fails
func CreateSignedRequest(method, reqURL string, body []byte, custodianID string, privateKey *ecdsa.PrivateKey) (*http.Request, error) {
	var req *http.Request
	var err error

	if body != nil {
		req, err = http.NewRequest(method, reqURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
	}

	// The signed message uses just the path, not the full URL, so the
	// signature stays valid across proxies and host aliases.
	parsedURL, err := url.Parse(reqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	req.Header.Set(api.CustodianIDHeader, custodianID)

	message := parsedURL.Path
	if body != nil {
		message += string(body)
	}
	hash := sha256.Sum256([]byte(message))

	signature, err := ecdsa.SignASN1(rand.Reader, privateKey, hash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	req.Header.Set(api.CustodianSignatureHeader, base64.StdEncoding.EncodeToString(signature))
	return req, nil
}

// SignRequest adds custodian authentication headers to an existing HTTP
// request, reading and restoring its body.
func SignRequest(req *http.Request, custodianID string, privateKey *ecdsa.PrivateKey) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}

	req.Header.Set(api.CustodianIDHeader, custodianID)

	message := req.URL.Path
	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return fmt.Errorf("failed to read request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		message += string(bodyBytes)
	}

	hash := sha256.Sum256([]byte(message))

	signature, err := ecdsa.SignASN1(rand.Reader, privateKey, hash[:])
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	req.Header.Set(api.CustodianSignatureHeader, base64.StdEncoding.EncodeToString(signature))
	return nil
}

// MockSessionProvider implements a mock api.SessionProvider for testing.
type MockSessionProvider struct {
	mock.Mock
}

// CreateSession implements the SessionProvider interface for testing.
func (m *MockSessionProvider) CreateSession(req api.CreateSessionRequest) (*api.CreateSessionResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.CreateSessionResponse), args.Error(1)
}

// GetSession implements the SessionProvider interface for testing.
func (m *MockSessionProvider) GetSession(id string) (*api.SessionStatusResponse, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.SessionStatusResponse), args.Error(1)
}

// SubmitShare implements the SessionProvider interface for testing.
func (m *MockSessionProvider) SubmitShare(sessionID string, req api.SubmitShareRequest) (*api.SessionStatusResponse, error) {
	args := m.Called(sessionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.SessionStatusResponse), args.Error(1)
}

// Reissue implements the SessionProvider interface for testing.
func (m *MockSessionProvider) Reissue(sessionID string, req api.ReissueRequest) (*api.ReissueResponse, error) {
	args := m.Called(sessionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ReissueResponse), args.Error(1)
}
