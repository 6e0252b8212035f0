package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/share-recovery-backend/api"
)

// APIError is a non-2xx response from the recovery service, carrying the
// machine-readable code from the JSON error body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("recovery service returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("recovery service returned %d: %s", e.StatusCode, e.Message)
}

// responseError converts a non-2xx response into an APIError. Falls back
// to the raw body when the error body does not parse.
func responseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode}
	}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	return &APIError{StatusCode: resp.StatusCode, Code: errResp.Code, Message: errResp.Error}
}

// RecoveryClient implements api.RecoveryProvider for HTTP-based
// communication with the recovery service. Recovery routes require no
// authentication; see CustodianClient for the session API.
type RecoveryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRecoveryClient creates a client for the recovery API.
//
// Parameters:
//   - baseURL: The base URL of the recovery service (e.g., "http://localhost:8080")
//   - timeout: Request timeout duration (optional, default 90 seconds)
//
// The default timeout is generous because one-shot recovery requests can
// legitimately run for the server's full detection budget.
func NewRecoveryClient(baseURL string, timeout ...time.Duration) *RecoveryClient {
	clientTimeout := 90 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &RecoveryClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// Recover runs one-shot fault detection over the request's shares or
// document and returns the recovered secret with the share classification.
func (c *RecoveryClient) Recover(req api.RecoverRequest) (*api.RecoverResponse, error) {
	var resp api.RecoverResponse
	if err := c.postJSON(fmt.Sprintf("%s/api/v1/recover", c.baseURL), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadShareSet stores a share-set document (catalog or JSON form) and
// returns its content identifier.
func (c *RecoveryClient) UploadShareSet(document []byte) (*api.UploadShareSetResponse, error) {
	url := fmt.Sprintf("%s/api/v1/sharesets", c.baseURL)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var parsed api.UploadShareSetResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	return &parsed, nil
}

// RecoverStored runs fault detection over a previously uploaded document.
// A zero maxCombinations or timeoutMs leaves the server's defaults in
// place.
func (c *RecoveryClient) RecoverStored(shareSetID string, maxCombinations uint64, timeoutMs int64) (*api.RecoverResponse, error) {
	var resp api.RecoverResponse
	req := api.RecoverRequest{MaxCombinations: maxCombinations, TimeoutMs: timeoutMs}
	if err := c.postJSON(fmt.Sprintf("%s/api/v1/recover/%s", c.baseURL, shareSetID), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetReport fetches a stored detection report by its content identifier.
func (c *RecoveryClient) GetReport(id string) (*api.Report, error) {
	var report api.Report
	if err := c.getJSON(fmt.Sprintf("%s/api/v1/reports/%s", c.baseURL, id), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetReportSVG fetches the SVG visualization of a stored report.
func (c *RecoveryClient) GetReportSVG(id string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v1/reports/%s/svg", c.baseURL, id)
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("report SVG request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	return io.ReadAll(resp.Body)
}

// postJSON sends a JSON body and decodes a JSON response.
func (c *RecoveryClient) postJSON(url string, reqBody, respBody any) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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

// getJSON fetches a URL and decodes a JSON response.
func (c *RecoveryClient) getJSON(url string, respBody any) error {
	resp, err := c.httpClient.Get(url)
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

// MockRecoveryProvider implements a mock api.RecoveryProvider for testing.
type MockRecoveryProvider struct {
	mock.Mock
}

// Recover implements the RecoveryProvider interface for testing.
func (m *MockRecoveryProvider) Recover(req api.RecoverRequest) (*api.RecoverResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.RecoverResponse), args.Error(1)
}

// UploadShareSet implements the RecoveryProvider interface for testing.
func (m *MockRecoveryProvider) UploadShareSet(document []byte) (*api.UploadShareSetResponse, error) {
	args := m.Called(document)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.UploadShareSetResponse), args.Error(1)
}

// RecoverStored implements the RecoveryProvider interface for testing.
func (m *MockRecoveryProvider) RecoverStored(shareSetID string, maxCombinations uint64, timeoutMs int64) (*api.RecoverResponse, error) {
	args := m.Called(shareSetID, maxCombinations, timeoutMs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.RecoverResponse), args.Error(1)
}

// GetReport implements the RecoveryProvider interface for testing.
func (m *MockRecoveryProvider) GetReport(id string) (*api.Report, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Report), args.Error(1)
}

// GetReportSVG implements the RecoveryProvider interface for testing.
func (m *MockRecoveryProvider) GetReportSVG(id string) ([]byte, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
