package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"slotline/internal/apperrors"
)

// AvailabilityClient talks to the availability service that owns workers'
// reservable time slots. Business-rule responses (missing slot, reservation
// conflict) are distinguished from transport failures.
type AvailabilityClient struct {
	baseURL    string
	httpClient *http.Client
}

type AvailabilityConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Slot is an externally managed reservable time window.
type Slot struct {
	ID        string    `json:"id"`
	WorkerID  string    `json:"workerId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// AvailabilityResult is the verdict of a non-mutating availability check.
type AvailabilityResult struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type validateRequest struct {
	WorkerID string    `json:"workerId"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

func NewAvailabilityClient(cfg AvailabilityConfig) *AvailabilityClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &AvailabilityClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// GetSlot fetches the slot's time window. Returns a NotFound error when the
// availability service does not know the slot.
func (ac *AvailabilityClient) GetSlot(slotID, auth string) (*Slot, error) {
	req, err := http.NewRequest(http.MethodGet, ac.baseURL+"/slots/"+slotID, nil)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to build slot request", err)
	}
	req.Header.Set("Authorization", auth)

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Infrastructure("availability service unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperrors.NotFound("slot not found")
	default:
		return nil, apperrors.Infrastructure(fmt.Sprintf("unexpected status %d from availability service", resp.StatusCode), nil)
	}

	var slot Slot
	if err := json.NewDecoder(resp.Body).Decode(&slot); err != nil {
		return nil, apperrors.Infrastructure("failed to decode slot response", err)
	}

	return &slot, nil
}

// ReserveSlot marks the slot as taken. A 409 means another booking won the
// slot and is reported as a business conflict.
func (ac *AvailabilityClient) ReserveSlot(slotID, auth string) error {
	resp, err := ac.post(ac.baseURL+"/slots/"+slotID+"/reserve", auth)
	if err != nil {
		return apperrors.Infrastructure("availability service unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return apperrors.NotFound("slot not found")
	case http.StatusConflict:
		return apperrors.Conflict("slot is already reserved")
	default:
		return apperrors.Infrastructure(fmt.Sprintf("unexpected status %d reserving slot", resp.StatusCode), nil)
	}
}

// ReleaseSlot frees a previously reserved slot. Used as best-effort
// compensation after a failed booking write.
func (ac *AvailabilityClient) ReleaseSlot(slotID, auth string) error {
	resp, err := ac.post(ac.baseURL+"/slots/"+slotID+"/release", auth)
	if err != nil {
		return apperrors.Infrastructure("availability service unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	default:
		return apperrors.Infrastructure(fmt.Sprintf("unexpected status %d releasing slot", resp.StatusCode), nil)
	}
}

// CheckAvailability asks whether the worker is free in [start, end). Remote
// rejection and remote unreachability both surface as validation failures,
// with a cause message telling them apart.
func (ac *AvailabilityClient) CheckAvailability(workerID string, start, end time.Time, auth string) (*AvailabilityResult, error) {
	body, err := json.Marshal(validateRequest{WorkerID: workerID, Start: start, End: end})
	if err != nil {
		return nil, apperrors.Infrastructure("failed to marshal validate request", err)
	}

	req, err := http.NewRequest(http.MethodPost, ac.baseURL+"/validate", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Infrastructure("failed to build validate request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Validation("validation failed: no response from availability service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Validation("validation failed: " + remoteMessage(resp))
	}

	var result AvailabilityResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Infrastructure("failed to decode validate response", err)
	}

	return &result, nil
}

func (ac *AvailabilityClient) post(url, auth string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	return ac.httpClient.Do(req)
}

// remoteMessage extracts a human-readable cause from an error response,
// falling back to the HTTP status text.
func remoteMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			if payload.Message != "" {
				return payload.Message
			}
			if payload.Error != "" {
				return payload.Error
			}
		}
	}
	return resp.Status
}
