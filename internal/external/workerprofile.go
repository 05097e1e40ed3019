package external

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"slotline/internal/apperrors"
)

// WorkerProfileClient fetches worker profiles, used to verify a worker
// actually offers the requested service category before booking them.
type WorkerProfileClient struct {
	baseURL    string
	httpClient *http.Client
}

type WorkerProfileConfig struct {
	BaseURL string
	Timeout time.Duration
}

type WorkerProfile struct {
	ID         string            `json:"id"`
	Categories []ServiceCategory `json:"categories"`
}

type ServiceCategory struct {
	Name string `json:"name"`
}

func NewWorkerProfileClient(cfg WorkerProfileConfig) *WorkerProfileClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &WorkerProfileClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (wc *WorkerProfileClient) GetWorker(workerID, auth string) (*WorkerProfile, error) {
	req, err := http.NewRequest(http.MethodGet, wc.baseURL+"/workers/"+workerID, nil)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to build worker request", err)
	}
	req.Header.Set("Authorization", auth)

	resp, err := wc.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Infrastructure("worker profile service unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperrors.NotFound("worker not found")
	default:
		return nil, apperrors.Infrastructure(fmt.Sprintf("unexpected status %d from worker profile service", resp.StatusCode), nil)
	}

	var worker WorkerProfile
	if err := json.NewDecoder(resp.Body).Decode(&worker); err != nil {
		return nil, apperrors.Infrastructure("failed to decode worker response", err)
	}

	return &worker, nil
}

// Offers reports whether the worker lists the service category,
// case-insensitively.
func (w *WorkerProfile) Offers(serviceType string) bool {
	for _, category := range w.Categories {
		if strings.EqualFold(category.Name, serviceType) {
			return true
		}
	}
	return false
}
