package diagnostics

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ServiceCheck is the result of probing the generation service.
type ServiceCheck struct {
	URL       string        `json:"url"`
	Reachable bool          `json:"reachable"`
	Status    int           `json:"status,omitempty"`
	Latency   time.Duration `json:"latency,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// CheckService probes the service health endpoint.
func CheckService(ctx context.Context, baseURL string) ServiceCheck {
	check := ServiceCheck{URL: baseURL}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		check.Error = err.Error()
		return check
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	check.Latency = time.Since(start)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	defer resp.Body.Close()

	check.Status = resp.StatusCode
	check.Reachable = resp.StatusCode == http.StatusOK
	if !check.Reachable {
		check.Error = fmt.Sprintf("health endpoint returned %d", resp.StatusCode)
	}
	return check
}
