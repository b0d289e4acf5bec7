// Package probe issues single outbound checks against destination URLs and
// classifies the outcome. Network-level failures are returned as data, never
// as errors.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"linkhealth/internal/models"
)

const (
	// DefaultTimeout bounds one probe end to end.
	DefaultTimeout = 10 * time.Second
	// maxRedirects caps how many redirects a probe will follow.
	maxRedirects = 5
)

// Transport failure messages form a closed taxonomy; anything unrecognized
// falls back to the underlying error text.
const (
	errTimeout           = "timeout"
	errDNSNotFound       = "dns_not_found"
	errConnectionRefused = "connection_refused"
)

// Prober performs HTTP checks against destination URLs.
type Prober struct {
	client *http.Client
}

// New creates a Prober with the given timeout. A non-positive timeout falls
// back to DefaultTimeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Check probes the URL once and returns a classified result. The result is
// always populated; responseTimeMS covers request start to resolution even
// on failure. Healthy means a response with status in [200, 400).
func (p *Prober) Check(ctx context.Context, url string) models.CheckResult {
	start := time.Now()
	result := models.CheckResult{Timestamp: start.UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.ResponseTimeMS = time.Since(start).Milliseconds()
		msg := fmt.Sprintf("invalid request: %v", err)
		result.ErrorMessage = &msg
		return result
	}

	resp, err := p.client.Do(req)
	result.ResponseTimeMS = time.Since(start).Milliseconds()
	if err != nil {
		msg := classifyTransportError(err)
		result.ErrorMessage = &msg
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.IsHealthy = true
	} else {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		result.ErrorMessage = &msg
	}
	return result
}

// classifyTransportError maps a transport failure onto the closed taxonomy.
func classifyTransportError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return errTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return errDNSNotFound
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return errConnectionRefused
	}
	return err.Error()
}
