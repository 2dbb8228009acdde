package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"medqc-hq/medqc/pkg/telemetry/tracing"
)

// Default transport settings applied by NewHTTPProvider for zero values.
const (
	DefaultConnectTimeout     = 5 * time.Second
	DefaultReadTimeout        = 180 * time.Second
	DefaultUnhealthyThreshold = 3
)

// HTTPProvider is the base implementation for HTTP-based adapters.
// It provides connection pooling, separate connect and read timeouts,
// error classification, and health tracking. It never retries.
//
// Concrete adapters embed it and implement SendCompletion.
type HTTPProvider struct {
	// config contains the provider configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	// health tracks the provider's health status
	health ProviderHealth

	// healthMu protects concurrent access to health status
	healthMu sync.RWMutex
}

// Exchange describes one completed HTTP round trip.
type Exchange struct {
	// StatusCode is the HTTP status of the response
	StatusCode int

	// BytesSent is the request body size
	BytesSent int

	// BytesReceived is the response body size
	BytesReceived int
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.UnhealthyThreshold <= 0 {
		config.UnhealthyThreshold = DefaultUnhealthyThreshold
	}

	dialer := &net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		TLSHandshakeTimeout: config.ConnectTimeout,
		ForceAttemptHTTP2:   true,
	}

	now := time.Now()
	return &HTTPProvider{
		config: config,
		// Per-attempt deadlines come from the read-timeout context, so the
		// client itself has no global timeout.
		client: &http.Client{Transport: transport},
		health: ProviderHealth{
			IsHealthy:             true,
			LastCheck:             now,
			LastSuccessfulRequest: now,
		},
	}
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetType returns the provider's type.
func (p *HTTPProvider) GetType() string {
	return p.config.Type
}

// GetConfig returns the provider's configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// IsHealthy returns the current health status.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns detailed health information.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

// record updates request counters and health after one attempt.
func (p *HTTPProvider) record(err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	now := time.Now()
	p.health.TotalRequests++
	p.health.LastCheck = now

	if err == nil {
		if !p.health.IsHealthy {
			slog.Info("provider marked healthy",
				"provider", p.config.Name,
				"previous_failures", p.health.ConsecutiveFailures,
			)
		}
		p.health.IsHealthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = nil
		p.health.LastSuccessfulRequest = now
		return
	}

	p.health.FailedRequests++
	p.health.ConsecutiveFailures++
	p.health.LastError = err
	if p.health.IsHealthy && p.health.ConsecutiveFailures >= p.config.UnhealthyThreshold {
		p.health.IsHealthy = false
		slog.Warn("provider marked unhealthy",
			"provider", p.config.Name,
			"consecutive_failures", p.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// Do performs a single HTTP attempt bounded by the read timeout and returns
// the full response body. Non-2xx statuses become *ProviderError classified
// by KindForStatus; timeouts become *TimeoutError. If ctx itself ends, its
// error is returned unwrapped.
func (p *HTTPProvider) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, Exchange, error) {
	ex := Exchange{BytesSent: len(body)}

	attemptCtx, cancel := context.WithTimeout(ctx, p.config.ReadTimeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, url, bodyReader)
	if err != nil {
		return nil, ex, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tracing.Inject(ctx, req.Header)

	slog.Debug("sending request to provider",
		"provider", p.config.Name,
		"method", method,
		"url", url,
		"bytes", len(body),
	)

	resp, err := p.client.Do(req)
	if err != nil {
		err = p.classifyTransportError(ctx, attemptCtx, err)
		p.record(err)
		return nil, ex, err
	}
	defer resp.Body.Close()

	ex.StatusCode = resp.StatusCode
	respBody, err := io.ReadAll(resp.Body)
	ex.BytesReceived = len(respBody)
	if err != nil {
		err = p.classifyTransportError(ctx, attemptCtx, err)
		p.record(err)
		return nil, ex, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := &ProviderError{
			Provider:   p.config.Name,
			StatusCode: resp.StatusCode,
			Kind:       KindForStatus(resp.StatusCode),
			Message:    truncateMessage(string(respBody)),
		}
		p.record(err)
		return nil, ex, err
	}

	p.record(nil)
	return respBody, ex, nil
}

// DoJSON marshals reqBody, performs one attempt, and decodes the response
// into respBody.
func (p *HTTPProvider) DoJSON(ctx context.Context, method, url string, reqBody, respBody any, headers map[string]string) (Exchange, error) {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return Exchange{}, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	data, ex, err := p.Do(ctx, method, url, payload, headers)
	if err != nil {
		return ex, err
	}

	if respBody != nil {
		if err := json.Unmarshal(data, respBody); err != nil {
			return ex, &ParseError{
				Provider:    p.config.Name,
				RawResponse: truncateMessage(string(data)),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}
	return ex, nil
}

// HealthCheck performs a GET against the base URL.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	headers := make(map[string]string)
	if p.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.config.APIKey
	}
	_, _, err := p.Do(ctx, http.MethodGet, p.config.BaseURL, nil, headers)
	return err
}

// Close closes idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	slog.Debug("provider closed", "provider", p.config.Name)
	return nil
}

func (p *HTTPProvider) classifyTransportError(parent, attempt context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Provider: p.config.Name, Phase: "read", Timeout: p.config.ReadTimeout}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && opErr.Timeout() {
		return &TimeoutError{Provider: p.config.Name, Phase: "connect", Timeout: p.config.ConnectTimeout}
	}

	return &ProviderError{
		Provider: p.config.Name,
		Kind:     KindTransient,
		Message:  "request failed",
		Cause:    err,
	}
}

// truncateMessage bounds error bodies kept in errors and logs.
func truncateMessage(s string) string {
	const max = 512
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
