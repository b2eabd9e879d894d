package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"praid/internal/logger"
	"praid/internal/types"
	"strings"
	"time"
)

// Target is one service to probe.
type Target struct {
	Name string
	URL  string
	Kind types.ProbeKind
}

// Prober checks service health over HTTP with a per-probe timeout.
type Prober struct {
	http    *http.Client
	timeout time.Duration
	log     logger.Logger
}

func NewProber(timeout time.Duration) *Prober {
	return &Prober{
		http:    &http.Client{},
		timeout: timeout,
		log:     logger.New("clients").File("prober"),
	}
}

// Probe checks target according to its convention. Indirect targets cannot be probed
// on their own; use EvaluateIndirect with the parent's result.
func (p *Prober) Probe(ctx context.Context, target Target) types.ProbeResult {
	start := time.Now()
	var result types.ProbeResult

	switch target.Kind {
	case types.ProbeOllama:
		result = p.probeOllama(ctx, target)
	case types.ProbeIndirect:
		return types.ProbeResult{Status: types.HealthUnknown, Error: "indirect target needs its parent's result"}
	case types.ProbeSelf:
		return types.ProbeResult{Status: types.HealthHealthy}
	default:
		result = p.probeStandard(ctx, target)
	}

	result.LatencyMs = time.Since(start).Milliseconds()
	if result.Status != types.HealthHealthy {
		p.log.TraceFromContext(ctx).Function("Probe").Warn("Service not healthy",
			"service", target.Name, "status", result.Status, "error", result.Error)
	}
	return result
}

// probeStandard expects GET /health/ to answer 2xx. A JSON body with a status field
// other than "healthy" marks the service unhealthy.
func (p *Prober) probeStandard(ctx context.Context, target Target) types.ProbeResult {
	body, err := p.get(ctx, strings.TrimSuffix(target.URL, "/")+"/health/")
	if err != nil {
		return types.ProbeResult{Status: types.HealthUnhealthy, Error: err.Error()}
	}

	result := types.ProbeResult{Status: types.HealthHealthy, Body: body}
	if status, ok := body["status"].(string); ok && !strings.EqualFold(status, string(types.HealthHealthy)) {
		result.Status = types.HealthUnhealthy
		result.Error = describeBody(body, status)
	}
	return result
}

// probeOllama lists models, falling back to the version route on older servers.
func (p *Prober) probeOllama(ctx context.Context, target Target) types.ProbeResult {
	base := strings.TrimSuffix(target.URL, "/")

	body, err := p.get(ctx, base+"/api/tags")
	if err == nil {
		return types.ProbeResult{Status: types.HealthHealthy, Body: body}
	}

	body, fallbackErr := p.get(ctx, base+"/api/version")
	if fallbackErr == nil {
		return types.ProbeResult{Status: types.HealthHealthy, Body: body}
	}
	return types.ProbeResult{Status: types.HealthUnhealthy, Error: errors.Join(err, fallbackErr).Error()}
}

// EvaluateIndirect derives a dependency's health from its parent's health body, as
// the knowledge base does for its database.
func EvaluateIndirect(parent types.ProbeResult) types.ProbeResult {
	if parent.Body == nil {
		return types.ProbeResult{Status: types.HealthUnknown, Error: "parent did not report"}
	}

	status, _ := parent.Body["status"].(string)
	if strings.EqualFold(status, string(types.HealthHealthy)) {
		return types.ProbeResult{Status: types.HealthHealthy}
	}
	return types.ProbeResult{Status: types.HealthUnhealthy, Error: describeBody(parent.Body, status)}
}

func (p *Prober) get(ctx context.Context, url string) (map[string]any, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			// Non-JSON 2xx still counts as reachable.
			return map[string]any{}, nil
		}
	}
	return body, nil
}

func describeBody(body map[string]any, status string) string {
	if message, ok := body["error"].(string); ok && message != "" {
		return message
	}
	if status == "" {
		return "no status reported"
	}
	return "reported status " + status
}
