package types

import "time"

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnknown   HealthStatus = "unknown"
)

// ProbeKind names how a node's health is determined.
type ProbeKind string

const (
	ProbeStandard ProbeKind = "standard"
	ProbeOllama   ProbeKind = "ollama"
	ProbeIndirect ProbeKind = "indirect"
	// ProbeSelf is the console itself, healthy whenever it can answer.
	ProbeSelf ProbeKind = "self"
)

// ProbeResult is the outcome of probing a single service.
type ProbeResult struct {
	Status    HealthStatus   `json:"status"`
	LatencyMs int64          `json:"latencyMs"`
	Error     string         `json:"error,omitempty"`
	Body      map[string]any `json:"body,omitempty"`
}

// HealthNode is one service in the dependency tree with its evaluated status.
type HealthNode struct {
	Name      string        `json:"name"`
	Status    HealthStatus  `json:"status"`
	Self      HealthStatus  `json:"self"`
	LatencyMs int64         `json:"latencyMs"`
	Error     string        `json:"error,omitempty"`
	Children  []*HealthNode `json:"children,omitempty"`
}

type HealthSnapshot struct {
	Root      *HealthNode `json:"root"`
	CheckedAt time.Time   `json:"checkedAt"`
	Hash      string      `json:"hash"`
}

// Find returns the first node called name, searching depth first.
func (n *HealthNode) Find(name string) *HealthNode {
	if n == nil {
		return nil
	}
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}
