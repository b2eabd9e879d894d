package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"praid/config"
	"praid/internal/clients"
	"praid/internal/constants"
	"praid/internal/database"
	"praid/internal/events"
	"praid/internal/logger"
	"praid/internal/types"
	"praid/internal/utils"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const probeConcurrency = 8

// DefaultHealthTree is the platform's service dependency tree.
const DefaultHealthTree = `
name: webinterface
children:
  - name: fileingestor
    children:
      - name: llmagent
        children:
          - name: ollama
            kind: ollama
      - name: easyocr
      - name: knowledgebase
        children:
          - name: postgres
            kind: indirect
  - name: searchengine
    children:
      - name: knowledgebase
      - name: llmagent
`

var ErrInvalidHealthTree = errors.New("invalid health tree")

// HealthTreeNode is one service in the tree definition. Kind defaults to standard and
// URL to the configured address of the service with the same name.
type HealthTreeNode struct {
	Name     string            `yaml:"name"`
	Kind     types.ProbeKind   `yaml:"kind"`
	URL      string            `yaml:"url"`
	Children []*HealthTreeNode `yaml:"children"`
}

func ParseHealthTree(data []byte) (*HealthTreeNode, error) {
	var root HealthTreeNode
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHealthTree, err)
	}
	if root.Kind == types.ProbeIndirect {
		return nil, fmt.Errorf("%w: the root cannot be indirect", ErrInvalidHealthTree)
	}
	if err := validateHealthTree(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

func validateHealthTree(node *HealthTreeNode) error {
	if node.Name == "" {
		return fmt.Errorf("%w: every node needs a name", ErrInvalidHealthTree)
	}
	switch node.Kind {
	case "":
		node.Kind = types.ProbeStandard
	case types.ProbeStandard, types.ProbeOllama, types.ProbeIndirect, types.ProbeSelf:
	default:
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidHealthTree, node.Name, node.Kind)
	}
	for _, child := range node.Children {
		if err := validateHealthTree(child); err != nil {
			return err
		}
	}
	return nil
}

// LoadHealthTree reads the tree from path, or returns the default tree when path is empty.
func LoadHealthTree(path string) (*HealthTreeNode, error) {
	if path == "" {
		return ParseHealthTree([]byte(DefaultHealthTree))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read health tree: %w", err)
	}
	return ParseHealthTree(data)
}

// ServiceURLs maps tree node names to the configured service addresses. Without a
// separate web interface the console stands in for it.
func ServiceURLs(config config.Config) map[string]string {
	return map[string]string{
		"webinterface":  config.WebInterfaceURL,
		"fileingestor":  config.FileIngestorURL,
		"searchengine":  config.SearchEngineURL,
		"llmagent":      config.LLMAgentURL,
		"knowledgebase": config.KnowledgeBaseURL,
		"easyocr":       config.EasyOCRURL,
		"ollama":        config.OllamaURL,
	}
}

type HealthProber interface {
	Probe(ctx context.Context, target clients.Target) types.ProbeResult
}

type HealthService struct {
	tree      *HealthTreeNode
	urls      map[string]string
	prober    HealthProber
	cache     database.CacheClient
	publisher events.Publisher
	mu        sync.RWMutex
	latest    *types.HealthSnapshot
	log       logger.Logger
}

func NewHealthService(
	tree *HealthTreeNode,
	urls map[string]string,
	prober HealthProber,
	cache database.CacheClient,
	publisher events.Publisher,
) *HealthService {
	return &HealthService{
		tree:      tree,
		urls:      urls,
		prober:    prober,
		cache:     cache,
		publisher: publisher,
		log:       logger.New("healthService"),
	}
}

// Check probes every service in the tree once, concurrently, and evaluates the tree.
// A service listed under several parents is probed a single time.
func (h *HealthService) Check(ctx context.Context) (*types.HealthSnapshot, error) {
	log := h.log.TraceFromContext(ctx).Function("Check")

	targets := map[string]clients.Target{}
	h.collectTargets(h.tree, targets)

	var mu sync.Mutex
	results := make(map[string]types.ProbeResult, len(targets))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(probeConcurrency)
	for name, target := range targets {
		if target.Kind != types.ProbeSelf && target.URL == "" {
			mu.Lock()
			results[name] = types.ProbeResult{Status: types.HealthUnknown, Error: "no address configured"}
			mu.Unlock()
			continue
		}
		group.Go(func() error {
			result := h.prober.Probe(groupCtx, target)
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, log.Err("health probes failed", err)
	}

	root := buildHealthNode(h.tree, types.ProbeResult{}, results)
	snapshot := &types.HealthSnapshot{
		Root:      root,
		CheckedAt: time.Now().UTC(),
		Hash:      utils.HashValue(healthSignature(root)),
	}
	return snapshot, nil
}

func (h *HealthService) collectTargets(node *HealthTreeNode, targets map[string]clients.Target) {
	if _, seen := targets[node.Name]; !seen && node.Kind != types.ProbeIndirect {
		target := clients.Target{Name: node.Name, URL: node.URL, Kind: node.Kind}
		if target.URL == "" {
			target.URL = h.urls[node.Name]
		}
		if target.URL == "" && node.Name == "webinterface" {
			target.Kind = types.ProbeSelf
		}
		targets[node.Name] = target
	}
	for _, child := range node.Children {
		h.collectTargets(child, targets)
	}
}

func buildHealthNode(
	spec *HealthTreeNode,
	parent types.ProbeResult,
	results map[string]types.ProbeResult,
) *types.HealthNode {
	var result types.ProbeResult
	switch spec.Kind {
	case types.ProbeIndirect:
		result = clients.EvaluateIndirect(parent)
	default:
		var ok bool
		if result, ok = results[spec.Name]; !ok {
			result = types.ProbeResult{Status: types.HealthUnknown, Error: "not probed"}
		}
	}

	node := &types.HealthNode{
		Name:      spec.Name,
		Self:      result.Status,
		Status:    result.Status,
		LatencyMs: result.LatencyMs,
		Error:     result.Error,
	}
	for _, child := range spec.Children {
		node.Children = append(node.Children, buildHealthNode(child, result, results))
	}

	if node.Self == types.HealthHealthy {
		for _, child := range node.Children {
			if child.Status == types.HealthUnhealthy || child.Status == types.HealthDegraded {
				node.Status = types.HealthDegraded
				break
			}
		}
	}
	return node
}

// healthSignature is the part of a tree that counts as a change: names and statuses,
// not latencies.
type healthSignatureNode struct {
	Name     string                `json:"n"`
	Status   types.HealthStatus    `json:"s"`
	Self     types.HealthStatus    `json:"x"`
	Children []healthSignatureNode `json:"c,omitempty"`
}

func healthSignature(node *types.HealthNode) healthSignatureNode {
	signature := healthSignatureNode{Name: node.Name, Status: node.Status, Self: node.Self}
	for _, child := range node.Children {
		signature.Children = append(signature.Children, healthSignature(child))
	}
	return signature
}

// Refresh checks the tree and stores the snapshot. A snapshot that differs from the
// previous one is broadcast as a health update.
func (h *HealthService) Refresh(ctx context.Context) (*types.HealthSnapshot, error) {
	log := h.log.TraceFromContext(ctx).Function("Refresh")

	snapshot, err := h.Check(ctx)
	if err != nil {
		return nil, err
	}

	previous, err := h.Latest(ctx)
	if err != nil {
		log.Warn("Failed to read previous health snapshot", "error", err)
	}

	h.mu.Lock()
	h.latest = snapshot
	h.mu.Unlock()

	if h.cache != nil {
		err := database.NewCacheBuilder(h.cache, constants.HealthSnapshotCacheKey).
			WithContext(ctx).
			WithHash(constants.HealthSnapshotCachePrefix).
			WithTTL(constants.HealthSnapshotCacheExpiry).
			WithStruct(snapshot).
			Set()
		if err != nil {
			log.Er("failed to cache health snapshot", err)
		}
	}

	if previous == nil || previous.Hash != snapshot.Hash {
		log.Info("Service health changed", "root", snapshot.Root.Status, "hash", snapshot.Hash)
		publish(h.publisher, h.log, events.HEALTH_UPDATE, snapshot.Root.Name, snapshot)
	}

	return snapshot, nil
}

// Latest returns the most recent stored snapshot, or nil when none exists yet. The
// shared cache wins over this process's copy so every instance reports the same tree.
func (h *HealthService) Latest(ctx context.Context) (*types.HealthSnapshot, error) {
	if h.cache != nil {
		var cached types.HealthSnapshot
		found, err := database.NewCacheBuilder(h.cache, constants.HealthSnapshotCacheKey).
			WithContext(ctx).
			WithHash(constants.HealthSnapshotCachePrefix).
			Get(&cached)
		if err != nil {
			return nil, err
		}
		if found {
			return &cached, nil
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, nil
}

// Snapshot serves the stored snapshot, checking live when there is none.
func (h *HealthService) Snapshot(ctx context.Context) (*types.HealthSnapshot, error) {
	latest, err := h.Latest(ctx)
	if err != nil {
		h.log.TraceFromContext(ctx).Function("Snapshot").Warn("Falling back to a live check", "error", err)
	}
	if latest != nil {
		return latest, nil
	}
	return h.Refresh(ctx)
}
