package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"praid/internal/types"
	"strings"
	"time"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/klauspost/compress/gzip"
)

const (
	logSinkPath    = "/insert/jsonline"
	logSinkTimeout = 10 * time.Second
	maxLogBatch    = 200
)

var (
	ErrMissingLogSession = errors.New("session id is required")
	ErrLogBatchTooLarge  = fmt.Errorf("at most %d log lines per batch", maxLogBatch)
)

// LoggingService relays browser console logs to a JSON line log sink. Without a sink
// URL batches are accepted and dropped.
type LoggingService struct {
	sinkURL    string
	httpClient *http.Client
	log        logger.Logger
	enabled    bool
}

func NewLoggingService(sinkURL string) *LoggingService {
	sinkURL = strings.TrimSuffix(sinkURL, "/")
	enabled := sinkURL != ""

	log := logger.New("loggingService")
	if !enabled {
		log.Warn("Log sink URL not configured, browser logs will be dropped")
	} else {
		log.Info("Logging service initialized", "url", sinkURL)
	}

	return &LoggingService{
		sinkURL:    sinkURL,
		httpClient: &http.Client{Timeout: logSinkTimeout},
		log:        log,
		enabled:    enabled,
	}
}

func (s *LoggingService) IsEnabled() bool {
	return s.enabled
}

func (s *LoggingService) ProcessLogBatch(
	ctx context.Context,
	batch types.LogBatchRequest,
) (*types.LogBatchResponse, error) {
	log := s.log.Function("ProcessLogBatch")

	if len(batch.Logs) == 0 {
		return &types.LogBatchResponse{Success: true}, nil
	}
	if strings.TrimSpace(batch.SessionID) == "" {
		return nil, ErrMissingLogSession
	}
	if len(batch.Logs) > maxLogBatch {
		return nil, ErrLogBatchTooLarge
	}

	if !s.enabled {
		log.Debug("Log sink disabled, dropping batch", "count", len(batch.Logs))
		return &types.LogBatchResponse{Success: true}, nil
	}

	entries := make([]types.SinkEntry, 0, len(batch.Logs))
	for _, entry := range batch.Logs {
		entries = append(entries, toSinkEntry(entry, batch.SessionID))
	}

	if err := s.send(ctx, entries); err != nil {
		log.Er("Failed to send logs to sink", err,
			"count", len(entries),
			"sessionID", batch.SessionID)
		return nil, fmt.Errorf("failed to send logs: %w", err)
	}

	log.Debug("Relayed log batch", "count", len(entries), "sessionID", batch.SessionID)
	return &types.LogBatchResponse{Success: true, Processed: len(entries)}, nil
}

func toSinkEntry(entry types.LogEntry, sessionID string) types.SinkEntry {
	level := entry.Level
	if level == "" {
		level = types.LogLevelInfo
	}
	timestamp := entry.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	out := types.SinkEntry{
		Time:         timestamp,
		Msg:          entry.Message,
		StreamFields: "source,app,level",
		Source:       "browser",
		App:          "praid_console",
		Level:        string(level),
		SessionID:    sessionID,
		URL:          entry.Metadata.URL,
		UserAgent:    entry.Metadata.UserAgent,
	}

	if ctx := entry.Context; ctx != nil {
		out.Action = ctx.Action
		out.Component = ctx.Component
		out.UploadID = ctx.UploadID
		out.ChatID = ctx.ChatID
		out.TraceID = ctx.TraceID
		if ctx.Error != nil {
			out.ErrorMessage = ctx.Error.Message
			out.ErrorStack = ctx.Error.Stack
		}
	}
	return out
}

// send posts the entries as gzipped JSON lines.
func (s *LoggingService) send(ctx context.Context, entries []types.SinkEntry) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	encoder := json.NewEncoder(gz)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			return fmt.Errorf("failed to encode log entry: %w", err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sinkURL+logSinkPath, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	req.Header.Set("Content-Encoding", "gzip")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("log sink returned status %d", resp.StatusCode)
	}
	return nil
}
