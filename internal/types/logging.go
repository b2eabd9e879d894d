package types

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogContext ties a browser log line to the console operation it came from.
type LogContext struct {
	Action    string           `json:"action,omitempty"`
	Component string           `json:"component,omitempty"`
	UploadID  string           `json:"uploadId,omitempty"`
	ChatID    string           `json:"chatId,omitempty"`
	TraceID   string           `json:"traceId,omitempty"`
	Error     *LogErrorContext `json:"error,omitempty"`
}

type LogErrorContext struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

type LogMetadata struct {
	UserAgent string `json:"userAgent"`
	URL       string `json:"url"`
}

// LogEntry is one line logged by the browser console.
type LogEntry struct {
	Timestamp string      `json:"timestamp"`
	Level     LogLevel    `json:"level"`
	Message   string      `json:"message"`
	Context   *LogContext `json:"context,omitempty"`
	Metadata  LogMetadata `json:"metadata"`
}

// LogBatchRequest groups the lines of one browser tab.
type LogBatchRequest struct {
	Logs      []LogEntry `json:"logs"`
	SessionID string     `json:"sessionId"`
}

type LogBatchResponse struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
}

// SinkEntry is the JSON line layout accepted by VictoriaLogs style /insert/jsonline
// endpoints.
type SinkEntry struct {
	Time         string `json:"_time"`
	Msg          string `json:"_msg"`
	StreamFields string `json:"_stream_fields"`
	Source       string `json:"source"`
	App          string `json:"app"`
	Level        string `json:"level"`
	SessionID    string `json:"sessionId,omitempty"`
	TraceID      string `json:"traceId,omitempty"`
	Action       string `json:"action,omitempty"`
	Component    string `json:"component,omitempty"`
	UploadID     string `json:"uploadId,omitempty"`
	ChatID       string `json:"chatId,omitempty"`
	URL          string `json:"url,omitempty"`
	UserAgent    string `json:"userAgent,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorStack   string `json:"errorStack,omitempty"`
}
