package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"praid/internal/types"
)

type LLMAgent struct {
	service
}

func NewLLMAgent(baseURL string) *LLMAgent {
	return &LLMAgent{service: newStreamingService("llmagent", baseURL)}
}

// Chat starts a retrieval augmented answer and returns it as a content record stream.
// A plain JSON {"response": ...} reply is turned into a single content record.
func (c *LLMAgent) Chat(ctx context.Context, request types.ChatRequest) (io.ReadCloser, error) {
	log := c.log.TraceFromContext(ctx).Function("Chat")
	log.Info("Starting chat", "sources", len(request.Sources), "history", len(request.ChatHistory))

	resp, err := c.send(ctx, http.MethodPost, "/rag/", request, "text/event-stream")
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return resp.Body, nil
	}

	defer resp.Body.Close()
	var reply struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("llmagent: failed to decode chat reply: %w", err)
	}
	record, err := json.Marshal(map[string]string{"content": reply.Response})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("data: ")
	buf.Write(record)
	buf.WriteString("\n\n")
	return io.NopCloser(&buf), nil
}
