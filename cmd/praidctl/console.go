package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"praid/internal/stream"
	"strings"
	"time"
)

// console is a thin client for the web console's JSON and event-stream API.
type console struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
}

func newConsole(baseURL string, timeout time.Duration) *console {
	return &console{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/api",
		http:    &http.Client{Timeout: timeout},
		stream:  &http.Client{},
	}
}

type uploadProgress struct {
	Filename string  `json:"filename"`
	Percent  float64 `json:"percent"`
	Status   string  `json:"status"`
	Caption  string  `json:"caption"`
}

type upload struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Filename string  `json:"filename"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	RemoteID string  `json:"remoteId"`
	Error    string  `json:"error"`
}

type searchHit struct {
	Kind            string   `json:"kind"`
	ID              string   `json:"id"`
	SimilarityText  string   `json:"similarityText"`
	KeywordsMatched []string `json:"keywordsMatched"`
	Document        *struct {
		StructuredJSON string `json:"structuredJson"`
	} `json:"document"`
	Image *struct {
		Caption string `json:"caption"`
	} `json:"image"`
}

type healthNode struct {
	Name      string        `json:"name"`
	Status    string        `json:"status"`
	LatencyMs int64         `json:"latencyMs"`
	Error     string        `json:"error"`
	Children  []*healthNode `json:"children"`
}

type chatAnswer struct {
	SessionID string   `json:"sessionId"`
	Content   string   `json:"content"`
	Sources   []string `json:"sources"`
}

// upload posts path as kind and reports each progress record until the stream settles.
func (c *console) upload(ctx context.Context, kind, path string, onProgress func(uploadProgress)) (*upload, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", contentTypeFor(kind, path))
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, c.stream, "/uploads/"+kind, form.FormDataContentType(), &body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var failure error
	var result *upload
	for event, err := range stream.Events(resp.Body) {
		if err != nil {
			return nil, err
		}
		switch event.Type {
		case stream.TypeProgress:
			var progress uploadProgress
			if decodeExtra(event, "progress", &progress) && onProgress != nil {
				onProgress(progress)
			}
		case stream.TypeError:
			failure = fmt.Errorf("upload failed: %s", event.Detail)
		case stream.TypeComplete, "upload":
			var stored upload
			if decodeExtra(event, "upload", &stored) {
				result = &stored
			}
		}
	}

	if failure != nil {
		return result, failure
	}
	if result == nil {
		return nil, fmt.Errorf("upload stream ended without a result")
	}
	return result, nil
}

func (c *console) search(ctx context.Context, query string, n int) ([]searchHit, error) {
	payload, err := json.Marshal(map[string]any{"query": query, "n": n})
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, c.http, "/search", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out struct {
		Results []searchHit `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return out.Results, nil
}

func (c *console) health(ctx context.Context, refresh bool) (*healthNode, error) {
	method, path := http.MethodGet, "/services/health"
	if refresh {
		method, path = http.MethodPost, "/services/health/refresh"
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(c.http, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out struct {
		Root *healthNode `json:"root"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	if out.Root == nil {
		return nil, fmt.Errorf("health response has no tree")
	}
	return out.Root, nil
}

// ask streams one chat turn, handing each chunk to onChunk as it arrives.
func (c *console) ask(ctx context.Context, sessionID, query string, useContext bool, onChunk func(string)) (*chatAnswer, error) {
	payload, err := json.Marshal(map[string]any{
		"sessionId":  sessionID,
		"query":      query,
		"useContext": useContext,
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, c.stream, "/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	for event, err := range stream.Events(resp.Body) {
		if err != nil {
			return nil, err
		}
		switch event.Type {
		case "chunk":
			if onChunk != nil {
				onChunk(event.Content)
			}
		case stream.TypeError:
			return nil, fmt.Errorf("chat failed: %s", event.Detail)
		case stream.TypeComplete:
			var answer chatAnswer
			if !decodeExtra(event, "answer", &answer) {
				return nil, fmt.Errorf("chat answer is unreadable")
			}
			return &answer, nil
		}
	}
	return nil, fmt.Errorf("chat stream ended without an answer")
}

func (c *console) post(ctx context.Context, client *http.Client, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(client, req)
}

// do returns the response for 2xx statuses and the console's error message otherwise.
func (c *console) do(client *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error != "" {
		return nil, fmt.Errorf("console returned HTTP %d: %s", resp.StatusCode, body.Error)
	}
	return nil, fmt.Errorf("console returned HTTP %d", resp.StatusCode)
}

// decodeExtra re-reads a nested record of a console stream event into target.
func decodeExtra(event stream.Event, key string, target any) bool {
	value, ok := event.Extra[key]
	if !ok {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, target) == nil
}

func contentTypeFor(kind, path string) string {
	if kind == "pdf" {
		return "application/pdf"
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
