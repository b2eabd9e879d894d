package clients

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"
)

// Asset is a binary object served by the knowledge base.
type Asset struct {
	Data        []byte
	ContentType string
	Filename    string
}

type KnowledgeBase struct {
	service
}

func NewKnowledgeBase(baseURL string, timeout time.Duration) *KnowledgeBase {
	return &KnowledgeBase{service: newService("knowledgebase", baseURL, timeout)}
}

// Image fetches an image. When the direct route fails it looks the id up in the
// images table and decodes the stored base64 content.
func (c *KnowledgeBase) Image(ctx context.Context, id string) (*Asset, error) {
	log := c.log.TraceFromContext(ctx).Function("Image")

	asset, err := c.fetch(ctx, "/tables/images/"+url.PathEscape(id), "image/jpeg")
	if err == nil {
		return asset, nil
	}
	log.Warn("Direct image fetch failed, trying lookup", "id", id, "error", err)

	asset, lookupErr := c.lookupImage(ctx, id)
	if lookupErr != nil {
		return nil, errors.Join(err, lookupErr)
	}
	return asset, nil
}

// Document fetches a stored PDF, or the extracted text when no file was kept.
func (c *KnowledgeBase) Document(ctx context.Context, id string) (*Asset, error) {
	return c.fetch(ctx, "/tables/documents/"+url.PathEscape(id), "application/octet-stream")
}

// Health returns the knowledge base health body, which also describes its database.
func (c *KnowledgeBase) Health(ctx context.Context) (map[string]any, error) {
	var body map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/health/", nil, &body); err != nil {
		return nil, err
	}
	return body, nil
}

type imageLookupResponse struct {
	Results []struct {
		UUID    string `json:"uuid"`
		Content string `json:"content"`
	} `json:"results"`
	Count int `json:"count"`
}

func (c *KnowledgeBase) lookupImage(ctx context.Context, id string) (*Asset, error) {
	var response imageLookupResponse
	if err := c.doJSON(ctx, http.MethodPost, "/tables/images/lookup", []string{id}, &response); err != nil {
		return nil, fmt.Errorf("image lookup failed: %w", err)
	}

	for _, row := range response.Results {
		if row.UUID != id {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(row.Content)
		if err != nil {
			return nil, fmt.Errorf("image %s has invalid content: %w", id, err)
		}
		return &Asset{Data: data, ContentType: http.DetectContentType(data), Filename: id + ".jpg"}, nil
	}
	return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
}

func (c *KnowledgeBase) fetch(ctx context.Context, path, fallbackType string) (*Asset, error) {
	resp, err := c.send(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("knowledgebase: failed to read %s: %w", path, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = fallbackType
	}
	return &Asset{
		Data:        data,
		ContentType: contentType,
		Filename:    filenameFrom(resp.Header.Get("Content-Disposition")),
	}, nil
}

func filenameFrom(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
