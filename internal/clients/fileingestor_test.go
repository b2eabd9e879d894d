package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"praid/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileIngestor_Ingest_StreamsBodyAndReportsTransfer(t *testing.T) {
	content := strings.Repeat("x", 64*1024)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ingest_image/stream/", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "trace-1", r.Header.Get("X-Request-ID"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)

		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, content, string(data))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"type\": \"complete\", \"image_id\": \"img-1\"}\n\n")
	}))
	defer server.Close()

	var mu sync.Mutex
	var lastSent, lastTotal int64
	ctx := contextWithTrace("trace-1")

	body, err := NewFileIngestor(server.URL).Ingest(ctx, types.UploadKindImage,
		types.UploadFile{Name: "cat.png", ContentType: "image/png", Size: int64(len(content))},
		strings.NewReader(content),
		func(sent, total int64) {
			mu.Lock()
			defer mu.Unlock()
			lastSent, lastTotal = sent, total
		})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "img-1")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int64(len(content)), lastSent)
	assert.Equal(t, int64(len(content)), lastTotal)
}

func TestFileIngestor_Ingest_PDFRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ingest_pdf/stream/", r.URL.Path)
		_, _ = io.WriteString(w, "data: {\"type\": \"complete\"}\n\n")
	}))
	defer server.Close()

	body, err := NewFileIngestor(server.URL).Ingest(context.Background(), types.UploadKindPDF,
		types.UploadFile{Name: "report.pdf", Size: 3}, strings.NewReader("pdf"), nil)
	require.NoError(t, err)
	body.Close()
}

func TestFileIngestor_Ingest_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail": "File must be an image"}`)
	}))
	defer server.Close()

	_, err := NewFileIngestor(server.URL).Ingest(context.Background(), types.UploadKindImage,
		types.UploadFile{Name: "a.txt", ContentType: "text/plain", Size: 2}, strings.NewReader("hi"), nil)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "File must be an image", httpErr.Detail())
}

func TestFileIngestor_Ingest_InvalidKind(t *testing.T) {
	_, err := NewFileIngestor("http://unused").Ingest(context.Background(), types.UploadKind("video"),
		types.UploadFile{Name: "a.mp4"}, strings.NewReader(""), nil)

	assert.ErrorIs(t, err, types.ErrInvalidKind)
}

func TestFileIngestor_PDFURL(t *testing.T) {
	ingestor := NewFileIngestor("http://fileingestor:8000/")

	assert.Equal(t, "http://fileingestor:8000/ingest_pdf/file/abc%20123", ingestor.PDFURL("abc 123"))
}
