package clients

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"praid/internal/types"
	"strings"
	"sync/atomic"
)

// TransferFunc receives the number of file bytes handed to the transport so far.
type TransferFunc func(sent, total int64)

type FileIngestor struct {
	service
}

func NewFileIngestor(baseURL string) *FileIngestor {
	return &FileIngestor{service: newStreamingService("fileingestor", baseURL)}
}

func (c *FileIngestor) streamPath(kind types.UploadKind) (string, error) {
	switch kind {
	case types.UploadKindImage:
		return "/ingest_image/stream/", nil
	case types.UploadKindPDF:
		return "/ingest_pdf/stream/", nil
	default:
		return "", types.ErrInvalidKind
	}
}

// Ingest posts file as multipart field "file" and returns the progress stream body.
// onTransfer is called as the file is written to the connection.
func (c *FileIngestor) Ingest(
	ctx context.Context,
	kind types.UploadKind,
	file types.UploadFile,
	content io.Reader,
	onTransfer TransferFunc,
) (io.ReadCloser, error) {
	log := c.log.TraceFromContext(ctx).Function("Ingest")

	path, err := c.streamPath(kind)
	if err != nil {
		return nil, err
	}

	pipeReader, pipeWriter := io.Pipe()
	form := multipart.NewWriter(pipeWriter)

	go func() {
		counted := &countingReader{reader: content, total: file.Size, onRead: onTransfer}
		pipeWriter.CloseWithError(writeFilePart(form, file, counted))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), pipeReader)
	if err != nil {
		pipeReader.Close()
		return nil, fmt.Errorf("fileingestor: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "text/event-stream")
	c.traceHeader(ctx, req)

	log.Info("Starting ingestion", "kind", kind, "filename", file.Name, "size", file.Size)
	resp, err := c.do(log, req)
	if err != nil {
		pipeReader.Close()
		return nil, err
	}
	return resp.Body, nil
}

// PDFURL is where the ingestor serves a stored PDF.
func (c *FileIngestor) PDFURL(documentID string) string {
	return c.url("/ingest_pdf/file/" + url.PathEscape(documentID))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(form *multipart.Writer, file types.UploadFile, content io.Reader) error {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return form.Close()
}

type countingReader struct {
	reader io.Reader
	sent   atomic.Int64
	total  int64
	onRead TransferFunc
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		sent := r.sent.Add(int64(n))
		if r.onRead != nil {
			r.onRead(sent, r.total)
		}
	}
	return n, err
}
