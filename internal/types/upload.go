package types

import (
	"errors"
	"path/filepath"
	"strings"
)

type UploadKind string

const (
	UploadKindImage UploadKind = "image"
	UploadKindPDF   UploadKind = "pdf"
)

var (
	ErrInvalidKind = errors.New("upload kind must be image or pdf")
	ErrNotAnImage  = errors.New("file must be an image")
	ErrNotAPDF     = errors.New("file must be a PDF")
)

func ParseUploadKind(raw string) (UploadKind, error) {
	switch UploadKind(strings.ToLower(raw)) {
	case UploadKindImage:
		return UploadKindImage, nil
	case UploadKindPDF:
		return UploadKindPDF, nil
	default:
		return "", ErrInvalidKind
	}
}

// ValidateFile applies the ingestor's acceptance rules: images need an image/* content
// type, PDFs need application/pdf or a .pdf extension.
func (k UploadKind) ValidateFile(filename, contentType string) error {
	switch k {
	case UploadKindImage:
		if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
			return ErrNotAnImage
		}
	case UploadKindPDF:
		byType := strings.EqualFold(contentType, "application/pdf")
		byExtension := strings.EqualFold(filepath.Ext(filename), ".pdf")
		if !byType && !byExtension {
			return ErrNotAPDF
		}
	default:
		return ErrInvalidKind
	}
	return nil
}

type UploadStatus string

const (
	UploadInProgress UploadStatus = "in_progress"
	UploadComplete   UploadStatus = "complete"
	UploadFailed     UploadStatus = "failed"
)

// UploadFile is a file on its way to the ingestor.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
}
