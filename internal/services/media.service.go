package services

import (
	"context"
	"praid/internal/clients"
	"praid/internal/logger"
	"strings"
)

type MediaLibrary interface {
	Image(ctx context.Context, id string) (*clients.Asset, error)
	Document(ctx context.Context, id string) (*clients.Asset, error)
}

type PDFLocator interface {
	PDFURL(documentID string) string
}

// MediaService serves the images and documents search results point at.
type MediaService struct {
	library MediaLibrary
	pdfs    PDFLocator
	log     logger.Logger
}

func NewMediaService(library MediaLibrary, pdfs PDFLocator) *MediaService {
	return &MediaService{
		library: library,
		pdfs:    pdfs,
		log:     logger.New("mediaService"),
	}
}

func (s *MediaService) Image(ctx context.Context, id string) (*clients.Asset, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyID
	}

	asset, err := s.library.Image(ctx, id)
	if err != nil {
		return nil, s.log.TraceFromContext(ctx).Function("Image").Err("failed to load image", err, "id", id)
	}
	if asset.Filename == "" {
		asset.Filename = id + ".jpg"
	}
	return asset, nil
}

func (s *MediaService) Document(ctx context.Context, id string) (*clients.Asset, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyID
	}

	asset, err := s.library.Document(ctx, id)
	if err != nil {
		return nil, s.log.TraceFromContext(ctx).Function("Document").Err("failed to load document", err, "id", id)
	}
	if asset.Filename == "" {
		asset.Filename = id + ".pdf"
	}
	return asset, nil
}

// DocumentURL is the ingestor address of the original PDF for a document.
func (s *MediaService) DocumentURL(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyID
	}
	return s.pdfs.PDFURL(id), nil
}
