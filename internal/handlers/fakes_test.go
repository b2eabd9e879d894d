package handlers

import (
	"context"
	"io"
	"praid/internal/clients"
	"praid/internal/models"
	"praid/internal/repositories"
	"praid/internal/types"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubEngine struct {
	results []types.SearchResult
	err     error
}

func (s *stubEngine) Search(ctx context.Context, query string, n int) ([]types.SearchResult, error) {
	return s.results, s.err
}

func (s *stubEngine) Delete(ctx context.Context, id string) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return map[string]any{"status": "deleted"}, nil
}

type stubAssistant struct {
	body string
}

func (s *stubAssistant) Chat(ctx context.Context, request types.ChatRequest) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body)), nil
}

type stubIngestor struct {
	body string
}

func (s *stubIngestor) Ingest(
	ctx context.Context,
	kind types.UploadKind,
	file types.UploadFile,
	content io.Reader,
	onTransfer clients.TransferFunc,
) (io.ReadCloser, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	onTransfer(int64(len(data)), int64(len(data)))
	return io.NopCloser(strings.NewReader(s.body)), nil
}

type memoryUploads struct {
	mu      sync.Mutex
	uploads map[uuid.UUID]models.Upload
}

func newMemoryUploads() *memoryUploads {
	return &memoryUploads{uploads: map[uuid.UUID]models.Upload{}}
}

func (m *memoryUploads) Create(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	upload.ID = uuid.New()
	upload.CreatedAt = time.Now()
	m.uploads[upload.ID] = *upload
	return nil
}

func (m *memoryUploads) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	upload, ok := m.uploads[id]
	if !ok {
		return nil, repositories.ErrUploadNotFound
	}
	return &upload, nil
}

func (m *memoryUploads) List(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uploads := []*models.Upload{}
	for _, upload := range m.uploads {
		uploads = append(uploads, &upload)
	}
	return uploads, nil
}

func (m *memoryUploads) UpdateProgress(ctx context.Context, tx *gorm.DB, id uuid.UUID, progress float64) error {
	return nil
}

func (m *memoryUploads) Finish(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[upload.ID] = *upload
	return nil
}

func (m *memoryUploads) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.uploads[id]; !ok {
		return repositories.ErrUploadNotFound
	}
	delete(m.uploads, id)
	return nil
}

func (m *memoryUploads) ListStale(ctx context.Context, tx *gorm.DB, olderThan time.Time) ([]*models.Upload, error) {
	return nil, nil
}

func (m *memoryUploads) MarkFailed(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, reason string) (int, error) {
	return 0, nil
}

type memoryChats struct {
	sessions map[uuid.UUID]*models.ChatSession
}

func newMemoryChats() *memoryChats {
	return &memoryChats{sessions: map[uuid.UUID]*models.ChatSession{}}
}

func (m *memoryChats) CreateSession(ctx context.Context, tx *gorm.DB, session *models.ChatSession) error {
	session.ID = uuid.New()
	stored := *session
	m.sessions[session.ID] = &stored
	return nil
}

func (m *memoryChats) GetSession(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ChatSession, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, repositories.ErrChatSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *memoryChats) ListSessions(ctx context.Context, tx *gorm.DB, limit int) ([]*models.ChatSession, error) {
	sessions := []*models.ChatSession{}
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (m *memoryChats) History(ctx context.Context, tx *gorm.DB, id uuid.UUID) ([]*models.ChatMessage, error) {
	return nil, nil
}

func (m *memoryChats) AddMessages(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	messages []*models.ChatMessage,
) error {
	session, ok := m.sessions[id]
	if !ok {
		return repositories.ErrChatSessionNotFound
	}
	for _, message := range messages {
		message.ID = uuid.New()
		session.Messages = append(session.Messages, *message)
	}
	return nil
}

func (m *memoryChats) DeleteSession(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if _, ok := m.sessions[id]; !ok {
		return repositories.ErrChatSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

type stubProber struct{}

func (stubProber) Probe(ctx context.Context, target clients.Target) types.ProbeResult {
	if target.Name == "ollama" {
		return types.ProbeResult{Status: types.HealthUnhealthy, Error: "connection refused"}
	}
	return types.ProbeResult{Status: types.HealthHealthy, Body: map[string]any{"status": "healthy"}}
}

type stubLibrary struct{}

func (stubLibrary) Image(ctx context.Context, id string) (*clients.Asset, error) {
	if id != "img-1" {
		return nil, &clients.HTTPError{Service: "knowledgebase", StatusCode: 404}
	}
	return &clients.Asset{Data: []byte{0xff, 0xd8, 0xff}, ContentType: "image/jpeg"}, nil
}

func (stubLibrary) Document(ctx context.Context, id string) (*clients.Asset, error) {
	return nil, &clients.HTTPError{Service: "knowledgebase", StatusCode: 500, Body: `{"detail": "storage offline"}`}
}

type stubLocator struct{}

func (stubLocator) PDFURL(documentID string) string {
	return "http://fileingestor:8000/ingest_pdf/file/" + documentID
}
