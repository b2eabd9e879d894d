package services

import (
	"context"
	"io"
	"praid/internal/clients"
	"praid/internal/events"
	"praid/internal/models"
	"praid/internal/repositories"
	"praid/internal/types"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(channel events.Channel, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) sent() []events.MessageType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var messageTypes []events.MessageType
	for _, event := range p.events {
		messageTypes = append(messageTypes, event.Type)
	}
	return messageTypes
}

type fakeSearchEngine struct {
	results   []types.SearchResult
	err       error
	gotQuery  string
	gotN      int
	deleted   []string
	deleteErr error
}

func (f *fakeSearchEngine) Search(ctx context.Context, query string, n int) ([]types.SearchResult, error) {
	f.gotQuery = query
	f.gotN = n
	if f.err != nil {
		return nil, f.err
	}
	return append([]types.SearchResult(nil), f.results...), nil
}

func (f *fakeSearchEngine) Delete(ctx context.Context, id string) (map[string]any, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return map[string]any{"deleted": id}, nil
}

type fakeAssistant struct {
	body       string
	err        error
	gotRequest types.ChatRequest
}

func (f *fakeAssistant) Chat(ctx context.Context, request types.ChatRequest) (io.ReadCloser, error) {
	f.gotRequest = request
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

type fakeIngestor struct {
	body      string
	err       error
	transfers [][2]int64
	gotKind   types.UploadKind
	gotFile   types.UploadFile
	received  string
}

func (f *fakeIngestor) Ingest(
	ctx context.Context,
	kind types.UploadKind,
	file types.UploadFile,
	content io.Reader,
	onTransfer clients.TransferFunc,
) (io.ReadCloser, error) {
	f.gotKind = kind
	f.gotFile = file
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.received = string(data)
	for _, transfer := range f.transfers {
		onTransfer(transfer[0], transfer[1])
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

type fakeUploadRepository struct {
	mu       sync.Mutex
	uploads  map[uuid.UUID]*models.Upload
	progress []float64
	finished []*models.Upload
	failed   []uuid.UUID

	finishErr error
}

var _ repositories.UploadRepository = (*fakeUploadRepository)(nil)

func newFakeUploadRepository() *fakeUploadRepository {
	return &fakeUploadRepository{uploads: map[uuid.UUID]*models.Upload{}}
}

func (r *fakeUploadRepository) Create(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if upload.ID == uuid.Nil {
		upload.ID = uuid.New()
	}
	upload.CreatedAt = time.Now()
	upload.UpdatedAt = upload.CreatedAt
	stored := *upload
	r.uploads[upload.ID] = &stored
	return nil
}

func (r *fakeUploadRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	upload, ok := r.uploads[id]
	if !ok {
		return nil, repositories.ErrUploadNotFound
	}
	copied := *upload
	return &copied, nil
}

func (r *fakeUploadRepository) List(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var uploads []*models.Upload
	for _, upload := range r.uploads {
		copied := *upload
		uploads = append(uploads, &copied)
	}
	sort.Slice(uploads, func(i, j int) bool { return uploads[i].CreatedAt.After(uploads[j].CreatedAt) })
	if len(uploads) > limit {
		uploads = uploads[:limit]
	}
	return uploads, nil
}

func (r *fakeUploadRepository) UpdateProgress(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	progress float64,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, progress)
	if upload, ok := r.uploads[id]; ok {
		upload.Progress = progress
	}
	return nil
}

func (r *fakeUploadRepository) Finish(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finishErr != nil {
		return r.finishErr
	}
	if _, ok := r.uploads[upload.ID]; !ok {
		return repositories.ErrUploadNotFound
	}
	stored := *upload
	r.uploads[upload.ID] = &stored
	r.finished = append(r.finished, &stored)
	return nil
}

func (r *fakeUploadRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uploads[id]; !ok {
		return repositories.ErrUploadNotFound
	}
	delete(r.uploads, id)
	return nil
}

func (r *fakeUploadRepository) ListStale(
	ctx context.Context,
	tx *gorm.DB,
	olderThan time.Time,
) ([]*models.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []*models.Upload
	for _, upload := range r.uploads {
		if upload.Status == types.UploadInProgress && upload.UpdatedAt.Before(olderThan) {
			copied := *upload
			stale = append(stale, &copied)
		}
	}
	return stale, nil
}

func (r *fakeUploadRepository) MarkFailed(
	ctx context.Context,
	tx *gorm.DB,
	ids []uuid.UUID,
	reason string,
) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if upload, ok := r.uploads[id]; ok {
			upload.Status = types.UploadFailed
			upload.Error = reason
		}
	}
	r.failed = append(r.failed, ids...)
	return len(ids), nil
}

type fakeChatRepository struct {
	sessions map[uuid.UUID]*models.ChatSession
}

var _ repositories.ChatRepository = (*fakeChatRepository)(nil)

func newFakeChatRepository() *fakeChatRepository {
	return &fakeChatRepository{sessions: map[uuid.UUID]*models.ChatSession{}}
}

func (r *fakeChatRepository) CreateSession(ctx context.Context, tx *gorm.DB, session *models.ChatSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	stored := *session
	r.sessions[session.ID] = &stored
	return nil
}

func (r *fakeChatRepository) GetSession(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) (*models.ChatSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, repositories.ErrChatSessionNotFound
	}
	copied := *session
	copied.Messages = append([]models.ChatMessage(nil), session.Messages...)
	return &copied, nil
}

func (r *fakeChatRepository) ListSessions(
	ctx context.Context,
	tx *gorm.DB,
	limit int,
) ([]*models.ChatSession, error) {
	var sessions []*models.ChatSession
	for _, session := range r.sessions {
		copied := *session
		sessions = append(sessions, &copied)
	}
	return sessions, nil
}

func (r *fakeChatRepository) History(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) ([]*models.ChatMessage, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, repositories.ErrChatSessionNotFound
	}
	var messages []*models.ChatMessage
	for i := range session.Messages {
		messages = append(messages, &session.Messages[i])
	}
	return messages, nil
}

func (r *fakeChatRepository) AddMessages(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	messages []*models.ChatMessage,
) error {
	session, ok := r.sessions[id]
	if !ok {
		return repositories.ErrChatSessionNotFound
	}
	for _, message := range messages {
		message.SessionID = id
		if message.ID == uuid.Nil {
			message.ID = uuid.New()
		}
		session.Messages = append(session.Messages, *message)
	}
	return nil
}

func (r *fakeChatRepository) DeleteSession(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if _, ok := r.sessions[id]; !ok {
		return repositories.ErrChatSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

type fakeProber struct {
	mu      sync.Mutex
	results map[string]types.ProbeResult
	calls   map[string]int
}

func newFakeProber(results map[string]types.ProbeResult) *fakeProber {
	return &fakeProber{results: results, calls: map[string]int{}}
}

func (p *fakeProber) Probe(ctx context.Context, target clients.Target) types.ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[target.Name]++
	if target.Kind == types.ProbeSelf {
		return types.ProbeResult{Status: types.HealthHealthy}
	}
	if result, ok := p.results[target.Name]; ok {
		return result
	}
	return types.ProbeResult{Status: types.HealthHealthy}
}

type fakeMediaLibrary struct {
	images    map[string]*clients.Asset
	documents map[string]*clients.Asset
}

func (f *fakeMediaLibrary) Image(ctx context.Context, id string) (*clients.Asset, error) {
	if asset, ok := f.images[id]; ok {
		return asset, nil
	}
	return nil, &clients.HTTPError{Service: "knowledgebase", StatusCode: 404}
}

func (f *fakeMediaLibrary) Document(ctx context.Context, id string) (*clients.Asset, error) {
	if asset, ok := f.documents[id]; ok {
		return asset, nil
	}
	return nil, &clients.HTTPError{Service: "knowledgebase", StatusCode: 404}
}

type fakePDFLocator struct{}

func (fakePDFLocator) PDFURL(documentID string) string {
	return "http://fileingestor:8000/ingest_pdf/file/" + documentID
}
