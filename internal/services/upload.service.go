package services

import (
	"context"
	"errors"
	"io"
	"praid/internal/clients"
	"praid/internal/database"
	"praid/internal/events"
	"praid/internal/logger"
	"praid/internal/models"
	"praid/internal/repositories"
	"praid/internal/stream"
	"praid/internal/types"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidUploadID = errors.New("invalid upload id")

const (
	uploadListLimit = 200
	// progress is written back every this many displayed points
	progressPersistStep = 10.0
)

type Ingestor interface {
	Ingest(
		ctx context.Context,
		kind types.UploadKind,
		file types.UploadFile,
		content io.Reader,
		onTransfer clients.TransferFunc,
	) (io.ReadCloser, error)
}

type RemoteDeleter interface {
	Delete(ctx context.Context, id string) (map[string]any, error)
}

// UploadProgress is one composite update of an upload as the browser renders it.
type UploadProgress struct {
	UploadID string `json:"uploadId"`
	Filename string `json:"filename"`
	stream.Update
}

type UploadService struct {
	ingestor  Ingestor
	remote    RemoteDeleter
	repo      repositories.UploadRepository
	db        database.DB
	publisher events.Publisher
	log       logger.Logger
}

func NewUploadService(
	ingestor Ingestor,
	remote RemoteDeleter,
	repo repositories.UploadRepository,
	db database.DB,
	publisher events.Publisher,
) *UploadService {
	return &UploadService{
		ingestor:  ingestor,
		remote:    remote,
		repo:      repo,
		db:        db,
		publisher: publisher,
		log:       logger.New("uploadService"),
	}
}

func SchemeFor(kind types.UploadKind) stream.Scheme {
	if kind == types.UploadKindPDF {
		return stream.SchemePDF
	}
	return stream.SchemeImage
}

// Upload sends one file to the ingestor and follows its progress stream to the end.
// Every visible update goes to onUpdate, in order, and onto the event bus. The returned
// record carries the final state even when the upload failed.
func (s *UploadService) Upload(
	ctx context.Context,
	kind types.UploadKind,
	file types.UploadFile,
	content io.Reader,
	onUpdate func(UploadProgress),
) (*models.Upload, error) {
	log := s.log.TraceFromContext(ctx).Function("Upload")

	if err := kind.ValidateFile(file.Name, file.ContentType); err != nil {
		return nil, err
	}

	upload := &models.Upload{
		Kind:        kind,
		Filename:    file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
		Status:      types.UploadInProgress,
	}
	if err := s.repo.Create(ctx, s.db.SQL, upload); err != nil {
		return nil, err
	}
	subject := upload.ID.String()

	session := stream.NewSession(SchemeFor(kind), stream.WithLogger(log))

	var emitMu sync.Mutex
	lastPersisted := 0.0
	emit := func(update stream.Update) {
		progress := UploadProgress{UploadID: subject, Filename: file.Name, Update: update}
		if onUpdate != nil {
			onUpdate(progress)
		}
		publish(s.publisher, s.log, events.UPLOAD_PROGRESS, subject, progress)

		if update.Percent-lastPersisted >= progressPersistStep {
			lastPersisted = update.Percent
			if err := s.repo.UpdateProgress(ctx, s.db.SQL, upload.ID, update.Percent); err != nil {
				log.Warn("Failed to record upload progress", "uploadID", subject, "error", err)
			}
		}
	}

	body, err := s.ingestor.Ingest(ctx, kind, file, content, func(sent, total int64) {
		emitMu.Lock()
		defer emitMu.Unlock()
		if update, ok := session.Transfer(sent, total); ok {
			emit(update)
		}
	})
	if err != nil {
		session.Fail(&stream.TransportError{Err: err})
		return s.finish(ctx, upload, session)
	}
	defer body.Close()

	_, _ = session.Run(ctx, body, func(update stream.Update) {
		emitMu.Lock()
		defer emitMu.Unlock()
		emit(update)
	})

	return s.finish(ctx, upload, session)
}

// finish stores the settled outcome. It runs detached from ctx so a client that went
// away still leaves an accurate record behind.
func (s *UploadService) finish(
	ctx context.Context,
	upload *models.Upload,
	session *stream.Session,
) (*models.Upload, error) {
	log := s.log.TraceFromContext(ctx).Function("finish")
	ctx = context.WithoutCancel(ctx)

	result, outcome := session.Outcome()
	now := time.Now()
	upload.CompletedAt = &now
	upload.Progress = session.Tracker().Snapshot().Percent

	messageType := events.UPLOAD_COMPLETE
	if outcome != nil {
		upload.Status = types.UploadFailed
		upload.Error = outcome.Error()
		messageType = events.UPLOAD_ERROR
	} else {
		upload.Status = types.UploadComplete
		if err := upload.SetResult(*result); err != nil {
			return upload, log.Err("failed to encode upload result", err, "uploadID", upload.ID)
		}
	}

	if err := s.repo.Finish(ctx, s.db.SQL, upload); err != nil {
		return upload, log.Err("failed to store upload outcome", err, "uploadID", upload.ID)
	}

	publish(s.publisher, s.log, messageType, upload.ID.String(), upload)

	if outcome != nil {
		return upload, outcome
	}
	log.Info("Upload complete", "uploadID", upload.ID, "remoteID", upload.RemoteID)
	return upload, nil
}

func (s *UploadService) List(ctx context.Context) ([]*models.Upload, error) {
	return s.repo.List(ctx, s.db.SQL, uploadListLimit)
}

func (s *UploadService) Get(ctx context.Context, id string) (*models.Upload, error) {
	uploadID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidUploadID
	}
	return s.repo.GetByID(ctx, s.db.SQL, uploadID)
}

// Delete forgets an upload. When the upload produced an indexed item that item is
// removed from the platform first; an item already gone is not an error.
func (s *UploadService) Delete(ctx context.Context, id string) error {
	log := s.log.TraceFromContext(ctx).Function("Delete")

	upload, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if upload.RemoteID != "" {
		if _, err := s.remote.Delete(ctx, upload.RemoteID); err != nil && !errors.Is(err, clients.ErrNotFound) {
			return log.Err("failed to delete indexed item", err, "uploadID", upload.ID, "remoteID", upload.RemoteID)
		}
	}

	return s.repo.Delete(ctx, s.db.SQL, upload.ID)
}

// SweepStale fails uploads that have made no progress since olderThan. Their streams
// died with a previous process.
func (s *UploadService) SweepStale(ctx context.Context, olderThan time.Time) (int, error) {
	log := s.log.TraceFromContext(ctx).Function("SweepStale")

	stale, err := s.repo.ListStale(ctx, s.db.SQL, olderThan)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(stale))
	for _, upload := range stale {
		ids = append(ids, upload.ID)
	}

	count, err := s.repo.MarkFailed(ctx, s.db.SQL, ids, "upload abandoned before completion")
	if err != nil {
		return 0, err
	}

	for _, upload := range stale {
		publish(s.publisher, s.log, events.UPLOAD_ERROR, upload.ID.String(), map[string]any{
			"uploadId": upload.ID.String(),
			"filename": upload.Filename,
			"error":    "upload abandoned before completion",
		})
	}

	log.Info("Swept stale uploads", "count", count)
	return count, nil
}
