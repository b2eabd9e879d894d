package services

import (
	"context"
	"errors"
	"praid/internal/clients"
	"praid/internal/database"
	"praid/internal/events"
	"praid/internal/stream"
	"praid/internal/types"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const imageStream = "data: {\"type\": \"progress\", \"percent\": 50, \"status\": \"Generating caption...\"}\n\n" +
	"data: {\"type\": \"complete\", \"image_id\": \"img-1\", \"caption\": \"a cat\"}\n\n"

func newTestUploadService(ingestor Ingestor, remote RemoteDeleter) (*UploadService, *fakeUploadRepository, *recordingPublisher) {
	repo := newFakeUploadRepository()
	publisher := &recordingPublisher{}
	return NewUploadService(ingestor, remote, repo, database.DB{}, publisher), repo, publisher
}

func TestUploadService_Upload_Success(t *testing.T) {
	ingestor := &fakeIngestor{
		body:      imageStream,
		transfers: [][2]int64{{50, 100}, {100, 100}},
	}
	service, repo, publisher := newTestUploadService(ingestor, &fakeSearchEngine{})

	var updates []UploadProgress
	upload, err := service.Upload(
		context.Background(),
		types.UploadKindImage,
		types.UploadFile{Name: "cat.jpg", ContentType: "image/jpeg", Size: 4},
		strings.NewReader("meow"),
		func(update UploadProgress) { updates = append(updates, update) },
	)

	require.NoError(t, err)
	assert.Equal(t, "meow", ingestor.received)
	assert.Equal(t, types.UploadKindImage, ingestor.gotKind)

	var percents []float64
	for _, update := range updates {
		assert.Equal(t, upload.ID.String(), update.UploadID)
		assert.Equal(t, "cat.jpg", update.Filename)
		percents = append(percents, update.Percent)
	}
	assert.Equal(t, []float64{10, 20, 60, 100}, percents)

	assert.Equal(t, types.UploadComplete, upload.Status)
	assert.Equal(t, "img-1", upload.RemoteID)
	assert.Equal(t, 100.0, upload.Progress)
	assert.NotNil(t, upload.CompletedAt)

	result, err := upload.ParsedResult()
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "a cat", result.Caption)

	require.Len(t, repo.finished, 1)
	assert.Equal(t, []float64{10, 20, 60, 100}, repo.progress)

	sent := publisher.sent()
	require.NotEmpty(t, sent)
	assert.Equal(t, events.UPLOAD_COMPLETE, sent[len(sent)-1])
	assert.Len(t, sent, len(updates)+1)
}

func TestUploadService_Upload_ApplicationError(t *testing.T) {
	ingestor := &fakeIngestor{
		body: "data: {\"type\": \"progress\", \"percent\": 10}\n\n" +
			"data: {\"type\": \"error\", \"detail\": \"OCR service unavailable\"}\n\n",
	}
	service, repo, publisher := newTestUploadService(ingestor, &fakeSearchEngine{})

	upload, err := service.Upload(
		context.Background(),
		types.UploadKindPDF,
		types.UploadFile{Name: "report.pdf", ContentType: "application/pdf"},
		strings.NewReader("%PDF"),
		nil,
	)

	var appErr *stream.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "OCR service unavailable", appErr.Detail)

	require.NotNil(t, upload)
	assert.Equal(t, types.UploadFailed, upload.Status)
	assert.Equal(t, "OCR service unavailable", upload.Error)
	assert.Empty(t, upload.RemoteID)
	require.Len(t, repo.finished, 1)

	sent := publisher.sent()
	assert.Equal(t, events.UPLOAD_ERROR, sent[len(sent)-1])
}

func TestUploadService_Upload_PDFProgressStaysInRange(t *testing.T) {
	ingestor := &fakeIngestor{
		body: "data: {\"type\": \"progress\", \"percent\": 150}\n\n" +
			"data: {\"type\": \"error\", \"detail\": \"embedding failed\"}\n\n",
	}
	service, repo, _ := newTestUploadService(ingestor, &fakeSearchEngine{})

	var percents []float64
	upload, err := service.Upload(
		context.Background(),
		types.UploadKindPDF,
		types.UploadFile{Name: "report.pdf", ContentType: "application/pdf"},
		strings.NewReader("%PDF"),
		func(update UploadProgress) { percents = append(percents, update.Percent) },
	)

	require.Error(t, err)
	require.NotEmpty(t, percents)
	for _, p := range percents {
		assert.Equal(t, 100.0, p)
	}
	require.NotNil(t, upload)
	assert.Equal(t, 100.0, upload.Progress)
	require.Len(t, repo.finished, 1)
	assert.Equal(t, types.UploadFailed, repo.finished[0].Status)
}

func TestUploadService_Upload_StoreFailureIsReported(t *testing.T) {
	ingestor := &fakeIngestor{body: imageStream}
	service, repo, publisher := newTestUploadService(ingestor, &fakeSearchEngine{})
	repo.finishErr = errors.New("check constraint violated")

	upload, err := service.Upload(
		context.Background(),
		types.UploadKindImage,
		types.UploadFile{Name: "cat.jpg", ContentType: "image/jpeg", Size: 4},
		strings.NewReader("meow"),
		nil,
	)

	require.Error(t, err)
	assert.ErrorContains(t, err, "check constraint violated")
	require.NotNil(t, upload)
	assert.Empty(t, repo.finished)
	assert.NotContains(t, publisher.sent(), events.UPLOAD_COMPLETE)
}

func TestUploadService_Upload_MissingTerminal(t *testing.T) {
	ingestor := &fakeIngestor{body: "data: {\"type\": \"progress\", \"percent\": 40}\n\n"}
	service, _, _ := newTestUploadService(ingestor, &fakeSearchEngine{})

	upload, err := service.Upload(
		context.Background(),
		types.UploadKindPDF,
		types.UploadFile{Name: "report.pdf"},
		strings.NewReader("%PDF"),
		nil,
	)

	assert.ErrorIs(t, err, stream.ErrNoTerminalEvent)
	assert.Equal(t, types.UploadFailed, upload.Status)
	assert.Equal(t, 40.0, upload.Progress)
}

func TestUploadService_Upload_TransportError(t *testing.T) {
	ingestor := &fakeIngestor{err: &clients.HTTPError{Service: "fileingestor", StatusCode: 502}}
	service, repo, _ := newTestUploadService(ingestor, &fakeSearchEngine{})

	upload, err := service.Upload(
		context.Background(),
		types.UploadKindImage,
		types.UploadFile{Name: "cat.png", ContentType: "image/png"},
		strings.NewReader("png"),
		nil,
	)

	var transportErr *stream.TransportError
	require.ErrorAs(t, err, &transportErr)
	var httpErr *clients.HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Equal(t, types.UploadFailed, upload.Status)
	require.Len(t, repo.finished, 1)
}

func TestUploadService_Upload_RejectsInvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		kind    types.UploadKind
		file    types.UploadFile
		wantErr error
	}{
		{"image with pdf type", types.UploadKindImage, types.UploadFile{Name: "a.pdf", ContentType: "application/pdf"}, types.ErrNotAnImage},
		{"pdf with text type", types.UploadKindPDF, types.UploadFile{Name: "a.txt", ContentType: "text/plain"}, types.ErrNotAPDF},
		{"unknown kind", types.UploadKind("audio"), types.UploadFile{Name: "a.mp3"}, types.ErrInvalidKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingestor := &fakeIngestor{}
			service, repo, _ := newTestUploadService(ingestor, &fakeSearchEngine{})

			upload, err := service.Upload(context.Background(), tt.kind, tt.file, strings.NewReader(""), nil)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, upload)
			assert.Empty(t, repo.uploads)
			assert.Empty(t, ingestor.gotKind)
		})
	}
}

func TestUploadService_Get_InvalidID(t *testing.T) {
	service, _, _ := newTestUploadService(&fakeIngestor{}, &fakeSearchEngine{})

	_, err := service.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidUploadID)
}

func TestUploadService_Delete_RemovesRemoteItem(t *testing.T) {
	engine := &fakeSearchEngine{}
	service, repo, _ := newTestUploadService(&fakeIngestor{body: imageStream}, engine)

	upload, err := service.Upload(
		context.Background(),
		types.UploadKindImage,
		types.UploadFile{Name: "cat.jpg", ContentType: "image/jpeg"},
		strings.NewReader("meow"),
		nil,
	)
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), upload.ID.String()))
	assert.Equal(t, []string{"img-1"}, engine.deleted)
	assert.Empty(t, repo.uploads)
}

func TestUploadService_Delete_RemoteAlreadyGone(t *testing.T) {
	engine := &fakeSearchEngine{deleteErr: &clients.HTTPError{Service: "searchengine", StatusCode: 404}}
	service, repo, _ := newTestUploadService(&fakeIngestor{body: imageStream}, engine)

	upload, err := service.Upload(
		context.Background(),
		types.UploadKindImage,
		types.UploadFile{Name: "cat.jpg", ContentType: "image/jpeg"},
		strings.NewReader("meow"),
		nil,
	)
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), upload.ID.String()))
	assert.Empty(t, repo.uploads)
}

func TestUploadService_Delete_RemoteFailureKeepsRecord(t *testing.T) {
	engine := &fakeSearchEngine{deleteErr: errors.New("connection refused")}
	service, repo, _ := newTestUploadService(&fakeIngestor{body: imageStream}, engine)

	upload, err := service.Upload(
		context.Background(),
		types.UploadKindImage,
		types.UploadFile{Name: "cat.jpg", ContentType: "image/jpeg"},
		strings.NewReader("meow"),
		nil,
	)
	require.NoError(t, err)

	assert.Error(t, service.Delete(context.Background(), upload.ID.String()))
	assert.Len(t, repo.uploads, 1)
}

func TestUploadService_SweepStale(t *testing.T) {
	service, repo, publisher := newTestUploadService(&fakeIngestor{}, &fakeSearchEngine{})

	stale := types.UploadFile{Name: "stuck.jpg", ContentType: "image/jpeg"}
	_, err := service.Upload(context.Background(), types.UploadKindImage, stale, strings.NewReader(""), nil)
	require.Error(t, err)

	for _, upload := range repo.uploads {
		upload.Status = types.UploadInProgress
		upload.UpdatedAt = time.Now().Add(-2 * time.Hour)
	}

	count, err := service.SweepStale(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, repo.failed, 1)

	sent := publisher.sent()
	assert.Equal(t, events.UPLOAD_ERROR, sent[len(sent)-1])

	count, err = service.SweepStale(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}
