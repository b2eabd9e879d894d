package repositories

import (
	"context"
	"errors"
	"praid/internal/logger"
	. "praid/internal/models"
	"praid/internal/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUploadNotFound = errors.New("upload not found")

type UploadRepository interface {
	Create(ctx context.Context, tx *gorm.DB, upload *Upload) error
	GetByID(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) (*Upload, error)
	List(ctx context.Context, tx *gorm.DB, limit int) ([]*Upload, error)
	UpdateProgress(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID, progress float64) error
	Finish(ctx context.Context, tx *gorm.DB, upload *Upload) error
	Delete(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) error
	ListStale(ctx context.Context, tx *gorm.DB, olderThan time.Time) ([]*Upload, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, uploadIDs []uuid.UUID, reason string) (int, error)
}

type uploadRepository struct {
	log logger.Logger
}

func NewUploadRepository() UploadRepository {
	return &uploadRepository{
		log: logger.New("uploadRepository"),
	}
}

func (r *uploadRepository) Create(ctx context.Context, tx *gorm.DB, upload *Upload) error {
	log := r.log.Function("Create")

	if err := gorm.G[Upload](tx).Create(ctx, upload); err != nil {
		return log.Err("failed to create upload", err, "filename", upload.Filename)
	}

	return nil
}

func (r *uploadRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	uploadID uuid.UUID,
) (*Upload, error) {
	log := r.log.Function("GetByID")

	upload, err := gorm.G[*Upload](tx).Where("id = ?", uploadID).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, log.Err("failed to get upload", err, "uploadID", uploadID)
	}

	return upload, nil
}

func (r *uploadRepository) List(ctx context.Context, tx *gorm.DB, limit int) ([]*Upload, error) {
	log := r.log.Function("List")

	query := gorm.G[*Upload](tx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	uploads, err := query.Find(ctx)
	if err != nil {
		return nil, log.Err("failed to list uploads", err, "limit", limit)
	}

	return uploads, nil
}

func (r *uploadRepository) UpdateProgress(
	ctx context.Context,
	tx *gorm.DB,
	uploadID uuid.UUID,
	progress float64,
) error {
	log := r.log.Function("UpdateProgress")

	if _, err := gorm.G[Upload](tx).
		Where("id = ?", uploadID).
		Update(ctx, "progress", progress); err != nil {
		return log.Err("failed to update upload progress", err, "uploadID", uploadID)
	}

	return nil
}

// Finish writes the terminal state of an upload.
func (r *uploadRepository) Finish(ctx context.Context, tx *gorm.DB, upload *Upload) error {
	log := r.log.Function("Finish")

	rows, err := gorm.G[Upload](tx).
		Where("id = ?", upload.ID).
		Select("status", "progress", "remote_id", "result", "error", "completed_at").
		Updates(ctx, *upload)
	if err != nil {
		return log.Err("failed to finish upload", err, "uploadID", upload.ID)
	}
	if rows == 0 {
		return ErrUploadNotFound
	}

	return nil
}

func (r *uploadRepository) Delete(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) error {
	log := r.log.Function("Delete")

	rows, err := gorm.G[Upload](tx).Where("id = ?", uploadID).Delete(ctx)
	if err != nil {
		return log.Err("failed to delete upload", err, "uploadID", uploadID)
	}
	if rows == 0 {
		return ErrUploadNotFound
	}

	return nil
}

// ListStale returns uploads still in progress that have not moved since olderThan.
func (r *uploadRepository) ListStale(
	ctx context.Context,
	tx *gorm.DB,
	olderThan time.Time,
) ([]*Upload, error) {
	log := r.log.Function("ListStale")

	uploads, err := gorm.G[*Upload](tx).
		Where("status = ? AND updated_at < ?", types.UploadInProgress, olderThan).
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to list stale uploads", err, "olderThan", olderThan)
	}

	return uploads, nil
}

func (r *uploadRepository) MarkFailed(
	ctx context.Context,
	tx *gorm.DB,
	uploadIDs []uuid.UUID,
	reason string,
) (int, error) {
	log := r.log.Function("MarkFailed")

	if len(uploadIDs) == 0 {
		return 0, nil
	}

	now := time.Now()
	rows, err := gorm.G[Upload](tx).
		Where("id IN ?", uploadIDs).
		Select("status", "error", "completed_at").
		Updates(ctx, Upload{Status: types.UploadFailed, Error: reason, CompletedAt: &now})
	if err != nil {
		return 0, log.Err("failed to mark uploads failed", err, "count", len(uploadIDs))
	}

	return rows, nil
}
