package repositories

import (
	"context"
	"errors"
	"praid/internal/logger"
	. "praid/internal/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrChatSessionNotFound = errors.New("chat session not found")

type ChatRepository interface {
	CreateSession(ctx context.Context, tx *gorm.DB, session *ChatSession) error
	GetSession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*ChatSession, error)
	ListSessions(ctx context.Context, tx *gorm.DB, limit int) ([]*ChatSession, error)
	History(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*ChatMessage, error)
	AddMessages(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, messages []*ChatMessage) error
	DeleteSession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error
}

type chatRepository struct {
	log logger.Logger
}

func NewChatRepository() ChatRepository {
	return &chatRepository{
		log: logger.New("chatRepository"),
	}
}

func (r *chatRepository) CreateSession(
	ctx context.Context,
	tx *gorm.DB,
	session *ChatSession,
) error {
	log := r.log.Function("CreateSession")

	if err := gorm.G[ChatSession](tx).Create(ctx, session); err != nil {
		return log.Err("failed to create chat session", err, "title", session.Title)
	}

	return nil
}

func (r *chatRepository) GetSession(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
) (*ChatSession, error) {
	log := r.log.Function("GetSession")

	session, err := gorm.G[*ChatSession](tx).
		Preload("Messages", func(db gorm.PreloadBuilder) error {
			db.Order("created_at ASC")
			return nil
		}).
		Where("id = ?", sessionID).
		First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatSessionNotFound
		}
		return nil, log.Err("failed to get chat session", err, "sessionID", sessionID)
	}

	return session, nil
}

func (r *chatRepository) ListSessions(
	ctx context.Context,
	tx *gorm.DB,
	limit int,
) ([]*ChatSession, error) {
	log := r.log.Function("ListSessions")

	query := gorm.G[*ChatSession](tx).Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	sessions, err := query.Find(ctx)
	if err != nil {
		return nil, log.Err("failed to list chat sessions", err, "limit", limit)
	}

	return sessions, nil
}

// History returns the messages of a session oldest first.
func (r *chatRepository) History(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
) ([]*ChatMessage, error) {
	log := r.log.Function("History")

	messages, err := gorm.G[*ChatMessage](tx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to load chat history", err, "sessionID", sessionID)
	}

	return messages, nil
}

// AddMessages appends messages to a session and bumps its updated_at.
func (r *chatRepository) AddMessages(
	ctx context.Context,
	tx *gorm.DB,
	sessionID uuid.UUID,
	messages []*ChatMessage,
) error {
	log := r.log.Function("AddMessages")

	if len(messages) == 0 {
		return nil
	}

	for _, message := range messages {
		message.SessionID = sessionID
	}

	if err := gorm.G[[]*ChatMessage](tx).Create(ctx, &messages); err != nil {
		return log.Err("failed to add chat messages", err, "sessionID", sessionID)
	}

	rows, err := gorm.G[ChatSession](tx).
		Where("id = ?", sessionID).
		Update(ctx, "updated_at", time.Now())
	if err != nil {
		return log.Err("failed to touch chat session", err, "sessionID", sessionID)
	}
	if rows == 0 {
		return ErrChatSessionNotFound
	}

	return nil
}

func (r *chatRepository) DeleteSession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error {
	log := r.log.Function("DeleteSession")

	if _, err := gorm.G[ChatMessage](tx).Where("session_id = ?", sessionID).Delete(ctx); err != nil {
		return log.Err("failed to delete chat messages", err, "sessionID", sessionID)
	}

	rows, err := gorm.G[ChatSession](tx).Where("id = ?", sessionID).Delete(ctx)
	if err != nil {
		return log.Err("failed to delete chat session", err, "sessionID", sessionID)
	}
	if rows == 0 {
		return ErrChatSessionNotFound
	}

	return nil
}
