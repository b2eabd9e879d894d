package services

import (
	"context"
	"errors"
	"io"
	"praid/internal/database"
	"praid/internal/events"
	"praid/internal/logger"
	"praid/internal/models"
	"praid/internal/repositories"
	"praid/internal/stream"
	"praid/internal/types"
	"praid/internal/utils"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidSessionID = errors.New("invalid chat session id")

const (
	sessionTitleLength = 60
	chatSessionLimit   = 100
)

type Assistant interface {
	Chat(ctx context.Context, request types.ChatRequest) (io.ReadCloser, error)
}

type ChatService struct {
	assistant   Assistant
	contexts    SearchContextStore
	repo        repositories.ChatRepository
	db          database.DB
	transaction *TransactionService
	render      *RenderService
	publisher   events.Publisher
	log         logger.Logger
}

func NewChatService(
	assistant Assistant,
	contexts SearchContextStore,
	repo repositories.ChatRepository,
	db database.DB,
	transaction *TransactionService,
	render *RenderService,
	publisher events.Publisher,
) *ChatService {
	return &ChatService{
		assistant:   assistant,
		contexts:    contexts,
		repo:        repo,
		db:          db,
		transaction: transaction,
		render:      render,
		publisher:   publisher,
		log:         logger.New("chatService"),
	}
}

// Ask sends the question with the session's history, and the current search context
// when asked to, streaming answer fragments to onChunk. Both turns are stored once the
// answer is complete; a failed answer stores nothing.
func (s *ChatService) Ask(
	ctx context.Context,
	request types.AskRequest,
	onChunk func(string),
) (*types.ChatAnswer, error) {
	log := s.log.TraceFromContext(ctx).Function("Ask")

	query := strings.TrimSpace(request.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var session *models.ChatSession
	if request.SessionID != "" {
		sessionID, err := uuid.Parse(request.SessionID)
		if err != nil {
			return nil, ErrInvalidSessionID
		}
		if session, err = s.repo.GetSession(ctx, s.db.SQL, sessionID); err != nil {
			return nil, err
		}
	}

	chatRequest := types.ChatRequest{Query: query}
	if session != nil {
		for _, message := range session.Messages {
			chatRequest.ChatHistory = append(chatRequest.ChatHistory, message.Turn())
		}
	}

	var sourceIDs []string
	if request.UseContext {
		searchContext, err := s.contexts.Latest(ctx)
		if err != nil {
			return nil, log.Err("failed to read search context", err)
		}
		chatRequest.Sources = searchContext.Sources()
		if searchContext != nil {
			for _, result := range searchContext.Results {
				sourceIDs = append(sourceIDs, result.ID)
			}
		}
	}

	body, err := s.assistant.Chat(ctx, chatRequest)
	if err != nil {
		return nil, log.Err("failed to start chat", err)
	}
	defer body.Close()

	subject := request.SessionID
	content, err := stream.CollectChat(ctx, body, func(fragment string) {
		if onChunk != nil {
			onChunk(fragment)
		}
		publish(s.publisher, s.log, events.CHAT_CHUNK, subject, map[string]any{"content": fragment})
	})
	if err != nil {
		return nil, err
	}

	if cleaned, changed := utils.CleanUTF8(content); changed {
		log.Warn("Assistant answer contained invalid UTF8", "length", len(content))
		content = cleaned
	}

	html, err := s.render.Markdown(content)
	if err != nil {
		return nil, err
	}

	userMessage := &models.ChatMessage{Role: types.ChatRoleUser, Content: query}
	assistantMessage := &models.ChatMessage{Role: types.ChatRoleAssistant, Content: content, HTML: html}
	if err := assistantMessage.SetSources(sourceIDs); err != nil {
		return nil, log.Err("failed to encode sources", err)
	}

	err = s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if session == nil {
			session = &models.ChatSession{Title: utils.Excerpt(query, sessionTitleLength)}
			if err := s.repo.CreateSession(ctx, tx, session); err != nil {
				return err
			}
		}
		return s.repo.AddMessages(ctx, tx, session.ID, []*models.ChatMessage{userMessage, assistantMessage})
	})
	if err != nil {
		return nil, log.Err("failed to store chat turns", err)
	}

	answer := &types.ChatAnswer{
		SessionID: session.ID.String(),
		MessageID: assistantMessage.ID.String(),
		Content:   content,
		HTML:      html,
		Sources:   sourceIDs,
	}
	publish(s.publisher, s.log, events.CHAT_COMPLETE, answer.SessionID, answer)

	log.Info("Chat answered", "sessionID", answer.SessionID, "length", len(content), "sources", len(sourceIDs))
	return answer, nil
}

func (s *ChatService) Sessions(ctx context.Context) ([]*models.ChatSession, error) {
	return s.repo.ListSessions(ctx, s.db.SQL, chatSessionLimit)
}

func (s *ChatService) Session(ctx context.Context, id string) (*models.ChatSession, error) {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidSessionID
	}
	return s.repo.GetSession(ctx, s.db.SQL, sessionID)
}

func (s *ChatService) DeleteSession(ctx context.Context, id string) error {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return ErrInvalidSessionID
	}
	return s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return s.repo.DeleteSession(ctx, tx, sessionID)
	})
}
