package repositories

import (
	"praid/internal/database"
)

type Repository struct {
	Upload UploadRepository
	Chat   ChatRepository
}

func New(db database.DB) Repository {
	return Repository{
		Upload: NewUploadRepository(),
		Chat:   NewChatRepository(),
	}
}
