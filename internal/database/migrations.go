package database

import (
	"praid/internal/logger"
	"praid/internal/models"
)

// HistoryModels are the console's tables, parents before children.
func HistoryModels() []any {
	return []any{
		&models.Upload{},
		&models.ChatSession{},
		&models.ChatMessage{},
	}
}

// MigrateModels runs GORM AutoMigrate for the console's history tables.
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	for _, model := range HistoryModels() {
		if err := db.SQL.AutoMigrate(model); err != nil {
			return log.Err("Failed to migrate model", err, "model", model)
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes creates the composite indexes AutoMigrate cannot express.
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_uploads_status_updated ON uploads(status, updated_at)",
		"CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_chat_messages_session_created ON chat_messages(session_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated_at ON chat_sessions(updated_at DESC)",
	}

	for _, indexSQL := range indexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
