package seed

import (
	"praid/internal/logger"
	"praid/internal/models"
	"praid/internal/types"
	"time"

	"gorm.io/gorm"
)

// Seed loads a small demo history: one finished upload of each kind, one failed
// upload and one chat session.
func Seed(db *gorm.DB, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	completed := time.Now().Add(-time.Hour)
	uploads := []models.Upload{
		{
			Kind:        types.UploadKindImage,
			Filename:    "wiring-diagram.jpg",
			ContentType: "image/jpeg",
			Size:        184_320,
			Status:      types.UploadComplete,
			Progress:    100,
			RemoteID:    "demo-image-1",
			CompletedAt: &completed,
		},
		{
			Kind:        types.UploadKindPDF,
			Filename:    "maintenance-manual.pdf",
			ContentType: "application/pdf",
			Size:        2_457_600,
			Status:      types.UploadComplete,
			Progress:    100,
			RemoteID:    "demo-document-1",
			CompletedAt: &completed,
		},
		{
			Kind:        types.UploadKindPDF,
			Filename:    "scanned-invoice.pdf",
			ContentType: "application/pdf",
			Size:        512_000,
			Status:      types.UploadFailed,
			Progress:    40,
			Error:       "ocr failed on page 2",
		},
	}

	for _, upload := range uploads {
		var existing models.Upload
		if err := db.First(&existing, "filename = ?", upload.Filename).Error; err == nil {
			log.Info("Upload already exists", "filename", upload.Filename)
			continue
		}
		log.Info("Seeding upload", "filename", upload.Filename)
		if err := db.Create(&upload).Error; err != nil {
			log.Er("failed to create upload", err, "filename", upload.Filename)
		}
	}

	session := models.ChatSession{
		Title: "How do I reset the pump controller?",
		Messages: []models.ChatMessage{
			{Role: types.ChatRoleUser, Content: "How do I reset the pump controller?"},
			{
				Role:    types.ChatRoleAssistant,
				Content: "Hold the **RESET** button for five seconds, then power cycle the unit.",
				HTML:    "<p>Hold the <strong>RESET</strong> button for five seconds, then power cycle the unit.</p>\n",
			},
		},
	}
	if err := session.Messages[1].SetSources([]string{"maintenance-manual.pdf"}); err != nil {
		return log.Err("failed to set message sources", err)
	}

	var existing models.ChatSession
	if err := db.First(&existing, "title = ?", session.Title).Error; err == nil {
		log.Info("Chat session already exists", "title", session.Title)
		return nil
	}
	if err := db.Create(&session).Error; err != nil {
		return log.Err("failed to create chat session", err)
	}

	return nil
}
