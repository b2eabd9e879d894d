package models

import (
	"encoding/json"
	"praid/internal/types"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatSession struct {
	BaseUUIDModel
	Title    string        `gorm:"type:text;not null"    json:"title"`
	Messages []ChatMessage `gorm:"foreignKey:SessionID"  json:"messages,omitempty"`
}

type ChatMessage struct {
	BaseUUIDModel
	SessionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"sessionId"`
	Role      types.ChatRole `gorm:"type:varchar(16);not null" json:"role"`
	Content   string         `gorm:"type:text;not null"        json:"content"`
	HTML      string         `gorm:"type:text"                 json:"html,omitempty"`
	Sources   datatypes.JSON `gorm:"type:jsonb"                json:"sources,omitempty"`
}

func (m *ChatMessage) SetSources(sources []string) error {
	if len(sources) == 0 {
		m.Sources = nil
		return nil
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	m.Sources = datatypes.JSON(data)
	return nil
}

func (m *ChatMessage) SourceList() []string {
	if len(m.Sources) == 0 {
		return nil
	}
	var sources []string
	if err := json.Unmarshal(m.Sources, &sources); err != nil {
		return nil
	}
	return sources
}

func (m ChatMessage) Turn() types.ChatTurn {
	return types.ChatTurn{Role: m.Role, Content: m.Content}
}
