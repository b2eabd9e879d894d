package models

import (
	"encoding/json"
	"praid/internal/stream"
	"praid/internal/types"
	"time"

	"gorm.io/datatypes"
)

// Upload is the console's record of one file sent to the ingestor.
type Upload struct {
	BaseUUIDModel
	Kind        types.UploadKind   `gorm:"type:varchar(16);not null;index" json:"kind"`
	Filename    string             `gorm:"type:text;not null"              json:"filename"`
	ContentType string             `gorm:"type:varchar(255)"               json:"contentType"`
	Size        int64              `gorm:"not null;default:0"              json:"size"`
	Status      types.UploadStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Progress    float64            `gorm:"not null;default:0"              json:"progress"`
	RemoteID    string             `gorm:"type:text;index"                 json:"remoteId,omitempty"`
	Result      datatypes.JSON     `gorm:"type:jsonb"                      json:"result,omitempty"`
	Error       string             `gorm:"type:text"                       json:"error,omitempty"`
	CompletedAt *time.Time         `                                       json:"completedAt,omitempty"`
}

// SetResult stores the ingestion result and the id it produced.
func (u *Upload) SetResult(result stream.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	u.Result = datatypes.JSON(data)
	u.RemoteID = result.ID()
	return nil
}

// ParsedResult decodes the stored result. It is nil when there is none.
func (u *Upload) ParsedResult() (*stream.Result, error) {
	if len(u.Result) == 0 {
		return nil, nil
	}
	var result stream.Result
	if err := json.Unmarshal(u.Result, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
