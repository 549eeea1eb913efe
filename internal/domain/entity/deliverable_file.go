package entity

import (
	"time"

	"github.com/google/uuid"
)

// DeliverableFile описывает загруженный продавцом файл результата.
type DeliverableFile struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	UploaderID uuid.UUID
	Path       string
	MIMEType   string
	Size       int64
	CreatedAt  time.Time
}
