package domain

import (
	"time"

	"github.com/google/uuid"
)

type SharingAccessType string

const (
	SharingRead  SharingAccessType = "read"
	SharingWrite SharingAccessType = "write"
)

// Valid проверяет, что значение является одним из поддерживаемых типов гранта.
func (a SharingAccessType) Valid() bool {
	return a == SharingRead || a == SharingWrite
}

// Sharing — грант видимости поддерева от владельца другому пользователю.
// Уникален по тройке (shared_by, shared_with, folder_id): повторная выдача
// обновляет существующую запись.
type Sharing struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	SharedBy   string            `json:"shared_by" db:"shared_by"`
	SharedWith string            `json:"shared_with" db:"shared_with"`
	FolderID   uuid.UUID         `json:"folder_id" db:"folder_id"`
	AccessType SharingAccessType `json:"access_type" db:"access_type"`
	TimeLimit  time.Time         `json:"time_limit" db:"time_limit"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// Expired сообщает, истёк ли срок действия гранта к моменту now.
func (s *Sharing) Expired(now time.Time) bool {
	return !s.TimeLimit.IsZero() && s.TimeLimit.Before(now)
}
