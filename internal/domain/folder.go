package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccessType string

const (
	AccessPrivate AccessType = "private"
	AccessPublic  AccessType = "public"
)

// Valid проверяет, что значение является одним из поддерживаемых типов доступа.
func (a AccessType) Valid() bool {
	return a == AccessPrivate || a == AccessPublic
}

type Folder struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	OwnerID    string     `json:"owner_id" db:"owner_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	AccessType AccessType `json:"access_type" db:"access_type"`
	Order      int        `json:"order" db:"ord"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// FolderNode — узел собранного дерева. Children и Files не хранятся в базе,
// а выводятся из плоской выборки при сборке.
type FolderNode struct {
	Folder
	Children []*FolderNode `json:"children"`
	Files    []File        `json:"files"`
}

// FolderPatch описывает частичное обновление папки. Nil-поле означает
// "не менять".
type FolderPatch struct {
	Name       *string     `json:"name,omitempty"`
	AccessType *AccessType `json:"access_type,omitempty"`
	ParentID   *uuid.UUID  `json:"parent_id,omitempty"`
}
