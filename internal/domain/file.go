package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type File struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	FolderID   uuid.UUID  `json:"folder_id" db:"folder_id"`
	AccessType AccessType `json:"access_type" db:"access_type"`
	Order      int        `json:"order" db:"ord"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`

	// DownloadURL — временная подписанная ссылка на скачивание.
	// Заполняется сервисами, в базе не хранится.
	DownloadURL string `json:"download_url,omitempty" db:"-"`
}

// ObjectKey возвращает ключ объекта в хранилище: <id>.<расширение из имени>.
// Для имён без расширения ключом служит сам идентификатор.
func (f *File) ObjectKey() string {
	if i := strings.LastIndex(f.Name, "."); i >= 0 && i < len(f.Name)-1 {
		return f.ID.String() + "." + f.Name[i+1:]
	}
	return f.ID.String()
}

// FilePatch описывает частичное обновление файла. Nil-поле означает "не менять".
type FilePatch struct {
	Name       *string     `json:"name,omitempty"`
	FolderID   *uuid.UUID  `json:"folder_id,omitempty"`
	AccessType *AccessType `json:"access_type,omitempty"`
}
