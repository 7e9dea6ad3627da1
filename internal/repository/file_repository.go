package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"nimbusdrive/internal/domain"
)

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create вставляет файл, назначая ему порядковый номер max(соседи)+1
// в пределах папки.
func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
        INSERT INTO files (id, name, folder_id, access_type, ord)
        VALUES (
            $1, $2, $3, $4,
            (SELECT COALESCE(MAX(ord), 0) + 1 FROM files WHERE folder_id = $3)
        )
        RETURNING ord, created_at, updated_at`

	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	if file.AccessType == "" {
		file.AccessType = domain.AccessPrivate
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.ID,
		file.Name,
		file.FolderID,
		file.AccessType,
	).Scan(&file.Order, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// GetByIDForOwner возвращает файл только если его папка принадлежит ownerID.
// Чужой и отсутствующий файл неразличимы для вызывающего.
func (r *FileRepository) GetByIDForOwner(ctx context.Context, id uuid.UUID, ownerID string) (*domain.File, error) {
	query := `
        SELECT fi.id, fi.name, fi.folder_id, fi.access_type, fi.ord, fi.created_at, fi.updated_at
        FROM files fi
        INNER JOIN folders fo ON fo.id = fi.folder_id
        WHERE fi.id = $1 AND fo.owner_id = $2`

	var file domain.File
	if err := r.db.GetContext(ctx, &file, query, id, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) ListByFolder(ctx context.Context, folderID uuid.UUID) ([]domain.File, error) {
	query := `
        SELECT id, name, folder_id, access_type, ord, created_at, updated_at
        FROM files
        WHERE folder_id = $1
        ORDER BY ord`

	var files []domain.File
	if err := r.db.SelectContext(ctx, &files, query, folderID); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

func (r *FileRepository) Update(ctx context.Context, file *domain.File) error {
	// При переносе в другую папку файл встаёт в конец её списка.
	query := `
        UPDATE files
        SET name = $1,
            folder_id = $2,
            access_type = $3,
            ord = CASE WHEN folder_id = $2 THEN ord
                       ELSE (SELECT COALESCE(MAX(f.ord), 0) + 1 FROM files f WHERE f.folder_id = $2) END,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $4
        RETURNING ord, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.Name,
		file.FolderID,
		file.AccessType,
		file.ID,
	).Scan(&file.Order, &file.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: file %s", domain.ErrNotFound, file.ID)
		}
		return fmt.Errorf("failed to update file: %w", err)
	}

	return nil
}

// FindSiblingByOrder ищет файл, занимающий позицию ord в той же папке.
// Возвращает nil без ошибки, если позиция свободна.
func (r *FileRepository) FindSiblingByOrder(ctx context.Context, folderID uuid.UUID, ord int) (*domain.File, error) {
	query := `
        SELECT id, name, folder_id, access_type, ord, created_at, updated_at
        FROM files
        WHERE folder_id = $1 AND ord = $2
        LIMIT 1`

	var file domain.File
	if err := r.db.GetContext(ctx, &file, query, folderID, ord); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sibling by order: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) UpdateOrder(ctx context.Context, id uuid.UUID, ord int) error {
	query := `
        UPDATE files
        SET ord = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, ord, id)
	if err != nil {
		return fmt.Errorf("failed to update file order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: file %s", domain.ErrNotFound, id)
	}

	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: file %s", domain.ErrNotFound, id)
	}

	return nil
}
