package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	sqlxtypes "github.com/jmoiron/sqlx/types"

	"nimbusdrive/internal/domain"
)

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

// TreeRow — строка плоской рекурсивной выборки поддерева: папка плюс
// агрегированный список её файлов. Порядок строк и файлов внутри строки
// базой не гарантируется, его устанавливает сборщик дерева.
type TreeRow struct {
	ID         uuid.UUID         `db:"id"`
	Name       string            `db:"name"`
	ParentID   *uuid.UUID        `db:"parent_id"`
	OwnerID    string            `db:"owner_id"`
	AccessType domain.AccessType `db:"access_type"`
	Ord        int               `db:"ord"`
	Files      []domain.File     `db:"-"`
}

type treeRowScan struct {
	ID         uuid.UUID          `db:"id"`
	Name       string             `db:"name"`
	ParentID   *uuid.UUID         `db:"parent_id"`
	OwnerID    string             `db:"owner_id"`
	AccessType domain.AccessType  `db:"access_type"`
	Ord        int                `db:"ord"`
	Files      sqlxtypes.JSONText `db:"files"`
}

const treeRowsQuery = `
        WITH RECURSIVE folder_tree AS (
            SELECT f.id, f.name, f.parent_id, f.owner_id, f.access_type, f.ord
            FROM folders f
            WHERE %s
            UNION ALL
            SELECT f.id, f.name, f.parent_id, f.owner_id, f.access_type, f.ord
            FROM folders f
            INNER JOIN folder_tree ft ON f.parent_id = ft.id
        )
        SELECT
            ft.id, ft.name, ft.parent_id, ft.owner_id, ft.access_type, ft.ord,
            COALESCE(json_agg(
                DISTINCT jsonb_build_object(
                    'id', fi.id,
                    'name', fi.name,
                    'folder_id', fi.folder_id,
                    'access_type', fi.access_type,
                    'order', fi.ord
                )
            ) FILTER (WHERE fi.id IS NOT NULL), '[]'::json) AS files
        FROM folder_tree ft
        LEFT JOIN files fi ON fi.folder_id = ft.id
        GROUP BY ft.id, ft.name, ft.parent_id, ft.owner_id, ft.access_type, ft.ord`

// GetTreeRows возвращает плоскую выборку всего леса пользователя:
// все его папки с привязанными файлами.
func (r *FolderRepository) GetTreeRows(ctx context.Context, ownerID string) ([]TreeRow, error) {
	query := fmt.Sprintf(treeRowsQuery, "f.owner_id = $1 AND f.parent_id IS NULL")
	return r.selectTreeRows(ctx, query, ownerID)
}

// GetSubtreeRows возвращает плоскую выборку одного поддерева. Отсутствующий
// или чужой корень даёт пустой результат, а не ошибку: перевод пустоты в
// NotFound — обязанность вызывающего.
func (r *FolderRepository) GetSubtreeRows(ctx context.Context, ownerID string, folderID uuid.UUID) ([]TreeRow, error) {
	query := fmt.Sprintf(treeRowsQuery, "f.id = $1 AND f.owner_id = $2")
	return r.selectTreeRows(ctx, query, folderID, ownerID)
}

func (r *FolderRepository) selectTreeRows(ctx context.Context, query string, args ...interface{}) ([]TreeRow, error) {
	var scanned []treeRowScan
	if err := r.db.SelectContext(ctx, &scanned, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select tree rows: %w", err)
	}

	rows := make([]TreeRow, 0, len(scanned))
	for _, s := range scanned {
		row := TreeRow{
			ID:         s.ID,
			Name:       s.Name,
			ParentID:   s.ParentID,
			OwnerID:    s.OwnerID,
			AccessType: s.AccessType,
			Ord:        s.Ord,
		}
		if err := json.Unmarshal(s.Files, &row.Files); err != nil {
			return nil, fmt.Errorf("failed to unmarshal files for folder %s: %w", s.ID, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Create вставляет папку, назначая ей порядковый номер max(соседи)+1.
func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	query := `
        INSERT INTO folders (id, name, owner_id, parent_id, access_type, ord)
        VALUES (
            $1, $2, $3, $4, $5,
            (SELECT COALESCE(MAX(ord), 0) + 1 FROM folders
             WHERE owner_id = $3 AND parent_id IS NOT DISTINCT FROM $4)
        )
        RETURNING ord, created_at, updated_at`

	if folder.ID == uuid.Nil {
		folder.ID = uuid.New()
	}
	if folder.AccessType == "" {
		folder.AccessType = domain.AccessPrivate
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		folder.ID,
		folder.Name,
		folder.OwnerID,
		folder.ParentID,
		folder.AccessType,
	).Scan(&folder.Order, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Folder, error) {
	query := `
        SELECT id, name, owner_id, parent_id, access_type, ord, created_at, updated_at
        FROM folders
        WHERE id = $1`

	var folder domain.Folder
	if err := r.db.GetContext(ctx, &folder, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: folder %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return &folder, nil
}

// GetRootFolder возвращает корневую папку пользователя (единственную без родителя).
func (r *FolderRepository) GetRootFolder(ctx context.Context, ownerID string) (*domain.Folder, error) {
	query := `
        SELECT id, name, owner_id, parent_id, access_type, ord, created_at, updated_at
        FROM folders
        WHERE owner_id = $1 AND parent_id IS NULL
        LIMIT 1`

	var folder domain.Folder
	if err := r.db.GetContext(ctx, &folder, query, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: root folder for user %s", domain.ErrNotFound, ownerID)
		}
		return nil, fmt.Errorf("failed to get root folder: %w", err)
	}

	return &folder, nil
}

func (r *FolderRepository) GetChildren(ctx context.Context, parentID uuid.UUID) ([]domain.Folder, error) {
	query := `
        SELECT id, name, owner_id, parent_id, access_type, ord, created_at, updated_at
        FROM folders
        WHERE parent_id = $1
        ORDER BY ord`

	var folders []domain.Folder
	if err := r.db.SelectContext(ctx, &folders, query, parentID); err != nil {
		return nil, fmt.Errorf("failed to get child folders: %w", err)
	}

	return folders, nil
}

func (r *FolderRepository) Update(ctx context.Context, folder *domain.Folder) error {
	query := `
        UPDATE folders
        SET name = $1, access_type = $2, parent_id = $3, updated_at = CURRENT_TIMESTAMP
        WHERE id = $4
        RETURNING updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		folder.Name,
		folder.AccessType,
		folder.ParentID,
		folder.ID,
	).Scan(&folder.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: folder %s", domain.ErrNotFound, folder.ID)
		}
		return fmt.Errorf("failed to update folder: %w", err)
	}

	return nil
}

// FindSiblingByOrder ищет папку, занимающую позицию ord среди соседей по
// parentID. Возвращает nil без ошибки, если позиция свободна.
func (r *FolderRepository) FindSiblingByOrder(ctx context.Context, ownerID string, parentID *uuid.UUID, ord int) (*domain.Folder, error) {
	query := `
        SELECT id, name, owner_id, parent_id, access_type, ord, created_at, updated_at
        FROM folders
        WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND ord = $3
        LIMIT 1`

	var folder domain.Folder
	if err := r.db.GetContext(ctx, &folder, query, ownerID, parentID, ord); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sibling by order: %w", err)
	}

	return &folder, nil
}

func (r *FolderRepository) UpdateOrder(ctx context.Context, id uuid.UUID, ord int) error {
	query := `
        UPDATE folders
        SET ord = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, ord, id)
	if err != nil {
		return fmt.Errorf("failed to update folder order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: folder %s", domain.ErrNotFound, id)
	}

	return nil
}

// IsDescendant сообщает, находится ли candidate в поддереве ancestor
// (включая сам ancestor). Используется как защита от циклов при переносе.
func (r *FolderRepository) IsDescendant(ctx context.Context, ancestorID, candidateID uuid.UUID) (bool, error) {
	query := `
        WITH RECURSIVE subtree AS (
            SELECT id FROM folders WHERE id = $1
            UNION ALL
            SELECT f.id FROM folders f
            INNER JOIN subtree s ON f.parent_id = s.id
        )
        SELECT EXISTS(SELECT 1 FROM subtree WHERE id = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, ancestorID, candidateID); err != nil {
		return false, fmt.Errorf("failed to check descendant: %w", err)
	}

	return exists, nil
}

// Delete удаляет папку; потомки, файлы и гранты каскадируются внешними ключами.
func (r *FolderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: folder %s", domain.ErrNotFound, id)
	}

	return nil
}
