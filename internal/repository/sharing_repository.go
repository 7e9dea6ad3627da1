package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"nimbusdrive/internal/domain"
)

type SharingRepository struct {
	db *sqlx.DB
}

func NewSharingRepository(db *sqlx.DB) *SharingRepository {
	return &SharingRepository{db: db}
}

// Upsert создаёт грант или обновляет существующий по уникальной тройке
// (shared_by, shared_with, folder_id).
func (r *SharingRepository) Upsert(ctx context.Context, sharing *domain.Sharing) error {
	query := `
        INSERT INTO sharings (id, shared_by, shared_with, folder_id, access_type, time_limit)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (shared_by, shared_with, folder_id)
        DO UPDATE SET access_type = EXCLUDED.access_type, time_limit = EXCLUDED.time_limit
        RETURNING id, created_at`

	if sharing.ID == uuid.Nil {
		sharing.ID = uuid.New()
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		sharing.ID,
		sharing.SharedBy,
		sharing.SharedWith,
		sharing.FolderID,
		sharing.AccessType,
		sharing.TimeLimit,
	).Scan(&sharing.ID, &sharing.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sharing: %w", err)
	}

	return nil
}

// GetForGrantee возвращает грант на папку, выданный пользователю granteeID.
func (r *SharingRepository) GetForGrantee(ctx context.Context, folderID uuid.UUID, granteeID string) (*domain.Sharing, error) {
	query := `
        SELECT id, shared_by, shared_with, folder_id, access_type, time_limit, created_at
        FROM sharings
        WHERE folder_id = $1 AND shared_with = $2`

	var sharing domain.Sharing
	if err := r.db.GetContext(ctx, &sharing, query, folderID, granteeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: sharing for folder %s", domain.ErrNotFound, folderID)
		}
		return nil, fmt.Errorf("failed to get sharing: %w", err)
	}

	return &sharing, nil
}

func (r *SharingRepository) ListBySharer(ctx context.Context, userID string) ([]domain.Sharing, error) {
	query := `
        SELECT id, shared_by, shared_with, folder_id, access_type, time_limit, created_at
        FROM sharings
        WHERE shared_by = $1
        ORDER BY created_at`

	var sharings []domain.Sharing
	if err := r.db.SelectContext(ctx, &sharings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list sharings by sharer: %w", err)
	}

	return sharings, nil
}

func (r *SharingRepository) ListByGrantee(ctx context.Context, userID string) ([]domain.Sharing, error) {
	query := `
        SELECT id, shared_by, shared_with, folder_id, access_type, time_limit, created_at
        FROM sharings
        WHERE shared_with = $1
        ORDER BY created_at`

	var sharings []domain.Sharing
	if err := r.db.SelectContext(ctx, &sharings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list sharings by grantee: %w", err)
	}

	return sharings, nil
}

// Delete удаляет грант; выполнить это может только выдавший его пользователь.
func (r *SharingRepository) Delete(ctx context.Context, id uuid.UUID, sharerID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sharings WHERE id = $1 AND shared_by = $2`, id, sharerID)
	if err != nil {
		return fmt.Errorf("failed to delete sharing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: sharing %s", domain.ErrNotFound, id)
	}

	return nil
}
