package service

import (
	"context"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/repository"
)

// Контракты хранилища сущностей, которым удовлетворяют репозитории.
// Сервисы зависят от них, а не от конкретных типов, чтобы коллабораторы
// подменялись в тестах.

type FolderStore interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Folder, error)
	GetRootFolder(ctx context.Context, ownerID string) (*domain.Folder, error)
	GetChildren(ctx context.Context, parentID uuid.UUID) ([]domain.Folder, error)
	GetTreeRows(ctx context.Context, ownerID string) ([]repository.TreeRow, error)
	GetSubtreeRows(ctx context.Context, ownerID string, folderID uuid.UUID) ([]repository.TreeRow, error)
	Update(ctx context.Context, folder *domain.Folder) error
	FindSiblingByOrder(ctx context.Context, ownerID string, parentID *uuid.UUID, ord int) (*domain.Folder, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, ord int) error
	IsDescendant(ctx context.Context, ancestorID, candidateID uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type FileStore interface {
	Create(ctx context.Context, file *domain.File) error
	GetByIDForOwner(ctx context.Context, id uuid.UUID, ownerID string) (*domain.File, error)
	ListByFolder(ctx context.Context, folderID uuid.UUID) ([]domain.File, error)
	Update(ctx context.Context, file *domain.File) error
	FindSiblingByOrder(ctx context.Context, folderID uuid.UUID, ord int) (*domain.File, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, ord int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type SharingStore interface {
	Upsert(ctx context.Context, sharing *domain.Sharing) error
	GetForGrantee(ctx context.Context, folderID uuid.UUID, granteeID string) (*domain.Sharing, error)
	ListBySharer(ctx context.Context, userID string) ([]domain.Sharing, error)
	ListByGrantee(ctx context.Context, userID string) ([]domain.Sharing, error)
	Delete(ctx context.Context, id uuid.UUID, sharerID string) error
}
