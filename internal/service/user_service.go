package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"nimbusdrive/internal/domain"
)

type UserService struct {
	userRepo   UserStore
	folderRepo FolderStore
}

func NewUserService(userRepo UserStore, folderRepo FolderStore) *UserService {
	return &UserService{
		userRepo:   userRepo,
		folderRepo: folderRepo,
	}
}

// Provision создаёт пользователя по внешней идентичности вместе с его
// корневой папкой. Выполняется ровно один раз: повторный вход с тем же
// идентификатором возвращает существующего пользователя.
func (s *UserService) Provision(ctx context.Context, id, email string) (*domain.User, error) {
	if id == "" || email == "" {
		return nil, fmt.Errorf("%w: id and email are required", domain.ErrValidation)
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	log.Printf("[Provision] Creating user %s with root folder", id)

	user = &domain.User{ID: id, Email: email}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	root := &domain.Folder{
		Name:    "root",
		OwnerID: id,
	}
	if err := s.folderRepo.Create(ctx, root); err != nil {
		return nil, fmt.Errorf("failed to create root folder: %w", err)
	}

	return user, nil
}
