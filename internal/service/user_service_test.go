package service

import (
	"context"
	"errors"
	"testing"

	"nimbusdrive/internal/domain"
)

func TestProvision(t *testing.T) {
	folders := newFakeFolderStore()
	newFakeFileStore(folders)
	users := newFakeUserStore()
	svc := NewUserService(users, folders)

	user, err := svc.Provision(context.Background(), "u1", "u1@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("unexpected user: %+v", user)
	}

	root, err := folders.GetRootFolder(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected root folder created: %v", err)
	}
	if root.Name != "root" || root.ParentID != nil {
		t.Errorf("unexpected root folder: %+v", root)
	}

	// Повторный вход не создаёт второй корень.
	if _, err := svc.Provision(context.Background(), "u1", "u1@example.com"); err != nil {
		t.Fatalf("repeat provision failed: %v", err)
	}
	count := 0
	for _, f := range folders.folders {
		if f.OwnerID == "u1" && f.ParentID == nil {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one root, got %d", count)
	}
}

func TestProvisionRejectsEmptyIdentity(t *testing.T) {
	folders := newFakeFolderStore()
	users := newFakeUserStore()
	svc := NewUserService(users, folders)

	if _, err := svc.Provision(context.Background(), "", "a@b.c"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
