package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/mail"
	"nimbusdrive/internal/repository"
)

// Хранилища в памяти для тестов сервисного слоя. Повторяют поведение
// репозиториев: назначение порядковых номеров, каскадное удаление,
// неразличимость чужого и отсутствующего.

type fakeFolderStore struct {
	folders  map[uuid.UUID]*domain.Folder
	files    *fakeFileStore
	sharings *fakeSharingStore
}

func newFakeFolderStore() *fakeFolderStore {
	return &fakeFolderStore{folders: make(map[uuid.UUID]*domain.Folder)}
}

func (s *fakeFolderStore) Create(_ context.Context, folder *domain.Folder) error {
	if folder.ID == uuid.Nil {
		folder.ID = uuid.New()
	}
	if folder.AccessType == "" {
		folder.AccessType = domain.AccessPrivate
	}
	maxOrd := 0
	for _, f := range s.folders {
		if f.OwnerID == folder.OwnerID && sameParent(f.ParentID, folder.ParentID) && f.Order > maxOrd {
			maxOrd = f.Order
		}
	}
	folder.Order = maxOrd + 1
	folder.CreatedAt = time.Now()
	folder.UpdatedAt = folder.CreatedAt

	stored := *folder
	s.folders[folder.ID] = &stored
	return nil
}

func (s *fakeFolderStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Folder, error) {
	f, ok := s.folders[id]
	if !ok {
		return nil, fmt.Errorf("%w: folder %s", domain.ErrNotFound, id)
	}
	copied := *f
	return &copied, nil
}

func (s *fakeFolderStore) GetRootFolder(_ context.Context, ownerID string) (*domain.Folder, error) {
	for _, f := range s.folders {
		if f.OwnerID == ownerID && f.ParentID == nil {
			copied := *f
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: root folder for user %s", domain.ErrNotFound, ownerID)
}

func (s *fakeFolderStore) GetChildren(_ context.Context, parentID uuid.UUID) ([]domain.Folder, error) {
	var out []domain.Folder
	for _, f := range s.folders {
		if f.ParentID != nil && *f.ParentID == parentID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeFolderStore) GetTreeRows(ctx context.Context, ownerID string) ([]repository.TreeRow, error) {
	var rows []repository.TreeRow
	for _, f := range s.folders {
		if f.OwnerID == ownerID {
			rows = append(rows, s.toRow(f))
		}
	}
	return rows, nil
}

func (s *fakeFolderStore) GetSubtreeRows(ctx context.Context, ownerID string, folderID uuid.UUID) ([]repository.TreeRow, error) {
	root, ok := s.folders[folderID]
	if !ok || root.OwnerID != ownerID {
		return nil, nil
	}

	var rows []repository.TreeRow
	var walk func(f *domain.Folder)
	walk = func(f *domain.Folder) {
		rows = append(rows, s.toRow(f))
		for _, child := range s.folders {
			if child.ParentID != nil && *child.ParentID == f.ID {
				walk(child)
			}
		}
	}
	walk(root)
	return rows, nil
}

func (s *fakeFolderStore) toRow(f *domain.Folder) repository.TreeRow {
	row := repository.TreeRow{
		ID:         f.ID,
		Name:       f.Name,
		ParentID:   f.ParentID,
		OwnerID:    f.OwnerID,
		AccessType: f.AccessType,
		Ord:        f.Order,
	}
	if s.files != nil {
		row.Files, _ = s.files.ListByFolder(context.Background(), f.ID)
	}
	return row
}

func (s *fakeFolderStore) Update(_ context.Context, folder *domain.Folder) error {
	stored, ok := s.folders[folder.ID]
	if !ok {
		return fmt.Errorf("%w: folder %s", domain.ErrNotFound, folder.ID)
	}
	stored.Name = folder.Name
	stored.AccessType = folder.AccessType
	stored.ParentID = folder.ParentID
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *fakeFolderStore) FindSiblingByOrder(_ context.Context, ownerID string, parentID *uuid.UUID, ord int) (*domain.Folder, error) {
	for _, f := range s.folders {
		if f.OwnerID == ownerID && sameParent(f.ParentID, parentID) && f.Order == ord {
			copied := *f
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeFolderStore) UpdateOrder(_ context.Context, id uuid.UUID, ord int) error {
	f, ok := s.folders[id]
	if !ok {
		return fmt.Errorf("%w: folder %s", domain.ErrNotFound, id)
	}
	f.Order = ord
	return nil
}

func (s *fakeFolderStore) IsDescendant(_ context.Context, ancestorID, candidateID uuid.UUID) (bool, error) {
	cur, ok := s.folders[candidateID]
	for ok {
		if cur.ID == ancestorID {
			return true, nil
		}
		if cur.ParentID == nil {
			return false, nil
		}
		cur, ok = s.folders[*cur.ParentID]
	}
	return false, nil
}

func (s *fakeFolderStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.folders[id]; !ok {
		return fmt.Errorf("%w: folder %s", domain.ErrNotFound, id)
	}
	// Каскад, как в схеме базы.
	for _, f := range s.folders {
		if f.ParentID != nil && *f.ParentID == id {
			s.Delete(context.Background(), f.ID)
		}
	}
	if s.files != nil {
		for fid, file := range s.files.files {
			if file.FolderID == id {
				delete(s.files.files, fid)
			}
		}
	}
	if s.sharings != nil {
		for sid, sh := range s.sharings.sharings {
			if sh.FolderID == id {
				delete(s.sharings.sharings, sid)
			}
		}
	}
	delete(s.folders, id)
	return nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type fakeFileStore struct {
	files   map[uuid.UUID]*domain.File
	folders *fakeFolderStore
}

func newFakeFileStore(folders *fakeFolderStore) *fakeFileStore {
	fs := &fakeFileStore{files: make(map[uuid.UUID]*domain.File), folders: folders}
	folders.files = fs
	return fs
}

func (s *fakeFileStore) Create(_ context.Context, file *domain.File) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	if file.AccessType == "" {
		file.AccessType = domain.AccessPrivate
	}
	maxOrd := 0
	for _, f := range s.files {
		if f.FolderID == file.FolderID && f.Order > maxOrd {
			maxOrd = f.Order
		}
	}
	file.Order = maxOrd + 1
	file.CreatedAt = time.Now()
	file.UpdatedAt = file.CreatedAt

	stored := *file
	s.files[file.ID] = &stored
	return nil
}

func (s *fakeFileStore) GetByIDForOwner(_ context.Context, id uuid.UUID, ownerID string) (*domain.File, error) {
	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, id)
	}
	folder, ok := s.folders.folders[f.FolderID]
	if !ok || folder.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, id)
	}
	copied := *f
	return &copied, nil
}

func (s *fakeFileStore) ListByFolder(_ context.Context, folderID uuid.UUID) ([]domain.File, error) {
	var out []domain.File
	for _, f := range s.files {
		if f.FolderID == folderID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeFileStore) Update(_ context.Context, file *domain.File) error {
	stored, ok := s.files[file.ID]
	if !ok {
		return fmt.Errorf("%w: file %s", domain.ErrNotFound, file.ID)
	}
	if stored.FolderID != file.FolderID {
		maxOrd := 0
		for _, f := range s.files {
			if f.FolderID == file.FolderID && f.Order > maxOrd {
				maxOrd = f.Order
			}
		}
		stored.Order = maxOrd + 1
		file.Order = stored.Order
	}
	stored.Name = file.Name
	stored.FolderID = file.FolderID
	stored.AccessType = file.AccessType
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *fakeFileStore) FindSiblingByOrder(_ context.Context, folderID uuid.UUID, ord int) (*domain.File, error) {
	for _, f := range s.files {
		if f.FolderID == folderID && f.Order == ord {
			copied := *f
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeFileStore) UpdateOrder(_ context.Context, id uuid.UUID, ord int) error {
	f, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: file %s", domain.ErrNotFound, id)
	}
	f.Order = ord
	return nil
}

func (s *fakeFileStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%w: file %s", domain.ErrNotFound, id)
	}
	delete(s.files, id)
	return nil
}

type fakeUserStore struct {
	users map[string]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*domain.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	user.CreatedAt = time.Now()
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	copied := *u
	return &copied, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: user with email %s", domain.ErrNotFound, email)
}

type fakeSharingStore struct {
	sharings map[uuid.UUID]*domain.Sharing
}

func newFakeSharingStore() *fakeSharingStore {
	return &fakeSharingStore{sharings: make(map[uuid.UUID]*domain.Sharing)}
}

func (s *fakeSharingStore) Upsert(_ context.Context, sharing *domain.Sharing) error {
	for _, existing := range s.sharings {
		if existing.SharedBy == sharing.SharedBy &&
			existing.SharedWith == sharing.SharedWith &&
			existing.FolderID == sharing.FolderID {
			existing.AccessType = sharing.AccessType
			existing.TimeLimit = sharing.TimeLimit
			sharing.ID = existing.ID
			sharing.CreatedAt = existing.CreatedAt
			return nil
		}
	}
	if sharing.ID == uuid.Nil {
		sharing.ID = uuid.New()
	}
	sharing.CreatedAt = time.Now()
	stored := *sharing
	s.sharings[sharing.ID] = &stored
	return nil
}

func (s *fakeSharingStore) GetForGrantee(_ context.Context, folderID uuid.UUID, granteeID string) (*domain.Sharing, error) {
	for _, sh := range s.sharings {
		if sh.FolderID == folderID && sh.SharedWith == granteeID {
			copied := *sh
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: sharing for folder %s", domain.ErrNotFound, folderID)
}

func (s *fakeSharingStore) ListBySharer(_ context.Context, userID string) ([]domain.Sharing, error) {
	var out []domain.Sharing
	for _, sh := range s.sharings {
		if sh.SharedBy == userID {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (s *fakeSharingStore) ListByGrantee(_ context.Context, userID string) ([]domain.Sharing, error) {
	var out []domain.Sharing
	for _, sh := range s.sharings {
		if sh.SharedWith == userID {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (s *fakeSharingStore) Delete(_ context.Context, id uuid.UUID, sharerID string) error {
	sh, ok := s.sharings[id]
	if !ok || sh.SharedBy != sharerID {
		return fmt.Errorf("%w: sharing %s", domain.ErrNotFound, id)
	}
	delete(s.sharings, id)
	return nil
}

type fakeStorage struct {
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) UploadBytes(_ context.Context, key string, data []byte) error {
	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[key] = copied
	return nil
}

func (s *fakeStorage) GetBytes(_ context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + key, nil
}

type fakeMailer struct {
	sent []mail.Options
}

func (m *fakeMailer) Send(opts mail.Options) error {
	m.sent = append(m.sent, opts)
	return nil
}
