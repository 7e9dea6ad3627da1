package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
)

type folderFixture struct {
	folders *fakeFolderStore
	files   *fakeFileStore
	storage *fakeStorage
	mailer  *fakeMailer
	svc     *FolderService
	root    *domain.Folder
}

func newFolderFixture(t *testing.T, ownerID string) *folderFixture {
	t.Helper()

	folders := newFakeFolderStore()
	files := newFakeFileStore(folders)
	storage := newFakeStorage()
	mailer := &fakeMailer{}

	root := &domain.Folder{Name: "root", OwnerID: ownerID}
	if err := folders.Create(context.Background(), root); err != nil {
		t.Fatalf("failed to create root: %v", err)
	}

	return &folderFixture{
		folders: folders,
		files:   files,
		storage: storage,
		mailer:  mailer,
		svc:     NewFolderService(folders, files, storage, mailer, nil),
		root:    root,
	}
}

func (fx *folderFixture) addFolder(t *testing.T, name string, parentID uuid.UUID) *domain.Folder {
	t.Helper()
	f := &domain.Folder{Name: name, OwnerID: fx.root.OwnerID, ParentID: &parentID}
	if err := fx.folders.Create(context.Background(), f); err != nil {
		t.Fatalf("failed to create folder %s: %v", name, err)
	}
	return f
}

func (fx *folderFixture) addFile(t *testing.T, name string, folderID uuid.UUID, content string) *domain.File {
	t.Helper()
	f := &domain.File{ID: uuid.New(), Name: name, FolderID: folderID, AccessType: domain.AccessPublic}
	if err := fx.storage.UploadBytes(context.Background(), f.ObjectKey(), []byte(content)); err != nil {
		t.Fatalf("failed to store object: %v", err)
	}
	if err := fx.files.Create(context.Background(), f); err != nil {
		t.Fatalf("failed to create file %s: %v", name, err)
	}
	return f
}

func TestCreateFolderDefaultsToRoot(t *testing.T) {
	fx := newFolderFixture(t, "u1")

	folder, err := fx.svc.CreateFolder(context.Background(), "u1", "docs", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if folder.ParentID == nil || *folder.ParentID != fx.root.ID {
		t.Errorf("expected folder to land in root, got parent %v", folder.ParentID)
	}
}

func TestCreateFolderForeignParent(t *testing.T) {
	fx := newFolderFixture(t, "u1")

	other := newFolderFixture(t, "u2")
	_, err := fx.svc.CreateFolder(context.Background(), "u1", "docs", &other.root.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign parent, got %v", err)
	}
}

func TestReorderSwapsOccupant(t *testing.T) {
	fx := newFolderFixture(t, "u1")
	a := fx.addFolder(t, "A", fx.root.ID) // ord 1
	b := fx.addFolder(t, "B", fx.root.ID) // ord 2

	moved, err := fx.svc.Reorder(context.Background(), "u1", a.ID, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.Order != 2 {
		t.Errorf("expected moved folder at 2, got %d", moved.Order)
	}

	swapped, _ := fx.folders.GetByID(context.Background(), b.ID)
	if swapped.Order != 1 {
		t.Errorf("expected occupant swapped to 1, got %d", swapped.Order)
	}
}

func TestReorderFreePositionDirect(t *testing.T) {
	fx := newFolderFixture(t, "u1")
	a := fx.addFolder(t, "A", fx.root.ID)
	b := fx.addFolder(t, "B", fx.root.ID)

	moved, err := fx.svc.Reorder(context.Background(), "u1", a.ID, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.Order != 7 {
		t.Errorf("expected direct relabel to 7, got %d", moved.Order)
	}

	untouched, _ := fx.folders.GetByID(context.Background(), b.ID)
	if untouched.Order != 2 {
		t.Errorf("expected sibling untouched at 2, got %d", untouched.Order)
	}
}

func TestReorderRejectsNonPositive(t *testing.T) {
	fx := newFolderFixture(t, "u1")
	a := fx.addFolder(t, "A", fx.root.ID)

	if _, err := fx.svc.Reorder(context.Background(), "u1", a.ID, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateFolderRejectsCycle(t *testing.T) {
	fx := newFolderFixture(t, "u1")
	a := fx.addFolder(t, "A", fx.root.ID)
	b := fx.addFolder(t, "B", a.ID)

	_, err := fx.svc.UpdateFolder(context.Background(), "u1", a.ID, domain.FolderPatch{ParentID: &b.ID})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for cycle, got %v", err)
	}
}

func TestUpdateFolderRootUnmovable(t *testing.T) {
	fx := newFolderFixture(t, "u1")
	a := fx.addFolder(t, "A", fx.root.ID)

	_, err := fx.svc.UpdateFolder(context.Background(), "u1", fx.root.ID, domain.FolderPatch{ParentID: &a.ID})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for root move, got %v", err)
	}
}

func TestDeleteFolderCascades(t *testing.T) {
	fx := newFolderFixture(t, "u1")
	a := fx.addFolder(t, "A", fx.root.ID)
	b := fx.addFolder(t, "B", a.ID)
	fx.addFile(t, "doc.txt", a.ID, "hello")
	nested := fx.addFile(t, "inner.txt", b.ID, "world")

	if err := fx.svc.DeleteFolder(context.Background(), "u1", a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := fx.folders.GetByID(context.Background(), a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected folder gone, got %v", err)
	}
	if _, err := fx.folders.GetByID(context.Background(), b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected nested folder gone, got %v", err)
	}
	if _, err := fx.files.GetByIDForOwner(context.Background(), nested.ID, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected nested file gone, got %v", err)
	}
	for fid := range fx.files.files {
		t.Errorf("leftover file %s after cascade", fid)
	}
}

func TestCloneFolderSimple(t *testing.T) {
	fx := newFolderFixture(t, "u1")
	a := fx.addFolder(t, "A", fx.root.ID)
	fx.addFile(t, "doc.txt", a.ID, "hello")

	clone, err := fx.svc.CloneFolder(context.Background(), "u1", a.ID, CloneSimple)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clone.Name != "A (copy)" {
		t.Errorf("expected suffixed name, got %q", clone.Name)
	}
	if clone.ParentID == nil || *clone.ParentID != fx.root.ID {
		t.Errorf("expected clone next to source, got parent %v", clone.ParentID)
	}

	// SIMPLE не копирует содержимое.
	files, _ := fx.files.ListByFolder(context.Background(), clone.ID)
	if len(files) != 0 {
		t.Errorf("expected empty simple clone, got %d files", len(files))
	}
}

func TestCloneFolderDeep(t *testing.T) {
	fx := newFolderFixture(t, "u1")
	a := fx.addFolder(t, "A", fx.root.ID)
	c := fx.addFolder(t, "C", a.ID)
	src := fx.addFile(t, "doc.txt", a.ID, "payload")
	_ = c

	clone, err := fx.svc.CloneFolder(context.Background(), "u1", a.ID, CloneStructureAndFiles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clone.Name != "A (copy)" {
		t.Errorf("expected suffixed name, got %q", clone.Name)
	}

	files, _ := fx.files.ListByFolder(context.Background(), clone.ID)
	if len(files) != 1 {
		t.Fatalf("expected 1 cloned file, got %d", len(files))
	}
	if files[0].ID == src.ID {
		t.Errorf("cloned file must get a fresh identity")
	}
	data, err := fx.storage.GetBytes(context.Background(), files[0].ObjectKey())
	if err != nil {
		t.Fatalf("cloned object missing: %v", err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("cloned object content mismatch: %q", data)
	}

	children, _ := fx.folders.GetChildren(context.Background(), clone.ID)
	if len(children) != 1 || children[0].Name != "C (copy)" {
		t.Errorf("expected suffixed child clone, got %+v", children)
	}
}

func TestCloneFolderForeign(t *testing.T) {
	fx := newFolderFixture(t, "u1")

	_, err := fx.svc.CloneFolder(context.Background(), "u2", fx.root.ID, CloneSimple)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign clone, got %v", err)
	}
}

func TestSendArchiveByEmail(t *testing.T) {
	fx := newFolderFixture(t, "u1")
	a := fx.addFolder(t, "A", fx.root.ID)
	fx.addFile(t, "doc.txt", a.ID, "hello")

	err := fx.svc.SendArchiveByEmail(context.Background(), "u1", a.ID, "zip", "friend@example.com", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fx.mailer.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(fx.mailer.sent))
	}
	sent := fx.mailer.sent[0]
	if sent.To != "friend@example.com" {
		t.Errorf("unexpected recipient %q", sent.To)
	}
	if len(sent.Attachments) != 1 || sent.Attachments[0].Filename != "A.zip" {
		t.Errorf("unexpected attachments: %+v", sent.Attachments)
	}
	if sent.HTML == "" || !strings.Contains(sent.HTML, "A") {
		t.Errorf("expected html body naming the folder")
	}
}

func TestSendArchiveByEmailUnknownKind(t *testing.T) {
	fx := newFolderFixture(t, "u1")

	err := fx.svc.SendArchiveByEmail(context.Background(), "u1", fx.root.ID, "rar", "a@b.c", false)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown kind, got %v", err)
	}
}
