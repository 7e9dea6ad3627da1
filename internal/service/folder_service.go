package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"nimbusdrive/internal/archive"
	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/mail"
	"nimbusdrive/internal/service/s3"
)

// cloneNameSuffix добавляется к имени каждой склонированной папки.
const cloneNameSuffix = " (copy)"

type CloneMode string

const (
	CloneSimple            CloneMode = "SIMPLE"
	CloneStructureAndFiles CloneMode = "STRUCTURE_AND_FILES"
)

// SharedTreeProvider отдаёт отфильтрованное по видимости поддерево для
// не-владельца. Реализуется SharingService; нужен сборщику архивов, когда
// архив запрашивает получатель гранта.
type SharedTreeProvider interface {
	SharedSubtree(ctx context.Context, viewerID string, folderID uuid.UUID) (*domain.FolderNode, error)
}

type FolderService struct {
	folderRepo FolderStore
	fileRepo   FileStore
	storage    s3.Storage
	mailer     mail.Sender
	shared     SharedTreeProvider
}

func NewFolderService(
	folderRepo FolderStore,
	fileRepo FileStore,
	storage s3.Storage,
	mailer mail.Sender,
	shared SharedTreeProvider,
) *FolderService {
	return &FolderService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		storage:    storage,
		mailer:     mailer,
		shared:     shared,
	}
}

// CreateFolder создаёт папку под указанным родителем. Без родителя папка
// попадает в корневую папку пользователя.
func (s *FolderService) CreateFolder(ctx context.Context, viewerID, name string, parentID *uuid.UUID) (*domain.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", domain.ErrValidation)
	}

	var parent *domain.Folder
	var err error
	if parentID == nil {
		parent, err = s.folderRepo.GetRootFolder(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root folder: %w", err)
		}
	} else {
		parent, err = s.folderRepo.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.OwnerID != viewerID {
			return nil, fmt.Errorf("%w: parent folder %s", domain.ErrNotFound, *parentID)
		}
	}

	folder := &domain.Folder{
		Name:     name,
		OwnerID:  viewerID,
		ParentID: &parent.ID,
	}
	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}

	return folder, nil
}

// GetTree возвращает весь лес пользователя: каждую корневую папку
// с вложенными детьми и файлами.
func (s *FolderService) GetTree(ctx context.Context, viewerID string) ([]*domain.FolderNode, error) {
	rows, err := s.folderRepo.GetTreeRows(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree rows: %w", err)
	}

	return BuildForest(rows), nil
}

// GetSubtree возвращает одно поддерево пользователя. Отсутствующая или чужая
// папка даёт NotFound.
func (s *FolderService) GetSubtree(ctx context.Context, viewerID string, folderID uuid.UUID) (*domain.FolderNode, error) {
	rows, err := s.folderRepo.GetSubtreeRows(ctx, viewerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subtree rows: %w", err)
	}

	node, err := BuildSubtree(rows)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: folder %s", domain.ErrNotFound, folderID)
		}
		return nil, err
	}

	return node, nil
}

func (s *FolderService) UpdateFolder(ctx context.Context, viewerID string, folderID uuid.UUID, patch domain.FolderPatch) (*domain.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != viewerID {
		return nil, fmt.Errorf("%w: folder %s", domain.ErrNotFound, folderID)
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, fmt.Errorf("%w: folder name cannot be empty", domain.ErrValidation)
		}
		folder.Name = *patch.Name
	}

	if patch.AccessType != nil {
		if !patch.AccessType.Valid() {
			return nil, fmt.Errorf("%w: unknown access type %q", domain.ErrValidation, *patch.AccessType)
		}
		folder.AccessType = *patch.AccessType
	}

	if patch.ParentID != nil {
		if err := s.checkReparent(ctx, viewerID, folder, *patch.ParentID); err != nil {
			return nil, err
		}
		folder.ParentID = patch.ParentID
	}

	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, err
	}

	return folder, nil
}

// checkReparent проверяет нового родителя: он должен существовать,
// принадлежать тому же владельцу и не находиться в поддереве переносимой
// папки, иначе обход дерева зациклится.
func (s *FolderService) checkReparent(ctx context.Context, viewerID string, folder *domain.Folder, newParentID uuid.UUID) error {
	if folder.ParentID == nil {
		return fmt.Errorf("%w: root folder cannot be moved", domain.ErrValidation)
	}
	if newParentID == folder.ID {
		return fmt.Errorf("%w: folder cannot be its own parent", domain.ErrValidation)
	}

	parent, err := s.folderRepo.GetByID(ctx, newParentID)
	if err != nil {
		return err
	}
	if parent.OwnerID != viewerID {
		return fmt.Errorf("%w: parent folder %s", domain.ErrNotFound, newParentID)
	}

	inSubtree, err := s.folderRepo.IsDescendant(ctx, folder.ID, newParentID)
	if err != nil {
		return fmt.Errorf("failed to check folder hierarchy: %w", err)
	}
	if inSubtree {
		return fmt.Errorf("%w: folder cannot be moved into its own subtree", domain.ErrValidation)
	}

	return nil
}

// DeleteFolder удаляет папку вместе со всеми потомками, их файлами
// и ссылающимися на них грантами.
func (s *FolderService) DeleteFolder(ctx context.Context, viewerID string, folderID uuid.UUID) error {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.OwnerID != viewerID {
		return fmt.Errorf("%w: folder %s", domain.ErrNotFound, folderID)
	}

	return s.folderRepo.Delete(ctx, folderID)
}

// Reorder меняет позицию папки среди её соседей. Если позиция занята,
// значения меняются местами с занимающей её папкой; свободная позиция
// присваивается напрямую. Промежуточные соседи не затрагиваются.
// Две записи не обёрнуты в транзакцию: конкурентные перестановки на одном
// наборе соседей могут дать дубликат позиции, это допустимо.
func (s *FolderService) Reorder(ctx context.Context, viewerID string, folderID uuid.UUID, newOrder int) (*domain.Folder, error) {
	if newOrder < 1 {
		return nil, fmt.Errorf("%w: order must be >= 1", domain.ErrValidation)
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != viewerID {
		return nil, fmt.Errorf("%w: folder %s", domain.ErrNotFound, folderID)
	}
	if folder.Order == newOrder {
		return folder, nil
	}

	occupant, err := s.folderRepo.FindSiblingByOrder(ctx, folder.OwnerID, folder.ParentID, newOrder)
	if err != nil {
		return nil, err
	}

	if occupant != nil {
		if err := s.folderRepo.UpdateOrder(ctx, occupant.ID, folder.Order); err != nil {
			return nil, err
		}
	}
	if err := s.folderRepo.UpdateOrder(ctx, folder.ID, newOrder); err != nil {
		return nil, err
	}

	folder.Order = newOrder
	return folder, nil
}

// CloneFolder клонирует папку. SIMPLE создаёт одну новую папку рядом с
// исходной; STRUCTURE_AND_FILES рекурсивно копирует всё поддерево вместе
// с содержимым файлов. Клон всегда принадлежит вызывающему.
func (s *FolderService) CloneFolder(ctx context.Context, viewerID string, folderID uuid.UUID, mode CloneMode) (*domain.Folder, error) {
	src, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if src.OwnerID != viewerID {
		return nil, fmt.Errorf("%w: folder %s", domain.ErrNotFound, folderID)
	}

	switch mode {
	case CloneSimple:
		clone := &domain.Folder{
			Name:     src.Name + cloneNameSuffix,
			OwnerID:  viewerID,
			ParentID: src.ParentID,
		}
		if err := s.folderRepo.Create(ctx, clone); err != nil {
			return nil, err
		}
		return clone, nil
	case CloneStructureAndFiles:
		// Клон верхнего уровня кладём рядом с исходной папкой, чтобы
		// у пользователя не появился второй корень.
		return s.cloneRecursive(ctx, viewerID, src, src.ParentID)
	default:
		return nil, fmt.Errorf("%w: unknown clone mode %q", domain.ErrValidation, mode)
	}
}

// cloneRecursive копирует одну папку с её файлами и спускается в детей.
// Каждый шаг фиксируется отдельно: сбой посреди рекурсии оставляет
// частично склонированное дерево без отката.
func (s *FolderService) cloneRecursive(ctx context.Context, viewerID string, src *domain.Folder, parentID *uuid.UUID) (*domain.Folder, error) {
	clone := &domain.Folder{
		Name:       src.Name + cloneNameSuffix,
		OwnerID:    viewerID,
		ParentID:   parentID,
		AccessType: src.AccessType,
	}
	if err := s.folderRepo.Create(ctx, clone); err != nil {
		return nil, err
	}

	files, err := s.fileRepo.ListByFolder(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		data, err := s.storage.GetBytes(ctx, file.ObjectKey())
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read file %s: %v", domain.ErrUpstream, file.ID, err)
		}

		cloned := &domain.File{
			ID:         uuid.New(),
			Name:       file.Name,
			FolderID:   clone.ID,
			AccessType: file.AccessType,
		}
		if err := s.storage.UploadBytes(ctx, cloned.ObjectKey(), data); err != nil {
			return nil, fmt.Errorf("%w: failed to store file copy: %v", domain.ErrUpstream, err)
		}
		if err := s.fileRepo.Create(ctx, cloned); err != nil {
			return nil, err
		}
	}

	children, err := s.folderRepo.GetChildren(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	for i := range children {
		if _, err := s.cloneRecursive(ctx, viewerID, &children[i], &clone.ID); err != nil {
			return nil, err
		}
	}

	return clone, nil
}

// SendArchiveByEmail собирает архив поддерева и отправляет его вложением.
// Поддерево берётся либо из собственных папок пользователя, либо, при
// наличии гранта, из отфильтрованного по видимости общего поддерева.
func (s *FolderService) SendArchiveByEmail(ctx context.Context, viewerID string, folderID uuid.UUID, kindStr, recipient string, useHTML bool) error {
	kind, err := archive.ParseKind(kindStr)
	if err != nil {
		return err
	}

	tree, err := s.GetSubtree(ctx, viewerID, folderID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) || s.shared == nil {
			return err
		}
		tree, err = s.shared.SharedSubtree(ctx, viewerID, folderID)
		if err != nil {
			return err
		}
	}

	log.Printf("[Archive] Building %s archive of folder %s for %s", kind, tree.Name, recipient)

	buf, err := archive.Build(ctx, tree, kind, func(ctx context.Context, file domain.File) ([]byte, error) {
		data, err := s.storage.GetBytes(ctx, file.ObjectKey())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	opts := mail.Options{
		To:      recipient,
		Subject: fmt.Sprintf("Archive of folder %s", tree.Name),
		Attachments: []mail.Attachment{{
			Filename: fmt.Sprintf("%s.%s", tree.Name, kind),
			Content:  buf.Bytes(),
		}},
	}
	if useHTML {
		opts.HTML = archiveMailHTML(tree.Name)
	} else {
		opts.Text = "Please find the requested archive attached."
	}

	if err := s.mailer.Send(opts); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	return nil
}

func archiveMailHTML(folderName string) string {
	return fmt.Sprintf(`
      <div style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px; border-radius: 10px; text-align: center;">
        <h2 style="color: #333;">Folder Archive</h2>
        <p style="color: #555;">Attached is the archive of the folder <strong>%s</strong>.</p>
        <p style="font-size: 12px; color: #999;">If you have any issues, contact support.</p>
      </div>
    `, folderName)
}
