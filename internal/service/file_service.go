package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/mail"
	"nimbusdrive/internal/service/s3"
)

const (
	maxFileSize = 100 * 1024 * 1024 // 100MB максимальный размер файла

	// presignTTL — срок жизни подписанной ссылки на скачивание.
	presignTTL = 60 * time.Second

	// maxPresignConcurrency ограничивает параллелизм при пакетной
	// генерации подписанных ссылок.
	maxPresignConcurrency = 8
)

type FileService struct {
	fileRepo   FileStore
	folderRepo FolderStore
	storage    s3.Storage
	mailer     mail.Sender
}

func NewFileService(
	fileRepo FileStore,
	folderRepo FolderStore,
	storage s3.Storage,
	mailer mail.Sender,
) *FileService {
	return &FileService{
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
		storage:    storage,
		mailer:     mailer,
	}
}

// Upload сохраняет содержимое в хранилище объектов и создаёт запись файла.
// folderID uuid.Nil означает корневую папку пользователя.
func (s *FileService) Upload(ctx context.Context, viewerID string, folderID uuid.UUID, name string, data []byte) (*domain.File, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrValidation)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("%w: file exceeds maximum size of %d bytes", domain.ErrValidation, maxFileSize)
	}

	var folder *domain.Folder
	var err error
	if folderID == uuid.Nil {
		folder, err = s.folderRepo.GetRootFolder(ctx, viewerID)
		if err != nil {
			return nil, err
		}
	} else {
		folder, err = s.folderRepo.GetByID(ctx, folderID)
		if err != nil {
			return nil, err
		}
		if folder.OwnerID != viewerID {
			return nil, fmt.Errorf("%w: folder %s", domain.ErrNotFound, folderID)
		}
	}

	file := &domain.File{
		ID:       uuid.New(),
		Name:     name,
		FolderID: folder.ID,
	}

	if err := s.storage.UploadBytes(ctx, file.ObjectKey(), data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		return nil, err
	}

	return file, nil
}

// GetFiles возвращает файлы папки с подписанными ссылками на скачивание.
// Ссылки запрашиваются одним конкурентным батчем, а не по одной на файл.
func (s *FileService) GetFiles(ctx context.Context, viewerID string, folderID uuid.UUID) ([]domain.File, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != viewerID {
		return nil, fmt.Errorf("%w: folder %s", domain.ErrNotFound, folderID)
	}

	files, err := s.fileRepo.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	if err := s.presignFiles(ctx, files); err != nil {
		return nil, err
	}

	return files, nil
}

// GetFile возвращает один файл с подписанной ссылкой на скачивание.
func (s *FileService) GetFile(ctx context.Context, viewerID string, fileID uuid.UUID) (*domain.File, error) {
	file, err := s.fileRepo.GetByIDForOwner(ctx, fileID, viewerID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.PresignDownload(ctx, file.ObjectKey(), presignTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	file.DownloadURL = url

	return file, nil
}

func (s *FileService) presignFiles(ctx context.Context, files []domain.File) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPresignConcurrency)

	for i := range files {
		file := &files[i]
		g.Go(func() error {
			url, err := s.storage.PresignDownload(ctx, file.ObjectKey(), presignTTL)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
			}
			file.DownloadURL = url
			return nil
		})
	}

	return g.Wait()
}

// Update переименовывает файл, меняет его тип доступа или переносит его
// в другую папку того же владельца.
func (s *FileService) Update(ctx context.Context, viewerID string, fileID uuid.UUID, patch domain.FilePatch) (*domain.File, error) {
	file, err := s.fileRepo.GetByIDForOwner(ctx, fileID, viewerID)
	if err != nil {
		return nil, err
	}

	oldKey := file.ObjectKey()

	if patch.FolderID != nil {
		target, err := s.folderRepo.GetByID(ctx, *patch.FolderID)
		if err != nil {
			return nil, err
		}
		if target.OwnerID != viewerID {
			return nil, fmt.Errorf("%w: target folder %s", domain.ErrNotFound, *patch.FolderID)
		}
		file.FolderID = target.ID
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, fmt.Errorf("%w: file name cannot be empty", domain.ErrValidation)
		}
		file.Name = *patch.Name
	}

	if patch.AccessType != nil {
		if !patch.AccessType.Valid() {
			return nil, fmt.Errorf("%w: unknown access type %q", domain.ErrValidation, *patch.AccessType)
		}
		file.AccessType = *patch.AccessType
	}

	// Ключ объекта выводится из расширения имени: если переименование его
	// сменило, объект перекладывается под новый ключ.
	if newKey := file.ObjectKey(); newKey != oldKey {
		data, err := s.storage.GetBytes(ctx, oldKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		if err := s.storage.UploadBytes(ctx, newKey, data); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		if err := s.storage.DeleteObject(ctx, oldKey); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
	}

	if err := s.fileRepo.Update(ctx, file); err != nil {
		return nil, err
	}

	return file, nil
}

// Reorder меняет позицию файла в его папке по той же политике, что и для
// папок: обмен с занимающим позицию файлом либо прямое присвоение.
func (s *FileService) Reorder(ctx context.Context, viewerID string, fileID uuid.UUID, newOrder int) (*domain.File, error) {
	if newOrder < 1 {
		return nil, fmt.Errorf("%w: order must be >= 1", domain.ErrValidation)
	}

	file, err := s.fileRepo.GetByIDForOwner(ctx, fileID, viewerID)
	if err != nil {
		return nil, err
	}
	if file.Order == newOrder {
		return file, nil
	}

	occupant, err := s.fileRepo.FindSiblingByOrder(ctx, file.FolderID, newOrder)
	if err != nil {
		return nil, err
	}

	if occupant != nil {
		if err := s.fileRepo.UpdateOrder(ctx, occupant.ID, file.Order); err != nil {
			return nil, err
		}
	}
	if err := s.fileRepo.UpdateOrder(ctx, file.ID, newOrder); err != nil {
		return nil, err
	}

	file.Order = newOrder
	return file, nil
}

// Delete удаляет объект из хранилища и запись файла.
func (s *FileService) Delete(ctx context.Context, viewerID string, fileID uuid.UUID) error {
	file, err := s.fileRepo.GetByIDForOwner(ctx, fileID, viewerID)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteObject(ctx, file.ObjectKey()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	return s.fileRepo.Delete(ctx, file.ID)
}

// SendFileByEmail отправляет содержимое файла вложением на указанный адрес.
func (s *FileService) SendFileByEmail(ctx context.Context, viewerID string, fileID uuid.UUID, recipient string, useHTML bool) error {
	file, err := s.fileRepo.GetByIDForOwner(ctx, fileID, viewerID)
	if err != nil {
		return err
	}

	data, err := s.storage.GetBytes(ctx, file.ObjectKey())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	opts := mail.Options{
		To:      recipient,
		Subject: fmt.Sprintf("File %s", file.Name),
		Attachments: []mail.Attachment{{
			Filename: file.Name,
			Content:  data,
		}},
	}
	if useHTML {
		opts.HTML = fileMailHTML(file.Name)
	} else {
		opts.Text = "Please find the requested file attached."
	}

	if err := s.mailer.Send(opts); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	return nil
}

func fileMailHTML(fileName string) string {
	return fmt.Sprintf(`
      <div style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px; border-radius: 10px; text-align: center;">
        <h2 style="color: #333;">File</h2>
        <p style="color: #555;">Attached is the file <strong>%s</strong>.</p>
        <p style="font-size: 12px; color: #999;">If you have any issues, contact support.</p>
      </div>
    `, fileName)
}
