package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/mail"
	"nimbusdrive/internal/service/s3"
)

type SharingService struct {
	sharingRepo SharingStore
	folderRepo  FolderStore
	userRepo    UserStore
	storage     s3.Storage
	mailer      mail.Sender
	baseURL     string

	// now подменяется в тестах для проверки истечения грантов.
	now func() time.Time
}

func NewSharingService(
	sharingRepo SharingStore,
	folderRepo FolderStore,
	userRepo UserStore,
	storage s3.Storage,
	mailer mail.Sender,
	baseURL string,
) *SharingService {
	return &SharingService{
		sharingRepo: sharingRepo,
		folderRepo:  folderRepo,
		userRepo:    userRepo,
		storage:     storage,
		mailer:      mailer,
		baseURL:     baseURL,
		now:         time.Now,
	}
}

// CreateOrUpdateGrant выдаёт грант видимости на поддерево или обновляет
// существующий для той же тройки (владелец, получатель, папка).
// При notify получателю уходит письмо со ссылкой на общую папку.
func (s *SharingService) CreateOrUpdateGrant(
	ctx context.Context,
	ownerID string,
	folderID uuid.UUID,
	granteeEmail string,
	accessType domain.SharingAccessType,
	timeLimit time.Time,
	notify bool,
	useHTML bool,
) (*domain.Sharing, error) {
	if !accessType.Valid() {
		return nil, fmt.Errorf("%w: unknown sharing access type %q", domain.ErrValidation, accessType)
	}

	grantee, err := s.userRepo.GetByEmail(ctx, granteeEmail)
	if err != nil {
		return nil, err
	}
	if grantee.ID == ownerID {
		return nil, fmt.Errorf("%w: folder cannot be shared with its owner", domain.ErrValidation)
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: folder %s", domain.ErrNotFound, folderID)
	}

	sharing := &domain.Sharing{
		SharedBy:   ownerID,
		SharedWith: grantee.ID,
		FolderID:   folderID,
		AccessType: accessType,
		TimeLimit:  timeLimit,
	}
	if err := s.sharingRepo.Upsert(ctx, sharing); err != nil {
		return nil, err
	}

	if notify {
		url := fmt.Sprintf("%s/v1/folders/%s/shared", s.baseURL, folderID)
		opts := mail.Options{
			To:      granteeEmail,
			Subject: "Folder shared with you",
		}
		if useHTML {
			opts.HTML = sharingMailHTML(folder.Name, url)
		} else {
			opts.Text = fmt.Sprintf("Folder %s has been shared with you. Click %s to access it.", folder.Name, url)
		}
		if err := s.mailer.Send(opts); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
	}

	return sharing, nil
}

// SharedSubtree возвращает общее поддерево, спроецированное на видимую
// получателю гранта часть, с подписанными ссылками для уцелевших файлов.
// Просроченный грант неотличим от отсутствующего.
func (s *SharingService) SharedSubtree(ctx context.Context, viewerID string, folderID uuid.UUID) (*domain.FolderNode, error) {
	grant, err := s.sharingRepo.GetForGrantee(ctx, folderID, viewerID)
	if err != nil {
		return nil, err
	}
	if grant.Expired(s.now()) {
		log.Printf("[Sharing] Grant %s expired, treating as absent", grant.ID)
		return nil, fmt.Errorf("%w: sharing for folder %s", domain.ErrNotFound, folderID)
	}

	rows, err := s.folderRepo.GetSubtreeRows(ctx, grant.SharedBy, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subtree rows: %w", err)
	}

	tree, err := BuildSubtree(rows)
	if err != nil {
		return nil, err
	}

	FilterSharedTree(tree)

	if err := s.attachDownloadURLs(ctx, tree); err != nil {
		return nil, err
	}

	return tree, nil
}

// FilterSharedTree обрезает дерево до видимой получателю гранта части.
// Корень гранта виден всегда; ниже узел виден, только если он и все его
// предки до корня публичны. Приватные дети удаляются до спуска, поэтому
// публичные потомки приватной папки не посещаются и в проекцию не попадают.
func FilterSharedTree(root *domain.FolderNode) {
	filterNode(root)
}

func filterNode(node *domain.FolderNode) {
	files := node.Files[:0]
	for _, file := range node.Files {
		if file.AccessType == domain.AccessPublic {
			files = append(files, file)
		}
	}
	node.Files = files

	children := node.Children[:0]
	for _, child := range node.Children {
		if child.AccessType == domain.AccessPublic {
			filterNode(child)
			children = append(children, child)
		}
	}
	node.Children = children
}

func (s *SharingService) attachDownloadURLs(ctx context.Context, root *domain.FolderNode) error {
	var files []*domain.File
	var collect func(node *domain.FolderNode)
	collect = func(node *domain.FolderNode) {
		for i := range node.Files {
			files = append(files, &node.Files[i])
		}
		for _, child := range node.Children {
			collect(child)
		}
	}
	collect(root)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPresignConcurrency)
	for _, file := range files {
		file := file
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

// UpdateSharedFolder меняет метаданные корня общего поддерева. Требуется
// write-грант; перенос папки через общий вид запрещён при любом гранте.
func (s *SharingService) UpdateSharedFolder(ctx context.Context, viewerID string, folderID uuid.UUID, patch domain.FolderPatch) (*domain.Folder, error) {
	grant, err := s.sharingRepo.GetForGrantee(ctx, folderID, viewerID)
	if err != nil {
		return nil, err
	}
	if grant.Expired(s.now()) {
		return nil, fmt.Errorf("%w: sharing for folder %s", domain.ErrNotFound, folderID)
	}

	if patch.ParentID != nil {
		return nil, fmt.Errorf("%w: reparenting through a shared view is not allowed", domain.ErrForbidden)
	}
	if grant.AccessType != domain.SharingWrite {
		return nil, fmt.Errorf("%w: write access required", domain.ErrForbidden)
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
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

	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, err
	}

	return folder, nil
}

// ListSharedByMe возвращает гранты, выданные пользователем.
func (s *SharingService) ListSharedByMe(ctx context.Context, userID string) ([]domain.Sharing, error) {
	return s.sharingRepo.ListBySharer(ctx, userID)
}

// ListSharedWithMe возвращает гранты, выданные пользователю.
func (s *SharingService) ListSharedWithMe(ctx context.Context, userID string) ([]domain.Sharing, error) {
	return s.sharingRepo.ListByGrantee(ctx, userID)
}

// DeleteGrant отзывает грант; сделать это может только его автор.
func (s *SharingService) DeleteGrant(ctx context.Context, ownerID string, sharingID uuid.UUID) error {
	return s.sharingRepo.Delete(ctx, sharingID, ownerID)
}

func sharingMailHTML(folderName, url string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px; border-radius: 10px; text-align: center;">
            <h2 style="color: #333;">Folder Sharing</h2>
            <p style="color: #555;">Folder <strong>%s</strong> has been shared with you.</p>
            <p style="color: #555;">Click <a href="%s" style="color: #007bff; text-decoration: none;">here</a> to access it.</p>
          </div>`, folderName, url)
}
