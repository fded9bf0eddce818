package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notification"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/storage"

	"github.com/google/uuid"
)

// Допустимые расширения загружаемых файлов и предел размера.
var allowedExtensions = map[string]bool{
	"pdf": true, "docx": true, "doc": true, "xlsx": true, "xls": true,
	"zip": true, "jpg": true, "jpeg": true, "png": true, "txt": true,
}

const maxFileSize = 50 * 1024 * 1024

var allowedDocumentCategories = map[models.DocumentCategory]bool{
	models.TechnicalDocument:  true,
	models.FinancialDocument:  true,
	models.ComplianceDocument: true,
	models.LegalDocument:      true,
	models.GeneralDocument:    true,
	models.AddendumDocument:   true,
}

// DocumentService управляет версиями документов и их согласованием.
// История версий только дописывается, прежние версии остаются адресуемыми.
type DocumentService struct {
	docs    repository.DocumentRepository
	tenders repository.TenderRepository
	bids    repository.BidRepository
	store   storage.Store
	fanout  *notification.Fanout
}

// NewDocumentService создаёт новый экземпляр DocumentService.
func NewDocumentService(
	docs repository.DocumentRepository,
	tenders repository.TenderRepository,
	bids repository.BidRepository,
	store storage.Store,
	fanout *notification.Fanout,
) *DocumentService {
	return &DocumentService{
		docs:    docs,
		tenders: tenders,
		bids:    bids,
		store:   store,
		fanout:  fanout,
	}
}

// Upload сохраняет первую версию документа в статусе draft.
func (s *DocumentService) Upload(ctx context.Context, actor models.Actor, owner models.DocumentOwner, category models.DocumentCategory, fileName, description string, data []byte) (*models.Document, error) {
	if err := s.validateFile(fileName, data); err != nil {
		return nil, err
	}
	if !allowedDocumentCategories[category] {
		return nil, models.ValidationError(fmt.Sprintf("invalid document category: %s", category))
	}
	if err := s.authorizeOwner(ctx, actor, owner); err != nil {
		return nil, err
	}

	contentHash, locator, err := s.store.Store(ctx, data)
	if err != nil {
		return nil, models.InternalError("failed to store file")
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:               uuid.New().String(),
		TenderID:         owner.TenderID,
		BidID:            owner.BidID,
		UploadedBy:       actor.UserID,
		FileName:         fileName,
		FileSize:         int64(len(data)),
		ContentHash:      contentHash,
		Locator:          locator,
		Category:         category,
		Description:      description,
		Status:           models.DraftDocument,
		Version:          1,
		IsCurrentVersion: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.docs.Insert(ctx, doc); err != nil {
		return nil, models.InternalError("failed to save document")
	}
	return doc, nil
}

// UploadVersion сохраняет новую версию существующего документа.
// Новая версия начинается как draft; статус согласования прежней версии
// не меняется и остаётся доступным.
func (s *DocumentService) UploadVersion(ctx context.Context, actor models.Actor, documentID, fileName, description string, data []byte) (*models.Document, error) {
	original, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.validateFile(fileName, data); err != nil {
		return nil, err
	}
	owner := models.DocumentOwner{TenderID: original.TenderID, BidID: original.BidID}
	if err := s.authorizeOwner(ctx, actor, owner); err != nil {
		return nil, err
	}

	contentHash, locator, err := s.store.Store(ctx, data)
	if err != nil {
		return nil, models.InternalError("failed to store file")
	}

	rootID := original.ID
	if original.ParentDocumentID != nil {
		rootID = *original.ParentDocumentID
	}

	versions, err := s.docs.Versions(ctx, documentID)
	if err != nil {
		return nil, models.InternalError("failed to load version history")
	}
	maxVersion := original.Version
	for _, v := range versions {
		if v.Version > maxVersion {
			maxVersion = v.Version
		}
	}

	if description == "" {
		description = original.Description
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:               uuid.New().String(),
		TenderID:         original.TenderID,
		BidID:            original.BidID,
		UploadedBy:       actor.UserID,
		FileName:         fileName,
		FileSize:         int64(len(data)),
		ContentHash:      contentHash,
		Locator:          locator,
		Category:         original.Category,
		Description:      description,
		Status:           models.DraftDocument,
		Version:          maxVersion + 1,
		ParentDocumentID: &rootID,
		IsCurrentVersion: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.docs.InsertVersion(ctx, doc, rootID); err != nil {
		return nil, models.InternalError("failed to save document version")
	}
	return doc, nil
}

// SubmitForApproval переводит документ из draft в pending.
func (s *DocumentService) SubmitForApproval(ctx context.Context, actor models.Actor, documentID string) (*models.Document, error) {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	owner := models.DocumentOwner{TenderID: doc.TenderID, BidID: doc.BidID}
	if err := s.authorizeOwner(ctx, actor, owner); err != nil {
		return nil, err
	}
	if doc.Status != models.DraftDocument {
		return nil, models.InvalidTransition(
			fmt.Sprintf("cannot submit document in '%s' status for approval", doc.Status))
	}
	updated, err := s.docs.SetApproval(ctx, documentID, models.PendingDocument, actor.UserID, nil)
	if err != nil {
		return nil, models.InternalError("failed to update document")
	}
	return updated, nil
}

// Approve согласует документ. Решение принимает заказчик тендера.
func (s *DocumentService) Approve(ctx context.Context, actor models.Actor, documentID string) (*models.Document, error) {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeReviewer(ctx, actor, doc); err != nil {
		return nil, err
	}
	if doc.Status != models.DraftDocument && doc.Status != models.PendingDocument {
		return nil, models.InvalidTransition(
			fmt.Sprintf("cannot approve document in '%s' status", doc.Status))
	}

	updated, err := s.docs.SetApproval(ctx, documentID, models.ApprovedDocument, actor.UserID, nil)
	if err != nil {
		return nil, models.InternalError("failed to update document")
	}

	s.fanout.Enqueue(doc.UploadedBy, models.DocumentApprovedEvent, map[string]any{
		"documentId": doc.ID,
		"fileName":   doc.FileName,
	})
	return updated, nil
}

// Reject отклоняет документ. Причина обязательна.
func (s *DocumentService) Reject(ctx context.Context, actor models.Actor, documentID, reason string) (*models.Document, error) {
	if reason == "" {
		return nil, models.ValidationError("rejection requires a reason")
	}

	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeReviewer(ctx, actor, doc); err != nil {
		return nil, err
	}
	if doc.Status != models.DraftDocument && doc.Status != models.PendingDocument {
		return nil, models.InvalidTransition(
			fmt.Sprintf("cannot reject document in '%s' status", doc.Status))
	}

	updated, err := s.docs.SetApproval(ctx, documentID, models.RejectedDocument, actor.UserID, &reason)
	if err != nil {
		return nil, models.InternalError("failed to update document")
	}

	s.fanout.Enqueue(doc.UploadedBy, models.DocumentRejectedEvent, map[string]any{
		"documentId": doc.ID,
		"fileName":   doc.FileName,
		"reason":     reason,
	})
	return updated, nil
}

// Download возвращает содержимое документа, предварительно пересчитав
// дайджест. Расхождение с сохранённым значением - IntegrityViolation,
// повреждённое содержимое наружу не отдаётся.
func (s *DocumentService) Download(ctx context.Context, documentID string) (*models.Document, []byte, error) {
	doc, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.store.Fetch(ctx, doc.Locator)
	if err != nil {
		return nil, nil, models.NotFound("document content not found in storage")
	}

	if storage.HashBytes(data) != doc.ContentHash {
		return nil, nil, models.IntegrityViolation(
			fmt.Sprintf("document %s content does not match its stored digest", doc.ID))
	}
	return doc, data, nil
}

// Versions возвращает историю версий документа.
func (s *DocumentService) Versions(ctx context.Context, documentID string) ([]models.Document, error) {
	versions, err := s.docs.Versions(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("document not found")
		}
		return nil, models.InternalError("failed to load version history")
	}
	return versions, nil
}

// List возвращает документы владельца с фильтрами.
func (s *DocumentService) List(ctx context.Context, owner models.DocumentOwner, category, status string, currentOnly bool) ([]models.Document, error) {
	docs, err := s.docs.ListByOwner(ctx, owner, category, status, currentOnly)
	if err != nil {
		return nil, models.InternalError("failed to list documents")
	}
	return docs, nil
}

// Stats возвращает производную статистику по документам владельца.
func (s *DocumentService) Stats(ctx context.Context, owner models.DocumentOwner) (*models.DocumentStats, error) {
	stats, err := s.docs.Stats(ctx, owner)
	if err != nil {
		return nil, models.InternalError("failed to compute document stats")
	}
	return stats, nil
}

func (s *DocumentService) getDocument(ctx context.Context, documentID string) (*models.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("document not found")
		}
		return nil, models.InternalError("failed to fetch document")
	}
	return doc, nil
}

func (s *DocumentService) validateFile(fileName string, data []byte) error {
	parts := strings.Split(fileName, ".")
	if len(parts) < 2 {
		return models.ValidationError("file name must carry an extension")
	}
	ext := strings.ToLower(parts[len(parts)-1])
	if !allowedExtensions[ext] {
		return models.ValidationError(fmt.Sprintf("invalid file type '%s'", ext))
	}
	if len(data) == 0 {
		return models.ValidationError("file is empty")
	}
	if len(data) > maxFileSize {
		return models.ValidationError("file exceeds the 50 MB limit")
	}
	return nil
}

// authorizeOwner проверяет, что вызывающий владеет тендером или
// предложением, к которому прикрепляется документ.
func (s *DocumentService) authorizeOwner(ctx context.Context, actor models.Actor, owner models.DocumentOwner) error {
	switch {
	case owner.TenderID != nil && owner.BidID != nil:
		return models.ValidationError("document must belong to a tender or a bid, not both")
	case owner.TenderID != nil:
		tender, err := s.tenders.GetByID(ctx, *owner.TenderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return models.NotFound("tender not found")
			}
			return models.InternalError("failed to fetch tender")
		}
		if tender.AuthorityID != actor.CompanyID {
			return models.Forbidden("only the tender authority can manage its documents")
		}
	case owner.BidID != nil:
		bid, err := s.bids.GetByID(ctx, *owner.BidID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return models.NotFound("bid not found")
			}
			return models.InternalError("failed to fetch bid")
		}
		if bid.CompanyID != actor.CompanyID {
			return models.Forbidden("only the bid owner can manage its documents")
		}
	default:
		return models.ValidationError("document owner is required")
	}
	return nil
}

// authorizeReviewer проверяет право согласовывать документ: для документов
// тендера это его заказчик, для документов предложения - заказчик
// родительского тендера.
func (s *DocumentService) authorizeReviewer(ctx context.Context, actor models.Actor, doc *models.Document) error {
	switch {
	case doc.TenderID != nil:
		tender, err := s.tenders.GetByID(ctx, *doc.TenderID)
		if err != nil {
			return models.InternalError("failed to fetch tender")
		}
		if tender.AuthorityID != actor.CompanyID {
			return models.Forbidden("only the tender authority can review this document")
		}
	case doc.BidID != nil:
		bid, err := s.bids.GetByID(ctx, *doc.BidID)
		if err != nil {
			return models.InternalError("failed to fetch bid")
		}
		tender, err := s.tenders.GetByID(ctx, bid.TenderID)
		if err != nil {
			return models.InternalError("failed to fetch tender")
		}
		if tender.AuthorityID != actor.CompanyID {
			return models.Forbidden("only the tender authority can review this document")
		}
	default:
		return models.ValidationError("document has no owner")
	}
	return nil
}
