package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"go.uber.org/zap"
)

// DocumentService creates and reads stock documents
type DocumentService struct {
	documents inventory.DocumentRepository
	numbers   *DocumentNumberer
	logger    *zap.Logger
}

// NewDocumentService creates a new DocumentService. The numberer should be
// shared with the PostingService.
func NewDocumentService(documents inventory.DocumentRepository, numbers *DocumentNumberer, logger *zap.Logger) *DocumentService {
	if numbers == nil {
		numbers = NewDocumentNumberer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		documents: documents,
		numbers:   numbers,
		logger:    logger.Named("documents"),
	}
}

// Create stores a new draft document with a fresh number
func (s *DocumentService) Create(ctx context.Context, req CreateDocumentRequest) (*inventory.Document, error) {
	body, err := req.Body()
	if err != nil {
		return nil, err
	}
	doc, err := inventory.NewDocument(body, req.DocDate, req.CreatedBy)
	if err != nil {
		return nil, err
	}
	doc.Comment = req.Comment

	number, err := s.numbers.Next(ctx, s.documents, doc.Type(), doc.DocDate)
	if err != nil {
		return nil, err
	}
	doc.DocNumber = number

	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.Info("document created",
		zap.String("document_id", doc.ID.String()),
		zap.String("document_number", doc.DocNumber),
		zap.String("document_type", string(doc.Type())),
	)
	return doc, nil
}

// Get returns a document by id
func (s *DocumentService) Get(ctx context.Context, id uuid.UUID) (*inventory.Document, error) {
	return s.documents.FindByID(ctx, id)
}

// List returns documents newest first
func (s *DocumentService) List(ctx context.Context, filter inventory.DocumentFilter) ([]*inventory.Document, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.documents.FindAll(ctx, filter)
}
