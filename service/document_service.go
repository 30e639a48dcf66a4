package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"deal-underwriter/domain"
	"deal-underwriter/extractor"
	"deal-underwriter/repository"
)

// DocumentExtractor reads financial figures out of an uploaded statement.
type DocumentExtractor interface {
	Extract(ctx context.Context, docType domain.DocumentType, mimeType string, content []byte) (domain.ExtractedData, error)
}

type DocumentService struct {
	repo      repository.DealRepository
	results   ResultsInvalidator
	extractor DocumentExtractor
	log       zerolog.Logger
	now       func() time.Time
}

func NewDocumentService(
	repo repository.DealRepository,
	results ResultsInvalidator,
	extractor DocumentExtractor,
	log zerolog.Logger,
) *DocumentService {
	return &DocumentService{
		repo:      repo,
		results:   results,
		extractor: extractor,
		log:       log.With().Str("component", "documents").Logger(),
		now:       time.Now,
	}
}

// Upload stores a T12 or rent roll against a deal. The content type is
// sniffed rather than trusted; formats the extractor cannot read are kept
// with empty extracted data.
func (s *DocumentService) Upload(
	ctx context.Context,
	dealID string,
	docType domain.DocumentType,
	fileName string,
	content []byte,
) (domain.DocumentUpload, error) {

	if docType != domain.DocumentTypeT12 && docType != domain.DocumentTypeRentRoll {
		return domain.DocumentUpload{}, fmt.Errorf("%w: fileType must be %q or %q", ErrInvalidInput, domain.DocumentTypeT12, domain.DocumentTypeRentRoll)
	}
	if len(content) == 0 {
		return domain.DocumentUpload{}, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if len(content) > MaxDocumentSize {
		return domain.DocumentUpload{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, MaxDocumentSize)
	}

	if err := checkID("deal", dealID); err != nil {
		return domain.DocumentUpload{}, err
	}
	if _, err := s.repo.GetDeal(ctx, dealID); err != nil {
		return domain.DocumentUpload{}, fmt.Errorf("deal %q: %w", dealID, err)
	}

	mt := mimetype.Detect(content)
	if !mimetype.EqualsAny(mt.String(), AllowedDocumentTypes...) {
		return domain.DocumentUpload{}, fmt.Errorf("%w: %s", ErrUnsupportedDocument, mt.String())
	}

	data, err := s.extractor.Extract(ctx, docType, mt.String(), content)
	switch {
	case errors.Is(err, extractor.ErrUnsupportedFormat):
		s.log.Info().Str("deal_id", dealID).Str("mime", mt.String()).Msg("stored without extraction")
		data = domain.ExtractedData{}
	case err != nil:
		s.log.Warn().Err(err).Str("deal_id", dealID).Str("file", fileName).Msg("extraction failed")
		data = domain.ExtractedData{}
	}

	doc := domain.DocumentUpload{
		ID:            uuid.NewString(),
		DealID:        dealID,
		FileName:      filepath.Base(fileName),
		FileType:      docType,
		MimeType:      mt.String(),
		FileSize:      int64(len(content)),
		ExtractedData: data,
		UploadedAt:    s.now().UTC(),
	}
	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return domain.DocumentUpload{}, fmt.Errorf("save document: %w", err)
	}

	s.results.InvalidateResults(ctx, dealID)
	return doc, nil
}
