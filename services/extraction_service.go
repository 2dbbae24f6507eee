package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/quickcert/certbackend/models"
	"github.com/quickcert/certbackend/ocr"
	"github.com/quickcert/certbackend/utils"
)

type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExtractionService runs OCR on an upload and, when an archive is
// configured, keeps a copy of the scan.
type ExtractionService struct {
	extractor *ocr.Extractor
	archive   utils.ScanArchive
	logger    *slog.Logger
	now       func() time.Time
}

// NewExtractionService accepts a nil archive.
func NewExtractionService(extractor *ocr.Extractor, archive utils.ScanArchive, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{
		extractor: extractor,
		archive:   archive,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ExtractionService) Extract(ctx context.Context, p models.Principal, upload Upload) (models.DraftExtraction, error) {
	draft, err := s.extractor.Extract(ctx, upload.Data)
	if err != nil {
		return models.DraftExtraction{}, err
	}

	if s.archive != nil {
		name := utils.ScanObjectName(p.ID, upload.Filename, upload.ContentType, s.now())
		url, err := s.archive.Put(ctx, name, upload.ContentType, upload.Data)
		if err != nil {
			s.logger.Warn("scan archive failed",
				slog.String("object", name),
				slog.String("error", err.Error()),
			)
		} else {
			draft.ScanURL = url
		}
	}
	return draft, nil
}
