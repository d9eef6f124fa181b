package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/consultant-content-api/internal/models"
	appErrors "github.com/noah-isme/consultant-content-api/pkg/errors"
	"github.com/noah-isme/consultant-content-api/pkg/export"
)

var reviewExportHeaders = []string{"Review ID", "Created", "Consultant", "Student", "Rating", "Recommend", "Comment"}

type reviewLister interface {
	ListAll(ctx context.Context, limit, offset int) ([]models.ReviewDetail, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders administrative review exports.
type ExportService struct {
	reviews reviewLister
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the package defaults.
func NewExportService(reviews reviewLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reviews: reviews, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ExportReviews renders every review in the requested format.
func (s *ExportService) ExportReviews(ctx context.Context, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}

	items, _, err := s.reviews.ListAll(ctx, 0, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviews")
	}

	generated := s.now().UTC()
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Consultant reviews (%s)", generated.Format("2006-01-02")),
		Headers: reviewExportHeaders,
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Review ID":  item.ID,
			"Created":    item.CreatedAt.UTC().Format(time.RFC3339),
			"Consultant": displayName(item.ConsultantName, item.ConsultantID),
			"Student":    displayName(item.StudentName, item.StudentID),
			"Rating":     strconv.Itoa(item.Rating),
			"Recommend":  strconv.FormatBool(item.Recommend),
			"Comment":    item.Comment,
		})
	}

	var payload []byte
	switch format {
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset, dataset.Title)
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("reviews exported", zap.String("format", string(format)), zap.Int("rows", len(items)))
	return &ExportFile{
		Filename:    fmt.Sprintf("reviews_%s.%s", generated.Format("20060102_150405"), format),
		ContentType: format.ContentType(),
		Data:        payload,
	}, nil
}

func displayName(name *string, fallback string) string {
	if name != nil && *name != "" {
		return *name
	}
	return fallback
}
