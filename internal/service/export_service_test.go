package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/consultant-content-api/internal/models"
	appErrors "github.com/noah-isme/consultant-content-api/pkg/errors"
)

type reviewListerStub struct {
	items []models.ReviewDetail
	err   error
	limit int
}

func (s *reviewListerStub) ListAll(ctx context.Context, limit, offset int) ([]models.ReviewDetail, int, error) {
	s.limit = limit
	return s.items, len(s.items), s.err
}

func TestExportReviewsCSV(t *testing.T) {
	name := "Dr. Rivera"
	lister := &reviewListerStub{items: []models.ReviewDetail{
		{Review: models.Review{ID: "r1", StudentID: "s1", ConsultantID: "c1", Rating: 5, Comment: "great, thanks", Recommend: true}, ConsultantName: &name},
	}}
	svc := NewExportService(lister, zap.NewNop(), nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	file, err := svc.ExportReviews(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, lister.limit)
	assert.Equal(t, "reviews_20260304_050607.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(file.Data)
	assert.True(t, strings.HasPrefix(body, "Review ID,Created,Consultant,Student,Rating,Recommend,Comment"))
	assert.Contains(t, body, `r1,0001-01-01T00:00:00Z,Dr. Rivera,s1,5,true,"great, thanks"`)
}

func TestExportReviewsPDF(t *testing.T) {
	svc := NewExportService(&reviewListerStub{}, zap.NewNop(), nil, nil)

	file, err := svc.ExportReviews(context.Background(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportReviewsErrors(t *testing.T) {
	svc := NewExportService(&reviewListerStub{}, zap.NewNop(), nil, nil)
	_, err := svc.ExportReviews(context.Background(), "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	failing := NewExportService(&reviewListerStub{err: errors.New("db down")}, zap.NewNop(), nil, nil)
	_, err = failing.ExportReviews(context.Background(), "csv")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
