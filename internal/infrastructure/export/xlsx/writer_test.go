package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

func TestWriteComplaintsProducesReadableWorkbook(t *testing.T) {
	created := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	complaints := []domain.Complaint{
		{ID: 1, Text: "My payment failed twice", Status: domain.StatusOpen, Sentiment: domain.SentimentNeutral, Category: domain.CategoryPayment, CreatedAt: created},
		{ID: 4, Text: "App crashes", Status: domain.StatusClosed, Sentiment: domain.SentimentNegative, Category: domain.CategoryTechnical, CreatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter().WriteComplaints(&buf, complaints))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Text", "Status", "Sentiment", "Category", "Created At"}, rows[0])
	assert.Equal(t, []string{"1", "My payment failed twice", "open", "neutral", "payment", "2026-10-16T09:00:00Z"}, rows[1])
	assert.Equal(t, "4", rows[2][0])
	assert.Equal(t, "closed", rows[2][2])
}

func TestWriteComplaintsEmptyStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter().WriteComplaints(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
