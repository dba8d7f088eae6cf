package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title: "Complaints",
		Columns: []Column{
			{Key: "task_id", Label: "Task"},
			{Key: "status", Label: "Status"},
			{Key: "description", Label: "Description", Weight: 3},
		},
		Rows: []map[string]string{
			{"task_id": "TASK10001", "status": "Resolved", "description": "Leaking tap, \"urgent\""},
			{"task_id": "TASK10002", "status": "Pending", "description": strings.Repeat("fan noise ", 40)},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestRenderCSV(t *testing.T) {
	out, err := Render(FormatCSV, sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Task,Status,Description", lines[0])
	assert.Equal(t, `TASK10001,Resolved,"Leaking tap, ""urgent"""`, lines[1])
}

func TestRenderPDF(t *testing.T) {
	out, err := Render(FormatPDF, sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresColumns(t *testing.T) {
	_, err := Render(FormatCSV, Dataset{})
	assert.Error(t, err)
}

func TestColumnWidthsFollowWeights(t *testing.T) {
	widths := columnWidths(sampleDataset().Columns)
	assert.InDelta(t, pdfUsableWidth, widths[0]+widths[1]+widths[2], 0.001)
	assert.InDelta(t, widths[0]*3, widths[2], 0.001)
}
