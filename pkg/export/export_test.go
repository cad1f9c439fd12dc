package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Teacher load 2025/1",
		Headers: []string{"Teacher", "Hours"},
		Rows: []map[string]string{
			{"Teacher": "Ana Rojas", "Hours": "12.00"},
			{"Teacher": "Luis Vega", "Hours": "4.00", "Ignored": "x"},
		},
	}
}

func TestCSVExporter(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Teacher,Hours\nAna Rojas,12.00\nLuis Vega,4.00\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporter(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporter(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Teacher load 2025-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Teacher", "Hours"}, rows[0])
	assert.Equal(t, []string{"Luis Vega", "4.00"}, rows[2])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	r, err := RendererFor(f)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", r.Extension())

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}
