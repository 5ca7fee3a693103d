package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/termharvest/models"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	records := []models.Record{
		{Russian: "чай", English: "tea", Polish: "herbata"},
		{Russian: "кофе", English: "coffee", Polish: "no pl text found"},
	}

	require.NoError(t, WriteWorkbook(path, "Results", records))

	rows := readRows(t, path, "Results")
	assert.Equal(t, [][]string{
		{"rus", "en", "pl"},
		{"чай", "tea", "herbata"},
		{"кофе", "coffee", "no pl text found"},
	}, rows)
}

func TestWriteWorkbook_OnlySheetIsResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, WriteWorkbook(path, "Results", nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Results"}, f.GetSheetList())

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"rus", "en", "pl"}}, rows)
}

func TestExcel_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "terms.xlsx")
	e := NewExcel(path, "Sheet1")

	require.NoError(t, e.Export([]models.Record{{Russian: "a", English: "b", Polish: "c"}}))
	assert.Equal(t, path, e.Location())

	rows := readRows(t, path, "Sheet1")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a", "b", "c"}, rows[1])
}

func TestValidateSheetName(t *testing.T) {
	assert.NoError(t, ValidateSheetName("Results"))
	assert.NoError(t, ValidateSheetName("Sheet1"))
	assert.Error(t, ValidateSheetName("Results[2024]/ru"))
	assert.Error(t, ValidateSheetName("a:b"))
	assert.Error(t, ValidateSheetName("abcdefghijklmnopqrstuvwxyz0123456"))
}
