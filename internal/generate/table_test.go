package generate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestLoadTable_EmptyPathUsesDefault(t *testing.T) {
	table, err := LoadTable("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable(), table)
}

func TestLoadTable_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	content := `
alphabet: [x, "y"]
groups:
  - [0, 2]
  - [1, 3]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, table.Alphabet)
	assert.Equal(t, [][]int{{0, 2}, {1, 3}}, table.Groups)
	assert.Equal(t, 4, table.Width())
}

func TestLoadTable_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.xlsx")

	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("params")
	require.NoError(t, err)

	alphabet := sheet.AddRow()
	alphabet.AddCell().SetString("x")
	alphabet.AddCell().SetString("y")

	g1 := sheet.AddRow()
	g1.AddCell().SetInt(0)
	g1.AddCell().SetInt(2)

	g2 := sheet.AddRow()
	g2.AddCell().SetInt(1)
	g2.AddCell().SetInt(3)

	require.NoError(t, wb.Save(path))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, table.Alphabet)
	assert.Equal(t, [][]int{{0, 2}, {1, 3}}, table.Groups)
}

func TestLoadTable_UnsupportedExtension(t *testing.T) {
	_, err := LoadTable("table.toml")
	require.Error(t, err)
}

func TestLoadTable_ValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	content := `
alphabet: [x, "y"]
groups:
  - [0, 1]
  - [1, 2]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one group")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		ok    bool
	}{
		{"default", DefaultTable(), true},
		{"empty alphabet", Table{Groups: [][]int{{0}}}, false},
		{"no groups", Table{Alphabet: []string{"a"}}, false},
		{"group size mismatch", Table{Alphabet: []string{"a", "b"}, Groups: [][]int{{0}}}, false},
		{"slot out of range", Table{Alphabet: []string{"a"}, Groups: [][]int{{5}}}, false},
		{"gap in coverage", Table{Alphabet: []string{"a", "b"}, Groups: [][]int{{0, 3}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
