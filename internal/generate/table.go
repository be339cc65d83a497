package generate

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"
)

// Table is the parameter table that defines the candidate space. Each group
// owns a disjoint set of slot indexes in a fixed-width array and is filled
// from an independent permutation of the alphabet; the candidate space is
// the cartesian product of the per-group permutations.
type Table struct {
	Alphabet []string `yaml:"alphabet"`
	Groups   [][]int  `yaml:"groups"`
}

// DefaultTable returns the built-in parameter table: a 15-slot array, three
// interleaved groups of five slots, alphabet b..f.
func DefaultTable() Table {
	return Table{
		Alphabet: []string{"b", "c", "d", "e", "f"},
		Groups: [][]int{
			{0, 3, 6, 9, 12},
			{1, 4, 7, 10, 13},
			{2, 5, 8, 11, 14},
		},
	}
}

// Width returns the candidate array width: the total number of slots.
func (t Table) Width() int {
	n := 0
	for _, g := range t.Groups {
		n += len(g)
	}
	return n
}

// Count returns the number of candidate arrays the table generates:
// (len(Alphabet)!)^len(Groups).
func (t Table) Count() int {
	fact := 1
	for i := 2; i <= len(t.Alphabet); i++ {
		fact *= i
	}
	total := 1
	for range t.Groups {
		total *= fact
	}
	return total
}

// Validate checks the structural invariants: at least one group, every
// group exactly alphabet-sized, and the groups covering each slot index
// 0..width-1 exactly once.
func (t Table) Validate() error {
	if len(t.Alphabet) == 0 {
		return eris.New("table: empty alphabet")
	}
	if len(t.Groups) == 0 {
		return eris.New("table: no groups")
	}

	width := t.Width()
	seen := make(map[int]bool, width)
	for i, g := range t.Groups {
		if len(g) != len(t.Alphabet) {
			return eris.Errorf("table: group %d has %d slots, want %d (alphabet size)", i, len(g), len(t.Alphabet))
		}
		for _, slot := range g {
			if slot < 0 || slot >= width {
				return eris.Errorf("table: group %d slot %d out of range [0,%d)", i, slot, width)
			}
			if seen[slot] {
				return eris.Errorf("table: slot %d assigned to more than one group", slot)
			}
			seen[slot] = true
		}
	}

	return nil
}

// LoadTable reads a parameter table from a YAML or XLSX file, falling back
// to the built-in table when path is empty.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	var (
		t   Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		t, err = loadYAMLTable(path)
	case ".xlsx":
		t, err = loadXLSXTable(path)
	default:
		return Table{}, eris.Errorf("table: unsupported format %q (want .yaml, .yml, or .xlsx)", filepath.Ext(path))
	}
	if err != nil {
		return Table{}, err
	}

	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

func loadYAMLTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, eris.Wrapf(err, "table: read %s", path)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, eris.Wrapf(err, "table: parse %s", path)
	}
	return t, nil
}

// loadXLSXTable reads the first sheet: row 1 holds the alphabet symbols,
// each following non-empty row holds one group's slot indexes.
func loadXLSXTable(path string) (Table, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return Table{}, eris.Wrapf(err, "table: open %s", path)
	}
	if len(wb.Sheets) == 0 {
		return Table{}, eris.Errorf("table: %s has no sheets", path)
	}

	sheet := wb.Sheets[0]
	var t Table
	for rowIdx, row := range sheet.Rows {
		var cells []string
		for _, cell := range row.Cells {
			v := strings.TrimSpace(cell.String())
			if v != "" {
				cells = append(cells, v)
			}
		}
		if len(cells) == 0 {
			continue
		}

		if rowIdx == 0 {
			t.Alphabet = cells
			continue
		}

		group := make([]int, 0, len(cells))
		for _, v := range cells {
			slot, convErr := strconv.Atoi(v)
			if convErr != nil {
				return Table{}, eris.Wrapf(convErr, "table: row %d: slot %q is not an integer", rowIdx+1, v)
			}
			group = append(group, slot)
		}
		t.Groups = append(t.Groups, group)
	}

	return t, nil
}
