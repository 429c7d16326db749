// Package master holds the flat cross-source master table: one row per
// institution with year-suffixed financial and enrollment columns
// (revenue_2024, enrollment_2022, ...) accumulated across pipeline runs.
// Scoring reads it for backfill and contamination detection, then merges
// score columns back in and rewrites the CSV.
package master

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hummingbird-research/distress-cli/internal/distress"
	"github.com/hummingbird-research/distress-cli/internal/fetcher"
	"github.com/hummingbird-research/distress-cli/internal/filing"
	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// Table is the in-memory master file. Column lookup is case-insensitive;
// the original header casing is preserved on write.
type Table struct {
	header []string
	index  map[string]int
	rows   []*Row

	byUnitID map[string]*Row
	byEIN    map[string]*Row
}

// Row is one institution's master record.
type Row struct {
	t     *Table
	cells []string
}

// Load reads a master CSV. Rows are indexed by cleaned UNITID and EIN when
// those columns exist; either may be missing in single-source masters.
func Load(ctx context.Context, r io.Reader, name string) (*Table, error) {
	header, rows, err := fetcher.ReadCSV(ctx, r, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "master: read %s", name)
	}

	t := &Table{
		header:   header,
		index:    make(map[string]int, len(header)),
		byUnitID: make(map[string]*Row),
		byEIN:    make(map[string]*Row),
	}
	for i, h := range header {
		t.index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, cells := range rows {
		row := &Row{t: t, cells: cells}
		t.rows = append(t.rows, row)
		if uid := filing.CleanUnitID(row.Get("unitid")); uid != "" {
			t.byUnitID[uid] = row
		}
		if ein := filing.CleanEIN(row.Get("ein")); ein != "" {
			t.byEIN[ein] = row
		}
	}

	zap.L().Info("loaded master table",
		zap.String("file", name),
		zap.Int("rows", len(t.rows)),
		zap.Int("columns", len(header)),
	)
	return t, nil
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.rows) }

// Header returns the current column names, merge-back additions included.
func (t *Table) Header() []string { return t.header }

// Rows returns all rows in file order.
func (t *Table) Rows() []*Row { return t.rows }

// ByUnitID returns the row for a cleaned UNITID, nil when unknown.
func (t *Table) ByUnitID(id string) *Row { return t.byUnitID[id] }

// ByEIN returns the row for a cleaned EIN, nil when unknown.
func (t *Table) ByEIN(ein string) *Row { return t.byEIN[ein] }

// RowsWithSource returns rows whose data_source matches one of the given
// values, case-insensitively. With no data_source column every row matches.
func (t *Table) RowsWithSource(sources ...string) []*Row {
	if _, ok := t.index["data_source"]; !ok || len(sources) == 0 {
		return t.rows
	}
	var out []*Row
	for _, row := range t.rows {
		src := strings.ToLower(strings.TrimSpace(row.Get("data_source")))
		for _, want := range sources {
			if src == strings.ToLower(want) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// EnsureColumn returns the index of a column, appending it (and padding
// every row) when new.
func (t *Table) EnsureColumn(name string) int {
	key := strings.ToLower(name)
	if i, ok := t.index[key]; ok {
		return i
	}
	t.header = append(t.header, name)
	i := len(t.header) - 1
	t.index[key] = i
	return i
}

// GroupMembers extracts the inputs for contamination detection: every row
// with a UNITID and an EIN, with revenue and assets for the given year.
func (t *Table) GroupMembers(year int) []distress.GroupMember {
	yr := strconv.Itoa(year)
	var members []distress.GroupMember
	for _, row := range t.rows {
		uid := filing.CleanUnitID(row.Get("unitid"))
		ein := filing.CleanEIN(row.Get("ein"))
		if uid == "" || ein == "" {
			continue
		}
		members = append(members, distress.GroupMember{
			UnitID:  uid,
			EIN:     ein,
			Name:    row.Name(),
			Revenue: row.Num("revenue_" + yr),
			Assets:  row.Num("assets_" + yr),
		})
	}
	return members
}

// WriteCSV writes the table, including any columns added since load.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return eris.Wrap(err, "master: write header")
	}
	for _, row := range t.rows {
		out := make([]string, len(t.header))
		copy(out, row.cells)
		if err := cw.Write(out); err != nil {
			return eris.Wrap(err, "master: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "master: flush")
}

// Get returns a cell by column name, "" for unknown columns or short rows.
func (r *Row) Get(col string) string {
	i, ok := r.t.index[strings.ToLower(col)]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

// Num parses a cell as an optional float, absent for blanks and sentinels.
func (r *Row) Num(col string) optval.Float {
	return optval.Parse(r.Get(col))
}

// Set writes a cell, creating the column when needed.
func (r *Row) Set(col, val string) {
	i := r.t.EnsureColumn(col)
	for len(r.cells) <= i {
		r.cells = append(r.cells, "")
	}
	r.cells[i] = val
}

// Name returns the institution name under whichever header variant the
// master carries.
func (r *Row) Name() string {
	for _, col := range []string{"institution_name", "institution", "name"} {
		if v := r.Get(col); v != "" {
			return v
		}
	}
	return ""
}
