package filing

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// Year holds the canonical fields of one entity for one filing year.
// Numeric fields are explicit optionals; categorical flags stay strings.
type Year struct {
	num  map[string]optval.Float
	text map[string]string
}

// NewYear returns an empty filing year.
func NewYear() *Year {
	return &Year{num: make(map[string]optval.Float), text: make(map[string]string)}
}

// Num returns a numeric field, absent when never set.
func (y *Year) Num(field string) optval.Float { return y.num[field] }

// SetNum stores a numeric field. Absent values are stored too so a re-load
// overwrites wholesale.
func (y *Year) SetNum(field string, v optval.Float) { y.num[field] = v }

// Fill stores v only when the field is currently absent. Used by master
// enrichment, which must never clobber surveyed values.
func (y *Year) Fill(field string, v optval.Float) bool {
	if y.num[field].Valid() || !v.Valid() {
		return false
	}
	y.num[field] = v
	return true
}

// Text returns a categorical field, "" when never set.
func (y *Year) Text(field string) string { return y.text[field] }

// SetText stores a categorical field.
func (y *Year) SetText(field, v string) { y.text[field] = v }

// Flag interprets a categorical field as a yes/no filing checkbox.
func (y *Year) Flag(field string) bool {
	switch strings.ToUpper(strings.TrimSpace(y.text[field])) {
	case "Y", "YES", "1", "TRUE":
		return true
	}
	return false
}

// PresentCount returns how many numeric fields are present. Used to report
// enrichment effect.
func (y *Year) PresentCount() int {
	n := 0
	for _, v := range y.num {
		if v.Valid() {
			n++
		}
	}
	return n
}

// Entity is one filer with its multi-year canonical series.
type Entity struct {
	ID       string
	Standard Standard
	years    map[int]*Year
}

// Year returns the filing year, nil when the entity never filed for it.
func (e *Entity) Year(year int) *Year { return e.years[year] }

// Years returns the filing years in ascending order.
func (e *Entity) Years() []int {
	ys := make([]int, 0, len(e.years))
	for y := range e.years {
		ys = append(ys, y)
	}
	sort.Ints(ys)
	return ys
}

// PriorYears returns years strictly before the given year, most recent first.
func (e *Entity) PriorYears(before int) []int {
	var ys []int
	for y := range e.years {
		if y < before {
			ys = append(ys, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))
	return ys
}

// Table indexes entities by their stable external key (cleaned EIN for 990
// filers, UNITID for IPEDS institutions). It is built during the load phase
// and read-only during scoring.
type Table struct {
	entities map[string]*Entity
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entities: make(map[string]*Entity)}
}

// Entity returns the entity for an ID, nil when unknown.
func (t *Table) Entity(id string) *Entity { return t.entities[id] }

// IDs returns all entity IDs in sorted order, giving scoring runs a
// deterministic iteration order.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.entities))
	for id := range t.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of entities.
func (t *Table) Len() int { return len(t.entities) }

// Put stores a filing year for an entity, creating the entity on first
// sight. A re-load of the same (entity, year) replaces the year wholesale.
// For 990 filing types a richer standard upgrades a weaker one; IPEDS
// standards are detected per row and simply overwrite.
func (t *Table) Put(id string, year int, fy *Year, std Standard) *Entity {
	e := t.entities[id]
	if e == nil {
		e = &Entity{ID: id, Standard: std, years: make(map[int]*Year)}
		t.entities[id] = e
	} else if std != StandardUnknown {
		if std.richness() > 0 || e.Standard.richness() > 0 {
			if std.richness() > e.Standard.richness() {
				e.Standard = std
			}
		} else {
			e.Standard = std
		}
	}
	e.years[year] = fy
	return e
}

// SetStandard forces an entity's accounting standard. The master file can
// mark IPEDS institutions whose finances came from a 990 filing.
func (t *Table) SetStandard(id string, std Standard) {
	if e := t.entities[id]; e != nil {
		e.Standard = std
	}
}

// MultiYearCount returns how many entities carry more than one filing year.
func (t *Table) MultiYearCount() int {
	n := 0
	for _, e := range t.entities {
		if len(e.years) > 1 {
			n++
		}
	}
	return n
}

// DetectIPEDSStandard inspects a loaded year's indicative totals and returns
// the accounting standard, in FASB > GASB > for-profit priority.
func DetectIPEDSStandard(fy *Year) Standard {
	switch {
	case fy.Num(fasbIndicatorField).Valid():
		return FASB
	case fy.Num(gasbIndicatorField).Valid():
		return GASB
	case fy.Num(forProfitIndicatorField).Valid():
		return ForProfit
	default:
		return StandardUnknown
	}
}

// ipedsFinancialFields make a survey year usable on their own even with no
// enrollment reported.
var ipedsFinancialFields = []string{
	"f2_total_assets", "f2_total_revenues",
	"f1a_total_assets", "f1a_total_revenues",
	"f3_total_assets", "f3_total_revenues",
}

// Usable reports whether a filing year carries enough data to score:
// enrollment, or any financial total.
func (e *Entity) Usable(year int) bool {
	fy := e.years[year]
	if fy == nil {
		return false
	}
	if fy.Num("total_enrollment").Valid() {
		return true
	}
	for _, f := range ipedsFinancialFields {
		if fy.Num(f).Valid() {
			return true
		}
	}
	return false
}

// multiYearFillFields are backfilled per year from master flat columns named
// field_YYYY. singleYearFillFields only fill the target year.
var multiYearFillFields = []string{
	"f2_total_revenues", "f2_total_expenses",
	"f2_total_assets", "f2_total_liabilities", "f2_total_net_assets",
	"f1a_total_revenues", "f1a_total_assets",
	"f1a_total_liabilities", "f1a_net_position",
	"f3_total_revenues", "f3_total_expenses",
	"f3_total_assets", "f3_total_liabilities", "f3_total_equity",
}

var singleYearFillFields = []string{
	"f2_unrestricted_na", "f2_ppe", "f2_debt_ppe",
	"f3_ppe", "f3_debt_ppe",
}

// InjectFills backfills absent canonical fields from master flat columns.
// lookup resolves a master column name to its value. Returns the number of
// fields filled. Present survey values are never overwritten.
func (e *Entity) InjectFills(lookup func(col string) optval.Float, targetYear int) int {
	filled := 0
	for year, fy := range e.years {
		for _, field := range multiYearFillFields {
			if fy.Num(field).Valid() {
				continue
			}
			if v := lookup(field + "_" + strconv.Itoa(year)); v.Valid() {
				if fy.Fill(field, v) {
					filled++
				}
			}
		}
	}
	if fy := e.years[targetYear]; fy != nil {
		for _, field := range singleYearFillFields {
			if v := lookup(field); v.Valid() {
				if fy.Fill(field, v) {
					filled++
				}
			}
		}
	}
	return filled
}

// CleanEIN normalizes an EIN for cross-source matching: trimmed, leading
// zeros stripped.
func CleanEIN(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "0")
	return s
}

// CleanUnitID normalizes a UNITID that may arrive as "123456", "123456.0",
// or padded with whitespace.
func CleanUnitID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
