package filing

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hummingbird-research/distress-cli/internal/fetcher"
	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// extractCharset is the encoding both IRS and IPEDS publish their CSV
// extracts in, as a WHATWG encoding label.
const extractCharset = "latin1"

// Load990CSV ingests one IRS 990 extract of the given filing type into the
// table. filter, when non-nil, restricts loading to the given cleaned EINs.
// Returns the number of filings loaded. name is used in diagnostics only.
func Load990CSV(ctx context.Context, r io.Reader, name string, ftype Standard, filter map[string]bool, tbl *Table) (int, error) {
	colMap := ColumnMap990(ftype)
	if colMap == nil {
		return 0, eris.Errorf("filing: %s is not a 990 filing type", ftype)
	}

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		Charset:   extractCharset,
		TrimSpace: true,
	})

	// Resolve raw columns to canonical indexes lazily from the header row.
	var fields []string // canonical name per column, "" = ignored
	einIdx, periodIdx := -1, -1
	loaded := 0

	for row := range rowCh {
		if fields == nil {
			header := <-headerCh
			fields = make([]string, len(header))
			for i, col := range header {
				if canonical, ok := colMap[col]; ok {
					fields[i] = canonical
				}
				switch {
				case strings.EqualFold(col, "EIN"):
					einIdx = i
				case fields[i] == "tax_period":
					periodIdx = i
				}
			}
			if einIdx < 0 {
				return 0, eris.Errorf("filing: %s has no EIN column", name)
			}
			if periodIdx < 0 {
				return 0, eris.Errorf("filing: %s has no tax period column", name)
			}
		}

		if einIdx >= len(row) || periodIdx >= len(row) {
			continue
		}
		ein := CleanEIN(row[einIdx])
		if ein == "" {
			continue
		}
		if filter != nil && !filter[ein] {
			continue
		}
		period := optval.Parse(row[periodIdx])
		if !period.Valid() {
			continue
		}
		// Tax periods are YYYYMM.
		year := int(period.Value()) / 100

		fy := NewYear()
		for i, canonical := range fields {
			if canonical == "" || canonical == "tax_period" || i >= len(row) {
				continue
			}
			if text990Fields[canonical] {
				fy.SetText(canonical, row[i])
			} else {
				fy.SetNum(canonical, optval.Parse(row[i]))
			}
		}
		tbl.Put(ein, year, fy, ftype)
		loaded++
	}
	if err := <-errCh; err != nil {
		return loaded, eris.Wrapf(err, "filing: load %s", name)
	}

	zap.L().Info("loaded 990 extract",
		zap.String("file", name),
		zap.String("filing_type", ftype.String()),
		zap.Int("filings", loaded),
	)
	return loaded, nil
}

// LoadIPEDSCSV ingests one IPEDS survey extract for the given survey year.
// Column resolution uses substring search since IPEDS headers drift between
// years. The accounting standard is detected per institution from whichever
// finance form carries totals.
func LoadIPEDSCSV(ctx context.Context, r io.Reader, name string, year int, filter map[string]bool, tbl *Table) (int, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		Charset:   extractCharset,
	})

	var colMap map[string]int
	loaded := 0

	for row := range rowCh {
		if colMap == nil {
			header := <-headerCh
			colMap = BuildIPEDSColumnMap(header)
			if _, ok := colMap["unitid"]; !ok {
				return 0, eris.Errorf("filing: %s has no unitid column", name)
			}
			zap.L().Debug("mapped ipeds columns",
				zap.String("file", name),
				zap.Int("mapped", len(colMap)),
				zap.Int("known", len(IPEDSVariableSearches)),
			)
		}

		uidIdx := colMap["unitid"]
		if uidIdx >= len(row) {
			continue
		}
		uid := CleanUnitID(row[uidIdx])
		if uid == "" {
			continue
		}
		if filter != nil && !filter[uid] {
			continue
		}

		fy := NewYear()
		for canonical, idx := range colMap {
			if canonical == "unitid" || idx >= len(row) {
				continue
			}
			if ipedsTextFields[canonical] {
				fy.SetText(canonical, strings.TrimSpace(row[idx]))
			} else {
				fy.SetNum(canonical, optval.Parse(row[idx]))
			}
		}

		std := DetectIPEDSStandard(fy)
		tbl.Put(uid, year, fy, std)
		loaded++
	}
	if err := <-errCh; err != nil {
		return loaded, eris.Wrapf(err, "filing: load %s", name)
	}

	zap.L().Info("loaded ipeds extract",
		zap.String("file", name),
		zap.Int("survey_year", year),
		zap.Int("institutions", loaded),
	)
	return loaded, nil
}
