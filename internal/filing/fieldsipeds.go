package filing

import "strings"

// IPEDS extract headers are long human-readable descriptions that drift
// between survey years, so exact-name mapping does not work. Each canonical
// variable instead carries a lowercase substring that identifies its column,
// plus exclusion terms that reject near-miss columns (subtotals, allowances,
// begin-of-year balances).

// IPEDSVariableSearches maps canonical variable names to the lowercase
// substring searched for in column headers.
var IPEDSVariableSearches = map[string]string{
	"unitid":           "unitid",
	"institution_name": "institution name",
	"sector":           "sector of institution",
	"control":          "control of institution",
	"size_category":    "institution size category",

	"total_enrollment":      "total  enrollment",
	"ft_enrollment":         "full-time enrollment",
	"pt_enrollment":         "part-time enrollment",
	"grad_enrollment":       "graduate enrollment",
	"ft_retention_rate":     "full-time retention rate",
	"graduation_rate":       "graduation rate, total cohort",
	"student_faculty_ratio": "student-to-faculty ratio",
	"admissions_yield":      "admissions yield - total",
	"percent_admitted":      "percent admitted - total",

	// F2 / FASB
	"f2_total_assets":          "_f2.total assets",
	"f2_total_liabilities":     "_f2.total liabilities",
	"f2_total_net_assets":      "_f2.total net assets",
	"f2_unrestricted_na":       "_f2.total unrestricted net assets",
	"f2_restricted_na":         "_f2.total restricted net assets",
	"f2_total_revenues":        "_f2.total revenues and investment return",
	"f2_total_expenses":        "_f2.total expenses",
	"f2_change_na":             "_f2.total change in net assets",
	"f2_expendable_na":         "_f2.expendable net assets",
	"f2_lt_investments":        "_f2.long-term investments",
	"f2_ppe":                   "_f2.total plant, property",
	"f2_debt_ppe":              "_f2.debt related to property",
	"f2_tuition_fees":          "_f2.tuition and fees",
	"f2_federal_grants":        "_f2.federal grants and contracts - total",
	"f2_state_approp":          "_f2.state appropriations - total",
	"f2_private_gifts":         "_f2.private gifts, grants, and contracts - total",
	"f2_instruction":           "_f2.instruction-total amount",
	"f2_institutional_support": "_f2.institutional support-total amount",
	"f2_student_services":      "_f2.student service-total amount",

	// F1A / GASB
	"f1a_total_assets":      "_f1a.total assets",
	"f1a_total_liabilities": "_f1a.total liabilities",
	"f1a_net_position":      "_f1a.net position",
	"f1a_expendable_na":     "_f1a.expendable net assets",
	"f1a_operating_income":  "_f1a.operating income",
	"f1a_total_revenues":    "_f1a.total all revenues",
	"f1a_instruction":       "_f1a.instruction - current year total",
	"f1a_tuition_fees":      "_f1a.tuition and fees, after deducting",

	// F3 / for-profit
	"f3_total_assets":          "_f3.total assets",
	"f3_total_liabilities":     "_f3.total liabilities",
	"f3_total_equity":          "_f3.total equity",
	"f3_total_revenues":        "_f3.total revenues and investment return",
	"f3_total_expenses":        "_f3.total expenses",
	"f3_net_income":            "_f3.net income",
	"f3_ppe":                   "_f3.total plant, property",
	"f3_debt_ppe":              "_f3.plant-related debt",
	"f3_instruction":           "_f3.instruction-total amount",
	"f3_institutional_support": "_f3.institutional support-total amount",
	"f3_tuition_fees":          "_f3.tuition and fees",

	// Derived ratios published by IPEDS
	"equity_ratio_fasb": "equity ratio (fasb)",
	"equity_ratio_gasb": "equity ratio (gasb)",
	"tuition_pct_fasb":  "tuition and fees as a percent of core revenues (fasb)",
	"tuition_pct_gasb":  "tuition and fees as a percent of core revenues (gasb)",
	"endowment_per_fte": "endowment assets (year end) per fte",

	// Staffing
	"avg_salary":      "average salary equated to 9 months of full-time instructional staff - all",
	"total_fte_staff": "total fte staff",
}

// ipedsExcludeTerms rejects columns that contain the search term but mean
// something else: subtotals, allowances, percentages, begin-of-year values.
var ipedsExcludeTerms = map[string][]string{
	"grad_enrollment":   {"under", "full-time"},
	"f2_total_expenses": {"instruction", "research", "deduction"},
	"f3_total_expenses": {"instruction", "research", "salaries", "benefits",
		"depreciation", "interest", "operations", "other"},
	"f2_tuition_fees":  {"allowance", "percent", "after"},
	"f3_tuition_fees":  {"allowance", "discount", "after"},
	"f1a_net_position": {"begin", "change", "during"},
	"f3_total_equity":  {"begin", "end of year", "adjusted", ".1"},
}

// ipedsTextFields are kept as strings, never coerced to numbers.
var ipedsTextFields = map[string]bool{
	"unitid":           true,
	"institution_name": true,
	"sector":           true,
	"control":          true,
	"size_category":    true,
}

// Standard-detection indicator fields, in priority order. An institution
// reporting FASB totals is FASB even if GASB columns exist in the file.
const (
	fasbIndicatorField      = "f2_total_assets"
	gasbIndicatorField      = "f1a_total_assets"
	forProfitIndicatorField = "f3_total_assets"
)

// BuildIPEDSColumnMap resolves canonical variable names against an actual
// extract header. The first column containing the search term and none of
// the exclusion terms wins. Variables with no match are simply absent for
// that survey year.
func BuildIPEDSColumnMap(header []string) map[string]int {
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(h)
	}
	m := make(map[string]int)
	for name, term := range IPEDSVariableSearches {
		exclude := ipedsExcludeTerms[name]
		for i, cl := range lower {
			if !strings.Contains(cl, term) {
				continue
			}
			skip := false
			for _, ex := range exclude {
				if strings.Contains(cl, ex) {
					skip = true
					break
				}
			}
			if skip {
				continue
			}
			m[name] = i
			break
		}
	}
	return m
}
