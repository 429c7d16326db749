package filing

// Column maps for the three IRS 990 extract layouts. Keys are the raw IRS
// column names, values are canonical field names. Each filing type exposes a
// different slice of the same underlying finances; mapping them onto shared
// names lets one indicator library serve all three.

// Standard990Columns maps the full Form 990 extract.
var Standard990Columns = map[string]string{
	// Identifiers
	"EIN":    "ein",
	"tax_pd": "tax_period",

	// Revenue
	"totrevenue":    "total_revenue",
	"totprgmrevnue": "program_revenue",
	"totcntrbgfts":  "contributions",
	"invstmntinc":   "investment_income",
	"netincfndrsng": "net_fundraising_income",
	"netrntlinc":    "net_rental_income",
	"netgnls":       "net_gains_securities",
	"netincsales":   "net_inventory_sales",
	"grsincgaming":  "gross_gaming_income",

	// Expenses
	"totfuncexpns":         "total_expenses",
	"compnsatncurrofcr":    "officer_compensation",
	"compnsatnandothr":     "other_compensation",
	"othrsalwages":         "other_salaries",
	"pensionplancontrb":    "pension_contributions",
	"othremplyeebenef":     "other_employee_benefits",
	"payrolltx":            "payroll_tax",
	"profndraising":        "fundraising_fees",
	"feesforsrvcmgmt":      "management_fees",
	"legalfees":            "legal_fees",
	"accntingfees":         "accounting_fees",
	"feesforsrvclobby":     "lobbying_fees",
	"feesforsrvcinvstmgmt": "investment_mgmt_fees",
	"feesforsrvcothr":      "other_service_fees",
	"advrtpromo":           "advertising",
	"occupancy":            "occupancy",
	"travel":               "travel",
	"deprcatndepletn":      "depreciation",
	"insurance":            "insurance",
	"interestamt":          "interest_expense",
	"pymtoaffiliates":      "payments_to_affiliates",
	"grntstogovt":          "grants_to_govt",
	"grnsttoindiv":         "grants_to_individuals",
	"grntstofrgngovt":      "grants_to_foreign",

	// Balance sheet
	"totassetsend":          "total_assets",
	"totliabend":            "total_liabilities",
	"totnetassetend":        "total_net_assets",
	"unrstrctnetasstsend":   "unrestricted_net_assets",
	"temprstrctnetasstsend": "temp_restricted_net_assets",
	"permrstrctnetasstsend": "perm_restricted_net_assets",
	"nonintcashend":         "cash",
	"svngstempinvend":       "savings_temp_investments",
	"accntsrcvblend":        "accounts_receivable",
	"pldgegrntrcvblend":     "pledges_receivable",
	"currfrmrcvblend":       "current_receivables_from_officers",
	"invntriesalesend":      "inventory",
	"prepaidexpnsend":       "prepaid_expenses",
	"lndbldgsequipend":      "land_buildings_equipment",
	"invstmntsend":          "investments_securities",
	"invstmntsothrend":      "investments_other",
	"invstmntsprgmend":      "investments_program",
	"intangibleassetsend":   "intangible_assets",
	"othrassetsend":         "other_assets",
	"accntspayableend":      "accounts_payable",
	"grntspayableend":       "grants_payable",
	"deferedrevnuend":       "deferred_revenue",
	"txexmptbndsend":        "tax_exempt_bonds",
	"secrdmrtgsend":         "secured_mortgages",
	"unsecurednotesend":     "unsecured_notes",
	"paybletoffcrsend":      "payable_to_officers",
	"othrliabend":           "other_liabilities",

	// Operational flags
	"noemplyeesw3cnt":      "employee_count",
	"ceaseoperationscd":    "ceased_operations",
	"sellorexchcd":         "sold_assets",
	"ownsepentcd":          "owns_separate_entity",
	"reltdorgcd":           "related_organization",
	"operateschools170cd":  "operates_schools",
	"operatehosptlcd":      "operates_hospital",
	"subseccd":             "subsection_code",
	"fw2gcnt":              "w2_count",
	"noindiv100kcnt":       "individuals_over_100k",
	"nocontractor100kcnt":  "contractors_over_100k",
}

// EZ990Columns maps the short-form 990-EZ extract.
var EZ990Columns = map[string]string{
	"EIN":   "ein",
	"taxpd": "tax_period",

	"totrevnue":          "total_revenue",
	"prgmservrev":        "program_revenue",
	"totcntrbs":          "contributions",
	"othrinvstinc":       "investment_income",
	"grsincgaming":       "gross_gaming_income",
	"grsrevnuefndrsng":   "gross_fundraising_revenue",
	"direxpns":           "direct_fundraising_expenses",
	"netincfndrsng":      "net_fundraising_income",
	"grsamtsalesastothr": "gross_asset_sales",
	"gnsaleofastothr":    "gain_on_asset_sales",
	"duesassesmnts":      "dues_assessments",
	"othrevnue":          "other_revenue",

	"totexpns":    "total_expenses",
	"totexcessyr": "surplus_deficit",

	"totassetsend":    "total_assets",
	"totliabend":      "total_liabilities",
	"totnetassetsend": "total_net_assets",
	"networthend":     "net_worth",

	"contractioncd":    "ceased_operations",
	"unrelbusincd":     "unrelated_business",
	"subseccd":         "subsection_code",
	"loanstoofficerscd": "loans_to_officers_flag",
	"loanstoofficers":  "loans_to_officers_amount",
	"politicalexpend":  "political_expenditures",
}

// PF990Columns maps the private-foundation 990-PF extract.
var PF990Columns = map[string]string{
	"EIN":     "ein",
	"TAX_PRD": "tax_period",

	"TOTRCPTPERBKS": "total_revenue",
	"GRSCONTRGIFTS": "contributions",
	"INTRSTRVNUE":   "interest_income",
	"DIVIDNDSAMT":   "dividend_income",
	"GRSRENTS":      "gross_rents",
	"GRSSLSPRAMT":   "gross_sales",
	"COSTSOLD":      "cost_of_goods_sold",
	"GRSPROFITBUS":  "gross_profit_business",
	"OTHERINCAMT":   "other_income",
	"NETINVSTINC":   "net_investment_income",

	"TOTEXPNSPBKS":   "total_expenses",
	"COMPOFFICERS":   "officer_compensation",
	"PENSPLEMPLBENF": "pension_benefits",
	"LEGALFEESAMT":   "legal_fees",
	"ACCOUNTINGFEES": "accounting_fees",
	"INTERESTAMT":    "interest_expense",
	"DEPRECIATIONAMT": "depreciation",
	"OCCUPANCYAMT":   "occupancy",
	"TRAVLCONFMTNGS": "travel",
	"CONTRPDPBKS":    "contributions_paid",

	"TOTASSETSEND":   "total_assets",
	"TOTLIABEND":     "total_liabilities",
	"TFUNDNWORTH":    "total_net_assets",
	"FAIRMRKTVALEOY": "fair_market_value",
	"OTHRCASHAMT":    "cash",
	"INVSTGOVTOBLIG": "govt_obligations",
	"INVSTCORPSTK":   "corp_stock",
	"INVSTCORPBND":   "corp_bonds",
	"TOTINVSTSEC":    "total_investments_securities",
	"MRTGLOANS":      "mortgage_loans",
	"OTHRINVSTEND":   "other_investments",
	"OTHRASSETSEOY":  "other_assets",
	"MRTGNOTESPAY":   "mortgage_notes_payable",
	"OTHRLIABLTSEOY": "other_liabilities",

	"OPERATINGCD": "is_operating",
	"CONTRACTNCD": "ceased_operations",
	"SUBCD":       "subsection_code",
	"EOSTATUS":    "eo_status",
}

// text990Fields holds the canonical names that carry categorical flags or
// codes rather than dollar amounts. These stay strings and are never coerced.
var text990Fields = map[string]bool{
	"ein":                    true,
	"ceased_operations":      true,
	"sold_assets":            true,
	"owns_separate_entity":   true,
	"related_organization":   true,
	"operates_schools":       true,
	"operates_hospital":      true,
	"subsection_code":        true,
	"is_operating":           true,
	"eo_status":              true,
	"unrelated_business":     true,
	"loans_to_officers_flag": true,
}

// ColumnMap990 returns the column map for a 990 filing type.
func ColumnMap990(s Standard) map[string]string {
	switch s {
	case Standard990:
		return Standard990Columns
	case EZ990:
		return EZ990Columns
	case PF990:
		return PF990Columns
	default:
		return nil
	}
}
