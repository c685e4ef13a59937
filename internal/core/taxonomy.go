package core

// Carryover categories represent balances brought forward from a prior
// period. They count toward total income but are excluded from pure
// (period-earned) income.
const (
	CarryoverGeneral = "일반이월금"
	CarryoverSpecial = "특별이월금"

	// LegacyCarryover predates the per-fund split and is rewritten to
	// the matching fund's carryover category on load.
	LegacyCarryover = "전년이월금"

	// CategoryOther is the fallback bucket for free-form imports.
	CategoryOther = "기타"
)

// Taxonomy enumerates the legal category names per fund type and
// direction. It is static configuration loaded at startup; aggregation
// tolerates categories outside the tables (they pass through
// unclassified).
type Taxonomy struct {
	categories map[FundType]map[Direction][]string
	carryover  map[FundType]string
}

// DefaultTaxonomy returns the standard church-ledger classification
// tables.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		categories: map[FundType]map[Direction][]string{
			FundGeneral: {
				Income:  {CarryoverGeneral, "십일조", "주일헌금", "감사헌금", "절기헌금", "선교헌금", "기타수입"},
				Expense: {"운영비", "사역비", "인건비", "행정비", "예배비", "예비비"},
			},
			FundSpecial: {
				Income:  {CarryoverSpecial, "특별헌금", "건축헌금", "지정헌금"},
				Expense: {"선교비", "구제비", "특별사업비", "시설비"},
			},
		},
		carryover: map[FundType]string{
			FundGeneral: CarryoverGeneral,
			FundSpecial: CarryoverSpecial,
		},
	}
}

// Categories returns a copy of the legal category list for the given
// fund type and direction.
func (t *Taxonomy) Categories(ft FundType, d Direction) []string {
	cats := t.categories[ft][d]
	out := make([]string, len(cats))
	copy(out, cats)
	return out
}

// IsValid reports whether category is a known name for (ft, d).
func (t *Taxonomy) IsValid(ft FundType, d Direction, category string) bool {
	for _, c := range t.categories[ft][d] {
		if c == category {
			return true
		}
	}
	return false
}

// CarryoverCategory returns the carryover category of a fund type.
func (t *Taxonomy) CarryoverCategory(ft FundType) string {
	return t.carryover[ft]
}

// IsCarryover reports whether category is a carryover bucket of any
// fund type. The legacy combined name also counts so that unmigrated
// rows are still excluded from pure income.
func (t *Taxonomy) IsCarryover(category string) bool {
	if category == LegacyCarryover {
		return true
	}
	for _, c := range t.carryover {
		if c == category {
			return true
		}
	}
	return false
}

// Normalize maps free-form category text onto the tables: known names
// pass through, the legacy carryover name is rewritten per fund type,
// everything else falls into the CategoryOther bucket.
func (t *Taxonomy) Normalize(ft FundType, d Direction, category string) string {
	if category == LegacyCarryover {
		return t.carryover[ft]
	}
	if t.IsValid(ft, d, category) {
		return category
	}
	return CategoryOther
}

// GuessFundType infers the fund type of an imported row from its
// category name: categories found in the special-fund tables map to
// the special fund, everything else to the general fund.
func (t *Taxonomy) GuessFundType(category string) FundType {
	if t.IsValid(FundSpecial, Income, category) || t.IsValid(FundSpecial, Expense, category) {
		return FundSpecial
	}
	return FundGeneral
}
