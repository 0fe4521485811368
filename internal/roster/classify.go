package roster

import "strings"

// Tier classifies a sub-organization record by its name pattern.
type Tier int

const (
	TierCommittee     Tier = iota // 党委
	TierGeneralBranch             // 党总支
	TierBranch                    // 党支部
)

const (
	committeeToken = "党委"
	generalToken   = "总"
)

// Label returns the tier's canonical organization label.
func (t Tier) Label() string {
	switch t {
	case TierCommittee:
		return "党委"
	case TierGeneralBranch:
		return "党总支"
	default:
		return "党支部"
	}
}

// orgCategoryColumn is the fixed column carrying the organization category text.
const orgCategoryColumn = 3

// Classify maps one organization-roster record to its tier by the category
// text in column four. Matching is exclusive and ordered: the committee token
// wins over the general-branch token; everything else, including absent or
// non-text values, is an ordinary branch.
func Classify(record []Cell) Tier {
	var category string
	if len(record) > orgCategoryColumn {
		category = record[orgCategoryColumn].String()
	}
	switch {
	case strings.Contains(category, committeeToken):
		return TierCommittee
	case strings.Contains(category, generalToken):
		return TierGeneralBranch
	default:
		return TierBranch
	}
}

// TierCounts folds a de-headered organization roster into per-tier totals.
type TierCounts struct {
	Committee     int
	GeneralBranch int
	Branch        int
}

// CountTiers classifies every record of a de-headered organization roster.
func CountTiers(rows [][]Cell) TierCounts {
	var c TierCounts
	for _, row := range rows {
		switch Classify(row) {
		case TierCommittee:
			c.Committee++
		case TierGeneralBranch:
			c.GeneralBranch++
		default:
			c.Branch++
		}
	}
	return c
}
